// Package plugins registers all built-in sink plugins.
package plugins

import (
	"firestige.xyz/evelog/pkg/plugin"
	"firestige.xyz/evelog/plugins/sink/file"
	"firestige.xyz/evelog/plugins/sink/kafka"
	"firestige.xyz/evelog/plugins/sink/nats"
	"firestige.xyz/evelog/plugins/sink/redis"
	"firestige.xyz/evelog/plugins/sink/unixsock"
)

func init() {
	plugin.RegisterSink("file", file.NewSink)
	plugin.RegisterSink("unix_dgram", unixsock.NewDgramSink)
	plugin.RegisterSink("unix_stream", unixsock.NewStreamSink)

	// Remote push sinks
	plugin.RegisterSink("redis", redis.NewSink)
	plugin.RegisterSink("kafka", kafka.NewSink)
	plugin.RegisterSink("nats", nats.NewSink)
}
