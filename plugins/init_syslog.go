//go:build !windows && !plan9

package plugins

import (
	"firestige.xyz/evelog/pkg/plugin"
	"firestige.xyz/evelog/plugins/sink/syslog"
)

func init() {
	plugin.RegisterSink("syslog", syslog.NewSink)
}
