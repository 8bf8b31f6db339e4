// Package output ties the event serializer settings to one sink dispatcher
// and hands out per-worker buffers.
package output

import (
	"context"
	"fmt"

	"firestige.xyz/evelog/internal/config"
	"firestige.xyz/evelog/internal/core"
	"firestige.xyz/evelog/internal/eve"
	"firestige.xyz/evelog/internal/membuf"
	"firestige.xyz/evelog/internal/sink"
	"firestige.xyz/evelog/pkg/jsonbuilder"
)

// Output is the process-wide output context. It is read-only after New
// returns, apart from the dispatcher's own state.
type Output struct {
	settings   *eve.Settings
	dispatcher *sink.Dispatcher
	bufferSize int
}

// New builds the serializer settings and opens the configured sink. cfg must
// already be validated. Any error is fatal for the caller.
func New(ctx context.Context, cfg *config.GlobalConfig, names core.NameResolver) (*Output, error) {
	ec := cfg.EveLog

	settings := eve.DefaultSettings()
	settings.SensorID = ec.SensorIDN
	settings.IncludeMetadata = ec.Metadata
	settings.IncludeCommunityID = ec.CommunityID
	settings.CommunityIDSeed = ec.SeedN
	settings.Names = names

	d, err := sink.NewDispatcher(sink.Options{
		Kind:        ec.Kind,
		SinkOptions: ec.Options,
		Prefix:      ec.Prefix,
		SensorName:  cfg.SensorName,
		PcapFile:    ec.PcapFile,
	})
	if err != nil {
		return nil, err
	}
	if err := d.Open(ctx); err != nil {
		return nil, fmt.Errorf("open output: %w", err)
	}

	size := ec.BufferSize
	if size <= 0 {
		size = membuf.DefaultSize
	}
	return &Output{settings: settings, dispatcher: d, bufferSize: size}, nil
}

// Settings returns the serializer settings shared by all workers.
func (o *Output) Settings() *eve.Settings {
	return o.settings
}

// Dispatcher returns the sink dispatcher.
func (o *Output) Dispatcher() *sink.Dispatcher {
	return o.dispatcher
}

// SetPcapFilename publishes the capture file being read.
func (o *Output) SetPcapFilename(name string) {
	o.dispatcher.SetPcapFilename(name)
}

// Rotate reopens the sink destination where the transport supports it.
func (o *Output) Rotate() error {
	return o.dispatcher.Rotate()
}

// Close tears down the sink and returns the number of dropped records.
func (o *Output) Close(ctx context.Context) (uint64, error) {
	err := o.dispatcher.Close(ctx)
	return o.dispatcher.Dropped(), err
}

// NewThread returns the output state of one worker goroutine. A Thread must
// not be shared between goroutines.
func (o *Output) NewThread() *Thread {
	return &Thread{out: o, buf: membuf.New(o.bufferSize)}
}

// Thread owns the reusable serialization buffer of one worker.
type Thread struct {
	out *Output
	buf *membuf.Buffer
}

// Settings returns the shared serializer settings.
func (t *Thread) Settings() *eve.Settings {
	return t.out.settings
}

// Log dispatches one event and resets the buffer for the next one.
func (t *Thread) Log(ctx context.Context, js *jsonbuilder.Builder) error {
	defer t.buf.Reset()
	return t.out.dispatcher.Dispatch(ctx, js, t.buf)
}

// BufferCap reports the current capacity of the thread buffer.
func (t *Thread) BufferCap() int {
	return t.buf.Cap()
}
