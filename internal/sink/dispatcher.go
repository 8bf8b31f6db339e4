package sink

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"firestige.xyz/evelog/internal/core"
	"firestige.xyz/evelog/internal/membuf"
	"firestige.xyz/evelog/internal/metrics"
	"firestige.xyz/evelog/pkg/jsonbuilder"
	"firestige.xyz/evelog/pkg/plugin"
)

// State is the lifecycle state of a Dispatcher.
type State int32

const (
	StateUninitialized State = iota
	StateOpen
	StateWriting
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateOpen:
		return "open"
	case StateWriting:
		return "writing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Options configures a Dispatcher.
type Options struct {
	Kind Kind
	// SinkOptions is handed to the transport plugin's Init.
	SinkOptions map[string]any
	// Prefix is written before every record.
	Prefix string
	// SensorName is added to every record as "host" when set.
	SensorName string
	// PcapFile adds "pcap_filename" while a capture file name is known.
	PcapFile bool
}

// Dispatcher frames finished events and hands them to one transport.
// It is safe for concurrent use.
type Dispatcher struct {
	opts   Options
	suffix string
	sink   plugin.Sink

	mu      sync.Mutex // serializes transport access
	state   atomic.Int32
	dropped atomic.Uint64

	pcapFilename atomic.Pointer[string]

	written    prometheus.Counter
	droppedCtr prometheus.Counter
	size       prometheus.Observer
}

// NewDispatcher resolves the transport for opts.Kind. It fails with
// core.ErrSinkNotCompiled when no plugin is registered for the kind.
func NewDispatcher(opts Options) (*Dispatcher, error) {
	factory, err := plugin.GetSinkFactory(opts.Kind.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", core.ErrSinkNotCompiled, opts.Kind, err)
	}
	return newDispatcher(opts, factory()), nil
}

func newDispatcher(opts Options, s plugin.Sink) *Dispatcher {
	name := opts.Kind.String()
	return &Dispatcher{
		opts:       opts,
		suffix:     opts.Kind.Suffix(),
		sink:       s,
		written:    metrics.EventsWrittenTotal.WithLabelValues(name),
		droppedCtr: metrics.EventsDroppedTotal.WithLabelValues(name),
		size:       metrics.EventBytes.WithLabelValues(name),
	}
}

// Kind returns the configured destination kind.
func (d *Dispatcher) Kind() Kind {
	return d.opts.Kind
}

// State returns the current lifecycle state.
func (d *Dispatcher) State() State {
	return State(d.state.Load())
}

// Dropped returns the number of records lost to transport write failures.
func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}

// SetPcapFilename publishes the capture file currently being read. An empty
// name clears it.
func (d *Dispatcher) SetPcapFilename(name string) {
	if name == "" {
		d.pcapFilename.Store(nil)
		return
	}
	d.pcapFilename.Store(&name)
}

// PcapFilename returns the capture file name set last, or "".
func (d *Dispatcher) PcapFilename() string {
	if p := d.pcapFilename.Load(); p != nil {
		return *p
	}
	return ""
}

// Open initializes and starts the transport. It may be called once.
func (d *Dispatcher) Open(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if st := d.State(); st != StateUninitialized {
		return fmt.Errorf("open %s sink in state %s: %w", d.opts.Kind, st, core.ErrConfigInvalid)
	}
	if err := d.sink.Init(d.opts.SinkOptions); err != nil {
		return fmt.Errorf("%w: %s: %v", core.ErrPluginInitFailed, d.opts.Kind, err)
	}
	if r, ok := d.sink.(plugin.DropReporter); ok {
		r.OnDrop(d.recordDrops)
	}
	if err := d.sink.Start(ctx); err != nil {
		return fmt.Errorf("start %s sink: %w", d.opts.Kind, err)
	}
	d.state.Store(int32(StateOpen))
	slog.Info("sink opened", "sink", d.opts.Kind.String())
	return nil
}

// Dispatch adds the dispatch-time fields to js, closes it and writes the
// framed record through buf. buf must be empty; its contents are left in
// place for the caller to reset.
func (d *Dispatcher) Dispatch(ctx context.Context, js *jsonbuilder.Builder, buf *membuf.Buffer) error {
	if d.opts.SensorName != "" {
		if err := js.SetString("host", d.opts.SensorName); err != nil {
			return err
		}
	}
	if d.opts.PcapFile {
		if name := d.PcapFilename(); name != "" {
			if err := js.SetString("pcap_filename", name); err != nil {
				return err
			}
		}
	}
	if err := js.Close(); err != nil {
		return err
	}
	record, err := js.Bytes()
	if err != nil {
		return err
	}

	if d.opts.Prefix != "" {
		_, _ = buf.WriteString(d.opts.Prefix)
	}
	_, _ = buf.Write(record)
	if d.suffix != "" {
		_, _ = buf.WriteString(d.suffix)
	}
	return d.Write(ctx, buf.Bytes())
}

// Write hands one framed record to the transport. A transport failure is
// counted as a dropped record and is not returned; errors are returned only
// when the dispatcher is not open.
func (d *Dispatcher) Write(ctx context.Context, record []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch d.State() {
	case StateUninitialized:
		return core.ErrSinkNotOpen
	case StateClosed:
		return core.ErrSinkClosed
	}

	d.state.Store(int32(StateWriting))
	err := d.sink.Write(ctx, record)
	d.state.Store(int32(StateOpen))

	if err != nil {
		d.dropped.Add(1)
		d.droppedCtr.Inc()
		slog.Debug("sink write failed", "sink", d.opts.Kind.String(), "error", err)
		return nil
	}
	d.written.Inc()
	d.size.Observe(float64(len(record)))
	return nil
}

// recordDrops accounts records a background transport lost. It takes no
// lock since sinks may report while Close holds it.
func (d *Dispatcher) recordDrops(n int) {
	if n <= 0 {
		return
	}
	d.dropped.Add(uint64(n))
	d.droppedCtr.Add(float64(n))
	slog.Debug("sink lost records", "sink", d.opts.Kind.String(), "count", n)
}

// Rotate reopens the destination of transports that support it and is a
// no-op for the rest.
func (d *Dispatcher) Rotate() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.State() != StateOpen {
		return nil
	}
	r, ok := d.sink.(plugin.Rotator)
	if !ok {
		return nil
	}
	if err := r.Rotate(); err != nil {
		return fmt.Errorf("rotate %s sink: %w", d.opts.Kind, err)
	}
	slog.Info("sink rotated", "sink", d.opts.Kind.String())
	return nil
}

// Close stops the transport and reports dropped records. Only the first call
// has any effect.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	prev := d.State()
	if prev == StateClosed {
		return nil
	}
	d.state.Store(int32(StateClosed))

	var err error
	if prev != StateUninitialized {
		err = d.sink.Stop(ctx)
	}
	if n := d.dropped.Load(); n > 0 {
		slog.Warn("events were dropped due to slow or disconnected sink",
			"sink", d.opts.Kind.String(),
			"dropped", n,
		)
	}
	return err
}
