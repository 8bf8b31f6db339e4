package plugin

import "context"

// Sink delivers framed event records to one destination.
//
// Write receives one complete record per call, prefix and framing included.
// Callers serialize Write calls; implementations need not be safe for
// concurrent writes.
type Sink interface {
	Plugin
	Write(ctx context.Context, record []byte) error
}

// Rotator is implemented by sinks that can reopen their destination, e.g. a
// file after an external log rotation.
type Rotator interface {
	Rotate() error
}

// DropReporter is implemented by sinks that deliver records in the
// background after Write returned. The sink calls the registered function
// with the number of records it lost. The function is safe to call from any
// goroutine, including during Stop.
type DropReporter interface {
	OnDrop(func(n int))
}
