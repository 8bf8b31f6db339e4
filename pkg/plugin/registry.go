package plugin

import (
	"fmt"
	"sort"
	"sync"

	"firestige.xyz/evelog/internal/core"
)

// SinkFactory creates an uninitialized sink.
type SinkFactory func() Sink

// registry maps plugin names to factories of one plugin type.
type registry[F any] struct {
	mu        sync.RWMutex
	kind      string
	factories map[string]F
}

func newRegistry[F any](kind string) *registry[F] {
	return &registry[F]{kind: kind, factories: make(map[string]F)}
}

func (r *registry[F]) register(name string, f F) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; exists {
		panic(fmt.Sprintf("plugin: %s %q registered twice", r.kind, name))
	}
	r.factories[name] = f
}

func (r *registry[F]) get(name string) (F, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	if !ok {
		var zero F
		return zero, fmt.Errorf("%s %q: %w", r.kind, name, core.ErrPluginNotFound)
	}
	return f, nil
}

func (r *registry[F]) names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for name := range r.factories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Reset removes every registration. Tests only.
func (r *registry[F]) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories = make(map[string]F)
}

var sinkReg = newRegistry[SinkFactory]("sink")

// RegisterSink registers a sink factory under name. It panics when the name
// is taken, so it is meant to be called from init functions.
func RegisterSink(name string, f SinkFactory) {
	sinkReg.register(name, f)
}

// GetSinkFactory returns the factory registered under name, or an error
// wrapping core.ErrPluginNotFound.
func GetSinkFactory(name string) (SinkFactory, error) {
	return sinkReg.get(name)
}

// SinkNames lists the registered sink names in sorted order.
func SinkNames() []string {
	return sinkReg.names()
}
