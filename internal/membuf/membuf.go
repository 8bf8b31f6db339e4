// Package membuf implements the growable byte buffer events are staged in
// before they are handed to a sink.
package membuf

// DefaultSize is the initial capacity and growth increment used when none is
// configured.
const DefaultSize = 65535

// Buffer is an append-only byte buffer with an explicit growth increment.
// A Buffer is owned by one goroutine at a time.
type Buffer struct {
	data     []byte
	expandBy int
}

// New returns a buffer with the given initial capacity. The capacity is also
// the minimum growth increment.
func New(size int) *Buffer {
	if size <= 0 {
		size = DefaultSize
	}
	return &Buffer{
		data:     make([]byte, 0, size),
		expandBy: size,
	}
}

// NewWithIncrement returns a buffer with separate initial capacity and growth
// increment.
func NewWithIncrement(size, expandBy int) *Buffer {
	b := New(size)
	if expandBy > 0 {
		b.expandBy = expandBy
	}
	return b
}

// Len returns the write offset.
func (b *Buffer) Len() int { return len(b.data) }

// Cap returns the current capacity.
func (b *Buffer) Cap() int { return cap(b.data) }

// Bytes returns the written bytes. The slice is valid until the next write
// or reset.
func (b *Buffer) Bytes() []byte { return b.data }

// Reset sets the write offset back to zero and keeps the storage.
func (b *Buffer) Reset() { b.data = b.data[:0] }

// Expand grows the capacity by at least n bytes, preserving the content.
func (b *Buffer) Expand(n int) {
	if n <= 0 {
		return
	}
	grown := make([]byte, len(b.data), cap(b.data)+n)
	copy(grown, b.data)
	b.data = grown
}

// Write appends p, growing the buffer by at least the configured increment
// when it does not fit. It never truncates and always returns len(p), nil.
func (b *Buffer) Write(p []byte) (int, error) {
	b.ensure(len(p))
	b.data = append(b.data, p...)
	return len(p), nil
}

// WriteString appends s like Write.
func (b *Buffer) WriteString(s string) (int, error) {
	b.ensure(len(s))
	b.data = append(b.data, s...)
	return len(s), nil
}

func (b *Buffer) ensure(n int) {
	free := cap(b.data) - len(b.data)
	if n <= free {
		return
	}
	b.Expand(max(b.expandBy, n-free))
}
