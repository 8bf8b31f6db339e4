// Package jsonbuilder builds a JSON document incrementally into a single byte
// slice. Objects and arrays are opened and closed explicitly, keys keep their
// insertion order, and the finished document is read once with Bytes.
package jsonbuilder

import (
	"errors"
	"strconv"
	"unicode/utf8"
)

var (
	// ErrInvalidState is returned when an operation does not fit the
	// currently open container, e.g. a keyed set inside an array.
	ErrInvalidState = errors.New("jsonbuilder: invalid state")
	// ErrNotClosed is returned by Bytes while containers are still open.
	ErrNotClosed = errors.New("jsonbuilder: document not closed")
)

type state uint8

const (
	objectFirst state = iota
	objectNth
	arrayFirst
	arrayNth
)

// Builder is a streaming JSON writer. It is not safe for concurrent use.
type Builder struct {
	buf   []byte
	stack []state
}

// NewObject returns a builder whose document root is an object.
func NewObject() *Builder {
	return &Builder{
		buf:   append(make([]byte, 0, 256), '{'),
		stack: append(make([]state, 0, 8), objectFirst),
	}
}

// NewArray returns a builder whose document root is an array.
func NewArray() *Builder {
	return &Builder{
		buf:   append(make([]byte, 0, 64), '['),
		stack: append(make([]state, 0, 8), arrayFirst),
	}
}

// Done reports whether the root container has been closed.
func (b *Builder) Done() bool {
	return len(b.stack) == 0
}

// Len returns the number of bytes written so far.
func (b *Builder) Len() int {
	return len(b.buf)
}

// Bytes returns the serialized document. The root container must be closed.
func (b *Builder) Bytes() ([]byte, error) {
	if !b.Done() {
		return nil, ErrNotClosed
	}
	return b.buf, nil
}

// OpenObject starts a nested object under key.
func (b *Builder) OpenObject(key string) error {
	if err := b.key(key); err != nil {
		return err
	}
	b.buf = append(b.buf, '{')
	b.stack = append(b.stack, objectFirst)
	return nil
}

// OpenArray starts a nested array under key.
func (b *Builder) OpenArray(key string) error {
	if err := b.key(key); err != nil {
		return err
	}
	b.buf = append(b.buf, '[')
	b.stack = append(b.stack, arrayFirst)
	return nil
}

// StartObject starts a new object as the next element of the open array.
func (b *Builder) StartObject() error {
	if err := b.element(); err != nil {
		return err
	}
	b.buf = append(b.buf, '{')
	b.stack = append(b.stack, objectFirst)
	return nil
}

// StartArray starts a new array as the next element of the open array.
func (b *Builder) StartArray() error {
	if err := b.element(); err != nil {
		return err
	}
	b.buf = append(b.buf, '[')
	b.stack = append(b.stack, arrayFirst)
	return nil
}

// Close closes the innermost open object or array.
func (b *Builder) Close() error {
	n := len(b.stack)
	if n == 0 {
		return ErrInvalidState
	}
	switch b.stack[n-1] {
	case objectFirst, objectNth:
		b.buf = append(b.buf, '}')
	default:
		b.buf = append(b.buf, ']')
	}
	b.stack = b.stack[:n-1]
	return nil
}

// SetString sets a string value in the open object.
func (b *Builder) SetString(key, val string) error {
	if err := b.key(key); err != nil {
		return err
	}
	b.buf = appendString(b.buf, val)
	return nil
}

// SetUint sets an unsigned integer value in the open object.
func (b *Builder) SetUint(key string, val uint64) error {
	if err := b.key(key); err != nil {
		return err
	}
	b.buf = strconv.AppendUint(b.buf, val, 10)
	return nil
}

// SetInt sets a signed integer value in the open object.
func (b *Builder) SetInt(key string, val int64) error {
	if err := b.key(key); err != nil {
		return err
	}
	b.buf = strconv.AppendInt(b.buf, val, 10)
	return nil
}

// SetBool sets a boolean value in the open object.
func (b *Builder) SetBool(key string, val bool) error {
	if err := b.key(key); err != nil {
		return err
	}
	b.buf = strconv.AppendBool(b.buf, val)
	return nil
}

// SetObject copies the closed document of child under key. The child may be
// an object or an array.
func (b *Builder) SetObject(key string, child *Builder) error {
	if !child.Done() {
		return ErrNotClosed
	}
	if err := b.key(key); err != nil {
		return err
	}
	b.buf = append(b.buf, child.buf...)
	return nil
}

// AppendString appends a string element to the open array.
func (b *Builder) AppendString(val string) error {
	if err := b.element(); err != nil {
		return err
	}
	b.buf = appendString(b.buf, val)
	return nil
}

// AppendUint appends an unsigned integer element to the open array.
func (b *Builder) AppendUint(val uint64) error {
	if err := b.element(); err != nil {
		return err
	}
	b.buf = strconv.AppendUint(b.buf, val, 10)
	return nil
}

// AppendObject appends the closed document of child to the open array.
func (b *Builder) AppendObject(child *Builder) error {
	if !child.Done() {
		return ErrNotClosed
	}
	if err := b.element(); err != nil {
		return err
	}
	b.buf = append(b.buf, child.buf...)
	return nil
}

// key writes the separator and `"key":` for a member of the open object.
func (b *Builder) key(key string) error {
	n := len(b.stack)
	if n == 0 {
		return ErrInvalidState
	}
	switch b.stack[n-1] {
	case objectFirst:
		b.stack[n-1] = objectNth
	case objectNth:
		b.buf = append(b.buf, ',')
	default:
		return ErrInvalidState
	}
	b.buf = appendString(b.buf, key)
	b.buf = append(b.buf, ':')
	return nil
}

// element writes the separator for the next element of the open array.
func (b *Builder) element() error {
	n := len(b.stack)
	if n == 0 {
		return ErrInvalidState
	}
	switch b.stack[n-1] {
	case arrayFirst:
		b.stack[n-1] = arrayNth
	case arrayNth:
		b.buf = append(b.buf, ',')
	default:
		return ErrInvalidState
	}
	return nil
}

const hex = "0123456789abcdef"

// appendString appends s as a quoted JSON string. Invalid UTF-8 is replaced
// with U+FFFD.
func appendString(dst []byte, s string) []byte {
	dst = append(dst, '"')
	start := 0
	for i := 0; i < len(s); {
		c := s[i]
		if c < utf8.RuneSelf {
			if c >= 0x20 && c != '"' && c != '\\' {
				i++
				continue
			}
			dst = append(dst, s[start:i]...)
			switch c {
			case '"', '\\':
				dst = append(dst, '\\', c)
			case '\n':
				dst = append(dst, '\\', 'n')
			case '\r':
				dst = append(dst, '\\', 'r')
			case '\t':
				dst = append(dst, '\\', 't')
			default:
				dst = append(dst, '\\', 'u', '0', '0', hex[c>>4], hex[c&0xF])
			}
			i++
			start = i
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			dst = append(dst, s[start:i]...)
			dst = append(dst, "\ufffd"...)
			i += size
			start = i
			continue
		}
		if r == '\u2028' || r == '\u2029' {
			dst = append(dst, s[start:i]...)
			dst = append(dst, '\\', 'u', '2', '0', '2', hex[r&0xF])
			i += size
			start = i
			continue
		}
		i += size
	}
	dst = append(dst, s[start:]...)
	return append(dst, '"')
}
