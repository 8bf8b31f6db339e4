// Package core defines sentinel errors.
package core

import "errors"

// Sentinel errors shared across packages.
var (
	// Configuration errors
	ErrConfigInvalid   = errors.New("evelog: invalid configuration")
	ErrInvalidSinkKind = errors.New("evelog: invalid sink kind")

	// Sink errors
	ErrSinkNotCompiled = errors.New("evelog: sink backend not compiled in")
	ErrSinkNotOpen     = errors.New("evelog: sink not open")
	ErrSinkClosed      = errors.New("evelog: sink closed")

	// Packet decoding errors
	ErrPacketTooShort   = errors.New("evelog: packet too short")
	ErrUnsupportedProto = errors.New("evelog: unsupported protocol")

	// Plugin errors
	ErrPluginNotFound   = errors.New("evelog: plugin not found")
	ErrPluginInitFailed = errors.New("evelog: plugin init failed")
)
