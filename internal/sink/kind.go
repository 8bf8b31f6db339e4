// Package sink delivers serialized events to the configured destination. The
// destination kind is resolved once at startup into a plugin.Sink; the
// Dispatcher frames each record and serializes writes to it.
package sink

import (
	"fmt"
	"strings"

	"firestige.xyz/evelog/internal/core"
)

// Kind is a sink destination kind.
type Kind int

const (
	KindFile Kind = iota + 1
	KindSyslog
	KindUnixDgram
	KindUnixStream
	KindRedis
	KindKafka
	KindNATS
)

var kindNames = map[Kind]string{
	KindFile:       "file",
	KindSyslog:     "syslog",
	KindUnixDgram:  "unix_dgram",
	KindUnixStream: "unix_stream",
	KindRedis:      "redis",
	KindKafka:      "kafka",
	KindNATS:       "nats",
}

var kindAliases = map[string]Kind{
	"regular": KindFile,
}

// ParseKind parses a configured kind name. Matching is case-insensitive.
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if k, ok := kindAliases[name]; ok {
		return k, nil
	}
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", core.ErrInvalidSinkKind, s)
}

// String returns the canonical kind name, which is also the name the
// transport plugin registers under.
func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Suffix returns the framing appended after every record.
func (k Kind) Suffix() string {
	switch k {
	case KindFile, KindUnixDgram, KindUnixStream:
		return "\n"
	default:
		return ""
	}
}

// RemotePush reports whether the kind pushes records to a remote broker or
// store.
func (k Kind) RemotePush() bool {
	switch k {
	case KindRedis, KindKafka, KindNATS:
		return true
	default:
		return false
	}
}
