package eve

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrintable(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{"empty", nil, ""},
		{"plain", []byte("hello world"), "hello world"},
		{"control", []byte{0x41, 0x01, 0x42}, `A\x01B`},
		{"high bytes", []byte{0xff, 0x80}, `\xFF\x80`},
		{"newline and tab", []byte("a\nb\t"), `a\x0Ab\x09`},
		{"del", []byte{0x7f}, `\x7F`},
		{"edges", []byte{0x1f, 0x20, 0x7e}, `\x1F ~`},
		{"backslash kept", []byte(`\x`), `\x`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Printable(tt.in))
		})
	}
}
