package membuf

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	b := New(0)
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, DefaultSize, b.Cap())
}

func TestWrite_WithinCapacity(t *testing.T) {
	b := New(16)
	n, err := b.WriteString("hello")
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, 16, b.Cap())
	assert.Equal(t, "hello", string(b.Bytes()))
}

func TestWrite_GrowsByIncrement(t *testing.T) {
	b := NewWithIncrement(8, 32)
	_, _ = b.WriteString("12345678")
	_, _ = b.WriteString("9")

	assert.Equal(t, 8+32, b.Cap())
	assert.Equal(t, "123456789", string(b.Bytes()))
}

func TestWrite_PayloadLargerThanIncrement(t *testing.T) {
	b := NewWithIncrement(4, 2)
	_, _ = b.WriteString("ab")

	payload := bytes.Repeat([]byte{0x5a}, 1000)
	n, err := b.Write(payload)
	require.NoError(t, err)
	assert.Equal(t, len(payload), n)

	out := b.Bytes()
	require.Len(t, out, 2+len(payload))
	assert.Equal(t, "ab", string(out[:2]))
	assert.Equal(t, payload, out[2:])
	assert.GreaterOrEqual(t, b.Cap(), b.Len())
}

func TestExpand_PreservesContent(t *testing.T) {
	b := New(4)
	_, _ = b.WriteString("abcd")
	b.Expand(10)

	assert.Equal(t, 14, b.Cap())
	assert.Equal(t, 4, b.Len())
	assert.Equal(t, "abcd", string(b.Bytes()))

	b.Expand(0)
	assert.Equal(t, 14, b.Cap())
}

func TestReset_KeepsStorage(t *testing.T) {
	b := New(8)
	_, _ = b.WriteString("0123456789")
	capBefore := b.Cap()

	b.Reset()
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, capBefore, b.Cap())

	_, _ = b.WriteString("xy")
	assert.Equal(t, "xy", string(b.Bytes()))
}
