package eve

import "strings"

const upperHex = "0123456789ABCDEF"

// Printable renders b as text: printable ASCII passes through, every other
// byte becomes \xHH with uppercase hex digits.
func Printable(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, c := range b {
		if c >= 0x20 && c <= 0x7e {
			sb.WriteByte(c)
			continue
		}
		sb.WriteString(`\x`)
		sb.WriteByte(upperHex[c>>4])
		sb.WriteByte(upperHex[c&0x0f])
	}
	return sb.String()
}
