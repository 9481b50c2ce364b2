// Package bits holds the bit-string primitives shared by the telegram codec:
// conversions between decimal, binary and hexadecimal text, and a cursor and
// builder over '0'/'1' strings.
package bits

import (
	"encoding/hex"
	"math/big"
	"strings"
)

const hexDigits = "0123456789ABCDEF"

// DecimalToBinary parses text as a base-10 integer and returns its low-order
// width bits, zero-padded on the left. Malformed text yields width zeros.
func DecimalToBinary(text string, width int) string {
	if width <= 0 {
		return ""
	}
	n, ok := new(big.Int).SetString(strings.TrimSpace(text), 10)
	if !ok {
		return strings.Repeat("0", width)
	}
	// Mod keeps the two's-complement low bits for negative input.
	mod := new(big.Int).Lsh(big.NewInt(1), uint(width))
	n.Mod(n, mod)
	return pad(n.Text(2), width)
}

// FormatUint renders v as exactly width bits using the same truncation rule
// as DecimalToBinary.
func FormatUint(v uint64, width int) string {
	if width <= 0 {
		return ""
	}
	if width < 64 {
		v &= uint64(1)<<uint(width) - 1
	}
	var buf [64]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = '0' + byte(v&1)
		v >>= 1
	}
	return pad(string(buf[i:]), width)
}

func pad(s string, width int) string {
	if len(s) > width {
		return s[len(s)-width:]
	}
	if len(s) < width {
		return strings.Repeat("0", width-len(s)) + s
	}
	return s
}

// HexToBinary expands every hex digit into four bits. Characters that are
// not hex digits are skipped.
func HexToBinary(h string) string {
	var b strings.Builder
	b.Grow(len(h) * 4)
	for _, r := range h {
		var v int
		switch {
		case r >= '0' && r <= '9':
			v = int(r - '0')
		case r >= 'a' && r <= 'f':
			v = int(r-'a') + 10
		case r >= 'A' && r <= 'F':
			v = int(r-'A') + 10
		default:
			continue
		}
		b.WriteByte('0' + byte(v>>3&1))
		b.WriteByte('0' + byte(v>>2&1))
		b.WriteByte('0' + byte(v>>1&1))
		b.WriteByte('0' + byte(v&1))
	}
	return b.String()
}

// BinaryToHex right-pads bin with zeros to a nibble boundary and returns
// uppercase hex.
func BinaryToHex(bin string) string {
	if rem := len(bin) % 4; rem != 0 {
		bin += strings.Repeat("0", 4-rem)
	}
	var b strings.Builder
	b.Grow(len(bin) / 4)
	for i := 0; i < len(bin); i += 4 {
		v := 0
		for _, c := range bin[i : i+4] {
			v <<= 1
			if c == '1' {
				v |= 1
			}
		}
		b.WriteByte(hexDigits[v])
	}
	return b.String()
}

// HexToBytes decodes an even-length hex string.
func HexToBytes(h string) ([]byte, error) {
	return hex.DecodeString(strings.TrimSpace(h))
}

// BytesToHex encodes b as uppercase hex.
func BytesToHex(b []byte) string {
	return strings.ToUpper(hex.EncodeToString(b))
}

// IsBinary reports whether s only contains '0' and '1'.
func IsBinary(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] != '0' && s[i] != '1' {
			return false
		}
	}
	return true
}
