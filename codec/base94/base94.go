// Package base94 implements the JSON-safe numeric base encoding used to pack
// arbitrary bytes into strings that can be embedded in a JSON string literal
// without escaping.
//
// The alphabet is the 94 ASCII codepoints 32-127 excluding the double quote
// (34) and backslash (92) - the two characters that would need escaping
// inside a JSON string. Encoding is a classical big-number base
// conversion (the same approach as Base58/Base62 encoders), not a positional
// byte-by-byte mapping, which is what gives it a lower expansion factor than
// Base64 (~1.22x vs ~1.33x).
package base94

import "math/big"

// Alphabet is the fixed, literal 94-character code point list. Order matters:
// position in this slice is the digit value. Must be reproduced byte-for-byte
// by every peer for round-trips to stay stable. Note the final entry is 127
// (DEL), not a printable character - this follows the canonical charset
// byte-for-byte rather than the "32-126" shorthand description of it, which
// undercounts by one.
var Alphabet = [94]byte{
	32, 33, 35, 36, 37, 38, 39, 40, 41, 42, 43, 44, 45, 46, 47, 48, 49, 50, 51, 52, 53, 54, 55, 56,
	57, 58, 59, 60, 61, 62, 63, 64, 65, 66, 67, 68, 69, 70, 71, 72, 73, 74, 75, 76, 77, 78, 79, 80,
	81, 82, 83, 84, 85, 86, 87, 88, 89, 90, 91, 93, 94, 95, 96, 97, 98, 99, 100, 101, 102, 103,
	104, 105, 106, 107, 108, 109, 110, 111, 112, 113, 114, 115, 116, 117, 118, 119, 120, 121, 122,
	123, 124, 125, 126, 127,
}

var reverseAlphabet = buildReverse()

func buildReverse() map[byte]int64 {
	m := make(map[byte]int64, len(Alphabet))
	for i, c := range Alphabet {
		m[c] = int64(i)
	}
	return m
}

// BadDataError is returned when decoding encounters a byte outside the
// alphabet. It is the only error this package returns.
type BadDataError struct {
	Msg string
}

func (e *BadDataError) Error() string { return e.Msg }

// Encode converts bytes to a Base94 string. Leading zero bytes in data are
// preserved as leading Alphabet[0] characters, exactly as a Base58-style
// encoder handles them, so round-tripping data with leading zero bytes is
// lossless.
func Encode(data []byte) string {
	zeroCount := 0
	for zeroCount < len(data) && data[zeroCount] == 0 {
		zeroCount++
	}

	base := big.NewInt(int64(len(Alphabet)))
	x := new(big.Int).SetBytes(data)
	mod := new(big.Int)

	var digits []byte
	for x.Sign() > 0 {
		x.DivMod(x, base, mod)
		digits = append(digits, Alphabet[mod.Int64()])
	}
	for i, j := 0, len(digits)-1; i < j; i, j = i+1, j-1 {
		digits[i], digits[j] = digits[j], digits[i]
	}

	out := make([]byte, 0, zeroCount+len(digits))
	for i := 0; i < zeroCount; i++ {
		out = append(out, Alphabet[0])
	}
	out = append(out, digits...)
	return string(out)
}

// Decode reverses Encode. Returns BadDataError if any character in encoded
// falls outside the alphabet.
func Decode(encoded string) ([]byte, error) {
	if encoded == "" {
		return []byte{}, nil
	}

	zeroCount := 0
	for zeroCount < len(encoded) && encoded[zeroCount] == Alphabet[0] {
		zeroCount++
	}

	base := big.NewInt(int64(len(Alphabet)))
	x := new(big.Int)
	for i := 0; i < len(encoded); i++ {
		pos, ok := reverseAlphabet[encoded[i]]
		if !ok {
			return nil, &BadDataError{Msg: "Bad data"}
		}
		x.Mul(x, base)
		x.Add(x, big.NewInt(pos))
	}

	body := x.Bytes()
	out := make([]byte, zeroCount+len(body))
	copy(out[zeroCount:], body)
	return out, nil
}
