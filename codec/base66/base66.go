// Package base66 implements the route-safe fixed-width tag encoding used for
// u16 message tags and u8 request ids. The alphabet is the 66 characters AWS
// API Gateway accepts in a WebSocket route key: ASCII digits, upper and
// lower-case letters, and the four symbols "-./_".
package base66

import "fmt"

// Alphabet is the fixed, literal 66-character list, in ascending ASCII
// order: "-./0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ_abcdefghijklmnopqrstuvwxyz".
var Alphabet = [66]byte{
	'-', '.', '/', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9',
	'A', 'B', 'C', 'D', 'E', 'F', 'G', 'H', 'I', 'J', 'K', 'L', 'M',
	'N', 'O', 'P', 'Q', 'R', 'S', 'T', 'U', 'V', 'W', 'X', 'Y', 'Z',
	'_',
	'a', 'b', 'c', 'd', 'e', 'f', 'g', 'h', 'i', 'j', 'k', 'l', 'm',
	'n', 'o', 'p', 'q', 'r', 's', 't', 'u', 'v', 'w', 'x', 'y', 'z',
}

var reverseAlphabet = buildReverse()

func buildReverse() map[byte]uint16 {
	m := make(map[byte]uint16, len(Alphabet))
	for i, c := range Alphabet {
		m[c] = uint16(i)
	}
	return m
}

// MaxValidTag is the largest tag representable in exactly 2 characters:
// 66^2 - 1.
const MaxValidTag uint16 = uint16(len(Alphabet))*uint16(len(Alphabet)) - 1

// EncodedLen is the fixed width, in characters, of every encoded tag or
// request id.
const EncodedLen = 2

// BadDataError is returned when decoding encounters a byte outside the
// alphabet, or a slice that isn't exactly EncodedLen bytes long.
type BadDataError struct {
	Msg string
}

func (e *BadDataError) Error() string { return e.Msg }

// EncodeTag encodes a u16 tag into exactly 2 characters, MSB-first, padded
// with the alphabet's first character ('-') for values below the base.
// Panics if tag exceeds MaxValidTag - a tag that large is a programming
// error, not a runtime condition to recover from.
func EncodeTag(tag uint16) string {
	if tag > MaxValidTag {
		panic(fmt.Sprintf("message tag %d exceeds maximum valid tag %d", tag, MaxValidTag))
	}
	base := uint16(len(Alphabet))
	low := Alphabet[tag%base]
	tag /= base
	var high byte
	if tag > 0 {
		high = Alphabet[tag%base]
	} else {
		high = Alphabet[0]
	}
	return string([]byte{high, low})
}

// EncodeRequestID encodes a u8 request id using the same alphabet and width
// as a tag.
func EncodeRequestID(id uint8) string {
	return EncodeTag(uint16(id))
}

// DecodeTag decodes exactly 2 bytes back into a u16 tag.
func DecodeTag(data []byte) (uint16, error) {
	if len(data) != EncodedLen {
		return 0, &BadDataError{Msg: "Encoded message tag string must be exactly 2 bytes long"}
	}
	base := uint16(len(Alphabet))
	var tag uint16
	for _, c := range data {
		pos, ok := reverseAlphabet[c]
		if !ok {
			return 0, &BadDataError{Msg: "Invalid byte in encoded string"}
		}
		tag = tag*base + pos
	}
	return tag, nil
}

// DecodeRequestID decodes exactly 2 bytes back into a u8 request id.
func DecodeRequestID(data []byte) (uint8, error) {
	tag, err := DecodeTag(data)
	if err != nil {
		return 0, err
	}
	if tag > 255 {
		return 0, &BadDataError{Msg: "Not valid request id"}
	}
	return uint8(tag), nil
}
