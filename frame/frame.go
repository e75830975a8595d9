// Package frame implements the three wire framing disciplines messages are
// exchanged under: public-client (no signature), player-signed-client (the
// sender proves control of a private key), and server (plain string, no
// JSON). All three are pure, stateless functions over already-encoded
// record bytes - framing never inspects message contents.
package frame

import (
	"fmt"
	"strings"

	"github.com/adred-codev/gatecodec/codec/base66"
	"github.com/adred-codev/gatecodec/codec/base94"
	"github.com/adred-codev/gatecodec/crypto"
)

// BadDataError is returned by every framer operation on malformed input.
type BadDataError struct {
	Msg string
}

func (e *BadDataError) Error() string { return e.Msg }

func badData(format string, args ...any) error {
	return &BadDataError{Msg: fmt.Sprintf(format, args...)}
}

const (
	jsonPrefixStart = `{"k":"`
	jsonPrefixEnd   = `","v":"`
	jsonSuffix      = `"}`
)

func jsonPrefix(tag uint16) string {
	return jsonPrefixStart + base66.EncodeTag(tag) + jsonPrefixEnd
}

// PeekClientTag reads the message tag out of a public or player-signed
// client envelope without unwrapping or base94-decoding the payload, so a
// dispatcher can pick the right Deserialize* function before committing to
// one.
func PeekClientTag(body string) (uint16, error) {
	if !strings.HasPrefix(body, jsonPrefixStart) {
		return 0, badData("No json_prefix found")
	}
	rest := body[len(jsonPrefixStart):]
	if len(rest) < base66.EncodedLen {
		return 0, badData("Too short message")
	}
	return base66.DecodeTag([]byte(rest[:base66.EncodedLen]))
}

// PeekServerTag reads the message tag out of a server-framed message
// without base94-decoding the payload.
func PeekServerTag(body string) (uint16, error) {
	if len(body) < base66.EncodedLen {
		return 0, badData("Too short message")
	}
	return base66.DecodeTag([]byte(body[:base66.EncodedLen]))
}

// EncodePublic serializes record ∥ request-id to the public-client JSON
// envelope for tag.
func EncodePublic(recordBytes []byte, requestID uint8, tag uint16) string {
	payload := append(append([]byte{}, recordBytes...), requestID)
	return jsonPrefix(tag) + base94.Encode(payload) + jsonSuffix
}

// DecodePublic unwraps a public-client envelope addressed to tag, returning
// the record bytes and the request-id.
func DecodePublic(body string, tag uint16) (recordBytes []byte, requestID uint8, err error) {
	payload, err := unwrapEnvelope(body, tag)
	if err != nil {
		return nil, 0, err
	}
	if len(payload) < 1 {
		return nil, 0, badData("Too short message")
	}
	return payload[:len(payload)-1], payload[len(payload)-1], nil
}

func unwrapEnvelope(body string, tag uint16) ([]byte, error) {
	prefix := jsonPrefix(tag)
	if !strings.HasPrefix(body, prefix) || !strings.HasSuffix(body, jsonSuffix) {
		return nil, badData("No json_prefix and json_suffix found")
	}
	encoded := body[len(prefix) : len(body)-len(jsonSuffix)]
	decoded, err := base94.Decode(encoded)
	if err != nil {
		return nil, err
	}
	return decoded, nil
}

// EncodeSigned serializes record ∥ request-id ∥ pubkey ∥ signature to the
// player-signed-client JSON envelope for tag. The signature covers
// everything preceding it: record, request-id, and the sender's public key.
func EncodeSigned(recordBytes []byte, requestID uint8, tag uint16, public *crypto.PublicKey, private *crypto.PrivateKey) (string, error) {
	payload := append(append([]byte{}, recordBytes...), requestID)
	payload = append(payload, public.Serialize()...)
	signature, err := crypto.Sign(payload, private)
	if err != nil {
		return "", fmt.Errorf("sign payload: %w", err)
	}
	payload = append(payload, signature...)
	return jsonPrefix(tag) + base94.Encode(payload) + jsonSuffix, nil
}

// DecodeSigned unwraps a player-signed-client envelope addressed to tag,
// verifying the signature before returning the record bytes, the sender's
// public key, and the request-id.
func DecodeSigned(body string, tag uint16) (recordBytes []byte, public *crypto.PublicKey, requestID uint8, err error) {
	payload, err := unwrapEnvelope(body, tag)
	if err != nil {
		return nil, nil, 0, err
	}
	minLen := crypto.PublicKeySize + crypto.SignatureSize + 1
	if len(payload) < minLen {
		return nil, nil, 0, badData("Too short message")
	}
	signedLen := len(payload) - crypto.SignatureSize
	signature := payload[signedLen:]
	signed := payload[:signedLen]
	publicKeyBytes := signed[len(signed)-crypto.PublicKeySize:]
	public, err = crypto.DeserializePublicKey(publicKeyBytes)
	if err != nil {
		return nil, nil, 0, badData("Invalid public key: %s", err)
	}
	if !crypto.Verify(signed, public, signature) {
		return nil, nil, 0, badData("Cannot verify the data")
	}
	recordAndRequestID := signed[:len(signed)-crypto.PublicKeySize]
	requestID = recordAndRequestID[len(recordAndRequestID)-1]
	recordBytes = recordAndRequestID[:len(recordAndRequestID)-1]
	return recordBytes, public, requestID, nil
}

// EncodeServer serializes record to the server framing for tag and
// request-id: no JSON, just tag ∥ request-id ∥ base94(record). Pass
// SyntheticRequestID for a reply with no originating client request-id.
func EncodeServer(recordBytes []byte, tag uint16, requestID string) string {
	return base66.EncodeTag(tag) + requestID + base94.Encode(recordBytes)
}

// EncodeServerRequestID serializes record to the server framing for tag
// using a numeric originating request-id.
func EncodeServerRequestID(recordBytes []byte, tag uint16, requestID uint8) string {
	return EncodeServer(recordBytes, tag, base66.EncodeRequestID(requestID))
}

// SyntheticRequestID is the request-id placeholder used for server
// messages that were not produced in response to a specific client
// request, e.g. a broadcast or a connection-level error.
const SyntheticRequestID = "--"

// DecodeServer unwraps a server-framed message addressed to tag, returning
// the record bytes and the raw 2-character request-id string (which may be
// SyntheticRequestID).
func DecodeServer(body string, tag uint16) (recordBytes []byte, requestID string, err error) {
	if len(body) < 4 {
		return nil, "", badData("Too short message")
	}
	expectedTag := base66.EncodeTag(tag)
	if body[:2] != expectedTag {
		return nil, "", badData("Bad message tag")
	}
	requestID = body[2:4]
	recordBytes, err = base94.Decode(body[4:])
	if err != nil {
		return nil, "", err
	}
	return recordBytes, requestID, nil
}
