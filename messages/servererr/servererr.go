// Package servererr implements the ServerError envelope: the one message
// type every handler falls back to when it cannot produce the reply a
// client expected, whether because the incoming message was malformed, the
// server hit an internal fault, or anything in between.
package servererr

import (
	"github.com/adred-codev/gatecodec/catalog"
	"github.com/adred-codev/gatecodec/codec/record"
	"github.com/adred-codev/gatecodec/frame"
)

// Tag is ServerError's server message tag. It is reserved once for the
// system's lifetime and must never be reassigned to a different message
// type or reused for a reply tag.
const Tag uint16 = 3

func init() {
	catalog.RegisterServer(Tag, "ServerError")
}

// ErrorCode classifies what went wrong, in declaration order (also the
// tagged-sum variant index on the wire).
type ErrorCode byte

const (
	// ErrorCodeAuthenticationError means a signature or other proof of
	// identity failed to validate.
	ErrorCodeAuthenticationError ErrorCode = iota
	// ErrorCodeSerializationError means the incoming message could not be
	// decoded.
	ErrorCodeSerializationError
	// ErrorCodeInvalidData means decoded data failed a semantic check.
	ErrorCodeInvalidData
	// ErrorCodeIOError means a temporary I/O fault occurred processing the
	// request.
	ErrorCodeIOError
	// ErrorCodeServerError is an undifferentiated server-side fault.
	ErrorCodeServerError
)

const errorCodeVariantCount = 5

func (c ErrorCode) encode(w *record.Writer) {
	w.WriteVariant(byte(c))
}

func decodeErrorCode(r *record.Reader) (ErrorCode, error) {
	v, err := r.ReadVariant(errorCodeVariantCount)
	if err != nil {
		return 0, err
	}
	return ErrorCode(v), nil
}

// ServerError reports that a client message could not be processed as
// requested. It is built so a client can correlate the failure back to its
// original request even when the server could not produce the reply type
// the client expected.
type ServerError struct {
	// ErrorCode classifies the failure.
	ErrorCode ErrorCode
	// ErrorDescription is safe to show to a player; it should suggest how
	// the error might be resolved.
	ErrorDescription string
	// ErrorContext carries debugging detail not meant for players.
	ErrorContext *string
	// RequestID is the originating client message's request-id, or 0 if it
	// could not be parsed.
	RequestID uint8
	// MessageTag is the tag of the message that was being processed.
	MessageTag uint16
	// Recoverable indicates whether retrying the original message might
	// succeed.
	Recoverable bool
}

// FromSerializationError builds the canned ServerError a handler's wrapper
// sends when a framer operation fails: the description is generic and safe
// to show, and the underlying error is preserved in ErrorContext for
// debugging.
func FromSerializationError(err error, messageTag uint16, requestID uint8) ServerError {
	context := err.Error()
	return ServerError{
		ErrorCode:        ErrorCodeSerializationError,
		ErrorDescription: "Data is invalid and cannot be processed",
		ErrorContext:     &context,
		RequestID:        requestID,
		MessageTag:       messageTag,
		Recoverable:      false,
	}
}

// Encode writes ServerError's record body.
func (e ServerError) Encode(w *record.Writer) {
	e.ErrorCode.encode(w)
	w.WriteString(e.ErrorDescription)
	w.WriteOptionPresent(e.ErrorContext != nil)
	if e.ErrorContext != nil {
		w.WriteString(*e.ErrorContext)
	}
	w.WriteByte(e.RequestID)
	w.WriteUvarint(uint64(e.MessageTag))
	w.WriteBool(e.Recoverable)
}

// DecodeServerError reads a ServerError record body.
func DecodeServerError(r *record.Reader) (ServerError, error) {
	code, err := decodeErrorCode(r)
	if err != nil {
		return ServerError{}, err
	}
	description, err := r.ReadString()
	if err != nil {
		return ServerError{}, err
	}
	hasContext, err := r.ReadOptionPresent()
	if err != nil {
		return ServerError{}, err
	}
	var context *string
	if hasContext {
		value, err := r.ReadString()
		if err != nil {
			return ServerError{}, err
		}
		context = &value
	}
	requestID, err := r.ReadByte()
	if err != nil {
		return ServerError{}, err
	}
	messageTag, err := r.ReadUvarint()
	if err != nil {
		return ServerError{}, err
	}
	recoverable, err := r.ReadBool()
	if err != nil {
		return ServerError{}, err
	}
	return ServerError{
		ErrorCode:        code,
		ErrorDescription: description,
		ErrorContext:     context,
		RequestID:        requestID,
		MessageTag:       uint16(messageTag),
		Recoverable:      recoverable,
	}, nil
}

// Serialize frames e as a server message replying to requestID.
func (e ServerError) Serialize(requestID uint8) string {
	w := record.NewWriter()
	e.Encode(w)
	return frame.EncodeServerRequestID(w.Bytes(), Tag, requestID)
}

// SerializeSynthetic frames e using frame.SyntheticRequestID, for a
// connection-level fault that was never associated with a parseable
// client request-id at all.
func (e ServerError) SerializeSynthetic() string {
	w := record.NewWriter()
	e.Encode(w)
	return frame.EncodeServer(w.Bytes(), Tag, frame.SyntheticRequestID)
}

// Deserialize unframes a server-framed ServerError message.
func Deserialize(body string) (ServerError, error) {
	recordBytes, _, err := frame.DecodeServer(body, Tag)
	if err != nil {
		return ServerError{}, err
	}
	return DecodeServerError(record.NewReader(recordBytes))
}
