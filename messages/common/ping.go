// Package common holds message types shared across all game modes: the
// client/server keepalive and clock-sync exchange.
package common

import (
	"github.com/adred-codev/gatecodec/catalog"
	"github.com/adred-codev/gatecodec/codec/record"
	"github.com/adred-codev/gatecodec/frame"
	"github.com/adred-codev/gatecodec/types"
)

// PingTag is Ping's client message tag.
const PingTag uint16 = 1

// ServerStatusTag is ServerStatus's server message tag.
const ServerStatusTag uint16 = 1

func init() {
	catalog.RegisterClient(PingTag, "Ping")
	catalog.RegisterServer(ServerStatusTag, "ServerStatus")
}

// Ping is sent periodically by clients while connected; it carries no
// fields of its own, it exists to keep the connection alive and to trigger
// a ServerStatus reply for clock synchronization.
type Ping struct{}

// Encode writes Ping's (empty) record body.
func (p Ping) Encode(w *record.Writer) {}

// DecodePing reads a Ping record body.
func DecodePing(r *record.Reader) (Ping, error) {
	return Ping{}, nil
}

// Serialize frames p as a public-client message.
func (p Ping) Serialize(requestID uint8) string {
	w := record.NewWriter()
	p.Encode(w)
	return frame.EncodePublic(w.Bytes(), requestID, PingTag)
}

// DeserializePing unframes a public-client Ping message.
func DeserializePing(body string) (Ping, uint8, error) {
	recordBytes, requestID, err := frame.DecodePublic(body, PingTag)
	if err != nil {
		return Ping{}, 0, err
	}
	p, err := DecodePing(record.NewReader(recordBytes))
	if err != nil {
		return Ping{}, 0, err
	}
	return p, requestID, nil
}

// Status is the server's self-reported health, included in every
// ServerStatus reply.
type Status byte

const (
	// StatusOK indicates the server considers itself healthy.
	StatusOK Status = iota
)

const statusVariantCount = 1

func (s Status) encode(w *record.Writer) {
	w.WriteVariant(byte(s))
}

func decodeStatus(r *record.Reader) (Status, error) {
	v, err := r.ReadVariant(statusVariantCount)
	if err != nil {
		return 0, err
	}
	return Status(v), nil
}

// ServerStatus is the server's reply to a Ping: its current time (for
// client clock synchronization) and health status.
type ServerStatus struct {
	Timestamp types.ServerTimestamp
	Status    Status
}

// Encode writes ServerStatus's record body.
func (s ServerStatus) Encode(w *record.Writer) {
	s.Timestamp.Encode(w)
	s.Status.encode(w)
}

// DecodeServerStatus reads a ServerStatus record body.
func DecodeServerStatus(r *record.Reader) (ServerStatus, error) {
	timestamp, err := types.DecodeServerTimestamp(r)
	if err != nil {
		return ServerStatus{}, err
	}
	status, err := decodeStatus(r)
	if err != nil {
		return ServerStatus{}, err
	}
	return ServerStatus{Timestamp: timestamp, Status: status}, nil
}

// Serialize frames s as a server message replying to requestID.
func (s ServerStatus) Serialize(requestID uint8) string {
	w := record.NewWriter()
	s.Encode(w)
	return frame.EncodeServerRequestID(w.Bytes(), ServerStatusTag, requestID)
}

// DeserializeServerStatus unframes a server-framed ServerStatus message.
func DeserializeServerStatus(body string) (ServerStatus, string, error) {
	recordBytes, requestID, err := frame.DecodeServer(body, ServerStatusTag)
	if err != nil {
		return ServerStatus{}, "", err
	}
	s, err := DecodeServerStatus(record.NewReader(recordBytes))
	if err != nil {
		return ServerStatus{}, "", err
	}
	return s, requestID, nil
}
