// Package game holds message types specific to core gameplay: the decay
// clock that ages a player's state over time, and player identity.
package game

import (
	"github.com/adred-codev/gatecodec/catalog"
	"github.com/adred-codev/gatecodec/codec/record"
	"github.com/adred-codev/gatecodec/crypto"
	"github.com/adred-codev/gatecodec/frame"
	"github.com/adred-codev/gatecodec/types"
)

// DecayTag is Decay's server message tag.
const DecayTag uint16 = 2

// DecayQueryTag is DecayQuery's client message tag.
const DecayQueryTag uint16 = 2

func init() {
	catalog.RegisterServer(DecayTag, "Decay")
	catalog.RegisterClient(DecayQueryTag, "DecayQuery")
}

// Decay reports when a player's decay clock started and how long the full
// decay cycle runs for.
type Decay struct {
	StartedAt types.ServerTimestamp
	Length    types.Duration
}

// Encode writes Decay's record body.
func (d Decay) Encode(w *record.Writer) {
	d.StartedAt.Encode(w)
	d.Length.Encode(w)
}

// DecodeDecay reads a Decay record body.
func DecodeDecay(r *record.Reader) (Decay, error) {
	startedAt, err := types.DecodeServerTimestamp(r)
	if err != nil {
		return Decay{}, err
	}
	length, err := types.DecodeDuration(r)
	if err != nil {
		return Decay{}, err
	}
	return Decay{StartedAt: startedAt, Length: length}, nil
}

// Serialize frames d as a server message replying to requestID.
func (d Decay) Serialize(requestID uint8) string {
	w := record.NewWriter()
	d.Encode(w)
	return frame.EncodeServerRequestID(w.Bytes(), DecayTag, requestID)
}

// DeserializeDecay unframes a server-framed Decay message.
func DeserializeDecay(body string) (Decay, string, error) {
	recordBytes, requestID, err := frame.DecodeServer(body, DecayTag)
	if err != nil {
		return Decay{}, "", err
	}
	d, err := DecodeDecay(record.NewReader(recordBytes))
	if err != nil {
		return Decay{}, "", err
	}
	return d, requestID, nil
}

// DecayQuery asks the server for the requesting player's current Decay
// state. It is a player-signed message: the server identifies the player
// from the signature, not from any field.
type DecayQuery struct{}

// Encode writes DecayQuery's (empty) record body.
func (q DecayQuery) Encode(w *record.Writer) {}

// DecodeDecayQuery reads a DecayQuery record body.
func DecodeDecayQuery(r *record.Reader) (DecayQuery, error) {
	return DecayQuery{}, nil
}

// Serialize frames q as a player-signed-client message.
func (q DecayQuery) Serialize(requestID uint8, public *crypto.PublicKey, private *crypto.PrivateKey) (string, error) {
	w := record.NewWriter()
	q.Encode(w)
	return frame.EncodeSigned(w.Bytes(), requestID, DecayQueryTag, public, private)
}

// DeserializeDecayQuery unframes a player-signed-client DecayQuery message.
func DeserializeDecayQuery(body string) (DecayQuery, *crypto.PublicKey, uint8, error) {
	recordBytes, public, requestID, err := frame.DecodeSigned(body, DecayQueryTag)
	if err != nil {
		return DecayQuery{}, nil, 0, err
	}
	q, err := DecodeDecayQuery(record.NewReader(recordBytes))
	if err != nil {
		return DecayQuery{}, nil, 0, err
	}
	return q, public, requestID, nil
}
