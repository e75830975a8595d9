package game

import (
	"github.com/adred-codev/gatecodec/catalog"
	"github.com/adred-codev/gatecodec/codec/record"
	"github.com/adred-codev/gatecodec/crypto"
	"github.com/adred-codev/gatecodec/frame"
	"github.com/adred-codev/gatecodec/types"
)

// IdentityTag is Identity's client message tag.
const IdentityTag uint16 = 3

func init() {
	catalog.RegisterClient(IdentityTag, "Identity")
}

// Identity sets the requesting player's display name. Players may choose
// to encrypt the name before sending it if they consider it sensitive; the
// server stores and forwards whichever SafeString variant it received
// without needing to know which case it is.
type Identity struct {
	Name types.SafeString
}

// Encode writes Identity's record body.
func (i Identity) Encode(w *record.Writer) {
	i.Name.Encode(w)
}

// DecodeIdentity reads an Identity record body.
func DecodeIdentity(r *record.Reader) (Identity, error) {
	name, err := types.DecodeSafeString(r)
	if err != nil {
		return Identity{}, err
	}
	return Identity{Name: name}, nil
}

// Serialize frames i as a player-signed-client message.
func (i Identity) Serialize(requestID uint8, public *crypto.PublicKey, private *crypto.PrivateKey) (string, error) {
	w := record.NewWriter()
	i.Encode(w)
	return frame.EncodeSigned(w.Bytes(), requestID, IdentityTag, public, private)
}

// DeserializeIdentity unframes a player-signed-client Identity message.
func DeserializeIdentity(body string) (Identity, *crypto.PublicKey, uint8, error) {
	recordBytes, public, requestID, err := frame.DecodeSigned(body, IdentityTag)
	if err != nil {
		return Identity{}, nil, 0, err
	}
	i, err := DecodeIdentity(record.NewReader(recordBytes))
	if err != nil {
		return Identity{}, nil, 0, err
	}
	return i, public, requestID, nil
}
