package types

import (
	"errors"

	"github.com/adred-codev/gatecodec/codec/record"
	"github.com/adred-codev/gatecodec/crypto"
)

// EncryptedString is ciphertext produced by encrypting a plaintext string
// under a player's private key, together with the salt it was sealed with.
type EncryptedString struct {
	Data []byte
	Salt []byte
}

// NewEncryptedString encrypts plaintext for private's holder.
func NewEncryptedString(plaintext string, private *crypto.PrivateKey) (*EncryptedString, error) {
	encrypted, err := crypto.Encrypt([]byte(plaintext), private)
	if err != nil {
		return nil, err
	}
	return &EncryptedString{Data: encrypted.Data, Salt: encrypted.Salt[:]}, nil
}

// ErrInvalidEncryptedData is returned by Decrypt when the ciphertext cannot
// be authenticated against private, or the salt is the wrong size.
var ErrInvalidEncryptedData = errors.New("invalid encrypted data")

// Decrypt recovers the plaintext sealed in e using private.
func (e *EncryptedString) Decrypt(private *crypto.PrivateKey) (string, error) {
	if len(e.Salt) != crypto.SaltSize {
		return "", ErrInvalidEncryptedData
	}
	var salt [crypto.SaltSize]byte
	copy(salt[:], e.Salt)
	plain, ok := crypto.Decrypt(&crypto.EncryptedData{Data: e.Data, Salt: salt}, private)
	if !ok {
		return "", ErrInvalidEncryptedData
	}
	return string(plain), nil
}

// Encode writes e as a length-prefixed data field followed by a
// length-prefixed salt field.
func (e *EncryptedString) Encode(w *record.Writer) {
	w.WriteBytes(e.Data)
	w.WriteBytes(e.Salt)
}

// DecodeEncryptedString reads an EncryptedString field.
func DecodeEncryptedString(r *record.Reader) (*EncryptedString, error) {
	data, err := r.ReadBytes()
	if err != nil {
		return nil, err
	}
	salt, err := r.ReadBytes()
	if err != nil {
		return nil, err
	}
	return &EncryptedString{Data: data, Salt: salt}, nil
}

// safeStringVariantEncrypted and safeStringVariantPlaintext are the
// SafeString tagged-sum variant indices, in declaration order.
const (
	safeStringVariantEncrypted byte = iota
	safeStringVariantPlaintext
)

const safeStringVariantCount = 2

// SafeString is a string a client may choose to encrypt before sending if
// it considers the value sensitive; a server does not need to know which
// case it received to store or forward the field.
type SafeString struct {
	encrypted *EncryptedString
	plaintext string
	isPlain   bool
}

// NewPlaintextSafeString wraps a string that was not encrypted.
func NewPlaintextSafeString(value string) SafeString {
	return SafeString{plaintext: value, isPlain: true}
}

// NewEncryptedSafeString wraps an already-encrypted string.
func NewEncryptedSafeString(encrypted *EncryptedString) SafeString {
	return SafeString{encrypted: encrypted}
}

// IsPlaintext reports whether s holds an unencrypted value.
func (s SafeString) IsPlaintext() bool {
	return s.isPlain
}

// Plaintext returns the unencrypted value and true, or "" and false if s
// holds an encrypted value.
func (s SafeString) Plaintext() (string, bool) {
	if !s.isPlain {
		return "", false
	}
	return s.plaintext, true
}

// Encrypted returns the encrypted value and true, or nil and false if s
// holds a plaintext value.
func (s SafeString) Encrypted() (*EncryptedString, bool) {
	if s.isPlain {
		return nil, false
	}
	return s.encrypted, true
}

// Encode writes s as a tagged sum: a variant byte followed by that
// variant's fields.
func (s SafeString) Encode(w *record.Writer) {
	if s.isPlain {
		w.WriteVariant(safeStringVariantPlaintext)
		w.WriteString(s.plaintext)
		return
	}
	w.WriteVariant(safeStringVariantEncrypted)
	s.encrypted.Encode(w)
}

// DecodeSafeString reads a SafeString field.
func DecodeSafeString(r *record.Reader) (SafeString, error) {
	variant, err := r.ReadVariant(safeStringVariantCount)
	if err != nil {
		return SafeString{}, err
	}
	switch variant {
	case safeStringVariantPlaintext:
		value, err := r.ReadString()
		if err != nil {
			return SafeString{}, err
		}
		return NewPlaintextSafeString(value), nil
	default:
		encrypted, err := DecodeEncryptedString(r)
		if err != nil {
			return SafeString{}, err
		}
		return NewEncryptedSafeString(encrypted), nil
	}
}
