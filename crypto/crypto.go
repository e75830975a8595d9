// Package crypto implements the P-256 ECDSA signing and AES-256-GCM
// encryption primitives used to authenticate player-signed messages and to
// encrypt sensitive string fields at rest in message payloads.
//
// Signatures are fixed-width 64-byte r||s pairs rather than Go's default
// ASN.1 DER encoding, and public keys are SEC1 compressed points, matching
// the wire sizes every other framing and codec component assumes.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"math/big"

	"golang.org/x/crypto/hkdf"
)

const (
	// SignatureSize is the fixed width of an r||s ECDSA signature over P-256.
	SignatureSize = 64
	// PublicKeySize is the width of a SEC1 compressed P-256 public key.
	PublicKeySize = 33
	// PrivateKeySize is the width of a P-256 private scalar.
	PrivateKeySize = 32
	// SaltSize is the width of the random salt attached to every encrypted
	// payload; reused directly as the AES-GCM nonce.
	SaltSize = AESNonceSize
	// AESKeySize is the width of a derived AES-256 key.
	AESKeySize = 32
	// AESNonceSize is the width of an AES-GCM nonce.
	AESNonceSize = 12
)

var curve = elliptic.P256()

// PrivateKey is a P-256 signing and decryption key.
type PrivateKey struct {
	key *ecdsa.PrivateKey
}

// PublicKey is a P-256 verification and encryption key.
type PublicKey struct {
	key *ecdsa.PublicKey
}

// GenerateKeyPair creates a fresh random P-256 key pair.
func GenerateKeyPair() (*PrivateKey, *PublicKey, error) {
	key, err := ecdsa.GenerateKey(curve, rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("generate ecc key: %w", err)
	}
	return &PrivateKey{key: key}, &PublicKey{key: &key.PublicKey}, nil
}

// Serialize returns the 32-byte big-endian private scalar.
func (k *PrivateKey) Serialize() []byte {
	out := make([]byte, PrivateKeySize)
	k.key.D.FillBytes(out)
	return out
}

// DeserializePrivateKey reconstructs a private key from its 32-byte scalar.
func DeserializePrivateKey(data []byte) (*PrivateKey, error) {
	if len(data) != PrivateKeySize {
		return nil, errors.New("private key must be exactly 32 bytes")
	}
	d := new(big.Int).SetBytes(data)
	if d.Sign() <= 0 || d.Cmp(curve.Params().N) >= 0 {
		return nil, errors.New("private key scalar out of range")
	}
	x, y := curve.ScalarBaseMult(data)
	key := &ecdsa.PrivateKey{
		PublicKey: ecdsa.PublicKey{Curve: curve, X: x, Y: y},
		D:         d,
	}
	return &PrivateKey{key: key}, nil
}

// Public returns the public key corresponding to k.
func (k *PrivateKey) Public() *PublicKey {
	return &PublicKey{key: &k.key.PublicKey}
}

// Serialize returns the 33-byte SEC1 compressed point.
func (k *PublicKey) Serialize() []byte {
	return elliptic.MarshalCompressed(curve, k.key.X, k.key.Y)
}

// DeserializePublicKey reconstructs a public key from its 33-byte compressed
// point. Returns an error if the point is malformed or not on the curve.
func DeserializePublicKey(data []byte) (*PublicKey, error) {
	if len(data) != PublicKeySize {
		return nil, errors.New("public key must be exactly 33 bytes")
	}
	x, y := elliptic.UnmarshalCompressed(curve, data)
	if x == nil {
		return nil, errors.New("invalid compressed public key point")
	}
	return &PublicKey{key: &ecdsa.PublicKey{Curve: curve, X: x, Y: y}}, nil
}

// Sign produces a fixed-width 64-byte r||s signature over data. The nonce is
// derived deterministically from the private scalar and message digest via
// RFC6979's HMAC-DRBG construction rather than drawn from rand.Reader, so
// identical inputs always yield identical signatures - matching the
// reference client's signing library, which is deterministic by default.
func Sign(data []byte, private *PrivateKey) ([]byte, error) {
	digest := sha256.Sum256(data)
	n := curve.Params().N

	k := deterministicNonce(private.key, digest[:])
	rx, _ := curve.ScalarBaseMult(k.Bytes())
	r := new(big.Int).Mod(rx, n)
	if r.Sign() == 0 {
		return nil, errors.New("ecdsa sign: nonce produced r = 0")
	}

	kInv := new(big.Int).ModInverse(k, n)
	e := hashToInt(digest[:], n)
	s := new(big.Int).Mul(private.key.D, r)
	s.Add(s, e)
	s.Mul(s, kInv)
	s.Mod(s, n)
	if s.Sign() == 0 {
		return nil, errors.New("ecdsa sign: nonce produced s = 0")
	}

	sig := make([]byte, SignatureSize)
	r.FillBytes(sig[:32])
	s.FillBytes(sig[32:])
	return sig, nil
}

// deterministicNonce derives the per-signature nonce k from the private
// scalar and message digest using RFC6979's HMAC-DRBG construction: feed
// both into an HMAC-SHA256-keyed DRBG and take the first candidate that
// falls in [1, n).
func deterministicNonce(private *ecdsa.PrivateKey, digest []byte) *big.Int {
	n := private.Curve.Params().N
	qlen := n.BitLen()
	octetLen := (qlen + 7) / 8
	holen := sha256.Size

	x := make([]byte, octetLen)
	private.D.FillBytes(x)
	h1 := bitsToOctets(digest, n, qlen)

	v := make([]byte, holen)
	for i := range v {
		v[i] = 0x01
	}
	k := make([]byte, holen)

	k = hmacSum(k, v, []byte{0x00}, x, h1)
	v = hmacSum(k, v)
	k = hmacSum(k, v, []byte{0x01}, x, h1)
	v = hmacSum(k, v)

	for {
		var t []byte
		for len(t) < octetLen {
			v = hmacSum(k, v)
			t = append(t, v...)
		}
		candidate := bitsToInt(t, qlen)
		if candidate.Sign() > 0 && candidate.Cmp(n) < 0 {
			return candidate
		}
		k = hmacSum(k, v, []byte{0x00})
		v = hmacSum(k, v)
	}
}

func hmacSum(key []byte, parts ...[]byte) []byte {
	mac := hmac.New(sha256.New, key)
	for _, p := range parts {
		mac.Write(p)
	}
	return mac.Sum(nil)
}

// bitsToInt interprets b as a big-endian integer truncated to its leftmost
// qlen bits, per RFC6979 section 2.3.2.
func bitsToInt(b []byte, qlen int) *big.Int {
	v := new(big.Int).SetBytes(b)
	if excess := len(b)*8 - qlen; excess > 0 {
		v.Rsh(v, uint(excess))
	}
	return v
}

// bitsToOctets reduces b modulo n after the bitsToInt truncation and
// re-encodes it as a fixed-width big-endian byte string, per RFC6979
// section 2.3.4.
func bitsToOctets(b []byte, n *big.Int, qlen int) []byte {
	z := bitsToInt(b, qlen)
	z.Mod(z, n)
	out := make([]byte, (qlen+7)/8)
	z.FillBytes(out)
	return out
}

// hashToInt truncates a message digest to the leftmost bits of the curve
// order's bit length, matching how Go's own ecdsa package converts a hash
// to the integer e used in the signing equation.
func hashToInt(hash []byte, n *big.Int) *big.Int {
	orderBytes := (n.BitLen() + 7) / 8
	if len(hash) > orderBytes {
		hash = hash[:orderBytes]
	}
	ret := new(big.Int).SetBytes(hash)
	if excess := len(hash)*8 - n.BitLen(); excess > 0 {
		ret.Rsh(ret, uint(excess))
	}
	return ret
}

// Verify reports whether signature is a valid r||s signature over data under
// public. A malformed signature is treated as a failed verification, not an
// error.
func Verify(data []byte, public *PublicKey, signature []byte) bool {
	if len(signature) != SignatureSize {
		return false
	}
	r := new(big.Int).SetBytes(signature[:32])
	s := new(big.Int).SetBytes(signature[32:])
	digest := sha256.Sum256(data)
	return ecdsa.Verify(public.key, digest[:], r, s)
}

// EncryptedData is an encrypted payload together with the random salt it was
// sealed with.
type EncryptedData struct {
	Data []byte
	Salt [SaltSize]byte
}

// Encrypt seals data for private's holder using a fresh random salt. The
// salt is reused directly as the AES-GCM nonce; deriving a fresh AES key
// per call makes that safe.
func Encrypt(data []byte, private *PrivateKey) (*EncryptedData, error) {
	var salt [SaltSize]byte
	if _, err := io.ReadFull(rand.Reader, salt[:]); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	key, err := deriveAESKey(private, salt[:])
	if err != nil {
		return nil, err
	}
	sealed, err := aesEncrypt(data, key, salt[:])
	if err != nil {
		return nil, err
	}
	return &EncryptedData{Data: sealed, Salt: salt}, nil
}

// Decrypt opens an EncryptedData sealed by Encrypt using the matching
// private key. Returns ok=false (not an error) if authentication fails,
// matching the underlying AEAD's semantics: a tampered payload is
// indistinguishable from one sealed by the wrong key.
func Decrypt(encrypted *EncryptedData, private *PrivateKey) (data []byte, ok bool) {
	key, err := deriveAESKey(private, encrypted.Salt[:])
	if err != nil {
		return nil, false
	}
	plain, err := aesDecrypt(encrypted.Data, key, encrypted.Salt[:])
	if err != nil {
		return nil, false
	}
	return plain, true
}

func deriveAESKey(private *PrivateKey, salt []byte) ([]byte, error) {
	reader := hkdf.New(sha256.New, private.Serialize(), salt, []byte("ephemeral-key"))
	key := make([]byte, AESKeySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("derive aes key: %w", err)
	}
	return key, nil
}

func aesEncrypt(data, key, nonce []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new aes cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, AESNonceSize)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	return gcm.Seal(nil, nonce, data, nil), nil
}

func aesDecrypt(data, key, nonce []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new aes cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, AESNonceSize)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	return gcm.Open(nil, nonce, data, nil)
}
