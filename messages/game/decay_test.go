package game

import (
	"testing"

	"github.com/adred-codev/gatecodec/crypto"
	"github.com/adred-codev/gatecodec/types"
)

// tenYearsMs approximates a 10-year decay cycle length in milliseconds.
const tenYearsMs = uint64(10 * 365 * 24 * 60 * 60 * 1000)

func TestDecayRoundTrip(t *testing.T) {
	d := Decay{
		StartedAt: types.NewServerTimestamp(10),
		Length:    types.DurationFromMilliseconds(tenYearsMs),
	}
	encoded := d.Serialize(1)
	if len(encoded) != 16 {
		t.Fatalf("encoded message %q has length %d, want 16", encoded, len(encoded))
	}

	decoded, requestID, err := DeserializeDecay(encoded)
	if err != nil {
		t.Fatalf("DeserializeDecay error: %v", err)
	}
	if decoded != d {
		t.Fatalf("decoded %+v, want %+v", decoded, d)
	}
	if requestID != "-." {
		t.Fatalf("requestID = %q, want -.", requestID)
	}
}

func TestDecayQuerySignedRoundTrip(t *testing.T) {
	private, public, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair error: %v", err)
	}
	q := DecayQuery{}
	encoded, err := q.Serialize(3, public, private)
	if err != nil {
		t.Fatalf("Serialize error: %v", err)
	}

	decoded, decodedPublic, requestID, err := DeserializeDecayQuery(encoded)
	if err != nil {
		t.Fatalf("DeserializeDecayQuery error: %v", err)
	}
	if decoded != q {
		t.Fatalf("decoded %+v, want %+v", decoded, q)
	}
	if string(decodedPublic.Serialize()) != string(public.Serialize()) {
		t.Fatal("decoded public key mismatch")
	}
	if requestID != 3 {
		t.Fatalf("requestID = %d, want 3", requestID)
	}
}

func TestDecayQuerySignedRejectsMismatchedKeypair(t *testing.T) {
	private, public, _ := crypto.GenerateKeyPair()
	otherPrivate, _, _ := crypto.GenerateKeyPair()

	q := DecayQuery{}
	forged, err := q.Serialize(1, public, otherPrivate)
	if err != nil {
		t.Fatalf("Serialize error: %v", err)
	}
	_ = private

	if _, _, _, err := DeserializeDecayQuery(forged); err == nil {
		t.Fatal("expected signature verification to fail for mismatched keypair")
	}
}
