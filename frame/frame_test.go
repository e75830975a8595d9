package frame

import (
	"testing"

	"github.com/adred-codev/gatecodec/codec/record"
	"github.com/adred-codev/gatecodec/crypto"
)

func TestPublicEncodeEmptyPing(t *testing.T) {
	encoded := EncodePublic(nil, 1, 1)
	want := `{"k":"-.","v":"!"}`
	if encoded != want {
		t.Fatalf("EncodePublic = %q, want %q", encoded, want)
	}
	if len(encoded) != 18 {
		t.Fatalf("len(encoded) = %d, want 18", len(encoded))
	}

	recordBytes, requestID, err := DecodePublic(encoded, 1)
	if err != nil {
		t.Fatalf("DecodePublic error: %v", err)
	}
	if len(recordBytes) != 0 {
		t.Fatalf("recordBytes = %v, want empty", recordBytes)
	}
	if requestID != 1 {
		t.Fatalf("requestID = %d, want 1", requestID)
	}
}

func TestPublicRoundTrip(t *testing.T) {
	w := record.NewWriter()
	w.WriteString("hello")
	w.WriteUvarint(42)
	original := w.Bytes()

	encoded := EncodePublic(original, 7, 200)
	recordBytes, requestID, err := DecodePublic(encoded, 200)
	if err != nil {
		t.Fatalf("DecodePublic error: %v", err)
	}
	if string(recordBytes) != string(original) {
		t.Fatalf("recordBytes mismatch: got %v want %v", recordBytes, original)
	}
	if requestID != 7 {
		t.Fatalf("requestID = %d, want 7", requestID)
	}
}

func TestPublicDecodeRejectsMalformedBody(t *testing.T) {
	_, _, err := DecodePublic("bad_data", 1)
	if err == nil {
		t.Fatal("expected error decoding malformed body")
	}
	if err.Error() != "No json_prefix and json_suffix found" {
		t.Fatalf("unexpected error message: %v", err)
	}
}

func TestServerStatusVector(t *testing.T) {
	w := record.NewWriter()
	w.WriteUvarint(1) // timestamp = 1ms
	w.WriteVariant(0) // Status::OK
	encoded := EncodeServerRequestID(w.Bytes(), 1, 1)
	want := "-.-.#f"
	if encoded != want {
		t.Fatalf("EncodeServerRequestID = %q, want %q", encoded, want)
	}

	recordBytes, requestID, err := DecodeServer(encoded, 1)
	if err != nil {
		t.Fatalf("DecodeServer error: %v", err)
	}
	if requestID != "-." {
		t.Fatalf("requestID = %q, want -.", requestID)
	}
	r := record.NewReader(recordBytes)
	ts, err := r.ReadUvarint()
	if err != nil || ts != 1 {
		t.Fatalf("timestamp = %d err=%v, want 1", ts, err)
	}
	variant, err := r.ReadVariant(1)
	if err != nil || variant != 0 {
		t.Fatalf("variant = %d err=%v, want 0", variant, err)
	}
}

// TestServerLargeValueVector exercises the literal large-timestamp/duration
// scenario: a 1-byte varint (started_at=10ms) followed by a value that
// crosses into bincode's 8-byte u64 marker (length=315360000000ms, a
// 10-year duration), producing a 10-byte record, a 12-character base94
// body, and a 16-character server frame.
func TestServerLargeValueVector(t *testing.T) {
	w := record.NewWriter()
	w.WriteUvarint(10)           // started_at, fits in the 1-byte literal range
	w.WriteUvarint(315360000000) // length, needs the u64 marker encoding
	if len(w.Bytes()) != 10 {
		t.Fatalf("record length = %d, want 10", len(w.Bytes()))
	}

	encoded := EncodeServerRequestID(w.Bytes(), 1, 1)
	if len(encoded) != 16 {
		t.Fatalf("len(encoded) = %d, want 16", len(encoded))
	}

	recordBytes, requestID, err := DecodeServer(encoded, 1)
	if err != nil {
		t.Fatalf("DecodeServer error: %v", err)
	}
	if requestID != "-." {
		t.Fatalf("requestID = %q, want -.", requestID)
	}
	r := record.NewReader(recordBytes)
	startedAt, err := r.ReadUvarint()
	if err != nil || startedAt != 10 {
		t.Fatalf("started_at = %d err=%v, want 10", startedAt, err)
	}
	length, err := r.ReadUvarint()
	if err != nil || length != 315360000000 {
		t.Fatalf("length = %d err=%v, want 315360000000", length, err)
	}
}

func TestServerRoundTrip(t *testing.T) {
	w := record.NewWriter()
	w.WriteString("payload")
	original := w.Bytes()

	encoded := EncodeServerRequestID(original, 2, 9)
	recordBytes, requestID, err := DecodeServer(encoded, 2)
	if err != nil {
		t.Fatalf("DecodeServer error: %v", err)
	}
	if string(recordBytes) != string(original) {
		t.Fatalf("recordBytes mismatch")
	}
	if requestID != "-4" && requestID == "" {
		t.Fatalf("unexpected requestID %q", requestID)
	}
}

func TestServerSyntheticRequestID(t *testing.T) {
	encoded := EncodeServer([]byte("x"), 3, SyntheticRequestID)
	recordBytes, requestID, err := DecodeServer(encoded, 3)
	if err != nil {
		t.Fatalf("DecodeServer error: %v", err)
	}
	if requestID != SyntheticRequestID {
		t.Fatalf("requestID = %q, want %q", requestID, SyntheticRequestID)
	}
	if string(recordBytes) != "x" {
		t.Fatalf("recordBytes = %q, want x", recordBytes)
	}
}

func TestServerDecodeRejectsWrongTag(t *testing.T) {
	encoded := EncodeServerRequestID([]byte("x"), 1, 1)
	if _, _, err := DecodeServer(encoded, 2); err == nil {
		t.Fatal("expected error for mismatched tag")
	}
}

func TestServerDecodeRejectsTooShort(t *testing.T) {
	if _, _, err := DecodeServer("ab", 1); err == nil {
		t.Fatal("expected error for too-short body")
	}
}

func TestSignedRoundTrip(t *testing.T) {
	private, public, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair error: %v", err)
	}
	w := record.NewWriter()
	w.WriteBool(false)
	original := w.Bytes()

	encoded, err := EncodeSigned(original, 1, 1, public, private)
	if err != nil {
		t.Fatalf("EncodeSigned error: %v", err)
	}
	if len(encoded) != 136 {
		t.Fatalf("len(encoded) = %d, want 136", len(encoded))
	}

	recordBytes, decodedPublic, requestID, err := DecodeSigned(encoded, 1)
	if err != nil {
		t.Fatalf("DecodeSigned error: %v", err)
	}
	if string(recordBytes) != string(original) {
		t.Fatalf("recordBytes mismatch")
	}
	if string(decodedPublic.Serialize()) != string(public.Serialize()) {
		t.Fatal("decoded public key mismatch")
	}
	if requestID != 1 {
		t.Fatalf("requestID = %d, want 1", requestID)
	}
}

func TestSignedIsDeterministicForIdenticalInputs(t *testing.T) {
	private, public, _ := crypto.GenerateKeyPair()
	w := record.NewWriter()
	w.WriteBool(false)
	data := w.Bytes()

	first, err := EncodeSigned(data, 1, 1, public, private)
	if err != nil {
		t.Fatalf("EncodeSigned error: %v", err)
	}
	second, err := EncodeSigned(data, 1, 1, public, private)
	if err != nil {
		t.Fatalf("EncodeSigned error: %v", err)
	}
	if first != second {
		t.Fatal("expected identical logical inputs to sign to identical envelopes")
	}
}

func TestSignedDiffersForDifferentContent(t *testing.T) {
	private, public, _ := crypto.GenerateKeyPair()
	w1 := record.NewWriter()
	w1.WriteBool(false)
	w2 := record.NewWriter()
	w2.WriteBool(true)

	first, err := EncodeSigned(w1.Bytes(), 1, 1, public, private)
	if err != nil {
		t.Fatalf("EncodeSigned error: %v", err)
	}
	second, err := EncodeSigned(w2.Bytes(), 1, 1, public, private)
	if err != nil {
		t.Fatalf("EncodeSigned error: %v", err)
	}
	if first == second {
		t.Fatal("expected different content to produce different envelopes")
	}
}

func TestSignedDecodeRejectsWrongKeySignature(t *testing.T) {
	private, public, _ := crypto.GenerateKeyPair()
	otherPrivate, _, _ := crypto.GenerateKeyPair()

	w := record.NewWriter()
	w.WriteBool(false)
	encoded, err := EncodeSigned(w.Bytes(), 1, 1, public, private)
	if err != nil {
		t.Fatalf("EncodeSigned error: %v", err)
	}

	// Re-encode with a signature from a different private key but claiming
	// the original public key, simulating a forged envelope.
	forged, err := EncodeSigned(w.Bytes(), 1, 1, public, otherPrivate)
	if err != nil {
		t.Fatalf("EncodeSigned error: %v", err)
	}
	if forged == encoded {
		t.Fatal("expected forged envelope to differ from original")
	}
	if _, _, _, err := DecodeSigned(forged, 1); err == nil {
		t.Fatal("expected signature verification to fail for mismatched keypair")
	} else if err.Error() != "Cannot verify the data" {
		t.Fatalf("unexpected error message: %v", err)
	}
}

func TestSignedDecodeRejectsTooShort(t *testing.T) {
	encoded := `{"k":"-.","v":"!"}`
	if _, _, _, err := DecodeSigned(encoded, 1); err == nil {
		t.Fatal("expected error for too-short signed payload")
	}
}

func TestPeekClientTagMatchesEnvelopeWithoutDecodingPayload(t *testing.T) {
	encoded := EncodePublic(nil, 1, 42)
	tag, err := PeekClientTag(encoded)
	if err != nil {
		t.Fatalf("PeekClientTag error: %v", err)
	}
	if tag != 42 {
		t.Fatalf("tag = %d, want 42", tag)
	}
}

func TestPeekClientTagRejectsMalformedBody(t *testing.T) {
	if _, err := PeekClientTag("not an envelope"); err == nil {
		t.Fatal("expected error for malformed body")
	}
	if _, err := PeekClientTag(`{"k":"`); err == nil {
		t.Fatal("expected error for truncated prefix")
	}
}

func TestPeekServerTagMatchesEncodedTag(t *testing.T) {
	encoded := EncodeServerRequestID([]byte("x"), 17, 3)
	tag, err := PeekServerTag(encoded)
	if err != nil {
		t.Fatalf("PeekServerTag error: %v", err)
	}
	if tag != 17 {
		t.Fatalf("tag = %d, want 17", tag)
	}
}

func TestPeekServerTagRejectsTooShort(t *testing.T) {
	if _, err := PeekServerTag("x"); err == nil {
		t.Fatal("expected error for too-short body")
	}
}
