package crypto

import "testing"

func TestKeySerializationRoundTrip(t *testing.T) {
	private, public, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair error: %v", err)
	}

	privBytes := private.Serialize()
	if len(privBytes) != PrivateKeySize {
		t.Fatalf("private key serialized to %d bytes, want %d", len(privBytes), PrivateKeySize)
	}
	pubBytes := public.Serialize()
	if len(pubBytes) != PublicKeySize {
		t.Fatalf("public key serialized to %d bytes, want %d", len(pubBytes), PublicKeySize)
	}

	decodedPriv, err := DeserializePrivateKey(privBytes)
	if err != nil {
		t.Fatalf("DeserializePrivateKey error: %v", err)
	}
	if string(decodedPriv.Serialize()) != string(privBytes) {
		t.Fatal("private key did not round trip")
	}

	decodedPub, err := DeserializePublicKey(pubBytes)
	if err != nil {
		t.Fatalf("DeserializePublicKey error: %v", err)
	}
	if string(decodedPub.Serialize()) != string(pubBytes) {
		t.Fatal("public key did not round trip")
	}
}

func TestSignVerify(t *testing.T) {
	private, public, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair error: %v", err)
	}
	payload := []byte("message payload to sign")

	signature, err := Sign(payload, private)
	if err != nil {
		t.Fatalf("Sign error: %v", err)
	}
	if len(signature) != SignatureSize {
		t.Fatalf("signature is %d bytes, want %d", len(signature), SignatureSize)
	}
	if !Verify(payload, public, signature) {
		t.Fatal("expected signature to verify")
	}
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	private, public, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair error: %v", err)
	}
	payload := []byte("original")
	signature, err := Sign(payload, private)
	if err != nil {
		t.Fatalf("Sign error: %v", err)
	}
	if Verify([]byte("tampered"), public, signature) {
		t.Fatal("expected verification to fail for tampered payload")
	}
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	private, _, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair error: %v", err)
	}
	_, otherPublic, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair error: %v", err)
	}
	payload := []byte("payload")
	signature, err := Sign(payload, private)
	if err != nil {
		t.Fatalf("Sign error: %v", err)
	}
	if Verify(payload, otherPublic, signature) {
		t.Fatal("expected verification to fail against the wrong public key")
	}
}

func TestVerifyRejectsMalformedSignature(t *testing.T) {
	_, public, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair error: %v", err)
	}
	if Verify([]byte("payload"), public, []byte{1, 2, 3}) {
		t.Fatal("expected malformed signature to fail verification")
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	private, _, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair error: %v", err)
	}
	data := []byte("a secret string value")

	encrypted, err := Encrypt(data, private)
	if err != nil {
		t.Fatalf("Encrypt error: %v", err)
	}
	if len(encrypted.Salt) != SaltSize {
		t.Fatalf("salt is %d bytes, want %d", len(encrypted.Salt), SaltSize)
	}

	decrypted, ok := Decrypt(encrypted, private)
	if !ok {
		t.Fatal("expected decryption to succeed")
	}
	if string(decrypted) != string(data) {
		t.Fatalf("decrypted %q, want %q", decrypted, data)
	}
}

func TestDecryptFailsWithWrongKey(t *testing.T) {
	private, _, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair error: %v", err)
	}
	other, _, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair error: %v", err)
	}
	encrypted, err := Encrypt([]byte("data"), private)
	if err != nil {
		t.Fatalf("Encrypt error: %v", err)
	}
	if _, ok := Decrypt(encrypted, other); ok {
		t.Fatal("expected decryption with the wrong key to fail, not panic or succeed")
	}
}

func TestDecryptFailsOnTamperedCiphertext(t *testing.T) {
	private, _, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair error: %v", err)
	}
	encrypted, err := Encrypt([]byte("data"), private)
	if err != nil {
		t.Fatalf("Encrypt error: %v", err)
	}
	encrypted.Data[0] ^= 0xFF
	if _, ok := Decrypt(encrypted, private); ok {
		t.Fatal("expected decryption of tampered ciphertext to fail")
	}
}
