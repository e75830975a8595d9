package common

import "testing"

func TestPingSerializeEmptyVector(t *testing.T) {
	p := Ping{}
	encoded := p.Serialize(1)
	want := `{"k":"-.","v":"!"}`
	if encoded != want {
		t.Fatalf("Serialize() = %q, want %q", encoded, want)
	}

	decoded, requestID, err := DeserializePing(encoded)
	if err != nil {
		t.Fatalf("DeserializePing error: %v", err)
	}
	if decoded != p {
		t.Fatalf("decoded %+v, want %+v", decoded, p)
	}
	if requestID != 1 {
		t.Fatalf("requestID = %d, want 1", requestID)
	}
}

func TestServerStatusVector(t *testing.T) {
	s := ServerStatus{Timestamp: 1, Status: StatusOK}
	encoded := s.Serialize(1)
	want := "-.-.#f"
	if encoded != want {
		t.Fatalf("Serialize() = %q, want %q", encoded, want)
	}

	decoded, requestID, err := DeserializeServerStatus(encoded)
	if err != nil {
		t.Fatalf("DeserializeServerStatus error: %v", err)
	}
	if decoded != s {
		t.Fatalf("decoded %+v, want %+v", decoded, s)
	}
	if requestID != "-." {
		t.Fatalf("requestID = %q, want -.", requestID)
	}
}
