package catalog

import "testing"

func TestRegisterClientAndServerShareNamespaceIndependently(t *testing.T) {
	clientTags = make(map[uint16]string)
	serverTags = make(map[uint16]string)

	RegisterClient(500, "Ping")
	RegisterServer(500, "ServerStatus")

	if _, ok := clientTags[500]; !ok {
		t.Fatal("expected client tag 500 to be registered")
	}
	if _, ok := serverTags[500]; !ok {
		t.Fatal("expected server tag 500 to be registered")
	}
}

func TestRegisterSameTagSameTypeIsIdempotent(t *testing.T) {
	clientTags = make(map[uint16]string)

	RegisterClient(501, "Ping")
	RegisterClient(501, "Ping")
}

func TestRegisterDuplicateTagDifferentTypePanics(t *testing.T) {
	clientTags = make(map[uint16]string)
	RegisterClient(502, "Ping")

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate tag with different type name")
		}
	}()
	RegisterClient(502, "DecayQuery")
}

func TestMaxTagTracksHighestRegistered(t *testing.T) {
	clientTags = make(map[uint16]string)

	if _, ok := MaxClientTag(); ok {
		t.Fatal("expected no max tag before any registration")
	}

	RegisterClient(1, "Ping")
	RegisterClient(10, "DecayQuery")
	RegisterClient(5, "Identity")

	max, ok := MaxClientTag()
	if !ok || max != 10 {
		t.Fatalf("MaxClientTag() = (%d, %v), want (10, true)", max, ok)
	}
}

func TestLookupReturnsRegisteredName(t *testing.T) {
	clientTags = make(map[uint16]string)
	serverTags = make(map[uint16]string)

	RegisterClient(9, "DecayQuery")
	RegisterServer(9, "Decay")

	name, ok := LookupClient(9)
	if !ok || name != "DecayQuery" {
		t.Fatalf("LookupClient(9) = (%q, %v), want (DecayQuery, true)", name, ok)
	}
	name, ok = LookupServer(9)
	if !ok || name != "Decay" {
		t.Fatalf("LookupServer(9) = (%q, %v), want (Decay, true)", name, ok)
	}
	if _, ok := LookupClient(999); ok {
		t.Fatal("expected no match for unregistered tag")
	}
}
