package broadcast

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/adred-codev/gatecodec/frame"
)

type fakeSink struct {
	received []string
}

func (f *fakeSink) Broadcast(body string) {
	f.received = append(f.received, body)
}

func newTestBroadcaster(sink Sink) *Broadcaster {
	return &Broadcaster{
		cfg:    DefaultConfig(),
		sink:   sink,
		logger: zerolog.Nop(),
	}
}

func TestHandleForwardsWellFormedMessageToSink(t *testing.T) {
	sink := &fakeSink{}
	b := newTestBroadcaster(sink)

	body := frame.EncodeServer([]byte("payload"), 2, frame.SyntheticRequestID)
	b.handle([]byte(body))

	if len(sink.received) != 1 || sink.received[0] != body {
		t.Fatalf("sink.received = %v, want [%q]", sink.received, body)
	}
}

func TestHandleDropsMalformedMessage(t *testing.T) {
	sink := &fakeSink{}
	b := newTestBroadcaster(sink)

	b.handle([]byte("x"))

	if len(sink.received) != 0 {
		t.Fatalf("expected malformed message to be dropped, got %v", sink.received)
	}
}

func TestHandleWithoutGuardAlwaysForwards(t *testing.T) {
	sink := &fakeSink{}
	b := newTestBroadcaster(sink)
	if b.guard != nil {
		t.Fatal("expected nil guard in this test setup")
	}

	body := frame.EncodeServer([]byte("x"), 5, frame.SyntheticRequestID)
	b.handle([]byte(body))

	if len(sink.received) != 1 {
		t.Fatalf("expected message to be forwarded when no guard is set")
	}
}
