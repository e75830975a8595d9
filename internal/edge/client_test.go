package edge

import (
	"net"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func newTestClient(t *testing.T, bufSize int) (*Client, net.Conn) {
	t.Helper()
	serverConn, clientConn := net.Pipe()
	t.Cleanup(func() { clientConn.Close() })
	return &Client{id: "c1", conn: serverConn, send: make(chan string, bufSize)}, serverConn
}

func TestClientPoolGetResetsStateForReuse(t *testing.T) {
	pool := NewClientPool()
	c := pool.Get()
	c.sendAttempts = 2
	c.slowClientWarned = 1
	c.id = "stale"
	pool.Put(c)

	reused := pool.Get()

	assert.Equal(t, int32(0), reused.sendAttempts)
	assert.Equal(t, int32(0), reused.slowClientWarned)
	assert.Nil(t, reused.PublicKey())
}

func TestTrySendDeliversWhenBufferHasRoom(t *testing.T) {
	s := &Server{logger: zerolog.Nop()}
	c, _ := newTestClient(t, 1)

	ok := s.trySend(c, "hello")

	assert.True(t, ok)
	assert.Equal(t, "hello", <-c.send)
}

func TestTrySendDisconnectsAfterStrikeLimit(t *testing.T) {
	s := &Server{logger: zerolog.Nop()}
	c, serverConn := newTestClient(t, 1)
	c.send <- "fills the one slot"

	var ok bool
	for i := 0; i < slowClientStrikeLimit; i++ {
		ok = s.trySend(c, "overflow")
	}

	assert.False(t, ok)
	assert.Equal(t, int32(1), c.slowClientWarned)

	// The connection was force-closed; a further write must fail.
	_, err := serverConn.Write([]byte("x"))
	assert.Error(t, err)
}
