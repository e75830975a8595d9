package edge

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/adred-codev/gatecodec/crypto"
	"github.com/adred-codev/gatecodec/internal/metrics"
)

// Client is one connected WebSocket peer. Its id is a server-side
// bookkeeping key only - it never appears on the wire, which identifies
// messages by player public key (for signed messages) or not at all (for
// public ones).
type Client struct {
	id   string
	conn net.Conn
	send chan string

	closeOnce sync.Once

	connectedAt time.Time

	// Slow-client detection: a full send buffer counts as a strike. After
	// slowClientStrikeLimit consecutive strikes the connection is forced
	// closed rather than left to buffer indefinitely for one laggy peer.
	lastMessageSentAt time.Time
	sendAttempts      int32
	slowClientWarned  int32

	// publicKey is set once the client has sent at least one signed
	// message with a verified signature, identifying which player this
	// connection belongs to.
	publicKey atomic.Value // *crypto.PublicKey
}

// slowClientStrikeLimit is how many consecutive full-buffer sends a client
// tolerates before being force-disconnected.
const slowClientStrikeLimit = 3

const clientSendBufferSize = 256

// ClientPool reuses Client structs across connect/disconnect cycles the way
// the teacher's ConnectionPool does, trading a small amount of GC pressure
// for avoiding a channel allocation on every connection.
type ClientPool struct {
	pool sync.Pool
}

// NewClientPool builds an empty ClientPool.
func NewClientPool() *ClientPool {
	return &ClientPool{
		pool: sync.Pool{
			New: func() any {
				return &Client{send: make(chan string, clientSendBufferSize)}
			},
		},
	}
}

// Get returns a Client ready for a new connection.
func (p *ClientPool) Get() *Client {
	c := p.pool.Get().(*Client)

	select {
	case <-c.send:
	default:
	}

	c.closeOnce = sync.Once{}
	c.connectedAt = time.Now()
	c.lastMessageSentAt = time.Now()
	atomic.StoreInt32(&c.sendAttempts, 0)
	atomic.StoreInt32(&c.slowClientWarned, 0)
	c.publicKey.Store((*crypto.PublicKey)(nil))
	return c
}

// Put resets a Client and returns it to the pool.
func (p *ClientPool) Put(c *Client) {
	c.conn = nil
	c.id = ""
	p.pool.Put(c)
}

func newClientID() string {
	return uuid.NewString()
}

// PublicKey returns the player public key this connection has authenticated
// as, or nil if it has not sent a verified signed message yet.
func (c *Client) PublicKey() *crypto.PublicKey {
	v, _ := c.publicKey.Load().(*crypto.PublicKey)
	return v
}

func (c *Client) setPublicKey(key *crypto.PublicKey) {
	c.publicKey.Store(key)
}

// trySend is a non-blocking send to c's buffer. A full buffer counts as a
// strike; after slowClientStrikeLimit consecutive strikes the underlying
// connection is force-closed so readPump/writePump tear the client down
// instead of letting one laggy peer buffer forever. Returns true if the
// message was enqueued.
func (s *Server) trySend(c *Client, body string) bool {
	select {
	case c.send <- body:
		atomic.StoreInt32(&c.sendAttempts, 0)
		c.lastMessageSentAt = time.Now()
		return true
	default:
	}

	metrics.BroadcastsDropped.WithLabelValues("client_buffer_full").Inc()

	if atomic.AddInt32(&c.sendAttempts, 1) < slowClientStrikeLimit {
		return false
	}

	if atomic.CompareAndSwapInt32(&c.slowClientWarned, 0, 1) {
		s.logger.Warn().Str("client_id", c.id).Msg("slow client exceeded strike limit, disconnecting")
		metrics.SlowClientsDisconnected.Inc()
	}
	c.closeOnce.Do(func() {
		if c.conn != nil {
			c.conn.Close()
		}
	})
	return false
}
