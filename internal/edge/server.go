// Package edge implements the WebSocket-facing gateway process: upgrade
// handling, per-connection read/write pumps, and message dispatch over the
// wire protocol defined by the codec, frame, and messages packages. It is
// the in-repo stand-in for "API Gateway WebSocket API -> Lambda handler":
// a single long-lived process plays both roles.
package edge

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gobwas/ws"
	"github.com/rs/zerolog"

	"github.com/adred-codev/gatecodec/internal/config"
	"github.com/adred-codev/gatecodec/internal/metrics"
	"github.com/adred-codev/gatecodec/internal/ratelimit"
	"github.com/adred-codev/gatecodec/internal/resource"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Server owns every connected Client and the resources shared across them:
// the connection-attempt rate limiter, the resource guard, and the minimal
// player registry DecayQuery answers from.
type Server struct {
	cfg    *config.Config
	logger zerolog.Logger

	listener net.Listener
	httpSrv  *http.Server

	pool           *ClientPool
	clients        sync.Map // map[*Client]struct{}
	clientCount    int64
	connectionsSem chan struct{}

	connLimiter *ratelimit.ConnectionLimiter
	msgLimiter  *ratelimit.ConnectionLimiter // reused token-bucket shape, keyed by client id, for per-connection message rate limiting
	guard       *resource.Guard
	players     *PlayerStore

	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	shuttingDown int32
}

// New builds a Server. Call Start to begin accepting connections.
func New(cfg *config.Config, logger zerolog.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		cfg:            cfg,
		logger:         logger,
		pool:           NewClientPool(),
		connectionsSem: make(chan struct{}, cfg.MaxConnections),
		connLimiter:    ratelimit.New(ratelimit.DefaultConfig(), logger),
		players:        NewPlayerStore(),
		ctx:            ctx,
		cancel:         cancel,
	}
	s.guard = resource.NewGuard(cfg, logger, &s.clientCount)
	s.msgLimiter = ratelimit.New(ratelimit.Config{
		IPBurst:     cfg.MessageBurstPerConn,
		IPRate:      cfg.MessageRatePerConn,
		IPTTL:       10 * time.Minute,
		GlobalBurst: cfg.MessageBurstPerConn * cfg.MaxConnections,
		GlobalRate:  cfg.MessageRatePerConn * float64(cfg.MaxConnections),
	}, logger)

	metrics.ConnectionsMax.Set(float64(cfg.MaxConnections))
	return s
}

// Start binds the listener and begins serving HTTP (WebSocket upgrade,
// health, metrics).
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	}
	s.listener = listener

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", metrics.Handler())

	s.httpSrv = &http.Server{
		Handler:        mux,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("accept loop error")
		}
	}()

	s.wg.Add(1)
	go s.monitorResources()

	s.logger.Info().Str("addr", s.cfg.Addr).Int("max_connections", s.cfg.MaxConnections).Msg("edge server listening")
	return nil
}

func (s *Server) monitorResources() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.MetricsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.guard.UpdateResources()
			metrics.CPUUsagePercent.Set(s.guard.CPUPercent())
			metrics.MemoryUsageBytes.Set(float64(s.guard.MemoryBytes()))
			metrics.GoroutinesActive.Set(float64(s.guard.Stats()["goroutines_current"].(int)))
		}
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if atomic.LoadInt32(&s.shuttingDown) == 1 {
		http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
		return
	}

	clientIP := clientIP(r)
	if !s.connLimiter.Allow(clientIP) {
		metrics.ConnectionRateLimited.WithLabelValues("ip").Inc()
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	if accept, reason := s.guard.ShouldAcceptConnection(); !accept {
		s.logger.Debug().Str("reason", reason).Msg("connection rejected by resource guard")
		metrics.ConnectionsFailed.Inc()
		metrics.CapacityRejections.WithLabelValues(reason).Inc()
		http.Error(w, "server overloaded", http.StatusServiceUnavailable)
		return
	}

	select {
	case s.connectionsSem <- struct{}{}:
	case <-time.After(5 * time.Second):
		metrics.ConnectionsFailed.Inc()
		http.Error(w, "server at capacity", http.StatusServiceUnavailable)
		return
	}

	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		<-s.connectionsSem
		metrics.ConnectionsFailed.Inc()
		s.logger.Error().Err(err).Str("client_ip", clientIP).Msg("websocket upgrade failed")
		return
	}

	c := s.pool.Get()
	c.conn = conn
	c.id = newClientID()

	s.clients.Store(c, struct{}{})
	atomic.AddInt64(&s.clientCount, 1)
	metrics.ConnectionsTotal.Inc()
	metrics.ConnectionsActive.Inc()

	go s.writePump(c)
	go s.readPump(c)
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if i := indexByte(forwarded, ','); i >= 0 {
			return forwarded[:i]
		}
		return forwarded
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}

func (s *Server) disconnectClient(c *Client, reason, initiatedBy string) {
	duration := time.Since(c.connectedAt)
	metrics.RecordDisconnect(reason, initiatedBy, duration)

	s.clients.Delete(c)
	atomic.AddInt64(&s.clientCount, -1)
	metrics.ConnectionsActive.Dec()

	c.closeOnce.Do(func() {
		if c.conn != nil {
			c.conn.Close()
		}
	})

	select {
	case <-s.connectionsSem:
	default:
	}

	s.pool.Put(c)
}

// Broadcast implements broadcast.Sink: it fans a single already-framed
// server message out to every connected client's send buffer, dropping
// rather than blocking when a client's buffer is full.
func (s *Server) Broadcast(body string) {
	s.clients.Range(func(key, _ any) bool {
		s.trySend(key.(*Client), body)
		return true
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if atomic.LoadInt32(&s.shuttingDown) == 1 {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "shutting down")
		return
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "ok connections=%d\n", atomic.LoadInt64(&s.clientCount))
}

// Shutdown stops accepting new connections, drains existing ones for up to
// a grace period, then force-closes anything left.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutdown: rejecting new connections")
	atomic.StoreInt32(&s.shuttingDown, 1)

	if s.listener != nil {
		s.listener.Close()
	}
	if s.httpSrv != nil {
		s.httpSrv.Shutdown(ctx)
	}

	gracePeriod := 30 * time.Second
	deadline := time.NewTimer(gracePeriod)
	check := time.NewTicker(time.Second)
	defer deadline.Stop()
	defer check.Stop()

drain:
	for {
		select {
		case <-deadline.C:
			break drain
		case <-check.C:
			if s.activeCount() == 0 {
				break drain
			}
		}
	}

	s.clients.Range(func(key, _ any) bool {
		c := key.(*Client)
		metrics.RecordDisconnect(metrics.DisconnectServerShutdown, metrics.InitiatedByServer, time.Since(c.connectedAt))
		close(c.send)
		return true
	})

	s.cancel()
	s.connLimiter.Stop()
	s.msgLimiter.Stop()
	s.wg.Wait()

	s.logger.Info().Msg("shutdown complete")
	return nil
}

// Guard exposes the server's resource guard so the broadcast subscriber can
// pause or drop fan-out under load using the same admission-control state
// that governs new connections.
func (s *Server) Guard() *resource.Guard {
	return s.guard
}

func (s *Server) activeCount() int {
	n := 0
	s.clients.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
