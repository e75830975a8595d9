package edge

import (
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/adred-codev/gatecodec/internal/logging"
	"github.com/adred-codev/gatecodec/internal/metrics"
	"github.com/adred-codev/gatecodec/messages/servererr"
)

func (s *Server) readPump(c *Client) {
	defer logging.RecoverPanic(s.logger, "readPump", map[string]any{"client_id": c.id})

	reason := metrics.DisconnectReadError
	initiatedBy := metrics.InitiatedByClient
	defer func() {
		s.disconnectClient(c, reason, initiatedBy)
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		msg, op, err := wsutil.ReadClientData(c.conn)
		if err != nil {
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))

		metrics.MessagesReceived.Inc()
		metrics.BytesReceived.Add(float64(len(msg)))

		switch op {
		case ws.OpText:
			if !s.msgLimiter.Allow(c.id) {
				metrics.RateLimitedMessages.Inc()
				errMsg := servererr.ServerError{
					ErrorCode:        servererr.ErrorCodeInvalidData,
					ErrorDescription: "Too many messages, please slow down",
					Recoverable:      true,
				}.SerializeSynthetic()
				select {
				case c.send <- errMsg:
				default:
				}
				continue
			}

			reply := dispatch(s, c, string(msg))
			if reply != "" {
				s.trySend(c, reply)
			}

		case ws.OpPing:
			// gobwas/wsutil answers pongs automatically.
		case ws.OpClose:
			reason = metrics.DisconnectClientInitiated
			return
		}
	}
}
