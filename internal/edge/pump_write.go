package edge

import (
	"bufio"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/adred-codev/gatecodec/internal/logging"
	"github.com/adred-codev/gatecodec/internal/metrics"
)

// writePump batches outbound messages: it drains c.send before flushing, so
// a burst of broadcasts costs one syscall instead of one per message.
func (s *Server) writePump(c *Client) {
	defer logging.RecoverPanic(s.logger, "writePump", map[string]any{"client_id": c.id})

	writer := bufio.NewWriter(c.conn)
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeOnce.Do(func() {
			if c.conn != nil {
				c.conn.Close()
			}
		})
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				wsutil.WriteServerMessage(c.conn, ws.OpClose, nil)
				return
			}

			c.conn.SetWriteDeadline(time.Now().Add(writeWait))

			batchCount := 1
			batchBytes := len(message)
			if err := wsutil.WriteServerMessage(writer, ws.OpText, []byte(message)); err != nil {
				return
			}

			n := len(c.send)
			for i := 0; i < n; i++ {
				message = <-c.send
				if err := wsutil.WriteServerMessage(writer, ws.OpText, []byte(message)); err != nil {
					return
				}
				batchCount++
				batchBytes += len(message)
			}

			if err := writer.Flush(); err != nil {
				return
			}

			metrics.MessagesSent.Add(float64(batchCount))
			metrics.BytesSent.Add(float64(batchBytes))

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsutil.WriteServerMessage(c.conn, ws.OpPing, nil); err != nil {
				return
			}
		}
	}
}
