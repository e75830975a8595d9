package edge

import (
	"github.com/adred-codev/gatecodec/frame"
	"github.com/adred-codev/gatecodec/messages/common"
	"github.com/adred-codev/gatecodec/messages/game"
	"github.com/adred-codev/gatecodec/messages/servererr"
	"github.com/adred-codev/gatecodec/types"
)

// handlerFunc decodes one client message, applies it, and returns the
// server-framed reply to write back. A non-empty reply is written to the
// connection; an empty string means the message was handled with no reply
// owed (e.g. a fire-and-forget notification).
type handlerFunc func(s *Server, c *Client, body string) (reply string, err error)

var handlers = map[uint16]handlerFunc{
	common.PingTag:     handlePing,
	game.DecayQueryTag: handleDecayQuery,
	game.IdentityTag:   handleIdentity,
}

// dispatch routes an inbound client frame to its handler by peeking the
// message tag out of the envelope before committing to a specific
// Deserialize* call, then converts any framing or handling error into a
// ServerError reply per the handler wrapper pattern.
func dispatch(s *Server, c *Client, body string) string {
	tag, err := frame.PeekClientTag(body)
	if err != nil {
		return servererr.FromSerializationError(err, 0, 0).SerializeSynthetic()
	}

	handler, ok := handlers[tag]
	if !ok {
		return servererr.ServerError{
			ErrorCode:        servererr.ErrorCodeInvalidData,
			ErrorDescription: "Unknown message type",
			RequestID:        0,
			MessageTag:       tag,
			Recoverable:      false,
		}.SerializeSynthetic()
	}

	reply, err := handler(s, c, body)
	if err != nil {
		// The request-id lives inside the envelope payload this handler
		// just failed to decode, so it cannot be recovered here; per the
		// framing contract a lost request-id defaults to 0.
		return servererr.FromSerializationError(err, tag, 0).SerializeSynthetic()
	}
	return reply
}

func handlePing(s *Server, c *Client, body string) (string, error) {
	_, requestID, err := common.DeserializePing(body)
	if err != nil {
		return "", err
	}
	status := common.ServerStatus{Timestamp: types.ServerNow(), Status: common.StatusOK}
	return status.Serialize(requestID), nil
}

func handleDecayQuery(s *Server, c *Client, body string) (string, error) {
	_, public, requestID, err := game.DeserializeDecayQuery(body)
	if err != nil {
		return "", err
	}
	c.setPublicKey(public)
	decay := s.players.DecayFor(public)
	return decay.Serialize(requestID), nil
}

func handleIdentity(s *Server, c *Client, body string) (string, error) {
	identity, public, _, err := game.DeserializeIdentity(body)
	if err != nil {
		return "", err
	}
	c.setPublicKey(public)
	s.players.SetName(public, identity.Name)
	// Fire-and-forget: the wire protocol defines no server reply to
	// Identity, so a successful decode owes the client nothing back.
	return "", nil
}
