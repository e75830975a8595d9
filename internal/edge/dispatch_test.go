package edge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adred-codev/gatecodec/codec/base66"
	"github.com/adred-codev/gatecodec/crypto"
	"github.com/adred-codev/gatecodec/messages/common"
	"github.com/adred-codev/gatecodec/messages/game"
	"github.com/adred-codev/gatecodec/messages/servererr"
	"github.com/adred-codev/gatecodec/types"
)

func newTestServer() *Server {
	return &Server{players: NewPlayerStore()}
}

func TestDispatchPingRepliesWithServerStatus(t *testing.T) {
	s := newTestServer()
	body := common.Ping{}.Serialize(7)

	reply := dispatch(s, &Client{id: "c1"}, body)

	status, requestID, err := common.DeserializeServerStatus(reply)
	require.NoError(t, err)
	assert.Equal(t, base66.EncodeRequestID(7), requestID)
	assert.Equal(t, common.StatusOK, status.Status)
}

func TestDispatchDecayQueryStartsDecayAndRemembersPublicKey(t *testing.T) {
	s := newTestServer()
	private, public, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	body, err := game.DecayQuery{}.Serialize(3, public, private)
	require.NoError(t, err)

	c := &Client{id: "c1"}
	reply := dispatch(s, c, body)

	decay, requestID, err := game.DeserializeDecay(reply)
	require.NoError(t, err)
	assert.Equal(t, base66.EncodeRequestID(3), requestID)
	assert.Equal(t, defaultDecayLength, decay.Length)
	assert.NotNil(t, c.PublicKey())
}

func TestDispatchIdentityStoresNameAndOwesNoReply(t *testing.T) {
	s := newTestServer()
	private, public, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	identity := game.Identity{Name: types.NewPlaintextSafeString("nautilus")}
	body, err := identity.Serialize(1, public, private)
	require.NoError(t, err)

	c := &Client{id: "c1"}
	reply := dispatch(s, c, body)

	assert.Empty(t, reply)
	stored := s.players.DecayFor(public)
	assert.Equal(t, defaultDecayLength, stored.Length)
	name, ok := s.players.players[keyFor(public)].name.Plaintext()
	assert.True(t, ok)
	assert.Equal(t, "nautilus", name)
}

func TestDispatchUnknownTagRepliesWithServerError(t *testing.T) {
	s := newTestServer()
	// A well-formed Ping-shaped envelope under a tag nothing registers.
	body := common.Ping{}.Serialize(0)
	delete(handlers, common.PingTag) // simulate an unregistered tag temporarily
	defer func() { handlers[common.PingTag] = handlePing }()

	reply := dispatch(s, &Client{id: "c1"}, body)

	parsed, err := servererr.Deserialize(reply)
	require.NoError(t, err)
	assert.Equal(t, servererr.ErrorCodeInvalidData, parsed.ErrorCode)
}

func TestDispatchMalformedBodyRepliesWithServerError(t *testing.T) {
	s := newTestServer()

	reply := dispatch(s, &Client{id: "c1"}, "not a valid frame")

	parsed, err := servererr.Deserialize(reply)
	require.NoError(t, err)
	assert.Equal(t, servererr.ErrorCodeSerializationError, parsed.ErrorCode)
}
