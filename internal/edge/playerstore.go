package edge

import (
	"encoding/hex"
	"sync"

	"github.com/adred-codev/gatecodec/crypto"
	"github.com/adred-codev/gatecodec/messages/game"
	"github.com/adred-codev/gatecodec/types"
)

// defaultDecayLength is how long a fresh decay cycle runs before it is
// considered complete.
var defaultDecayLength = types.DurationFromMilliseconds(7 * 24 * 60 * 60 * 1000)

// playerState is what the edge process remembers about a player between
// messages. It holds no gameplay logic of its own - the authoritative
// simulation lives downstream; this is just enough state to answer a
// DecayQuery without a round trip.
type playerState struct {
	decay game.Decay
	name  types.SafeString
}

// PlayerStore is a minimal in-memory registry keyed by player public key.
// A real deployment would back this with the downstream game service; here
// it exists so DecayQuery has something to answer with.
type PlayerStore struct {
	mu      sync.RWMutex
	players map[string]*playerState
}

// NewPlayerStore builds an empty PlayerStore.
func NewPlayerStore() *PlayerStore {
	return &PlayerStore{players: make(map[string]*playerState)}
}

func keyFor(public *crypto.PublicKey) string {
	return hex.EncodeToString(public.Serialize())
}

// DecayFor returns the player's current decay state, starting a fresh
// cycle on the player's first query.
func (ps *PlayerStore) DecayFor(public *crypto.PublicKey) game.Decay {
	key := keyFor(public)

	ps.mu.RLock()
	state, ok := ps.players[key]
	ps.mu.RUnlock()
	if ok {
		return state.decay
	}

	ps.mu.Lock()
	defer ps.mu.Unlock()
	if state, ok = ps.players[key]; ok {
		return state.decay
	}
	state = &playerState{
		decay: game.Decay{StartedAt: types.ServerNow(), Length: defaultDecayLength},
	}
	ps.players[key] = state
	return state.decay
}

// SetName records a player's chosen display name, creating the player's
// entry if it doesn't exist yet.
func (ps *PlayerStore) SetName(public *crypto.PublicKey, name types.SafeString) {
	key := keyFor(public)

	ps.mu.Lock()
	defer ps.mu.Unlock()
	state, ok := ps.players[key]
	if !ok {
		state = &playerState{decay: game.Decay{StartedAt: types.ServerNow(), Length: defaultDecayLength}}
		ps.players[key] = state
	}
	state.name = name
}
