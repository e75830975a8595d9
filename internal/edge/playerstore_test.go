package edge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adred-codev/gatecodec/crypto"
	"github.com/adred-codev/gatecodec/types"
)

func testPublicKey(t *testing.T) *crypto.PublicKey {
	t.Helper()
	_, public, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	return public
}

func TestDecayForStartsFreshCycleOnFirstQuery(t *testing.T) {
	store := NewPlayerStore()
	public := testPublicKey(t)

	decay := store.DecayFor(public)

	assert.Equal(t, defaultDecayLength, decay.Length)
	assert.NotZero(t, decay.StartedAt)
}

func TestDecayForReturnsSameCycleOnRepeatQuery(t *testing.T) {
	store := NewPlayerStore()
	public := testPublicKey(t)

	first := store.DecayFor(public)
	second := store.DecayFor(public)

	assert.Equal(t, first.StartedAt, second.StartedAt)
}

func TestDecayForIsIndependentPerPlayer(t *testing.T) {
	store := NewPlayerStore()
	alice := testPublicKey(t)
	bob := testPublicKey(t)

	store.DecayFor(alice)
	store.SetName(bob, types.NewPlaintextSafeString("bob"))

	aliceDecay := store.DecayFor(alice)
	assert.Equal(t, defaultDecayLength, aliceDecay.Length)

	// Naming bob must not have touched alice's entry.
	aliceAgain := store.DecayFor(alice)
	assert.Equal(t, aliceDecay.StartedAt, aliceAgain.StartedAt)
}

func TestSetNameThenDecayForDoesNotResetCycle(t *testing.T) {
	store := NewPlayerStore()
	public := testPublicKey(t)

	before := store.DecayFor(public)
	store.SetName(public, types.NewPlaintextSafeString("nautilus"))
	after := store.DecayFor(public)

	assert.Equal(t, before.StartedAt, after.StartedAt)
}
