package entity

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerLogin(t *testing.T) {
	w := NewWorker("127.0.0.1:4000")
	require.False(t, w.IsLoggedIn())
	require.True(t, w.Online)

	w.Login("0xWALLET", "rig1", ".")
	assert.Equal(t, "0xWALLET.rig1", w.ID)
	assert.Equal(t, "0xWALLET", w.Wallet)
	assert.Equal(t, "rig1", w.Name)
	assert.False(t, w.LoginAt.IsZero())
	assert.True(t, w.IsLoggedIn())
}

func TestWorkerAcceptWithoutSubmit(t *testing.T) {
	w := NewWorker("")

	assert.False(t, w.ShareAccept())
	assert.False(t, w.ShareReject())
	assert.Equal(t, uint64(0), w.Accepted)

	w.ShareIndexAdd()
	assert.True(t, w.ShareAccept())
	assert.False(t, w.ShareReject())
	assert.Equal(t, uint64(1), w.Accepted)
	assert.Equal(t, uint64(0), w.Pending())
}

// Accepted+Rejected <= ShareIndex при любом порядке вызовов
func TestWorkerCountersInvariant(t *testing.T) {
	rnd := rand.New(rand.NewPCG(1, 2))

	for round := 0; round < 100; round++ {
		w := NewWorker("")
		for i := 0; i < 1000; i++ {
			switch rnd.IntN(3) {
			case 0:
				w.ShareIndexAdd()
			case 1:
				w.ShareAccept()
			case 2:
				w.ShareReject()
			}
			require.LessOrEqual(t, w.Accepted+w.Rejected, w.ShareIndex)
		}
	}
}

func TestWorkerFeeCounters(t *testing.T) {
	w := NewWorker("")

	assert.False(t, w.FeeShareAccept())
	w.FeeShareIndexAdd()
	assert.True(t, w.FeeShareAccept())
	assert.False(t, w.FeeShareAccept())

	w.DevShareIndexAdd()
	w.DevShareIndexAdd()
	assert.True(t, w.DevShareAccept())
	assert.Equal(t, uint64(2), w.DevShareIndex)
	assert.Equal(t, uint64(1), w.DevShareAccepted)

	// обычные счетчики не затронуты
	assert.Equal(t, uint64(0), w.ShareIndex)
	assert.Equal(t, uint64(0), w.Accepted)
}
