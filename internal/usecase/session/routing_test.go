package session

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dnsoftware/mpm-mining-proxy/internal/entity"
)

// id задания всегда находится не более чем в одном множестве
func TestRoutingTableSingleDestination(t *testing.T) {
	table, err := NewRoutingTable(32)
	require.NoError(t, err)

	rnd := rand.New(rand.NewPCG(3, 4))
	for i := 0; i < 5000; i++ {
		id := fmt.Sprintf("job%d", rnd.IntN(20))
		table.Mark(id, destinations[rnd.IntN(len(destinations))])

		count := 0
		for _, d := range destinations {
			if table.sets[d].Contains(id) {
				count++
			}
		}
		require.Equal(t, 1, count)
	}
}

func TestRoutingTableEviction(t *testing.T) {
	table, err := NewRoutingTable(2)
	require.NoError(t, err)

	table.Mark("a", entity.DestinationOrdinary)
	table.Mark("b", entity.DestinationOrdinary)
	table.Mark("c", entity.DestinationOrdinary)
	assert.False(t, table.Contains("a"))
	assert.True(t, table.Contains("c"))

	table.Reset()
	assert.Equal(t, 0, table.Len())

	_, err = NewRoutingTable(0)
	require.Error(t, err)
}

func TestPendingQueue(t *testing.T) {
	table, err := NewRoutingTable(8)
	require.NoError(t, err)
	q := NewPendingQueue(2)

	assert.True(t, q.Push(entity.NewWorkJob([]string{"0x1", "s", "t", "0x1"})))
	assert.False(t, q.Push(entity.NewWorkJob([]string{"0x1", "s", "t", "0x1"})))
	assert.True(t, q.Push(entity.NewWorkJob([]string{"0x2", "s", "t", "0x1"})))
	assert.True(t, q.Push(entity.NewWorkJob([]string{"0x3", "s", "t", "0x1"})))
	assert.Equal(t, 2, q.Len())

	table.Mark("0x2", entity.DestinationOrdinary)
	job, ok := q.Pop(entity.JobKindWork, table)
	require.True(t, ok)
	assert.Equal(t, "0x3", job.ID)

	_, ok = q.Pop(entity.JobKindWork, table)
	assert.False(t, ok)
}
