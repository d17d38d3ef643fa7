package queue

import (
	"fmt"
	"testing"

	"github.com/bkohler93/ranked-backend/internal/shared/party"
	"github.com/bkohler93/ranked-backend/internal/shared/wserr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeParty(id int64, ratings ...int) party.Party {
	members := make([]party.Member, len(ratings))
	for i, r := range ratings {
		members[i] = party.Member{
			UUID:        fmt.Sprintf("uuid-%d-%d", id, i),
			DisplayName: fmt.Sprintf("player-%d-%d", id, i),
			Rating:      r,
		}
	}
	return party.Party{
		ID:         id,
		LeaderUUID: members[0].UUID,
		Members:    members,
	}
}

func TestManagerEnqueue(t *testing.T) {
	t.Run("rejects sizes outside 1..4", func(t *testing.T) {
		m := NewManager()
		err := m.Enqueue(0, makeParty(1, 1000))
		require.Error(t, err)
		assert.True(t, wserr.IsKind(err, wserr.KindSize))

		err = m.Enqueue(5, makeParty(1, 1000))
		require.Error(t, err)
		assert.True(t, wserr.IsKind(err, wserr.KindSize))
	})

	t.Run("rejects party larger than target size", func(t *testing.T) {
		m := NewManager()
		err := m.Enqueue(2, makeParty(1, 1000, 1000, 1000))
		require.Error(t, err)
		assert.True(t, wserr.IsKind(err, wserr.KindSize))
	})

	t.Run("undersized party is a legal entry", func(t *testing.T) {
		m := NewManager()
		require.NoError(t, m.Enqueue(4, makeParty(1, 1000, 1100)))
		assert.Len(t, m.Candidates(4), 1)
	})

	t.Run("re-enqueue replaces the party in place", func(t *testing.T) {
		m := NewManager()
		require.NoError(t, m.Enqueue(2, makeParty(7, 1000)))
		require.NoError(t, m.Enqueue(2, makeParty(7, 1000, 1200)))

		candidates := m.Candidates(2)
		require.Len(t, candidates, 1)
		assert.Equal(t, 2, candidates[0].Size())
	})
}

func TestManagerCandidatesIsSnapshot(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Enqueue(1, makeParty(1, 1000)))

	snapshot := m.Candidates(1)
	m.RemoveFromQueue(1, 1)

	assert.Len(t, snapshot, 1)
	assert.Empty(t, m.Candidates(1))
}

func TestManagerRemoveFromQueue(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Enqueue(2, makeParty(1, 1000)))
	require.NoError(t, m.Enqueue(2, makeParty(2, 1100)))

	m.RemoveFromQueue(2, 1)
	candidates := m.Candidates(2)
	require.Len(t, candidates, 1)
	assert.Equal(t, int64(2), candidates[0].ID)

	// Absent party is a no-op.
	m.RemoveFromQueue(2, 99)
	assert.Len(t, m.Candidates(2), 1)
}

func TestManagerFindByMember(t *testing.T) {
	m := NewManager()
	p := makeParty(3, 1000, 1200)
	require.NoError(t, m.Enqueue(3, p))

	t.Run("finds by member uuid", func(t *testing.T) {
		size, found, ok := m.FindByMember(p.Members[1].UUID)
		require.True(t, ok)
		assert.Equal(t, 3, size)
		assert.Equal(t, p.ID, found.ID)
	})

	t.Run("finds by leader uuid", func(t *testing.T) {
		_, found, ok := m.FindByMember(p.LeaderUUID)
		require.True(t, ok)
		assert.Equal(t, p.ID, found.ID)
	})

	t.Run("unknown uuid", func(t *testing.T) {
		_, _, ok := m.FindByMember("nobody")
		assert.False(t, ok)
	})
}

func TestManagerStatus(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Enqueue(2, makeParty(1, 1000)))
	require.NoError(t, m.Enqueue(2, makeParty(2, 1100, 1200)))
	require.NoError(t, m.Enqueue(4, makeParty(3, 900)))

	status := m.Status()
	require.Len(t, status, 4)

	assert.Equal(t, BucketStatus{TargetSize: 2, PartiesCount: 2, TotalPlayers: 3}, status["duo"])
	assert.Equal(t, BucketStatus{TargetSize: 4, PartiesCount: 1, TotalPlayers: 1}, status["squad"])
	assert.Equal(t, BucketStatus{TargetSize: 1}, status["solo"])
}

func TestQueueNames(t *testing.T) {
	assert.Equal(t, "solo", QueueName(1))
	assert.Equal(t, "squad", QueueName(4))
	assert.Equal(t, 3, QueueSize("trio"))
	assert.Zero(t, QueueSize("ranked"))
}
