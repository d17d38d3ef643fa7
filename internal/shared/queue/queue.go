// Package queue holds the per-team-size waiting buckets and the matchmaker
// that assembles balanced team-vs-team proposals from them.
package queue

import (
	"sync"

	"github.com/bkohler93/ranked-backend/internal/shared/party"
	"github.com/bkohler93/ranked-backend/internal/shared/wserr"
)

const (
	MinTeamSize = 1
	MaxTeamSize = 4
)

var sizeToName = map[int]string{
	1: "solo",
	2: "duo",
	3: "trio",
	4: "squad",
}

var nameToSize = map[string]int{
	"solo":  1,
	"duo":   2,
	"trio":  3,
	"squad": 4,
}

func QueueName(size int) string {
	return sizeToName[size]
}

// QueueSize maps a queue name to its target team size, zero when unknown.
func QueueSize(name string) int {
	return nameToSize[name]
}

// Manager owns the waiting buckets, one per target team size 1..4. An
// undersized party is a legal entry; the matchmaker combines undersized
// parties up to exactly N. All methods are safe for concurrent use.
type Manager struct {
	mu      sync.Mutex
	buckets map[int][]party.Party
}

func NewManager() *Manager {
	buckets := make(map[int][]party.Party, MaxTeamSize)
	for n := MinTeamSize; n <= MaxTeamSize; n++ {
		buckets[n] = []party.Party{}
	}
	return &Manager{buckets: buckets}
}

// Enqueue adds a party to the bucket for targetSize. A party already present
// in that bucket is replaced in place, so a party can update its composition
// without an explicit dequeue.
func (m *Manager) Enqueue(targetSize int, p party.Party) error {
	if targetSize < MinTeamSize || targetSize > MaxTeamSize {
		return wserr.Sizef("queue size %d is not between %d and %d", targetSize, MinTeamSize, MaxTeamSize)
	}
	if p.Size() < 1 || p.Size() > targetSize {
		return wserr.Sizef("party size must be between 1 and %d for this queue", targetSize)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	bucket := m.buckets[targetSize]
	for i := range bucket {
		if bucket[i].ID == p.ID {
			bucket[i] = p
			return nil
		}
	}
	m.buckets[targetSize] = append(bucket, p)
	return nil
}

// Candidates returns a snapshot copy of the bucket; later mutations of the
// manager do not affect it.
func (m *Manager) Candidates(targetSize int) []party.Party {
	m.mu.Lock()
	defer m.mu.Unlock()
	bucket := m.buckets[targetSize]
	snapshot := make([]party.Party, len(bucket))
	copy(snapshot, bucket)
	return snapshot
}

// RemoveParties retires every party in used from the bucket, matched by id.
// Used after a successful match so consumed parties leave the queue as one
// step.
func (m *Manager) RemoveParties(targetSize int, used []party.Party) {
	usedIDs := make(map[int64]struct{}, len(used))
	for _, p := range used {
		usedIDs[p.ID] = struct{}{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	bucket := m.buckets[targetSize]
	kept := bucket[:0]
	for _, p := range bucket {
		if _, ok := usedIDs[p.ID]; !ok {
			kept = append(kept, p)
		}
	}
	m.buckets[targetSize] = kept
}

// RemoveFromQueue removes a single party from a bucket; absent parties are a
// no-op.
func (m *Manager) RemoveFromQueue(targetSize int, partyID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bucket := m.buckets[targetSize]
	for i, p := range bucket {
		if p.ID == partyID {
			m.buckets[targetSize] = append(bucket[:i], bucket[i+1:]...)
			return
		}
	}
}

// FindByMember locates the queued party containing the given player uuid,
// scanning buckets in increasing size order.
func (m *Manager) FindByMember(uuid string) (targetSize int, p party.Party, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for n := MinTeamSize; n <= MaxTeamSize; n++ {
		for _, queued := range m.buckets[n] {
			if queued.HasMember(uuid) {
				return n, queued, true
			}
		}
	}
	return 0, party.Party{}, false
}

// BucketStatus summarizes one bucket for the periodic status report.
type BucketStatus struct {
	TargetSize   int
	PartiesCount int
	TotalPlayers int
}

func (m *Manager) Status() map[string]BucketStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	status := make(map[string]BucketStatus, MaxTeamSize)
	for n := MinTeamSize; n <= MaxTeamSize; n++ {
		players := 0
		for _, p := range m.buckets[n] {
			players += p.Size()
		}
		status[sizeToName[n]] = BucketStatus{
			TargetSize:   n,
			PartiesCount: len(m.buckets[n]),
			TotalPlayers: players,
		}
	}
	return status
}
