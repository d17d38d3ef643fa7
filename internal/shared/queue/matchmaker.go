package queue

import (
	"math"
	"sort"

	"github.com/bkohler93/ranked-backend/internal/shared/party"
)

// MaxRatingDiff is the largest allowed gap between two teams' average
// ratings. Teams further apart stay assembled but unmatched and are rebuilt
// from scratch on the next tick.
const MaxRatingDiff = 300

// MatchResult is a proposed pairing of two same-size teams, pending
// assignment to a game server. It is consumed exactly once.
type MatchResult struct {
	ID        int64
	QueueSize int
	TeamA     party.Team
	TeamB     party.Team
	AvgDiff   float64
}

func (r MatchResult) AllMembers() []party.Member {
	return append(r.TeamA.Members(), r.TeamB.Members()...)
}

// Matchmaker assembles full teams from queued parties and pairs them by
// minimum average-rating difference.
type Matchmaker struct {
	queues *Manager
}

func NewMatchmaker(queues *Manager) *Matchmaker {
	return &Matchmaker{queues: queues}
}

// MatchAllQueues runs team building and pairing for every bucket size in
// increasing order. Parties consumed by an emitted result are removed from
// their bucket before this returns, so a party never appears in two
// simultaneous proposals.
func (m *Matchmaker) MatchAllQueues() []MatchResult {
	var results []MatchResult

	for n := MinTeamSize; n <= MaxTeamSize; n++ {
		teams := m.buildFullTeams(n)
		sort.SliceStable(teams, func(i, j int) bool {
			return teams[i].AverageRating() < teams[j].AverageRating()
		})

		for len(teams) >= 2 {
			bestDiff := math.MaxFloat64
			bestI, bestJ := -1, -1

			// Scan every unordered pair; earliest index wins a tie.
			for i := 0; i < len(teams)-1; i++ {
				for j := i + 1; j < len(teams); j++ {
					diff := math.Abs(teams[i].AverageRating() - teams[j].AverageRating())
					if diff < bestDiff {
						bestDiff = diff
						bestI, bestJ = i, j
					}
				}
			}

			if bestI < 0 || bestDiff > MaxRatingDiff {
				break
			}

			teamA := teams[bestJ]
			teamB := teams[bestI]
			teams = append(teams[:bestJ], teams[bestJ+1:]...)
			teams = append(teams[:bestI], teams[bestI+1:]...)

			results = append(results, MatchResult{
				QueueSize: n,
				TeamA:     teamA,
				TeamB:     teamB,
				AvgDiff:   bestDiff,
			})

			used := append(append([]party.Party{}, teamA...), teamB...)
			m.queues.RemoveParties(n, used)
		}
	}

	return results
}

// buildFullTeams greedily packs candidate parties, sorted ascending by
// average rating, into teams of exactly n players. Leftover undersized
// parties remain queued for a future tick; parties are never split.
func (m *Matchmaker) buildFullTeams(n int) []party.Team {
	var teams []party.Team
	candidates := m.queues.Candidates(n)
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].AverageRating() < candidates[j].AverageRating()
	})

	for len(candidates) > 0 {
		var buffer party.Team
		currentSize := 0
		added := false

		for i := 0; i < len(candidates); i++ {
			p := candidates[i]
			if currentSize+p.Size() > n {
				continue
			}
			buffer = append(buffer, p)
			currentSize += p.Size()
			candidates = append(candidates[:i], candidates[i+1:]...)
			i--
			added = true

			if currentSize == n {
				teams = append(teams, buffer)
				break
			}
		}

		if !added || currentSize < n {
			break
		}
	}

	return teams
}
