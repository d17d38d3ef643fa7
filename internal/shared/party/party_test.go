package party

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPartyHasMember(t *testing.T) {
	p := Party{
		ID:         1,
		LeaderUUID: "leader",
		Members: []Member{
			{UUID: "leader", Rating: 1000},
			{UUID: "friend", Rating: 1200},
		},
	}

	assert.True(t, p.HasMember("leader"))
	assert.True(t, p.HasMember("friend"))
	assert.False(t, p.HasMember("stranger"))
}

func TestPartyAverageRating(t *testing.T) {
	assert.Zero(t, Party{}.AverageRating())

	p := Party{Members: []Member{{Rating: 1000}, {Rating: 1200}, {Rating: 1100}}}
	assert.InDelta(t, 1100, p.AverageRating(), 0.0001)
}

func TestTeamAverageRatingIsPlayerWeighted(t *testing.T) {
	duo := Party{ID: 1, Members: []Member{{UUID: "a", Rating: 1200}, {UUID: "b", Rating: 1200}}}
	solo := Party{ID: 2, Members: []Member{{UUID: "c", Rating: 900}}}
	team := Team{duo, solo}

	assert.Equal(t, 3, team.Size())
	assert.InDelta(t, 1100, team.AverageRating(), 0.0001)
	assert.Len(t, team.Members(), 3)
}
