// Package rating implements the Elo-style skill model. Expected scores use
// the standard logistic pairing curve; the K factor is the product of a
// rating-tier factor and a team-size factor, so high-rated matches move less
// and larger teams move more.
package rating

import "math"

// ExpectedScore is the probability that a player rated rA beats one rated rB.
func ExpectedScore(rA, rB float64) float64 {
	return 1 / (1 + math.Pow(10, (rB-rA)/400))
}

// NewRating applies one game outcome, floor-rounded and clamped at zero.
func NewRating(current int, expected, actual float64, k int) int {
	updated := int(math.Floor(float64(current) + float64(k)*(actual-expected)))
	if updated < 0 {
		return 0
	}
	return updated
}

// TierFactor shrinks rating movement as the pre-game average climbs.
func TierFactor(avgRating float64) int {
	switch {
	case avgRating <= 1400:
		return 8
	case avgRating <= 1800:
		return 6
	case avgRating <= 2200:
		return 4
	default:
		return 4
	}
}

// SizeFactor grows rating movement with team size.
func SizeFactor(teamSize int) int {
	switch teamSize {
	case 1:
		return 2
	case 2:
		return 4
	case 3:
		return 6
	case 4:
		return 8
	default:
		return 4
	}
}

func KFactor(avgRating float64, teamSize int) int {
	return TierFactor(avgRating) * SizeFactor(teamSize)
}

// Average is the mean of the given ratings, zero for an empty slice.
func Average(ratings []int) float64 {
	if len(ratings) == 0 {
		return 0
	}
	total := 0
	for _, r := range ratings {
		total += r
	}
	return float64(total) / float64(len(ratings))
}

// RoundForRating picks the round count for a match from its average rating
// tier.
func RoundForRating(avgRating float64) int {
	switch {
	case avgRating < 1400:
		return 2
	case avgRating < 1800:
		return 3
	case avgRating < 2200:
		return 4
	default:
		return 1
	}
}

// TwoTeamOutcome computes every player's post-game rating for a concluded
// team-vs-team match. Each side shares one expected score derived from the
// team averages and one K factor; per-player deltas then apply to individual
// ratings.
func TwoTeamOutcome(team1, team2 []int, team1Win bool, teamSize int) (newTeam1, newTeam2 []int) {
	avg1 := Average(team1)
	avg2 := Average(team2)

	expected1 := ExpectedScore(avg1, avg2)
	expected2 := ExpectedScore(avg2, avg1)

	actual1, actual2 := 0.0, 1.0
	if team1Win {
		actual1, actual2 = 1.0, 0.0
	}

	k1 := KFactor(avg1, teamSize)
	k2 := KFactor(avg2, teamSize)

	newTeam1 = make([]int, len(team1))
	for i, r := range team1 {
		newTeam1[i] = NewRating(r, expected1, actual1, k1)
	}
	newTeam2 = make([]int, len(team2))
	for i, r := range team2 {
		newTeam2[i] = NewRating(r, expected2, actual2, k2)
	}
	return newTeam1, newTeam2
}
