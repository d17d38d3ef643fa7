// Package party holds the party data model shared by the queue, matchmaker
// and store layers. A party is a group of players queueing together as one
// unit; rating snapshots are taken at queue time.
package party

type Member struct {
	UUID        string `json:"uuid"`
	DisplayName string `json:"displayName"`
	Rating      int    `json:"rating"`
}

type Party struct {
	ID         int64    `json:"partyId"`
	LeaderUUID string   `json:"partyLeaderUUID"`
	Members    []Member `json:"partyMembers"`
	Queued     bool     `json:"isInQueue,omitempty"`
}

func (p Party) Size() int {
	return len(p.Members)
}

func (p Party) HasMember(uuid string) bool {
	if p.LeaderUUID == uuid {
		return true
	}
	for _, m := range p.Members {
		if m.UUID == uuid {
			return true
		}
	}
	return false
}

// AverageRating is the mean rating across the party's members; zero for an
// empty party.
func (p Party) AverageRating() float64 {
	if len(p.Members) == 0 {
		return 0
	}
	total := 0
	for _, m := range p.Members {
		total += m.Rating
	}
	return float64(total) / float64(len(p.Members))
}

// Team is one complete N-player group assembled from one or more parties.
type Team []Party

func (t Team) Size() int {
	n := 0
	for _, p := range t {
		n += p.Size()
	}
	return n
}

// AverageRating is player-weighted: a duo counts twice as much as a solo.
func (t Team) AverageRating() float64 {
	players := 0
	total := 0
	for _, p := range t {
		players += len(p.Members)
		for _, m := range p.Members {
			total += m.Rating
		}
	}
	if players == 0 {
		return 0
	}
	return float64(total) / float64(players)
}

func (t Team) Members() []Member {
	members := make([]Member, 0, t.Size())
	for _, p := range t {
		members = append(members, p.Members...)
	}
	return members
}
