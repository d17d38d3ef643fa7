package session

import (
	"github.com/bkohler93/ranked-backend/pkg/uuidstring"
)

type GameStatus int

const (
	GameIdle GameStatus = iota
	GamePending
	GameStart
	GameDuring
	GameEnd
)

type GamePlayer struct {
	UUID        string
	DisplayName string
	Rating      int
	KillCount   int
	DeathCount  int
	AssistCount int
	IsOnline    bool
	IsTeam1     bool
}

// Game is the live state of a match running on one game server. Counters are
// append-only increments driven by in-game event messages; nothing is
// recomputed mid-game.
type Game struct {
	ID        uuidstring.ID
	QueueSize int
	Status    GameStatus
	Players   []*GamePlayer
}

func (g *Game) Player(uuid string) *GamePlayer {
	for _, p := range g.Players {
		if p.UUID == uuid {
			return p
		}
	}
	return nil
}

func (g *Game) Team(team1 bool) []*GamePlayer {
	var team []*GamePlayer
	for _, p := range g.Players {
		if p.IsTeam1 == team1 {
			team = append(team, p)
		}
	}
	return team
}

func (g *Game) AllOnline() bool {
	for _, p := range g.Players {
		if !p.IsOnline {
			return false
		}
	}
	return true
}

// SetOnlineStatus flips the online flag for the listed players. Unknown
// uuids are ignored; a report may reference a player already removed.
func (g *Game) SetOnlineStatus(uuids []string, online bool) {
	for _, uuid := range uuids {
		if p := g.Player(uuid); p != nil {
			p.IsOnline = online
		}
	}
}

// TryStart moves an idle game straight to During once every player is
// online. The Start state is never observable from outside; it only exists
// on the wire as the start broadcast. Toggling a player offline afterwards
// does not revert the transition.
func (g *Game) TryStart() bool {
	if g.Status != GameIdle || !g.AllOnline() {
		return false
	}
	g.Status = GameDuring
	return true
}
