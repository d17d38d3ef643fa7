package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/bkohler93/ranked-backend/internal/shared/message"
	"github.com/bkohler93/ranked-backend/internal/shared/party"
	"github.com/bkohler93/ranked-backend/internal/shared/queue"
	"github.com/bkohler93/ranked-backend/internal/shared/rating"
	"github.com/bkohler93/ranked-backend/internal/shared/session"
	"github.com/bkohler93/ranked-backend/internal/shared/wserr"
	"github.com/bkohler93/ranked-backend/internal/store"
	"github.com/elliotchance/pie/v2"
	"github.com/sirupsen/logrus"
)

// Store is the slice of the persistence layer the handlers touch.
type Store interface {
	GetPlayer(ctx context.Context, uuid string) (store.Player, error)
	CreatePlayer(ctx context.Context, uuid, displayName string) (store.Player, error)
	UpdateDisplayName(ctx context.Context, uuid, displayName string) error
	UpdatePlayerData(ctx context.Context, p store.Player) error
	UpsertParty(ctx context.Context, p party.Party) error
	DeleteParty(ctx context.Context, id int64) error
	GetPartyByMember(ctx context.Context, uuid string) (party.Party, error)
	UpdateGameStatus(ctx context.Context, id string, status int) error
	SetMapChoice(ctx context.Context, id string, mapID int) error
	SetGameSettings(ctx context.Context, id string, mapID int, banCharacters []int, status int) error
	AppendGameEvent(ctx context.Context, id string, event any) error
	FinishGame(ctx context.Context, gameID string, winTeam int, endTime int64, event any, results []store.PlayerResult) error
}

// Standings is the leaderboard surface handlers read and refresh.
type Standings interface {
	SetRating(ctx context.Context, uuid string, rating int) error
	Standing(ctx context.Context, uuid string) (int64, error)
}

type Notifier interface {
	ServerOnline(ctx context.Context, c session.Connection)
	ServerOffline(ctx context.Context, c session.Connection)
	BackendOffline(ctx context.Context)
}

// Handlers holds every per-action handler and the shared state they mutate.
type Handlers struct {
	registry  *session.Registry
	hub       *Hub
	queues    *queue.Manager
	store     Store
	standings Standings
	notifier  Notifier
	log       *logrus.Logger

	lobbyServer string
	lobbyPort   int
	now         func() int64
}

func NewHandlers(registry *session.Registry, hub *Hub, queues *queue.Manager, st Store, standings Standings, notifier Notifier, log *logrus.Logger, lobbyServer string, lobbyPort int) *Handlers {
	return &Handlers{
		registry:    registry,
		hub:         hub,
		queues:      queues,
		store:       st,
		standings:   standings,
		notifier:    notifier,
		log:         log,
		lobbyServer: lobbyServer,
		lobbyPort:   lobbyPort,
		now:         nowMillis,
	}
}

func (h *Handlers) RegisterAll(d *Dispatcher) {
	d.Register(message.ActionHandshake, h.Handshake)
	d.Register(message.ActionHeartbeat, h.Heartbeat)
	d.Register(message.ActionParty, h.Party)
	d.Register(message.ActionPartyDisbanded, h.PartyDisbanded)
	d.Register(message.ActionQueue, h.Queue)
	d.Register(message.ActionQueueLeave, h.QueueLeave)
	d.Register(message.ActionGameStatus, h.GameStatus)
	d.Register(message.ActionMapChoose, h.MapChoose)
	d.Register(message.ActionKill, h.Kill)
	d.Register(message.ActionDamage, h.Damage)
	d.Register(message.ActionPlayerOnlineStatus, h.PlayerOnlineStatus)
	d.Register(message.ActionOutputWin, h.OutputWin)
	d.Register(message.ActionGetPlayerData, h.GetPlayerData)
	d.Register(message.ActionUpdatePlayerData, h.UpdatePlayerData)
	d.Register(message.ActionPlayerInfo, h.PlayerInfo)
}

// Handshake records the connecting process's declared identity. A payload
// carrying a prior session id reclaims it: the connection is re-keyed so
// server pushes reach the reconnected process.
func (h *Handlers) Handshake(ctx context.Context, c *Client, env message.Envelope) error {
	payload, err := message.DecodePayload[message.HandshakePayload](env.Payload)
	if err != nil {
		return err
	}

	data := payload.Handshake
	if reclaimed := data.SessionID; reclaimed != "" && reclaimed != c.ID() {
		if !reclaimed.Valid() {
			return wserr.Validation("sessionId is not a valid uuid")
		}
		if err := h.registry.Rekey(c.ID(), reclaimed); err != nil {
			return err
		}
		h.hub.Rekey(c.ID(), reclaimed)
		c.setID(reclaimed)
		h.log.WithField("client", reclaimed).Info("client session id reclaimed")
	}

	if err := h.registry.SetHandshake(c.ID(), data.ServerIP, data.ServerPort, data.IsLobby); err != nil {
		return err
	}

	if conn, ok := h.registry.Get(c.ID()); ok {
		h.notifier.ServerOnline(ctx, conn)
	}
	return nil
}

func (h *Handlers) Heartbeat(ctx context.Context, c *Client, env message.Envelope) error {
	if !h.registry.Heartbeat(c.ID()) {
		h.log.WithField("client", c.ID()).Warn("heartbeat from unknown connection")
	}
	return nil
}

// Party upserts a party's composition; the lobby resends the full member
// list on every change.
func (h *Handlers) Party(ctx context.Context, c *Client, env message.Envelope) error {
	payload, err := message.DecodePayload[message.PartyPayload](env.Payload)
	if err != nil {
		return err
	}

	p := payload.Party
	if p.ID == 0 || p.LeaderUUID == "" || len(p.Members) == 0 {
		return wserr.Validation("party id, leader uuid, and members are required")
	}

	if err := h.store.UpsertParty(ctx, p); err != nil {
		return wserr.Store("failed to upsert party", err)
	}

	c.Send(message.NewSuccess(message.ActionParty, message.MessagePayload{
		Message: "Party updated successfully",
	}))
	return nil
}

func (h *Handlers) PartyDisbanded(ctx context.Context, c *Client, env message.Envelope) error {
	payload, err := message.DecodePayload[message.PartyPayload](env.Payload)
	if err != nil {
		return err
	}
	if payload.Party.ID == 0 {
		return wserr.Validation("party id is required to disband")
	}

	// A disbanded party must not linger in any waiting bucket.
	for n := queue.MinTeamSize; n <= queue.MaxTeamSize; n++ {
		h.queues.RemoveFromQueue(n, payload.Party.ID)
	}

	if err := h.store.DeleteParty(ctx, payload.Party.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return wserr.NotFound("party not found")
		}
		return wserr.Store("failed to delete party", err)
	}

	c.Send(message.NewSuccess(message.ActionPartyDisbanded, message.MessagePayload{
		Message: "Party disbanded successfully",
	}))
	return nil
}

// Queue places the requesting player's party into the named bucket. The
// stored party record is the source of truth; the queue holds a snapshot.
func (h *Handlers) Queue(ctx context.Context, c *Client, env message.Envelope) error {
	payload, err := message.DecodePayload[message.QueuePayload](env.Payload)
	if err != nil {
		return err
	}

	data := payload.Queue
	if data.QueueName == "" {
		return wserr.Validation("queue name is required")
	}
	targetSize := queue.QueueSize(data.QueueName)
	if targetSize == 0 {
		return wserr.NotFoundf("queue %s not found", data.QueueName)
	}
	if data.UUID == "" {
		return wserr.Validation("player uuid is required")
	}

	p, err := h.store.GetPartyByMember(ctx, data.UUID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return wserr.NotFoundf("party not found for uuid %s", data.UUID)
		}
		return wserr.Store("failed to look up party", err)
	}

	// Re-queueing into a different bucket implies leaving the old one.
	for n := queue.MinTeamSize; n <= queue.MaxTeamSize; n++ {
		if n != targetSize {
			h.queues.RemoveFromQueue(n, p.ID)
		}
	}

	p.Queued = true
	if err := h.queues.Enqueue(targetSize, p); err != nil {
		return err
	}

	h.log.WithFields(logrus.Fields{
		"partyId":   p.ID,
		"queueName": data.QueueName,
	}).Info("party joined queue")

	c.Send(message.NewSuccess(message.ActionQueue, message.MessagePayload{
		Message: fmt.Sprintf("Successfully joined %s queue", data.QueueName),
	}))
	return nil
}

func (h *Handlers) QueueLeave(ctx context.Context, c *Client, env message.Envelope) error {
	payload, err := message.DecodePayload[message.QueuePayload](env.Payload)
	if err != nil {
		return err
	}
	if payload.Queue.UUID == "" {
		return wserr.Validation("player uuid is required")
	}

	targetSize, p, ok := h.queues.FindByMember(payload.Queue.UUID)
	if !ok {
		return wserr.NotFound("party not found in queue")
	}
	h.queues.RemoveFromQueue(targetSize, p.ID)

	h.log.WithFields(logrus.Fields{
		"partyId":   p.ID,
		"queueName": queue.QueueName(targetSize),
	}).Info("party left queue")

	c.Send(message.NewSuccess(message.ActionQueueLeave, message.MessagePayload{
		Message: fmt.Sprintf("Successfully left %s queue", queue.QueueName(targetSize)),
	}))
	return nil
}

// GameStatus handles both payload variants: a pre-game settings report
// (map + character bans) and a plain status change. A transition to idle
// ends the game: players transfer back to the lobby, the whitelist clears,
// and the server slot returns to pending.
func (h *Handlers) GameStatus(ctx context.Context, c *Client, env message.Envelope) error {
	if conn, ok := h.registry.Get(c.ID()); ok && conn.IsLobby {
		return wserr.State("cannot change game status in lobby mode")
	}

	payload, err := message.DecodePayload[message.GameStatusPayload](env.Payload)
	if err != nil {
		return err
	}
	data := payload.Data

	var gameID string
	if err := h.registry.WithGame(c.ID(), func(g *session.Game) error {
		gameID = g.ID.String()
		return nil
	}); err != nil {
		return err
	}

	if data.Status == nil {
		if data.Map == nil && data.Ban == nil {
			return wserr.Validation("game status is required")
		}
		mapID := 0
		if data.Map != nil {
			mapID = *data.Map
		}
		if err := h.store.SetGameSettings(ctx, gameID, mapID, data.Ban, int(session.GameIdle)); err != nil {
			return wserr.Store("failed to record game settings", err)
		}
		return nil
	}

	newStatus := session.GameStatus(*data.Status)
	if newStatus < session.GameIdle || newStatus > session.GameEnd {
		return wserr.Validationf("unknown game status %d", *data.Status)
	}

	if err := h.store.UpdateGameStatus(ctx, gameID, int(newStatus)); err != nil {
		return wserr.Store("failed to update game status", err)
	}

	if newStatus != session.GameIdle {
		return h.registry.WithGame(c.ID(), func(g *session.Game) error {
			g.Status = newStatus
			return nil
		})
	}

	// Game over: detach the game and reset the slot.
	g, err := h.registry.ClearGame(c.ID())
	if err != nil {
		return err
	}

	uuids := pie.Map(g.Players, func(p *session.GamePlayer) string { return p.UUID })
	c.Send(message.NewSuccess(message.ActionTransfer, message.TransferPayload{
		TransferData: message.TransferData{
			TargetServer: h.lobbyServer,
			TargetPort:   h.lobbyPort,
			UUIDs:        uuids,
		},
	}))
	c.Send(message.NewSuccess(message.ActionWhitelistChange, message.WhitelistChangePayload{
		Whitelist: []message.WhitelistEntry{},
	}))

	h.log.WithField("gameId", g.ID).Info("game ended, server back to pending")
	return nil
}

func (h *Handlers) MapChoose(ctx context.Context, c *Client, env message.Envelope) error {
	payload, err := message.DecodePayload[message.MapChoosePayload](env.Payload)
	if err != nil {
		return err
	}
	if payload.Data.Map <= 0 {
		return wserr.Validation("invalid map id")
	}

	var gameID string
	if err := h.registry.WithGame(c.ID(), func(g *session.Game) error {
		gameID = g.ID.String()
		return nil
	}); err != nil {
		return err
	}

	if err := h.store.SetMapChoice(ctx, gameID, payload.Data.Map); err != nil {
		return wserr.Store("failed to record map choice", err)
	}
	return nil
}

// Kill applies a kill event to the live rosters and appends it to the
// game's event log. Counters only ever increment.
func (h *Handlers) Kill(ctx context.Context, c *Client, env message.Envelope) error {
	payload, err := message.DecodePayload[message.KillPayload](env.Payload)
	if err != nil {
		return err
	}
	data := payload.Data
	if data.Target == "" || data.Attacker == "" || data.Type == "" {
		return wserr.Validation("invalid kill data")
	}

	var gameID string
	if err := h.registry.WithGame(c.ID(), func(g *session.Game) error {
		if g.Status != session.GameDuring {
			return wserr.State("no active game")
		}
		gameID = g.ID.String()
		if p := g.Player(data.Target); p != nil {
			p.DeathCount++
		}
		if p := g.Player(data.Attacker); p != nil {
			p.KillCount++
		}
		for _, assist := range data.Assists {
			if p := g.Player(assist); p != nil {
				p.AssistCount++
			}
		}
		return nil
	}); err != nil {
		return err
	}

	if err := h.store.AppendGameEvent(ctx, gameID, data); err != nil {
		return wserr.Store("failed to log kill event", err)
	}
	return nil
}

func (h *Handlers) Damage(ctx context.Context, c *Client, env message.Envelope) error {
	payload, err := message.DecodePayload[message.DamagePayload](env.Payload)
	if err != nil {
		return err
	}
	data := payload.Data
	if data.Target == "" || data.Attacker == "" {
		return wserr.Validation("invalid damage data")
	}

	var gameID string
	if err := h.registry.WithGame(c.ID(), func(g *session.Game) error {
		if g.Status != session.GameDuring {
			return wserr.State("no active game")
		}
		gameID = g.ID.String()
		return nil
	}); err != nil {
		return err
	}

	if err := h.store.AppendGameEvent(ctx, gameID, data); err != nil {
		return wserr.Store("failed to log damage event", err)
	}
	return nil
}

// PlayerOnlineStatus flips online flags for the listed players. Once every
// player on an idle game is online the game starts: the server gets the
// two-team roster and the start command, and the game moves to During with
// no observable intermediate state.
func (h *Handlers) PlayerOnlineStatus(ctx context.Context, c *Client, env message.Envelope) error {
	payload, err := message.DecodePayload[message.PlayerOnlineStatusPayload](env.Payload)
	if err != nil {
		return err
	}
	data := payload.PlayerOnlineStatus
	if len(data.UUIDs) == 0 {
		return wserr.Validation("player uuids are required")
	}

	var online bool
	switch data.Connection {
	case message.ConnectionConnected:
		online = true
	case message.ConnectionDisconnected:
		online = false
	default:
		return wserr.Validationf("unknown connection status: %s", data.Connection)
	}

	var started bool
	var team1, team2 []string
	var queueSize int
	var avg float64
	if err := h.registry.WithGame(c.ID(), func(g *session.Game) error {
		g.SetOnlineStatus(data.UUIDs, online)
		if started = g.TryStart(); started {
			for _, p := range g.Players {
				if p.IsTeam1 {
					team1 = append(team1, p.DisplayName)
				} else {
					team2 = append(team2, p.DisplayName)
				}
			}
			queueSize = g.QueueSize
			ratings := pie.Map(g.Players, func(p *session.GamePlayer) int { return p.Rating })
			avg = rating.Average(ratings)
		}
		return nil
	}); err != nil {
		return err
	}

	if !started {
		return nil
	}

	c.Send(message.NewSuccess(message.ActionTeamJoin, message.TeamJoinPayload{
		TeamData: []message.TeamRoster{
			{Names: team1, Team: 1},
			{Names: team2, Team: 2},
		},
	}))
	c.Send(message.NewSuccess(message.ActionCommand, message.CommandPayload{
		Command: startGameCommand(queueSize, avg),
	}))

	h.log.WithField("client", c.ID()).Info("game started, all players online")
	return nil
}

// startGameCommand builds the in-game function call that kicks off a match:
// small queues play the short mode, round count follows the lobby's rating
// tier, solos skip the will system.
func startGameCommand(queueSize int, avgRating float64) string {
	gameMode := 4
	if queueSize >= 3 {
		gameMode = 7
	}
	gameRound := 1
	if queueSize <= 3 {
		gameRound = rating.RoundForRating(avgRating)
	}
	willSystem := 1
	if queueSize == 1 {
		willSystem = 0
	}
	return fmt.Sprintf(
		"function ranked:start_game {gameMode:%d,gameRound:%d,banRuleType:1,enableSameChar:1,enableNewSkill:0,enableNewWillSystem:%d}",
		gameMode, gameRound, willSystem)
}

// OutputWin concludes the game: decide the winning team from the reported
// win list, compute every player's new rating, and persist ratings plus the
// game's terminal fields as one atomic batch. A win list matching neither
// roster is a no-team win: the game closes with zero rating movement.
func (h *Handlers) OutputWin(ctx context.Context, c *Client, env message.Envelope) error {
	payload, err := message.DecodePayload[message.OutputWinPayload](env.Payload)
	if err != nil {
		return err
	}
	data := payload.Data
	if len(data.Win) == 0 && len(data.Lose) == 0 {
		return wserr.Validation("win and lose data are required")
	}

	var gameID string
	var queueSize int
	var team1, team2 []session.GamePlayer
	if err := h.registry.WithGame(c.ID(), func(g *session.Game) error {
		gameID = g.ID.String()
		queueSize = g.QueueSize
		for _, p := range g.Players {
			if p.IsTeam1 {
				team1 = append(team1, *p)
			} else {
				team2 = append(team2, *p)
			}
		}
		return nil
	}); err != nil {
		return err
	}
	if len(team1) == 0 && len(team2) == 0 {
		return wserr.State("no players in game to update")
	}

	winSet := make(map[string]struct{}, len(data.Win))
	for _, uuid := range data.Win {
		winSet[uuid] = struct{}{}
	}
	allIn := func(team []session.GamePlayer) bool {
		for _, p := range team {
			if _, ok := winSet[p.UUID]; !ok {
				return false
			}
		}
		return len(team) > 0
	}

	winTeam := 0
	switch {
	case allIn(team1):
		winTeam = 1
	case allIn(team2):
		winTeam = 2
	default:
		h.log.WithField("gameId", gameID).Warn("win list matches neither team, closing game with no winner")
	}

	results := make([]store.PlayerResult, 0, len(team1)+len(team2))
	if winTeam == 0 {
		for _, p := range append(team1, team2...) {
			results = append(results, store.PlayerResult{UUID: p.UUID, NewRating: p.Rating})
		}
	} else {
		ratings1 := pie.Map(team1, func(p session.GamePlayer) int { return p.Rating })
		ratings2 := pie.Map(team2, func(p session.GamePlayer) int { return p.Rating })
		new1, new2 := rating.TwoTeamOutcome(ratings1, ratings2, winTeam == 1, queueSize)

		for i, p := range team1 {
			results = append(results, playerResult(p, new1[i], winTeam == 1))
		}
		for i, p := range team2 {
			results = append(results, playerResult(p, new2[i], winTeam == 2))
		}
	}

	if err := h.store.FinishGame(ctx, gameID, winTeam, h.now(), data, results); err != nil {
		return wserr.Store("failed to finish game", err)
	}

	for _, r := range results {
		if err := h.standings.SetRating(ctx, r.UUID, r.NewRating); err != nil {
			h.log.WithField("uuid", r.UUID).WithError(err).Warn("failed to refresh leaderboard entry")
		}
	}

	h.log.WithFields(logrus.Fields{
		"gameId":  gameID,
		"winTeam": winTeam,
	}).Info("game result recorded")
	return nil
}

func playerResult(p session.GamePlayer, newRating int, won bool) store.PlayerResult {
	r := store.PlayerResult{UUID: p.UUID, NewRating: newRating}
	if won {
		r.KillInc = 1
		r.AssistInc = p.AssistCount
	} else {
		r.DeathInc = 1
	}
	return r
}

// GetPlayerData looks up a player's profile, provisioning a fresh row at the
// default rating on first contact.
func (h *Handlers) GetPlayerData(ctx context.Context, c *Client, env message.Envelope) error {
	payload, err := message.DecodePayload[message.PlayerDataPayload](env.Payload)
	if err != nil {
		return err
	}
	data := payload.Player
	if data.UUID == "" {
		return wserr.Validation("player uuid is required")
	}

	p, err := h.store.GetPlayer(ctx, data.UUID)
	if errors.Is(err, store.ErrNotFound) {
		p, err = h.store.CreatePlayer(ctx, data.UUID, data.DisplayName)
		if err != nil {
			return wserr.Store("failed to create player", err)
		}
		c.Send(message.NewSuccess(message.ActionGetPlayerData, message.PlayerReplyPayload{
			Player: message.PlayerReply{
				UUID:        p.UUID,
				DisplayName: p.DisplayName,
				Rating:      p.RankScore,
			},
		}))
		return nil
	}
	if err != nil {
		return wserr.Store("failed to look up player", err)
	}

	if data.DisplayName != "" && p.DisplayName != data.DisplayName {
		if err := h.store.UpdateDisplayName(ctx, p.UUID, data.DisplayName); err != nil {
			return wserr.Store("failed to update display name", err)
		}
		p.DisplayName = data.DisplayName
	}

	reply := message.PlayerReply{
		UUID:        p.UUID,
		DisplayName: p.DisplayName,
		Rating:      p.RankScore,
	}

	if member, err := h.store.GetPartyByMember(ctx, p.UUID); err == nil {
		reply.IsInParty = true
		reply.PartyID = &member.ID
	} else if !errors.Is(err, store.ErrNotFound) {
		return wserr.Store("failed to look up party", err)
	}

	_, _, reply.IsInQueue = h.queues.FindByMember(p.UUID)

	if standing, err := h.standings.Standing(ctx, p.UUID); err != nil {
		h.log.WithField("uuid", p.UUID).WithError(err).Warn("failed to read leaderboard standing")
	} else {
		reply.Standing = standing
	}

	c.Send(message.NewSuccess(message.ActionGetPlayerData, message.PlayerReplyPayload{Player: reply}))
	return nil
}

func (h *Handlers) UpdatePlayerData(ctx context.Context, c *Client, env message.Envelope) error {
	payload, err := message.DecodePayload[message.PlayerDataPayload](env.Payload)
	if err != nil {
		return err
	}
	data := payload.Player
	if data.UUID == "" {
		return wserr.Validation("player uuid is required")
	}

	p := store.Player{
		UUID:        data.UUID,
		DisplayName: data.DisplayName,
	}
	if data.KillCount != nil {
		p.KillCount = *data.KillCount
	}
	if data.DeathCount != nil {
		p.DeathCount = *data.DeathCount
	}
	if data.GameCount != nil {
		p.GameCount = *data.GameCount
	}

	if err := h.store.UpdatePlayerData(ctx, p); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return wserr.NotFoundf("player %s not found", data.UUID)
		}
		return wserr.Store("failed to update player data", err)
	}
	return nil
}

// PlayerInfo receives a per-player end-of-round stat report. The numbers
// are advisory duplicates of the kill/damage event stream, so they are
// logged and dropped.
func (h *Handlers) PlayerInfo(ctx context.Context, c *Client, env message.Envelope) error {
	payload, err := message.DecodePayload[message.PlayerInfoPayload](env.Payload)
	if err != nil {
		return err
	}
	if payload.Data.UUID == "" {
		return wserr.Validation("player uuid is required")
	}

	h.log.WithFields(logrus.Fields{
		"uuid":   payload.Data.UUID,
		"kills":  payload.Data.KillCount,
		"deaths": payload.Data.DeathCount,
	}).Debug("received player round stats")
	return nil
}
