package backend

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/bkohler93/ranked-backend/internal/shared/message"
	"github.com/bkohler93/ranked-backend/internal/shared/party"
	"github.com/bkohler93/ranked-backend/internal/shared/queue"
	"github.com/bkohler93/ranked-backend/internal/shared/session"
	"github.com/bkohler93/ranked-backend/internal/store"
	"github.com/bkohler93/ranked-backend/pkg/uuidstring"
	"github.com/elliotchance/pie/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	livenessInterval  = 10 * time.Second
	heartbeatTimeout  = 60 * time.Second
	matchmakeInterval = 5 * time.Second
	statusInterval    = 30 * time.Second

	// maxWaitingMatches bounds the matched-but-unassigned backlog; beyond it
	// the oldest proposal is dropped and its players requeue from the lobby.
	maxWaitingMatches = 100
)

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// GameWriter is the slice of the persistence layer the scheduler needs.
type GameWriter interface {
	CreateGame(ctx context.Context, id, gameType string, teams []store.TeamData, startTime int64) error
}

// Scheduler owns the backend's periodic work: the liveness sweep, the
// matchmaking tick, and the queue status report. One instance runs for the
// life of the process.
type Scheduler struct {
	registry   *session.Registry
	hub        *Hub
	queues     *queue.Manager
	matchmaker *queue.Matchmaker
	games      GameWriter
	notifier   Notifier
	log        *logrus.Logger

	nextMatchID int64
	waiting     []queue.MatchResult
	pick        func(n int) int
	now         func() int64
	timeout     time.Duration
}

func NewScheduler(registry *session.Registry, hub *Hub, queues *queue.Manager, matchmaker *queue.Matchmaker, games GameWriter, notifier Notifier, log *logrus.Logger) *Scheduler {
	return &Scheduler{
		registry:   registry,
		hub:        hub,
		queues:     queues,
		matchmaker: matchmaker,
		games:      games,
		notifier:   notifier,
		log:        log,
		pick:       rand.IntN,
		now:        nowMillis,
		timeout:    heartbeatTimeout,
	}
}

// Run drives all three loops until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.loop(ctx, livenessInterval, s.livenessTick) })
	g.Go(func() error { return s.loop(ctx, matchmakeInterval, s.matchmakeTick) })
	g.Go(func() error { return s.loop(ctx, statusInterval, s.statusTick) })
	return g.Wait()
}

func (s *Scheduler) loop(ctx context.Context, interval time.Duration, tick func(ctx context.Context)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			tick(ctx)
		}
	}
}

// livenessTick evicts connections whose heartbeat went stale and then asks
// every survivor to report in before the next sweep.
func (s *Scheduler) livenessTick(ctx context.Context) {
	evicted := s.registry.Sweep(s.timeout)
	for _, c := range evicted {
		// Tell the client it is being dropped before its hub entry goes.
		s.hub.Send(c.ID, message.NewSuccess(message.ActionDisconnect, nil))
		s.hub.Unregister(c.ID)
		s.log.WithFields(logrus.Fields{
			"client":  c.ID,
			"isLobby": c.IsLobby,
		}).Warn("connection timed out, evicting")
		s.notifier.ServerOffline(ctx, c)
	}

	s.hub.Broadcast(message.NewSuccess(message.ActionHeartbeat, nil))
}

// matchmakeTick pairs up queued teams and assigns proposals to free game
// servers. Proposals that cannot be placed wait for a server slot on a
// later tick.
func (s *Scheduler) matchmakeTick(ctx context.Context) {
	for _, result := range s.matchmaker.MatchAllQueues() {
		s.nextMatchID++
		result.ID = s.nextMatchID
		s.waiting = append(s.waiting, result)
		s.log.WithFields(logrus.Fields{
			"matchId":   result.ID,
			"queueSize": result.QueueSize,
			"avgDiff":   result.AvgDiff,
		}).Info("match proposal created")
	}
	if overflow := len(s.waiting) - maxWaitingMatches; overflow > 0 {
		for _, dropped := range s.waiting[:overflow] {
			s.log.WithField("matchId", dropped.ID).Warn("waiting list full, dropping oldest match proposal")
		}
		s.waiting = append([]queue.MatchResult{}, s.waiting[overflow:]...)
	}

	// Each free server draws a random unconsumed proposal.
	for _, server := range s.registry.PendingServers() {
		if len(s.waiting) == 0 {
			return
		}
		i := s.pick(len(s.waiting))
		result := s.waiting[i]
		if err := s.placeMatch(ctx, server, result); err != nil {
			s.log.WithFields(logrus.Fields{
				"matchId": result.ID,
				"server":  server.ID,
			}).WithError(err).Warn("failed to place match on server")
			continue
		}
		s.waiting = append(s.waiting[:i], s.waiting[i+1:]...)
	}
}

// placeMatch binds one match proposal to one game server: live game state on
// the connection, a persistent game record, the server's whitelist, and the
// lobby-side transfer of every matched player.
func (s *Scheduler) placeMatch(ctx context.Context, server session.Connection, result queue.MatchResult) error {
	gameID := uuidstring.NewID()
	g := &session.Game{
		ID:        gameID,
		QueueSize: result.QueueSize,
		Status:    session.GameIdle,
		Players:   gamePlayers(result),
	}
	if err := s.registry.AssignGame(server.ID, g); err != nil {
		return err
	}

	queueName := queue.QueueName(result.QueueSize)
	teams := []store.TeamData{
		{UUIDs: memberUUIDs(result.TeamA)},
		{UUIDs: memberUUIDs(result.TeamB)},
	}
	if err := s.games.CreateGame(ctx, gameID.String(), queueName, teams, s.now()); err != nil {
		// Undo the slot assignment so the server stays usable.
		if _, clearErr := s.registry.ClearGame(server.ID); clearErr != nil {
			s.log.WithField("server", server.ID).WithError(clearErr).Error("failed to release server slot after create failure")
		}
		return err
	}

	members := result.AllMembers()
	s.hub.Send(server.ID, message.NewSuccess(message.ActionWhitelistChange, message.WhitelistChangePayload{
		Whitelist: pie.Map(members, func(m party.Member) message.WhitelistEntry {
			return message.WhitelistEntry{UUID: m.UUID, DisplayName: m.DisplayName}
		}),
	}))

	matchMsg := message.NewSuccess(message.ActionQueueMatch, message.QueueMatchPayload{
		Queue: message.QueueMatchData{
			QueueName: queueName,
			Parties:   [][]party.Party{result.TeamA, result.TeamB},
		},
	})
	transferMsg := message.NewSuccess(message.ActionTransfer, message.TransferPayload{
		TransferData: message.TransferData{
			TargetServer: server.ServerIP,
			TargetPort:   server.ServerPort,
			UUIDs:        pie.Map(members, func(m party.Member) string { return m.UUID }),
		},
	})
	for _, lobby := range s.registry.Lobbies() {
		s.hub.Send(lobby.ID, matchMsg)
		s.hub.Send(lobby.ID, transferMsg)
	}

	s.log.WithFields(logrus.Fields{
		"matchId": result.ID,
		"gameId":  gameID,
		"server":  server.ID,
		"queue":   queueName,
	}).Info("match placed on game server")
	return nil
}

func gamePlayers(result queue.MatchResult) []*session.GamePlayer {
	var players []*session.GamePlayer
	add := func(team party.Team, isTeam1 bool) {
		for _, m := range team.Members() {
			players = append(players, &session.GamePlayer{
				UUID:        m.UUID,
				DisplayName: m.DisplayName,
				Rating:      m.Rating,
				IsTeam1:     isTeam1,
			})
		}
	}
	add(result.TeamA, true)
	add(result.TeamB, false)
	return players
}

func memberUUIDs(team party.Team) []string {
	return pie.Map(team.Members(), func(m party.Member) string { return m.UUID })
}

func (s *Scheduler) statusTick(ctx context.Context) {
	fields := logrus.Fields{"connections": s.registry.Count()}
	for name, bucket := range s.queues.Status() {
		fields[name+"_parties"] = bucket.PartiesCount
		fields[name+"_players"] = bucket.TotalPlayers
	}
	s.log.WithFields(fields).Info("queue status")
}
