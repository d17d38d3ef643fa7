package backend

import (
	"context"
	"errors"
	"testing"

	"github.com/bkohler93/ranked-backend/internal/shared/message"
	"github.com/bkohler93/ranked-backend/internal/shared/queue"
	"github.com/bkohler93/ranked-backend/internal/shared/session"
	"github.com/bkohler93/ranked-backend/internal/store"
	"github.com/bkohler93/ranked-backend/pkg/uuidstring"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGameWriter struct {
	created []string
	fail    bool
}

func (f *fakeGameWriter) CreateGame(ctx context.Context, id, gameType string, teams []store.TeamData, startTime int64) error {
	if f.fail {
		return errors.New("db down")
	}
	f.created = append(f.created, id)
	return nil
}

type schedulerFixture struct {
	scheduler *Scheduler
	registry  *session.Registry
	hub       *Hub
	queues    *queue.Manager
	games     *fakeGameWriter
	notifier  *fakeNotifier
}

func newSchedulerFixture(t *testing.T) *schedulerFixture {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	f := &schedulerFixture{
		registry: session.NewRegistry(),
		hub:      NewHub(),
		queues:   queue.NewManager(),
		games:    &fakeGameWriter{},
		notifier: &fakeNotifier{},
	}
	f.scheduler = NewScheduler(f.registry, f.hub, f.queues, queue.NewMatchmaker(f.queues), f.games, f.notifier, log)
	f.scheduler.pick = func(int) int { return 0 }
	f.scheduler.now = func() int64 { return 1700000000000 }
	return f
}

// connect registers a socketless client both with the registry and the hub.
func (f *schedulerFixture) connect(t *testing.T, serverIP string, port int, isLobby bool) *Client {
	t.Helper()
	c := &Client{
		send: make(chan message.Outbound, sendBufferSize),
		log:  logrus.New(),
		id:   uuidstring.NewID(),
	}
	c.log.SetLevel(logrus.PanicLevel)
	f.registry.Register(c.ID())
	f.hub.Register(c)
	require.NoError(t, f.registry.SetHandshake(c.ID(), serverIP, port, isLobby))
	return c
}

func drain(c *Client) []message.Outbound {
	var out []message.Outbound
	for {
		select {
		case msg := <-c.send:
			out = append(out, msg)
		default:
			return out
		}
	}
}

func TestMatchmakeTickPlacesMatch(t *testing.T) {
	f := newSchedulerFixture(t)
	server := f.connect(t, "10.0.0.5", 25566, false)
	lobby := f.connect(t, "10.0.0.1", 25565, true)

	require.NoError(t, f.queues.Enqueue(1, testParty(1, 1000)))
	require.NoError(t, f.queues.Enqueue(1, testParty(2, 1050)))

	f.scheduler.matchmakeTick(context.Background())

	require.Len(t, f.games.created, 1)
	assert.Empty(t, f.queues.Candidates(1))

	t.Run("server receives its whitelist", func(t *testing.T) {
		msgs := drain(server)
		require.Len(t, msgs, 1)
		require.Equal(t, message.ActionWhitelistChange, msgs[0].Action)
		assert.Len(t, msgs[0].Payload.(message.WhitelistChangePayload).Whitelist, 2)
	})

	t.Run("lobby gets the match and the transfer", func(t *testing.T) {
		msgs := drain(lobby)
		require.Len(t, msgs, 2)
		assert.Equal(t, message.ActionQueueMatch, msgs[0].Action)
		assert.Equal(t, "solo", msgs[0].Payload.(message.QueueMatchPayload).Queue.QueueName)

		require.Equal(t, message.ActionTransfer, msgs[1].Action)
		transfer := msgs[1].Payload.(message.TransferPayload).TransferData
		assert.Equal(t, "10.0.0.5", transfer.TargetServer)
		assert.Equal(t, 25566, transfer.TargetPort)
		assert.Len(t, transfer.UUIDs, 2)
	})

	t.Run("server now hosts a live game", func(t *testing.T) {
		conn, ok := f.registry.Get(server.ID())
		require.True(t, ok)
		assert.Equal(t, session.ConnStarted, conn.Status)
		require.NotNil(t, conn.Game)
		assert.Len(t, conn.Game.Players, 2)
		assert.Equal(t, session.GameIdle, conn.Game.Status)
	})
}

func TestMatchmakeTickWaitsForServer(t *testing.T) {
	f := newSchedulerFixture(t)
	f.connect(t, "10.0.0.1", 25565, true)

	require.NoError(t, f.queues.Enqueue(1, testParty(1, 1000)))
	require.NoError(t, f.queues.Enqueue(1, testParty(2, 1050)))

	f.scheduler.matchmakeTick(context.Background())
	assert.Empty(t, f.games.created)
	require.Len(t, f.scheduler.waiting, 1)

	// A server shows up before the next tick.
	f.connect(t, "10.0.0.5", 25566, false)
	f.scheduler.matchmakeTick(context.Background())
	assert.Len(t, f.games.created, 1)
	assert.Empty(t, f.scheduler.waiting)
}

func TestMatchmakeTickDrawsRandomProposal(t *testing.T) {
	f := newSchedulerFixture(t)
	f.connect(t, "10.0.0.5", 25566, false)

	require.NoError(t, f.queues.Enqueue(1, testParty(1, 1000)))
	require.NoError(t, f.queues.Enqueue(1, testParty(2, 1050)))
	require.NoError(t, f.queues.Enqueue(2, testParty(3, 1000, 1000)))
	require.NoError(t, f.queues.Enqueue(2, testParty(4, 1010, 1010)))

	// With one free server and two proposals, the draw picks the second.
	f.scheduler.pick = func(n int) int { return n - 1 }
	f.scheduler.matchmakeTick(context.Background())

	assert.Len(t, f.games.created, 1)
	require.Len(t, f.scheduler.waiting, 1)
	assert.Equal(t, 1, f.scheduler.waiting[0].QueueSize)
}

func TestMatchmakeTickWaitingListCap(t *testing.T) {
	f := newSchedulerFixture(t)

	for i := 0; i < maxWaitingMatches+5; i++ {
		f.scheduler.waiting = append(f.scheduler.waiting, queue.MatchResult{ID: int64(i + 1)})
	}
	f.scheduler.matchmakeTick(context.Background())

	require.Len(t, f.scheduler.waiting, maxWaitingMatches)
	// Oldest proposals fall off the front.
	assert.Equal(t, int64(6), f.scheduler.waiting[0].ID)
}

func TestMatchmakeTickFailedPlacementKeepsProposal(t *testing.T) {
	f := newSchedulerFixture(t)
	server := f.connect(t, "10.0.0.5", 25566, false)
	f.games.fail = true

	require.NoError(t, f.queues.Enqueue(1, testParty(1, 1000)))
	require.NoError(t, f.queues.Enqueue(1, testParty(2, 1050)))

	f.scheduler.matchmakeTick(context.Background())
	assert.Len(t, f.scheduler.waiting, 1)

	// The slot assignment was rolled back.
	conn, _ := f.registry.Get(server.ID())
	assert.Equal(t, session.ConnPending, conn.Status)
	assert.Nil(t, conn.Game)

	f.games.fail = false
	f.scheduler.matchmakeTick(context.Background())
	assert.Empty(t, f.scheduler.waiting)
	assert.Len(t, f.games.created, 1)
}

func TestLivenessTick(t *testing.T) {
	f := newSchedulerFixture(t)
	c := f.connect(t, "10.0.0.5", 25566, false)

	t.Run("live connections get a heartbeat prompt", func(t *testing.T) {
		f.scheduler.livenessTick(context.Background())
		msgs := drain(c)
		require.Len(t, msgs, 1)
		assert.Equal(t, message.ActionHeartbeat, msgs[0].Action)
		assert.Equal(t, 1, f.registry.Count())
		assert.Empty(t, f.notifier.offline)
	})

	t.Run("stale connections get a disconnect notice and are evicted", func(t *testing.T) {
		// Zero timeout makes every connection stale.
		f.scheduler.timeout = 0
		f.scheduler.livenessTick(context.Background())

		assert.Zero(t, f.registry.Count())
		require.Len(t, f.notifier.offline, 1)
		assert.Equal(t, c.ID(), f.notifier.offline[0].ID)

		// The eviction itself was announced to the client.
		msgs := drain(c)
		require.Len(t, msgs, 1)
		assert.Equal(t, message.ActionDisconnect, msgs[0].Action)
		assert.Equal(t, message.StatusSuccess, msgs[0].Status)

		// After that the client no longer receives hub pushes.
		f.hub.Send(c.ID(), message.NewSuccess(message.ActionMessage, nil))
		assert.Empty(t, drain(c))
	})
}
