package backend

import (
	"context"
	"errors"
	"testing"

	"github.com/bkohler93/ranked-backend/internal/shared/message"
	"github.com/bkohler93/ranked-backend/internal/shared/wserr"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDispatcher() *Dispatcher {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewDispatcher(log)
}

func TestDispatcherRouting(t *testing.T) {
	f := newFixture(t)
	c := f.newTestClient(t)
	d := newTestDispatcher()

	var got message.Envelope
	d.Register(message.ActionMessage, func(ctx context.Context, c *Client, env message.Envelope) error {
		got = env
		return nil
	})

	env := message.Envelope{Action: message.ActionMessage, SessionID: c.ID()}
	d.Dispatch(context.Background(), c, env)
	assert.Equal(t, env, got)
	assertNothingSent(t, c)

	t.Run("unknown action is dropped", func(t *testing.T) {
		d.Dispatch(context.Background(), c, message.Envelope{Action: "teleport"})
		assertNothingSent(t, c)
	})
}

func TestDispatcherErrorReplies(t *testing.T) {
	f := newFixture(t)
	d := newTestDispatcher()

	cases := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{"taxonomy error text passes through", wserr.Validation("party id is required"), "party id is required"},
		{"store errors stay generic", wserr.Store("failed to upsert party", errors.New("disk full")), "Persistence failure, try again"},
		{"unclassified errors stay generic", errors.New("nil map write"), "Error processing message"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := f.newTestClient(t)
			d.Register(message.ActionParty, func(context.Context, *Client, message.Envelope) error {
				return tc.err
			})
			d.Dispatch(context.Background(), c, message.Envelope{Action: message.ActionParty})

			out := sent(t, c)
			assert.Equal(t, message.StatusError, out.Status)
			assert.Equal(t, message.ActionParty, out.Action)
			require.IsType(t, message.MessagePayload{}, out.Payload)
			assert.Equal(t, tc.wantMsg, out.Payload.(message.MessagePayload).Message)
		})
	}
}
