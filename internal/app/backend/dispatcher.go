package backend

import (
	"context"
	"errors"

	"github.com/bkohler93/ranked-backend/internal/shared/message"
	"github.com/bkohler93/ranked-backend/internal/shared/wserr"
	"github.com/sirupsen/logrus"
)

type HandlerFunc func(ctx context.Context, c *Client, env message.Envelope) error

// Dispatcher routes inbound envelopes by action and standardizes error
// responses. A handler error becomes exactly one error-status envelope back
// to the originating connection; the process never dies on one.
type Dispatcher struct {
	handlers map[message.Action]HandlerFunc
	log      *logrus.Logger
}

func NewDispatcher(log *logrus.Logger) *Dispatcher {
	return &Dispatcher{
		handlers: make(map[message.Action]HandlerFunc),
		log:      log,
	}
}

func (d *Dispatcher) Register(action message.Action, fn HandlerFunc) {
	d.handlers[action] = fn
}

func (d *Dispatcher) Dispatch(ctx context.Context, c *Client, env message.Envelope) {
	handler, ok := d.handlers[env.Action]
	if !ok {
		// Unknown actions are logged and ignored, not errors.
		d.log.WithFields(logrus.Fields{
			"action": env.Action,
			"client": c.ID(),
		}).Warn("unknown action received")
		return
	}

	if env.Action != message.ActionHeartbeat {
		d.log.WithFields(logrus.Fields{
			"action": env.Action,
			"client": c.ID(),
		}).Debug("dispatching message")
	}

	err := handler(ctx, c, env)
	if err == nil {
		return
	}

	kind := wserr.KindOf(err)
	d.log.WithFields(logrus.Fields{
		"action": env.Action,
		"client": c.ID(),
		"kind":   kind.String(),
	}).WithError(err).Error("handler failed")

	c.Send(message.NewError(env.Action, clientMessage(err, kind)))
}

// clientMessage picks what the originating connection gets to see. Taxonomy
// errors carry operator-written text; anything else stays generic so
// internal details never leak to game servers.
func clientMessage(err error, kind wserr.Kind) string {
	switch kind {
	case wserr.KindInternal:
		return "Error processing message"
	case wserr.KindStore:
		return "Persistence failure, try again"
	default:
		var e *wserr.Error
		if errors.As(err, &e) {
			return e.Msg
		}
		return "Error processing message"
	}
}
