package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bkohler93/ranked-backend/internal/shared/message"
	"github.com/bkohler93/ranked-backend/internal/shared/session"
	"github.com/bkohler93/ranked-backend/pkg/uuidstring"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Gateway is the websocket front door. Each accepted socket becomes a
// registered connection with a freshly minted session id; the handshake may
// later swap that id for a reclaimed one.
type Gateway struct {
	registry   *session.Registry
	hub        *Hub
	dispatcher *Dispatcher
	notifier   Notifier
	log        *logrus.Logger
}

func NewGateway(registry *session.Registry, hub *Hub, dispatcher *Dispatcher, notifier Notifier, log *logrus.Logger) *Gateway {
	return &Gateway{
		registry:   registry,
		hub:        hub,
		dispatcher: dispatcher,
		notifier:   notifier,
		log:        log,
	}
}

// Run serves the websocket endpoint until ctx is cancelled.
func (gw *Gateway) Run(ctx context.Context, port string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", gw.serveWS(ctx))

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	gw.log.WithField("port", port).Info("websocket gateway listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("gateway server failed - %w", err)
	}
}

func (gw *Gateway) serveWS(ctx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := uuidstring.NewID()
		client, err := NewClient(w, r, id, gw.log)
		if err != nil {
			gw.log.WithError(err).Warn("failed to upgrade websocket connection")
			return
		}

		gw.registry.Register(id)
		gw.hub.Register(client)
		gw.log.WithField("client", id).Info("client connected")

		// The new client learns its assigned session id right away, then
		// gets the connect banner.
		client.Send(message.NewSuccess(message.ActionHandshake, message.HandshakeAckPayload{SessionID: id}))
		client.Send(message.NewSuccess(message.ActionCommand, message.CommandPayload{
			Command: "say Connected to ranked backend",
		}))

		go gw.runClient(ctx, client)
	}
}

// runClient drives one connection's pumps until the socket closes or the
// process shuts down, then tears its state down.
func (gw *Gateway) runClient(ctx context.Context, client *Client) {
	g, pumpCtx := errgroup.WithContext(ctx)
	g.Go(func() error { return client.ReadPump(pumpCtx, gw.dispatcher) })
	g.Go(func() error { return client.WritePump(pumpCtx) })

	if err := g.Wait(); err != nil {
		gw.log.WithField("client", client.ID()).WithError(err).Debug("client pumps stopped")
	}
	client.Close()

	// The handshake may have re-keyed the client since registration.
	finalID := client.ID()
	gw.hub.Unregister(finalID)
	if conn, ok := gw.registry.Remove(finalID); ok {
		gw.notifier.ServerOffline(context.WithoutCancel(ctx), conn)
	}
	gw.log.WithField("client", finalID).Info("client disconnected")
}
