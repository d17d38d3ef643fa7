// Package notifier pushes human-readable status blocks to an external
// webhook: server online/offline and backend shutdown notices. Failures are
// logged and swallowed; announcements never affect the session state they
// describe.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/bkohler93/ranked-backend/internal/shared/session"
	"github.com/sirupsen/logrus"
)

type Notifier interface {
	ServerOnline(ctx context.Context, c session.Connection)
	ServerOffline(ctx context.Context, c session.Connection)
	BackendOffline(ctx context.Context)
}

type Webhook struct {
	url    string
	client *http.Client
	log    *logrus.Logger
}

func NewWebhook(url string, log *logrus.Logger) *Webhook {
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log,
	}
}

type block struct {
	Content string `json:"content"`
}

func (w *Webhook) send(ctx context.Context, content string) {
	body, err := json.Marshal(block{Content: content})
	if err != nil {
		w.log.WithError(err).Error("failed to encode webhook payload")
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		w.log.WithError(err).Error("failed to build webhook request")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		w.log.WithError(err).Warn("failed to deliver webhook notification")
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		w.log.WithField("status", resp.StatusCode).Warn("webhook notification rejected")
	}
}

func serverInfo(c session.Connection) string {
	return fmt.Sprintf("Server IP: %s\nServer Port: %d\nSession: %s\nIsLobby: %t",
		c.ServerIP, c.ServerPort, c.ID, c.IsLobby)
}

func (w *Webhook) ServerOnline(ctx context.Context, c session.Connection) {
	w.send(ctx, "🟢 Server Online\n\nServer Info:\n"+serverInfo(c))
}

func (w *Webhook) ServerOffline(ctx context.Context, c session.Connection) {
	w.send(ctx, "🔴 Server Offline\n\nServer Info:\n"+serverInfo(c))
}

func (w *Webhook) BackendOffline(ctx context.Context) {
	w.send(ctx, "🔴 Backend Offline\n\nMain backend server shutting down.")
}

// Noop is used when no webhook URL is configured.
type Noop struct{}

func (Noop) ServerOnline(context.Context, session.Connection)  {}
func (Noop) ServerOffline(context.Context, session.Connection) {}
func (Noop) BackendOffline(context.Context)                    {}
