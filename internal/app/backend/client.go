package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bkohler93/ranked-backend/internal/shared/message"
	"github.com/bkohler93/ranked-backend/pkg/uuidstring"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{}

const (
	maxMessageSize = 8192
	writeWait      = 10 * time.Second
	sendBufferSize = 32
)

// Client wraps one websocket connection. All writes go through the send
// channel so a single goroutine owns the socket's write side.
type Client struct {
	conn *websocket.Conn
	send chan message.Outbound
	log  *logrus.Logger

	mu sync.Mutex
	id uuidstring.ID
}

func NewClient(w http.ResponseWriter, r *http.Request, id uuidstring.ID, log *logrus.Logger) (*Client, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(maxMessageSize)

	return &Client{
		conn: conn,
		send: make(chan message.Outbound, sendBufferSize),
		log:  log,
		id:   id,
	}, nil
}

func (c *Client) ID() uuidstring.ID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

func (c *Client) setID(id uuidstring.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.id = id
}

// Send queues an outbound envelope; a client that cannot keep up has its
// message dropped rather than blocking a handler or scheduler tick.
func (c *Client) Send(out message.Outbound) {
	select {
	case c.send <- out:
	default:
		c.log.WithFields(logrus.Fields{
			"client": c.ID(),
			"action": out.Action,
		}).Warn("send buffer full, dropping outbound message")
	}
}

func (c *Client) WritePump(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case out := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(out); err != nil {
				return fmt.Errorf("failed to write to websocket - %w", err)
			}
		}
	}
}

// ReadPump decodes inbound envelopes and hands them to the dispatcher. An
// unparseable frame gets a generic invalid-format error back; the raw bytes
// are never echoed.
func (c *Client) ReadPump(ctx context.Context, dispatcher *Dispatcher) error {
	readCh := make(chan []byte)
	errCh := make(chan error, 1)

	go func() {
		defer close(readCh)
		for {
			msgType, data, err := c.conn.ReadMessage()
			if err != nil {
				errCh <- err
				return
			}
			if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
				continue
			}
			readCh <- data
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.WithField("client", c.ID()).WithError(err).Warn("websocket closed unexpectedly")
			}
			return err
		case data, ok := <-readCh:
			if !ok {
				return nil
			}
			var env message.Envelope
			if err := json.Unmarshal(data, &env); err != nil {
				c.log.WithField("client", c.ID()).Warn("received invalid json envelope")
				c.Send(message.NewError(message.ActionMessage, "Invalid JSON format"))
				continue
			}
			dispatcher.Dispatch(ctx, c, env)
		}
	}
}

func (c *Client) Close() error {
	return c.conn.Close()
}
