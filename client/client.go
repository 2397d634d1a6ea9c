package client

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"dragonfox-roomsync-server/game"
	"dragonfox-roomsync-server/media"
	"dragonfox-roomsync-server/protocol"
)

var (
	ErrNotConnected = errors.New("not connected")
	ErrUnexpected   = errors.New("unexpected message")
)

const writeWait = 10 * time.Second

type Options struct {
	// URL is the server websocket endpoint, e.g. ws://localhost:8080/ws.
	URL    string
	Dialer *websocket.Dialer
	// OnMessage is called for every server message after the reconciler has applied it.
	OnMessage func(protocol.Envelope)

	MinBackoff time.Duration
	MaxBackoff time.Duration
}

// Client keeps a websocket session to the server alive. After every reconnect it joins its room
// again, which makes the server replay the room snapshot.
type Client struct {
	opts Options
	rec  *Reconciler

	mu   sync.Mutex
	conn *websocket.Conn
	room string
}

func New(opts Options) *Client {
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	if opts.MinBackoff <= 0 {
		opts.MinBackoff = 250 * time.Millisecond
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = 10 * time.Second
	}
	return &Client{opts: opts, rec: NewReconciler()}
}

func (c *Client) Reconciler() *Reconciler { return c.rec }

// Run connects and reads until ctx is cancelled, reconnecting with exponential backoff.
func (c *Client) Run(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.opts.MinBackoff
	b.MaxInterval = c.opts.MaxBackoff
	b.MaxElapsedTime = 0

	for {
		err := c.session(ctx, b)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		wait := b.NextBackOff()
		slog.Warn("connection lost", "url", c.opts.URL, "retryIn", wait, "error", err)

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (c *Client) session(ctx context.Context, b backoff.BackOff) error {
	conn, _, err := c.opts.Dialer.DialContext(ctx, c.opts.URL, nil)
	if err != nil {
		return err
	}
	b.Reset()

	c.mu.Lock()
	c.conn = conn
	room := c.room
	c.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer func() {
		stop()
		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.mu.Unlock()
		conn.Close()
	}()

	if room != "" {
		if err := c.Send(protocol.TypeJoinRoom, protocol.JoinRoom{RoomID: room}); err != nil {
			return err
		}
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		env, err := protocol.Decode(data)
		if err != nil {
			slog.Warn("invalid server message", "error", err)
			continue
		}
		if err := c.rec.Apply(env); err != nil {
			slog.Warn("server message not applied", "event", env.Type, "error", err)
		}
		if c.opts.OnMessage != nil {
			c.opts.OnMessage(env)
		}
	}
}

// Send writes one envelope on the current connection.
func (c *Client) Send(t string, payload any) error {
	data, err := protocol.Encode(t, payload)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Join remembers roomID for reconnects and joins it now when connected.
func (c *Client) Join(roomID string) error {
	c.mu.Lock()
	c.room = roomID
	c.mu.Unlock()
	return c.Send(protocol.TypeJoinRoom, protocol.JoinRoom{RoomID: roomID})
}

// Player shows ev locally and sends it to the room.
func (c *Client) Player(ev media.Event) error {
	c.rec.LocalMedia(ev)
	if ev.Action == media.ActionLoad {
		var url string
		if ev.Data.URL != nil {
			url = *ev.Data.URL
		}
		return c.Send(protocol.TypeLoadVideo, protocol.LoadVideo{URL: url, Time: ev.Data.Time})
	}
	return c.Send(protocol.TypePlayerEvent, protocol.PlayerEvent{Type: ev.Action, Data: ev.Data})
}

// Move predicts raw locally and sends it. A move the local rules refuse is not sent.
func (c *Client) Move(t game.Type, raw json.RawMessage) error {
	if err := c.rec.LocalMove(raw); err != nil {
		return err
	}
	return c.Send(protocol.TypeGameMove, protocol.GameMove{GameType: t, Move: raw})
}
