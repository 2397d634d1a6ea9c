package relay

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"dragonfox-roomsync-server/domain"
	"dragonfox-roomsync-server/game"
	"dragonfox-roomsync-server/hub"
	"dragonfox-roomsync-server/media"
	"dragonfox-roomsync-server/protocol"
)

var ErrStopped = errors.New("relay stopped")

type Options struct {
	// BotDelay is how long the bot waits before answering a move.
	BotDelay time.Duration
	// AutoRestartDelay restarts a finished game after the delay. Zero disables it.
	AutoRestartDelay time.Duration
	InboxSize        int
	Now              func() time.Time
}

type Stats struct {
	Rooms       int `json:"rooms"`
	Connections int `json:"connections"`
	MediaRooms  int `json:"mediaRooms"`
	Games       int `json:"games"`
}

type inbound struct {
	conn domain.Connection
	data []byte
}

type connected struct{ conn domain.Connection }

type disconnected struct{ conn domain.Connection }

type statsRequest struct{ reply chan Stats }

// Relay applies room events to the media and game registries and fans the results out. Every
// mutation happens on the goroutine running Run, so events for a room are applied in arrival order
// and the registries need no locks.
type Relay struct {
	hub    *hub.Hub
	media  *media.Registry
	games  *game.Registry
	timers *timers
	opts   Options
	inbox  chan any
	done   chan struct{}
}

func New(h *hub.Hub, m *media.Registry, g *game.Registry, opts Options) *Relay {
	if opts.InboxSize <= 0 {
		opts.InboxSize = 1024
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	r := &Relay{
		hub:   h,
		media: m,
		games: g,
		opts:  opts,
		inbox: make(chan any, opts.InboxSize),
		done:  make(chan struct{}),
	}
	r.timers = newTimers(r.enqueue)
	return r
}

// Run processes events until ctx is cancelled. Pending timers are stopped on return.
func (r *Relay) Run(ctx context.Context) {
	defer close(r.done)
	defer r.timers.stopAll()

	for {
		select {
		case <-ctx.Done():
			slog.Info("relay stopped")
			return
		case msg := <-r.inbox:
			r.process(msg)
		}
	}
}

func (r *Relay) enqueue(msg any) {
	select {
	case r.inbox <- msg:
	case <-r.done:
	}
}

func (r *Relay) Handle(conn domain.Connection, data []byte) {
	r.enqueue(inbound{conn: conn, data: data})
}

func (r *Relay) Connect(conn domain.Connection) {
	r.enqueue(connected{conn: conn})
}

func (r *Relay) Disconnect(conn domain.Connection) {
	r.enqueue(disconnected{conn: conn})
}

func (r *Relay) Stats(ctx context.Context) (Stats, error) {
	req := statsRequest{reply: make(chan Stats, 1)}
	select {
	case r.inbox <- req:
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	case <-r.done:
		return Stats{}, ErrStopped
	}
	select {
	case s := <-req.reply:
		return s, nil
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	case <-r.done:
		return Stats{}, ErrStopped
	}
}

func (r *Relay) process(msg any) {
	switch m := msg.(type) {
	case inbound:
		r.handleMessage(m.conn, m.data)
	case connected:
		r.send(m.conn, protocol.TypeWelcome, protocol.Welcome{ClientID: m.conn.ID()})
	case disconnected:
		// Room and game state stay as they are; other members are not told.
		r.hub.Leave(m.conn)
	case timerFired:
		r.handleTimer(m)
	case statsRequest:
		rooms, conns := r.hub.Stats()
		m.reply <- Stats{
			Rooms:       rooms,
			Connections: conns,
			MediaRooms:  r.media.Len(),
			Games:       r.games.Len(),
		}
	}
}

func (r *Relay) send(conn domain.Connection, t string, payload any) {
	data, err := protocol.Encode(t, payload)
	if err != nil {
		slog.Error("encode failed", "event", t, "error", err)
		return
	}
	if err := conn.Send(data); err != nil {
		slog.Warn("send failed, closing connection", "event", t, "clientId", conn.ID(), "error", err)
		conn.Close()
	}
}

// broadcast encodes once and sends to roomID, skipping except when it is not empty.
func (r *Relay) broadcast(roomID, t string, payload any, except string) {
	data, err := protocol.Encode(t, payload)
	if err != nil {
		slog.Error("encode failed", "event", t, "room", roomID, "error", err)
		return
	}
	r.hub.Broadcast(roomID, data, except)
}
