package client

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dragonfox-roomsync-server/config"
	"dragonfox-roomsync-server/game"
	"dragonfox-roomsync-server/hub"
	"dragonfox-roomsync-server/media"
	"dragonfox-roomsync-server/protocol"
	"dragonfox-roomsync-server/relay"
	"dragonfox-roomsync-server/server"
)

const waitFor = 2 * time.Second

type counter struct {
	mu     sync.Mutex
	byType map[string]int
}

func (c *counter) record(env protocol.Envelope) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.byType == nil {
		c.byType = make(map[string]int)
	}
	c.byType[env.Type]++
}

func (c *counter) get(typ string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.byType[typ]
}

func startServer(t *testing.T) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := hub.New()
	r := relay.New(h, media.NewRegistry(), game.NewRegistry(rand.New(rand.NewPCG(3, 4))), relay.Options{})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go r.Run(ctx)

	srv := httptest.NewServer(server.New(config.Default(), h, r).Engine())
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func startClient(t *testing.T, url string) (*Client, *counter) {
	t.Helper()
	seen := &counter{}
	c := New(Options{URL: url, OnMessage: seen.record, MinBackoff: 10 * time.Millisecond, MaxBackoff: 50 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	require.Eventually(t, func() bool { return c.Reconciler().ClientID() != "" }, waitFor, 5*time.Millisecond)
	return c, seen
}

func TestClient_SharedRoom(t *testing.T) {
	url := startServer(t)
	a, _ := startClient(t, url)
	b, _ := startClient(t, url)

	require.NoError(t, a.Join("r1"))
	require.Eventually(t, func() bool { return a.Reconciler().Room() == "r1" }, waitFor, 5*time.Millisecond)
	require.NoError(t, b.Join("r1"))
	require.Eventually(t, func() bool { return len(b.Reconciler().Members()) == 2 }, waitFor, 5*time.Millisecond)

	require.NoError(t, a.Player(media.Event{Action: media.ActionLoad, Data: media.Data{URL: ptr("a.mp4")}}))
	require.NoError(t, a.Player(media.Event{Action: media.ActionSeek, Data: media.Data{Time: ptr(42.0)}}))
	require.Eventually(t, func() bool {
		m, ok := b.Reconciler().Media()
		return ok && m.Time == 42 && m.URL != nil && *m.URL == "a.mp4"
	}, waitFor, 5*time.Millisecond)

	require.NoError(t, a.Send(protocol.TypeGameStart, protocol.GameStart{GameType: game.TicTacToe}))
	require.Eventually(t, func() bool {
		return a.Reconciler().Confirmed() != nil && b.Reconciler().Confirmed() != nil
	}, waitFor, 5*time.Millisecond)

	require.NoError(t, a.Move(game.TicTacToe, json.RawMessage(`{"row":0,"col":0,"player":"X"}`)))
	require.Eventually(t, func() bool {
		g := b.Reconciler().Confirmed()
		return g != nil && g.Board.(*game.TicTacToeBoard).Board[0][0] == game.SideX
	}, waitFor, 5*time.Millisecond)
	require.Eventually(t, func() bool { return !a.Reconciler().Pending() }, waitFor, 5*time.Millisecond)
	assert.Equal(t, game.SideO, a.Reconciler().Game().CurrentPlayer)
}

func TestClient_RejoinsAfterReconnect(t *testing.T) {
	url := startServer(t)
	c, seen := startClient(t, url)

	require.NoError(t, c.Join("r1"))
	require.Eventually(t, func() bool { return seen.get(protocol.TypeRoomState) == 1 }, waitFor, 5*time.Millisecond)
	first := c.Reconciler().ClientID()

	c.mu.Lock()
	c.conn.Close()
	c.mu.Unlock()

	require.Eventually(t, func() bool { return seen.get(protocol.TypeRoomState) == 2 }, waitFor, 5*time.Millisecond)
	assert.Equal(t, 2, seen.get(protocol.TypeWelcome))
	assert.Equal(t, "r1", c.Reconciler().Room())
	assert.NotEqual(t, first, c.Reconciler().ClientID())
	assert.Contains(t, c.Reconciler().Members(), c.Reconciler().ClientID())
}

func TestClient_SendWithoutConnection(t *testing.T) {
	c := New(Options{URL: "ws://127.0.0.1:1/ws"})
	assert.ErrorIs(t, c.Send(protocol.TypePing, protocol.Ping{}), ErrNotConnected)
	assert.ErrorIs(t, c.Join("r1"), ErrNotConnected)
}
