package websocket

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"dragonfox-roomsync-server/domain"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 256
)

var (
	ErrSendBufferFull = errors.New("send buffer full")
	ErrClosed         = errors.New("connection closed")
)

type Options struct {
	MaxMessageSize int64
	// RateLimit is the sustained number of inbound messages per second. Zero disables limiting.
	RateLimit float64
	RateBurst int
}

// Conn is one client session. Inbound frames go to the handler; outbound frames are queued and
// written by a single writer goroutine.
type Conn struct {
	id      string
	ws      *websocket.Conn
	send    chan []byte
	handler domain.MessageHandler
	limiter *rate.Limiter
	opts    Options

	closeOnce sync.Once
	closed    chan struct{}
}

func NewConn(id string, ws *websocket.Conn, h domain.MessageHandler, opts Options) *Conn {
	c := &Conn{
		id:      id,
		ws:      ws,
		send:    make(chan []byte, sendBuffer),
		handler: h,
		opts:    opts,
		closed:  make(chan struct{}),
	}
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return c
}

func (c *Conn) ID() string { return c.id }

// Send queues data for the writer. It never blocks; a full queue means the client is too slow.
func (c *Conn) Send(data []byte) error {
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

func (c *Conn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

// Start announces the connection and runs both pumps in their own goroutines.
func (c *Conn) Start() {
	c.handler.Connect(c)
	go c.writePump()
	go c.readPump()
}

func (c *Conn) readPump() {
	defer func() {
		c.handler.Disconnect(c)
		c.Close()
	}()

	if c.opts.MaxMessageSize > 0 {
		c.ws.SetReadLimit(c.opts.MaxMessageSize)
	}
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("read error", "clientId", c.id, "error", err)
			}
			return
		}
		if c.limiter != nil && !c.limiter.Allow() {
			slog.Debug("message dropped by rate limit", "clientId", c.id)
			continue
		}

		c.handler.Handle(c, data)
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				c.Close()
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.closed:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
