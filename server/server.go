package server

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/skip2/go-qrcode"

	"dragonfox-roomsync-server/config"
	"dragonfox-roomsync-server/hub"
	"dragonfox-roomsync-server/relay"
	ws "dragonfox-roomsync-server/websocket"
)

const (
	statsTimeout = 2 * time.Second
	inviteSize   = 320
)

type Server struct {
	cfg      config.Config
	hub      *hub.Hub
	relay    *relay.Relay
	started  time.Time
	upgrader websocket.Upgrader
}

func New(cfg config.Config, h *hub.Hub, r *relay.Relay) *Server {
	return &Server{
		cfg:     cfg,
		hub:     h,
		relay:   r,
		started: time.Now(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origins are checked by the middleware before the upgrade.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Engine builds the gin router with every route mounted.
func (s *Server) Engine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	if len(s.cfg.AllowedOrigins) > 0 {
		r.Use(originCheck(s.cfg.AllowedOrigins))
		r.Use(cors.New(cors.Config{
			AllowOrigins: s.cfg.AllowedOrigins,
			AllowMethods: []string{"GET", "OPTIONS"},
			AllowHeaders: []string{
				"Content-Type",
				"Upgrade",
				"Connection",
				"Sec-WebSocket-Key",
				"Sec-WebSocket-Version",
				"Sec-WebSocket-Extensions",
				"Sec-WebSocket-Protocol",
			},
		}))
	} else {
		r.Use(cors.New(cors.Config{
			AllowAllOrigins: true,
			AllowMethods:    []string{"GET", "OPTIONS"},
		}))
	}

	r.GET("/ws", s.handleWebSocket)
	r.GET("/health", s.handleHealth)
	r.GET("/stats", s.handleStats)
	r.GET("/rooms/:roomId/invite.png", s.handleInvite)

	if s.cfg.StaticDir != "" {
		r.NoRoute(staticFiles(s.cfg.StaticDir))
	}
	return r
}

// staticFiles serves files under dir and falls back to dir/index.html so client-side routes load the app.
func staticFiles(dir string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if ctx.Request.Method != http.MethodGet && ctx.Request.Method != http.MethodHead {
			ctx.Status(http.StatusNotFound)
			return
		}
		name := filepath.Join(dir, filepath.FromSlash(path.Clean("/"+ctx.Request.URL.Path)))
		if info, err := os.Stat(name); err == nil && !info.IsDir() {
			ctx.File(name)
			return
		}
		ctx.File(filepath.Join(dir, "index.html"))
	}
}

// originCheck rejects browser requests from origins outside allowed. Requests without an Origin
// header are not from a browser page and pass.
func originCheck(allowed []string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		origin := ctx.Request.Header.Get("Origin")
		if origin == "" || slices.Contains(allowed, origin) {
			ctx.Next()
			return
		}
		ctx.String(http.StatusForbidden, "forbidden origin")
		ctx.Abort()
	}
}

func (s *Server) handleWebSocket(ctx *gin.Context) {
	conn, err := s.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		slog.Error("upgrade error", "error", err)
		return
	}

	id := uuid.NewString()
	slog.Info("client connected", "clientId", id, "remote", ctx.ClientIP())
	ws.NewConn(id, conn, s.relay, ws.Options{
		MaxMessageSize: s.cfg.MaxMessageSize,
		RateLimit:      s.cfg.RateLimit,
		RateBurst:      s.cfg.RateBurst,
	}).Start()
}

func (s *Server) handleHealth(ctx *gin.Context) {
	c, cancel := context.WithTimeout(ctx.Request.Context(), statsTimeout)
	defer cancel()

	stats, err := s.relay.Stats(c)
	if err != nil {
		slog.Warn("health check failed", "error", err)
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"rooms":         stats.Rooms,
		"games":         stats.Games,
		"connections":   stats.Connections,
		"uptimeSeconds": int64(time.Since(s.started).Seconds()),
	})
}

func (s *Server) handleStats(ctx *gin.Context) {
	rooms, clients := s.hub.Stats()
	ctx.JSON(http.StatusOK, gin.H{
		"rooms":   rooms,
		"clients": clients,
		"members": s.hub.RoomSizes(),
	})
}

func (s *Server) handleInvite(ctx *gin.Context) {
	roomID := strings.TrimSpace(ctx.Param("roomId"))
	if roomID == "" {
		ctx.String(http.StatusBadRequest, "missing room id")
		return
	}

	png, err := qrcode.Encode(InviteURL(s.cfg.PublicURL, roomID), qrcode.Medium, inviteSize)
	if err != nil {
		slog.Error("qr generation failed", "room", roomID, "error", err)
		ctx.String(http.StatusInternalServerError, "qr generation failed")
		return
	}
	ctx.Data(http.StatusOK, "image/png", png)
}

// InviteURL is the link a QR invite encodes for roomID.
func InviteURL(publicURL, roomID string) string {
	return strings.TrimRight(publicURL, "/") + "/?room=" + url.QueryEscape(roomID)
}
