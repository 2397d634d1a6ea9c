package relay

import (
	"errors"
	"log/slog"
	"strings"

	"dragonfox-roomsync-server/domain"
	"dragonfox-roomsync-server/game"
	"dragonfox-roomsync-server/media"
	"dragonfox-roomsync-server/protocol"
)

func (r *Relay) handleMessage(conn domain.Connection, data []byte) {
	env, err := protocol.Decode(data)
	if err != nil {
		slog.Warn("invalid message", "clientId", conn.ID(), "error", err)
		return
	}

	switch env.Type {
	case protocol.TypePing:
		r.handlePing(conn, env)
	case protocol.TypeJoinRoom:
		handle(r, conn, env, r.handleJoin)
	case protocol.TypeLoadVideo:
		handle(r, conn, env, r.handleLoadVideo)
	case protocol.TypePlayerEvent:
		handle(r, conn, env, r.handlePlayerEvent)
	case protocol.TypeChatMessage:
		handle(r, conn, env, r.handleChat)
	case protocol.TypeGameStart:
		handle(r, conn, env, r.handleGameStart)
	case protocol.TypeGameMove:
		handle(r, conn, env, r.handleGameMove)
	case protocol.TypeGameRestart:
		handle(r, conn, env, r.handleGameRestart)
	case protocol.TypeGameClose:
		handle(r, conn, env, r.handleGameClose)
	case protocol.TypeWebRTCOffer, protocol.TypeWebRTCAnswer, protocol.TypeWebRTCICE:
		handle(r, conn, env, func(c domain.Connection, s protocol.Signal) { r.handleSignal(c, env.Type, s) })
	default:
		slog.Debug("unknown event", "clientId", conn.ID(), "event", env.Type)
	}
}

// handle decodes the payload and drops the event when it does not fit T.
func handle[T any](r *Relay, conn domain.Connection, env protocol.Envelope, fn func(domain.Connection, T)) {
	p, err := protocol.DecodePayload[T](env)
	if err != nil {
		slog.Warn("invalid payload", "clientId", conn.ID(), "event", env.Type, "error", err)
		return
	}
	fn(conn, p)
}

// roomFor prefers the room named in the event and falls back to the sender's current room.
func (r *Relay) roomFor(conn domain.Connection, roomID string) string {
	if roomID = strings.TrimSpace(roomID); roomID != "" {
		return roomID
	}
	return r.hub.Room(conn.ID())
}

func (r *Relay) handlePing(conn domain.Connection, env protocol.Envelope) {
	var ping protocol.Ping
	if p, err := protocol.DecodePayload[protocol.Ping](env); err == nil {
		ping = p
	}
	ping.ClientID = conn.ID()
	r.send(conn, protocol.TypePong, ping)
}

func (r *Relay) handleJoin(conn domain.Connection, p protocol.JoinRoom) {
	roomID := strings.TrimSpace(p.RoomID)
	if roomID == "" {
		slog.Debug("join without room", "clientId", conn.ID())
		return
	}
	r.hub.Join(conn, roomID)

	// A late joiner takes a free seat of the running game.
	if s, ok := r.games.Seat(roomID, conn.ID()); ok {
		r.broadcast(roomID, protocol.TypeGameState, protocol.GameSnapshot{RoomID: roomID, Game: s}, conn.ID())
	}

	snapshot := protocol.RoomState{
		RoomID:   roomID,
		ClientID: conn.ID(),
		Members:  r.hub.Members(roomID),
	}
	if m, ok := r.media.Get(roomID); ok {
		snapshot.Media = &m
	}
	if g, ok := r.games.Get(roomID); ok {
		snapshot.Game = g
	}
	r.send(conn, protocol.TypeRoomState, snapshot)
}

func (r *Relay) handleLoadVideo(conn domain.Connection, p protocol.LoadVideo) {
	roomID := r.roomFor(conn, p.RoomID)
	if roomID == "" {
		return
	}
	var url *string
	if u := strings.TrimSpace(p.URL); u != "" {
		url = &u
	}
	st := r.media.Apply(roomID, media.Event{Action: media.ActionLoad, Data: media.Data{URL: url, Time: p.Time}})
	t := st.Time
	r.broadcast(roomID, protocol.TypePlayerEvent, protocol.PlayerEvent{
		RoomID: roomID,
		Type:   media.ActionLoad,
		Data:   media.Data{URL: st.URL, Time: &t},
		From:   conn.ID(),
	}, "")
}

func (r *Relay) handlePlayerEvent(conn domain.Connection, p protocol.PlayerEvent) {
	roomID := r.roomFor(conn, p.RoomID)
	if roomID == "" || !p.Type.Valid() {
		slog.Debug("player event dropped", "clientId", conn.ID(), "type", p.Type)
		return
	}
	r.media.Apply(roomID, media.Event{Action: p.Type, Data: p.Data})

	p.RoomID = roomID
	p.From = conn.ID()
	r.broadcast(roomID, protocol.TypePlayerEvent, p, conn.ID())
}

func (r *Relay) handleChat(conn domain.Connection, p protocol.ChatMessage) {
	roomID := r.roomFor(conn, p.RoomID)
	if roomID == "" || strings.TrimSpace(p.Message) == "" {
		return
	}
	p.RoomID = roomID
	p.From = conn.ID()
	p.Timestamp = r.opts.Now().UnixMilli()
	r.broadcast(roomID, protocol.TypeChatMessage, p, "")
}

func (r *Relay) handleGameStart(conn domain.Connection, p protocol.GameStart) {
	roomID := r.roomFor(conn, p.RoomID)
	if roomID == "" {
		return
	}
	players := []string{conn.ID()}
	if p.VsBot {
		players = append(players, game.BotID)
	} else {
		for _, id := range r.hub.Members(roomID) {
			if id != conn.ID() {
				players = append(players, id)
				break
			}
		}
	}

	s, err := r.games.Start(roomID, p.GameType, players)
	if err != nil {
		r.reject(conn, roomID, p.GameType, err)
		return
	}
	r.timers.cancel(roomID)
	slog.Info("game started", "room", roomID, "gameType", p.GameType, "players", s.Players)
	r.broadcast(roomID, protocol.TypeGameState, protocol.GameSnapshot{RoomID: roomID, Game: s}, "")
	r.scheduleFollowUp(roomID, s)
}

func (r *Relay) handleGameMove(conn domain.Connection, p protocol.GameMove) {
	roomID := r.roomFor(conn, p.RoomID)
	if roomID == "" {
		return
	}
	s, err := r.games.ApplyMove(roomID, p.GameType, p.Move)
	if err != nil {
		r.reject(conn, roomID, p.GameType, err)
		return
	}
	if s.GameOver {
		slog.Info("game finished", "room", roomID, "gameType", s.GameType, "winner", s.Winner)
	}
	r.broadcast(roomID, protocol.TypeGameState, protocol.GameSnapshot{RoomID: roomID, Game: s}, "")
	r.scheduleFollowUp(roomID, s)
}

func (r *Relay) handleGameRestart(conn domain.Connection, p protocol.GameRestart) {
	roomID := r.roomFor(conn, p.RoomID)
	if roomID == "" {
		return
	}
	s, err := r.games.Restart(roomID, p.GameType)
	if err != nil {
		r.reject(conn, roomID, p.GameType, err)
		return
	}
	r.timers.cancel(roomID)
	r.broadcast(roomID, protocol.TypeGameState, protocol.GameSnapshot{RoomID: roomID, Game: s}, "")
	r.scheduleFollowUp(roomID, s)
}

func (r *Relay) handleGameClose(conn domain.Connection, p protocol.GameClose) {
	roomID := r.roomFor(conn, p.RoomID)
	if roomID == "" {
		return
	}
	r.timers.cancel(roomID)
	if !r.games.Close(roomID) {
		return
	}
	slog.Info("game closed", "room", roomID, "clientId", conn.ID())
	r.broadcast(roomID, protocol.TypeGameClosed, protocol.GameClosed{RoomID: roomID}, "")
}

func (r *Relay) handleSignal(conn domain.Connection, t string, p protocol.Signal) {
	roomID := r.roomFor(conn, p.RoomID)
	if roomID == "" {
		return
	}
	p.RoomID = roomID
	p.From = conn.ID()
	if p.To == "" {
		r.broadcast(roomID, t, p, conn.ID())
		return
	}
	data, err := protocol.Encode(t, p)
	if err != nil {
		slog.Error("encode failed", "event", t, "error", err)
		return
	}
	if !r.hub.SendTo(roomID, p.To, data) {
		slog.Debug("signal target not in room", "room", roomID, "to", p.To)
	}
}

// reject tells the sender why a game event was refused. The room sees nothing.
func (r *Relay) reject(conn domain.Connection, roomID string, t game.Type, err error) {
	if !errors.Is(err, game.ErrRejected) {
		slog.Error("game event failed", "room", roomID, "clientId", conn.ID(), "error", err)
		return
	}
	slog.Debug("game event rejected", "room", roomID, "clientId", conn.ID(), "reason", game.Reason(err))
	r.send(conn, protocol.TypeMoveRejected, protocol.MoveRejected{RoomID: roomID, GameType: t, Reason: game.Reason(err)})
}
