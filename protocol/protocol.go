package protocol

import (
	"encoding/json"

	"dragonfox-roomsync-server/game"
	"dragonfox-roomsync-server/media"
)

// Client -> server events.
const (
	TypePing         = "ping"
	TypeJoinRoom     = "join-room"
	TypeLoadVideo    = "load-video"
	TypePlayerEvent  = "player-event"
	TypeChatMessage  = "chat-message"
	TypeGameStart    = "game-start"
	TypeGameMove     = "game-move"
	TypeGameRestart  = "game-restart"
	TypeGameClose    = "game-close"
	TypeWebRTCOffer  = "webrtc-offer"
	TypeWebRTCAnswer = "webrtc-answer"
	TypeWebRTCICE    = "webrtc-ice"
)

// Server -> client events. player-event, chat-message and webrtc-* are reused in both directions.
const (
	TypePong         = "pong"
	TypeWelcome      = "welcome"
	TypeRoomState    = "room-state"
	TypeGameState    = "game-state"
	TypeGameClosed   = "game-closed"
	TypeMoveRejected = "move-rejected"
)

type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type Ping struct {
	Timestamp int64  `json:"timestamp"`
	ClientID  string `json:"clientId,omitempty"`
}

type Welcome struct {
	ClientID string `json:"clientId"`
}

type JoinRoom struct {
	RoomID string `json:"roomId"`
}

type LoadVideo struct {
	RoomID string   `json:"roomId"`
	URL    string   `json:"url"`
	Time   *float64 `json:"time,omitempty"`
}

type PlayerEvent struct {
	RoomID string       `json:"roomId"`
	Type   media.Action `json:"type"`
	Data   media.Data   `json:"data"`
	From   string       `json:"from,omitempty"`
}

type ChatMessage struct {
	RoomID    string `json:"roomId"`
	Author    string `json:"author"`
	Message   string `json:"message"`
	From      string `json:"from,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

type GameStart struct {
	RoomID   string    `json:"roomId"`
	GameType game.Type `json:"gameType"`
	VsBot    bool      `json:"vsBot,omitempty"`
}

type GameMove struct {
	RoomID   string          `json:"roomId"`
	GameType game.Type       `json:"gameType"`
	Move     json.RawMessage `json:"move"`
}

type GameRestart struct {
	RoomID   string    `json:"roomId"`
	GameType game.Type `json:"gameType"`
}

type GameClose struct {
	RoomID string `json:"roomId"`
}

// Signal carries webrtc-offer, webrtc-answer and webrtc-ice. SDP and candidate bodies are opaque.
type Signal struct {
	RoomID    string          `json:"roomId"`
	To        string          `json:"to,omitempty"`
	From      string          `json:"from,omitempty"`
	SDP       json.RawMessage `json:"sdp,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}

type RoomState struct {
	RoomID   string       `json:"roomId"`
	ClientID string       `json:"clientId"`
	Members  []string     `json:"members"`
	Media    *media.State `json:"media"`
	Game     *game.State  `json:"game"`
}

type GameSnapshot struct {
	RoomID string      `json:"roomId"`
	Game   *game.State `json:"game"`
}

type GameClosed struct {
	RoomID string `json:"roomId"`
}

type MoveRejected struct {
	RoomID   string    `json:"roomId"`
	GameType game.Type `json:"gameType,omitempty"`
	Reason   string    `json:"reason"`
}
