package client

import (
	"encoding/json"
	"fmt"
	"sync"

	"dragonfox-roomsync-server/game"
	"dragonfox-roomsync-server/media"
	"dragonfox-roomsync-server/protocol"
)

// Reconciler keeps a client's view of one room. Server messages are authoritative; local media events
// and game moves are shown at once and replaced by whatever the server sends next.
type Reconciler struct {
	mu sync.Mutex

	clientID string
	roomID   string
	members  []string
	media    *media.State

	confirmed *game.State
	// pending is the confirmed game plus a local move the server has not answered yet.
	pending    *game.State
	lastReject string
}

func NewReconciler() *Reconciler {
	return &Reconciler{}
}

// Apply folds a server message into the view.
func (r *Reconciler) Apply(env protocol.Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch env.Type {
	case protocol.TypeWelcome:
		p, err := protocol.DecodePayload[protocol.Welcome](env)
		if err != nil {
			return err
		}
		r.clientID = p.ClientID
	case protocol.TypeRoomState:
		p, err := protocol.DecodePayload[protocol.RoomState](env)
		if err != nil {
			return err
		}
		r.roomID = p.RoomID
		if p.ClientID != "" {
			r.clientID = p.ClientID
		}
		r.members = p.Members
		r.media = p.Media
		r.confirmed = p.Game
		r.pending = nil
	case protocol.TypePlayerEvent:
		p, err := protocol.DecodePayload[protocol.PlayerEvent](env)
		if err != nil {
			return err
		}
		if !p.Type.Valid() {
			return fmt.Errorf("player event %q: %w", p.Type, ErrUnexpected)
		}
		r.applyMedia(media.Event{Action: p.Type, Data: p.Data})
	case protocol.TypeGameState:
		p, err := protocol.DecodePayload[protocol.GameSnapshot](env)
		if err != nil {
			return err
		}
		r.confirmed = p.Game
		r.pending = nil
	case protocol.TypeGameClosed:
		r.confirmed = nil
		r.pending = nil
	case protocol.TypeMoveRejected:
		p, err := protocol.DecodePayload[protocol.MoveRejected](env)
		if err != nil {
			return err
		}
		r.pending = nil
		r.lastReject = p.Reason
	}
	return nil
}

func (r *Reconciler) applyMedia(ev media.Event) {
	if r.media == nil {
		r.media = &media.State{}
	}
	r.media.Apply(ev)
}

// LocalMedia shows a local player action before it reaches the room.
func (r *Reconciler) LocalMedia(ev media.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applyMedia(ev)
}

// LocalMove predicts raw against the current view. A move the rules refuse is returned as an error
// and leaves the view alone.
func (r *Reconciler) LocalMove(raw json.RawMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	base := r.pending
	if base == nil {
		base = r.confirmed
	}
	next, err := game.Play(base, raw)
	if err != nil {
		return err
	}
	r.pending = next
	return nil
}

// Game returns the game as the player should see it, with a pending local move applied.
func (r *Reconciler) Game() *game.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending != nil {
		return r.pending.Clone()
	}
	return r.confirmed.Clone()
}

// Confirmed returns the last game the server sent.
func (r *Reconciler) Confirmed() *game.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.confirmed.Clone()
}

func (r *Reconciler) Pending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending != nil
}

func (r *Reconciler) Media() (media.State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.media == nil {
		return media.State{}, false
	}
	return r.media.Clone(), true
}

func (r *Reconciler) ClientID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clientID
}

func (r *Reconciler) Room() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.roomID
}

func (r *Reconciler) Members() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.members...)
}

// LastRejection is the reason of the most recent move-rejected, or "".
func (r *Reconciler) LastRejection() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastReject
}
