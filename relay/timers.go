package relay

import (
	"log/slog"
	"time"

	"dragonfox-roomsync-server/game"
	"dragonfox-roomsync-server/protocol"
)

type taskKind int

const (
	taskBotMove taskKind = iota
	taskRestart
)

func (k taskKind) String() string {
	switch k {
	case taskBotMove:
		return "bot-move"
	case taskRestart:
		return "auto-restart"
	}
	return "unknown"
}

type timerFired struct {
	roomID string
	kind   taskKind
	epoch  uint64
	seq    uint64
}

type task struct {
	timer *time.Timer
	seq   uint64
}

// timers holds at most one pending task per room and kind. Tasks never touch state themselves;
// they post a timerFired back into the relay inbox. Only the relay goroutine uses timers.
type timers struct {
	pending map[string]map[taskKind]task
	post    func(any)
	seq     uint64
}

func newTimers(post func(any)) *timers {
	return &timers{pending: make(map[string]map[taskKind]task), post: post}
}

func (t *timers) schedule(roomID string, kind taskKind, epoch uint64, delay time.Duration) {
	t.cancelKind(roomID, kind)
	byKind, ok := t.pending[roomID]
	if !ok {
		byKind = make(map[taskKind]task)
		t.pending[roomID] = byKind
	}
	t.seq++
	ev := timerFired{roomID: roomID, kind: kind, epoch: epoch, seq: t.seq}
	byKind[kind] = task{timer: time.AfterFunc(delay, func() { t.post(ev) }), seq: ev.seq}
}

func (t *timers) cancelKind(roomID string, kind taskKind) {
	if tk, ok := t.pending[roomID][kind]; ok {
		tk.timer.Stop()
		delete(t.pending[roomID], kind)
	}
}

// cancel stops every task of roomID.
func (t *timers) cancel(roomID string) {
	for _, tk := range t.pending[roomID] {
		tk.timer.Stop()
	}
	delete(t.pending, roomID)
}

// done retires the task ev came from. It reports false when ev belongs to a task that was already
// cancelled or replaced, which can happen when the timer fired while it was being stopped.
func (t *timers) done(ev timerFired) bool {
	tk, ok := t.pending[ev.roomID][ev.kind]
	if !ok || tk.seq != ev.seq {
		return false
	}
	delete(t.pending[ev.roomID], ev.kind)
	if len(t.pending[ev.roomID]) == 0 {
		delete(t.pending, ev.roomID)
	}
	return true
}

func (t *timers) stopAll() {
	for roomID := range t.pending {
		t.cancel(roomID)
	}
}

func (t *timers) count() int {
	n := 0
	for _, byKind := range t.pending {
		n += len(byKind)
	}
	return n
}

// scheduleFollowUp queues the follow-up a game state calls for: a restart once it is over, or a bot move
// when the bot holds the turn.
func (r *Relay) scheduleFollowUp(roomID string, s *game.State) {
	switch {
	case s.GameOver && r.opts.AutoRestartDelay > 0:
		r.timers.schedule(roomID, taskRestart, s.Epoch, r.opts.AutoRestartDelay)
	case r.games.BotToMove(roomID):
		r.timers.schedule(roomID, taskBotMove, s.Epoch, r.opts.BotDelay)
	}
}

func (r *Relay) handleTimer(ev timerFired) {
	if !r.timers.done(ev) {
		slog.Debug("superseded task dropped", "room", ev.roomID, "task", ev.kind.String())
		return
	}

	cur, ok := r.games.Get(ev.roomID)
	if !ok || cur.Epoch != ev.epoch {
		slog.Debug("stale task dropped", "room", ev.roomID, "task", ev.kind.String())
		return
	}

	var (
		next *game.State
		err  error
	)
	switch ev.kind {
	case taskBotMove:
		next, err = r.games.PlayBot(ev.roomID)
	case taskRestart:
		next, err = r.games.Restart(ev.roomID, cur.GameType)
	}
	if err != nil {
		slog.Debug("task rejected", "room", ev.roomID, "task", ev.kind.String(), "error", err)
		return
	}
	r.broadcast(ev.roomID, protocol.TypeGameState, protocol.GameSnapshot{RoomID: ev.roomID, Game: next}, "")
	r.scheduleFollowUp(ev.roomID, next)
}
