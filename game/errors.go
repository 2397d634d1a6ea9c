package game

import "errors"

// ErrRejected wraps every reason a move, restart or seat request is refused.
var ErrRejected = errors.New("rejected")

var (
	ErrNoGame          = reject("no active game")
	ErrWrongGameType   = reject("game type mismatch")
	ErrGameOver        = reject("game is over")
	ErrNotYourTurn     = reject("not your turn")
	ErrCellOccupied    = reject("cell occupied")
	ErrInvalidMove     = reject("invalid move")
	ErrUnknownGameType = reject("unknown game type")
)

type rejection struct {
	reason string
}

func reject(reason string) error { return &rejection{reason: reason} }

func (e *rejection) Error() string { return e.reason }

func (e *rejection) Unwrap() error { return ErrRejected }

// Reason returns the short client-facing reason for err.
func Reason(err error) string {
	var r *rejection
	if errors.As(err, &r) {
		return r.reason
	}
	return err.Error()
}
