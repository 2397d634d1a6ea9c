package media

type Action string

const (
	ActionLoad  Action = "load"
	ActionPlay  Action = "play"
	ActionPause Action = "pause"
	ActionSeek  Action = "seek"
)

func (a Action) Valid() bool {
	switch a {
	case ActionLoad, ActionPlay, ActionPause, ActionSeek:
		return true
	}
	return false
}

// Data is the optional body of a player event.
type Data struct {
	Time *float64 `json:"time,omitempty"`
	URL  *string  `json:"url,omitempty"`
}

// State is the authoritative playback state of one room. A nil URL means nothing is loaded.
type State struct {
	URL     *string `json:"url"`
	Time    float64 `json:"time"`
	Playing bool    `json:"playing"`
}

type Event struct {
	Action Action
	Data   Data
}

// Apply replaces the fields touched by ev. Later events always win.
func (s *State) Apply(ev Event) {
	switch ev.Action {
	case ActionLoad:
		s.URL = nil
		if ev.Data.URL != nil {
			u := *ev.Data.URL
			s.URL = &u
		}
		s.Time = timeOr(ev.Data.Time, 0)
		s.Playing = false
	case ActionPlay:
		s.Playing = true
		s.Time = timeOr(ev.Data.Time, s.Time)
	case ActionPause:
		s.Playing = false
		s.Time = timeOr(ev.Data.Time, s.Time)
	case ActionSeek:
		s.Time = timeOr(ev.Data.Time, s.Time)
	}
}

func timeOr(t *float64, fallback float64) float64 {
	if t == nil {
		return fallback
	}
	if *t < 0 {
		return 0
	}
	return *t
}

func (s State) Clone() State {
	if s.URL != nil {
		u := *s.URL
		s.URL = &u
	}
	return s
}
