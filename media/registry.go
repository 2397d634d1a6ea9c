package media

// Registry maps room ids to playback state. It is owned by a single goroutine and is not safe for
// concurrent use.
type Registry struct {
	rooms map[string]*State
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*State)}
}

func (r *Registry) GetOrCreate(roomID string) *State {
	s, ok := r.rooms[roomID]
	if !ok {
		s = &State{}
		r.rooms[roomID] = s
	}
	return s
}

// Get returns a copy of the room's state, or false when the room has seen no media event.
func (r *Registry) Get(roomID string) (State, bool) {
	s, ok := r.rooms[roomID]
	if !ok {
		return State{}, false
	}
	return s.Clone(), true
}

func (r *Registry) Apply(roomID string, ev Event) State {
	s := r.GetOrCreate(roomID)
	s.Apply(ev)
	return s.Clone()
}

func (r *Registry) Len() int {
	return len(r.rooms)
}
