package session

import (
	"sync"
)

type Emitted struct {
	Event   string
	Payload any
}

// Recorder is a Conn that keeps everything emitted to it.
type Recorder struct {
	id string

	mu     sync.Mutex
	events []Emitted
}

func NewRecorder(id string) *Recorder {
	return &Recorder{id: id}
}

func (r *Recorder) ID() string { return r.id }

func (r *Recorder) Emit(event string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Emitted{Event: event, Payload: payload})
	return nil
}

func (r *Recorder) Events() []Emitted {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Emitted(nil), r.events...)
}

// Named returns the payloads emitted under event, oldest first.
func (r *Recorder) Named(event string) []any {
	var out []any
	for _, e := range r.Events() {
		if e.Event == event {
			out = append(out, e.Payload)
		}
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
