package testsupport

import (
	"sync"

	"scrollsafe/internal/indicator"
)

// Transition is one recorded reporter call.
type Transition struct {
	Mount string
	State indicator.State
}

// Recorder captures indicator transitions for assertions.
type Recorder struct {
	mu          sync.Mutex
	attached    []string
	transitions []Transition
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Attach(mountPoint string) indicator.Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attached = append(r.attached, mountPoint)
	return indicator.Handle{MountPoint: mountPoint}
}

func (r *Recorder) Set(handle indicator.Handle, state indicator.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, Transition{Mount: handle.MountPoint, State: state})
}

// Attached returns the mount points attached so far.
func (r *Recorder) Attached() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.attached))
	copy(out, r.attached)
	return out
}

// Transitions returns all recorded transitions in order.
func (r *Recorder) Transitions() []Transition {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Transition, len(r.transitions))
	copy(out, r.transitions)
	return out
}

// Last returns the most recent transition for a mount point.
func (r *Recorder) Last(mount string) (Transition, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.transitions) - 1; i >= 0; i-- {
		if r.transitions[i].Mount == mount {
			return r.transitions[i], true
		}
	}
	return Transition{}, false
}

// CountKind returns how many transitions of the given kind were recorded
// for a mount point.
func (r *Recorder) CountKind(mount string, kind indicator.Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, tr := range r.transitions {
		if tr.Mount == mount && tr.State.Kind == kind {
			count++
		}
	}
	return count
}
