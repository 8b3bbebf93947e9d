package sweep

import (
	"sort"
	"sync"
	"time"

	"github.com/kilianp07/optses/core/mpc"
)

// StatusSnapshot is a point-in-time view of a running sweep.
type StatusSnapshot struct {
	Total     int          `json:"total"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Running   []SlotStatus `json:"running"`
	Started   time.Time    `json:"started"`
	Finished  bool         `json:"finished"`
}

// SlotStatus is the scenario currently simulated in a slot.
type SlotStatus struct {
	Slot     int    `json:"slot"`
	Scenario string `json:"scenario"`
	Step     int    `json:"step"`
	Steps    int    `json:"steps"`
}

// Status records sweep progress for later inspection and forwards every
// call to Next.
type Status struct {
	Next Progress

	mu      sync.Mutex
	snap    StatusSnapshot
	running map[int]*SlotStatus
	now     func() time.Time
}

// NewStatus wraps next, which may be nil.
func NewStatus(next Progress) *Status {
	if next == nil {
		next = NopProgress{}
	}
	return &Status{Next: next, running: map[int]*SlotStatus{}, now: time.Now}
}

func (s *Status) Start(total int) {
	s.mu.Lock()
	s.snap = StatusSnapshot{Total: total, Started: s.now()}
	s.running = map[int]*SlotStatus{}
	s.mu.Unlock()
	s.Next.Start(total)
}

func (s *Status) Track(slot int, label string, total int) mpc.Tracker {
	s.mu.Lock()
	st := &SlotStatus{Slot: slot, Scenario: label, Steps: total}
	s.running[slot] = st
	s.mu.Unlock()
	return &statusTracker{s: s, st: st, next: s.Next.Track(slot, label, total)}
}

func (s *Status) Done(name string, err error) {
	s.mu.Lock()
	if err != nil {
		s.snap.Failed++
	} else {
		s.snap.Succeeded++
	}
	for slot, st := range s.running {
		if st.Scenario == name {
			delete(s.running, slot)
		}
	}
	s.mu.Unlock()
	s.Next.Done(name, err)
}

func (s *Status) Stop() {
	s.mu.Lock()
	s.snap.Finished = true
	s.running = map[int]*SlotStatus{}
	s.mu.Unlock()
	s.Next.Stop()
}

// Snapshot returns a copy of the current state, running slots in order.
func (s *Status) Snapshot() StatusSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.snap
	out.Running = make([]SlotStatus, 0, len(s.running))
	for _, st := range s.running {
		out.Running = append(out.Running, *st)
	}
	sort.Slice(out.Running, func(i, j int) bool { return out.Running[i].Slot < out.Running[j].Slot })
	return out
}

type statusTracker struct {
	s    *Status
	st   *SlotStatus
	next mpc.Tracker
}

func (t *statusTracker) Increment() {
	t.s.mu.Lock()
	t.st.Step++
	t.s.mu.Unlock()
	t.next.Increment()
}

func (t *statusTracker) Finish() { t.next.Finish() }
