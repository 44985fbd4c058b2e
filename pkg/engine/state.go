// Package engine maintains the authoritative view of daemon state. It polls
// the control surface, reconciles successive snapshots into change events,
// and exposes a race-free read model to any presentation layer.
package engine

import (
	"sync"

	"tableflip.dev/meshctl/pkg/status"
)

// State is the single authoritative engine state. Exactly one instance
// exists per process; only the reconciliation methods (Apply, Fail, Restore)
// mutate it, and they are invoked solely from the poll pipeline. Readers
// take immutable deep copies through View and never share mutable data.
type State struct {
	mu        sync.RWMutex
	status    status.Snapshot
	roster    status.Roster
	exitNodes []status.ExitNodeCandidate
	lastErr   error
	seq       uint64
	known     bool // at least one successful poll (or cache restore) happened
}

// NewState returns an empty state: nothing known, sequence zero.
func NewState() *State {
	return &State{roster: status.Roster{}}
}

// View is an immutable copy of the engine state handed to readers. All
// reference fields are deep copies; callers may retain a View indefinitely.
type View struct {
	Status    status.Snapshot
	Roster    status.Roster
	ExitNodes []status.ExitNodeCandidate
	LastErr   error
	Seq       uint64
	Known     bool
}

// View returns a consistent deep copy of the current state. Every field in
// the copy comes from the same poll; a mix of old roster with new status can
// never be observed.
func (s *State) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return View{
		Status:    s.status,
		Roster:    s.roster.Clone(),
		ExitNodes: append([]status.ExitNodeCandidate(nil), s.exitNodes...),
		LastErr:   s.lastErr,
		Seq:       s.seq,
		Known:     s.known,
	}
}

// Apply reconciles a freshly parsed snapshot and roster against the previous
// state, swaps all derived structures atomically, clears the last error, and
// returns the change events the transition produced.
func (s *State) Apply(snap status.Snapshot, roster status.Roster) []Event {
	if roster == nil {
		roster = status.Roster{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	events := make([]Event, 0)

	if snap.State != s.status.State || snap.Identity != s.status.Identity || snap.ExitNodeID != s.status.ExitNodeID {
		events = append(events, Event{
			Kind:   ConnectionChanged,
			Seq:    s.seq,
			Status: snap,
			Prev:   s.status,
		})
	}

	for _, d := range roster.Devices() {
		prev, ok := s.roster[d.ID]
		switch {
		case !ok:
			events = append(events, Event{Kind: DeviceJoined, Seq: s.seq, Device: d})
		case !prev.Equal(d):
			events = append(events, Event{Kind: DeviceUpdated, Seq: s.seq, Device: d, PrevDevice: prev.Clone()})
		}
	}
	for _, d := range s.roster.Devices() {
		if _, ok := roster[d.ID]; !ok {
			events = append(events, Event{Kind: DeviceLeft, Seq: s.seq, Device: d})
		}
	}

	s.status = snap
	s.roster = roster.Clone()
	s.exitNodes = status.ExitNodeCandidates(roster)
	s.lastErr = nil
	s.known = true

	return events
}

// Fail records a poll failure. The last-known-good snapshot, roster, and
// exit node candidates are left untouched so readers can distinguish "stale
// but known" from "never known". Only the error and sequence move.
func (s *State) Fail(err error) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	s.lastErr = err
	return s.seq
}

// Restore prefills the state from a cached snapshot, before any polling has
// happened. It is a no-op once a poll has run; restoring emits no events.
func (s *State) Restore(snap status.Snapshot, roster status.Roster) {
	if roster == nil {
		roster = status.Roster{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seq != 0 || s.known {
		return
	}
	s.status = snap
	s.roster = roster.Clone()
	s.exitNodes = status.ExitNodeCandidates(roster)
	s.known = true
}
