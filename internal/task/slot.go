package task

import (
	"context"
	"sync"
)

// Slot is a latest-request-wins guard for one logical piece of UI state.
// Every Begin or Next issues a ticket with a higher id; only the ticket holding
// the newest id may apply its result. Earlier holders are not interrupted,
// their results are simply dropped.
type Slot struct {
	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

// Ticket identifies one claim on a Slot.
type Ticket struct {
	slot   *Slot
	id     uint64
	cancel context.CancelFunc
}

// Begin claims the slot and returns a context that is cancelled as soon as a
// newer claim is made (or the slot is invalidated), so in-flight I/O for a
// superseded request stops early.
func (s *Slot) Begin(parent context.Context) (context.Context, Ticket) {
	ctx, cancel := context.WithCancel(parent)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	s.seq++
	s.cancel = cancel
	return ctx, Ticket{slot: s, id: s.seq, cancel: cancel}
}

// Next claims the slot without an associated context.
func (s *Slot) Next() Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.seq++
	return Ticket{slot: s, id: s.seq}
}

// Invalidate makes every outstanding ticket stale.
func (s *Slot) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.seq++
}

// Seq returns the id of the newest claim.
func (s *Slot) Seq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// ID returns the ticket's request id.
func (t Ticket) ID() uint64 {
	return t.id
}

// Current reports whether no newer claim has been made since this ticket.
func (t Ticket) Current() bool {
	if t.slot == nil {
		return false
	}
	t.slot.mu.Lock()
	defer t.slot.mu.Unlock()
	return t.slot.seq == t.id
}

// Apply runs fn only if the ticket is still current. The slot stays locked
// while fn runs, so fn must not call back into the same Slot. Returns whether
// fn ran.
func (t Ticket) Apply(fn func()) bool {
	if t.slot == nil {
		return false
	}
	t.slot.mu.Lock()
	defer t.slot.mu.Unlock()
	if t.slot.seq != t.id {
		return false
	}
	fn()
	return true
}

// Release frees the ticket's context. Safe to call more than once.
func (t Ticket) Release() {
	if t.cancel != nil {
		t.cancel()
	}
}
