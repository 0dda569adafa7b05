package game

import (
	"fmt"
	"strings"
	"sync"
)

// Event categories.
const (
	CatPhase    = "phase"
	CatRequest  = "request"
	CatAvatar   = "avatar"
	CatDecision = "decision"
	CatRender   = "render"
	CatExport   = "export"
)

// Event is one recorded controller event.
type Event struct {
	Seq      int
	Day      int
	Category string // phase, request, avatar, decision, render, export
	Key      string // specific event name within the category
	Value    string // human-readable detail
	NumVal   float64
}

// String formats the event as a fixed-width log line.
//
//	[#012 D=03] decision  sent             Admit
func (e Event) String() string {
	return fmt.Sprintf("[#%03d D=%02d] %-9s %-16s %s",
		e.Seq, e.Day, e.Category, e.Key, e.Value)
}

// EventLog collects structured controller events. It is unbounded and safe
// for concurrent use; the UI uses MessageLog instead.
type EventLog struct {
	mu      sync.Mutex
	entries []Event
}

// NewEventLog creates an empty log.
func NewEventLog() *EventLog {
	return &EventLog{}
}

// Add records a new event.
func (l *EventLog) Add(day int, category, key, value string, numVal float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, Event{
		Seq:      len(l.entries) + 1,
		Day:      day,
		Category: category,
		Key:      key,
		Value:    value,
		NumVal:   numVal,
	})
}

// Entries returns a copy of every event.
func (l *EventLog) Entries() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event(nil), l.entries...)
}

// Filter returns events matching category and/or key. Empty matches any.
func (l *EventLog) Filter(category, key string) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Event
	for _, e := range l.entries {
		if category != "" && e.Category != category {
			continue
		}
		if key != "" && e.Key != key {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Count returns how many events match category and key.
func (l *EventLog) Count(category, key string) int {
	return len(l.Filter(category, key))
}

// LastOf returns the most recent event matching category+key.
func (l *EventLog) LastOf(category, key string) (Event, bool) {
	events := l.Filter(category, key)
	if len(events) == 0 {
		return Event{}, false
	}
	return events[len(events)-1], true
}

// HasEvent reports whether an event matches category, key and value substring.
func (l *EventLog) HasEvent(category, key, valueSubstr string) bool {
	for _, e := range l.Filter(category, key) {
		if valueSubstr == "" || strings.Contains(e.Value, valueSubstr) {
			return true
		}
	}
	return false
}

// Format returns the full log, one event per line.
func (l *EventLog) Format() string {
	var sb strings.Builder
	for _, e := range l.Entries() {
		sb.WriteString(e.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
