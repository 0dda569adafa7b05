package game

import "sync"

// MessageLogSize is how many outcome messages the side panel keeps.
const MessageLogSize = 40

// Message is one outcome line shown in the side panel.
type Message struct {
	Day    int
	Action string
	Text   string
}

// MessageLog is a fixed-size ring buffer of outcome messages.
type MessageLog struct {
	mu      sync.Mutex
	entries []Message
	head    int
	count   int
}

// NewMessageLog creates a message log with capacity MessageLogSize.
func NewMessageLog() *MessageLog {
	return &MessageLog{entries: make([]Message, MessageLogSize)}
}

// Add appends a message, overwriting the oldest when full.
func (ml *MessageLog) Add(day int, action, text string) {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	ml.entries[ml.head] = Message{Day: day, Action: action, Text: text}
	ml.head = (ml.head + 1) % len(ml.entries)
	if ml.count < len(ml.entries) {
		ml.count++
	}
}

// Recent returns messages oldest first.
func (ml *MessageLog) Recent() []Message {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	size := len(ml.entries)
	out := make([]Message, ml.count)
	for i := 0; i < ml.count; i++ {
		out[i] = ml.entries[(ml.head-ml.count+i+size)%size]
	}
	return out
}

// Len returns the number of stored messages.
func (ml *MessageLog) Len() int {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	return ml.count
}

// Reset drops every message.
func (ml *MessageLog) Reset() {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	ml.head = 0
	ml.count = 0
}
