package models

import "time"

// ChatMessage is one turn of the conversation. Messages are append-only and
// ordered by timestamp; they are never mutated after creation and only removed
// by a whole-session clear.
type ChatMessage struct {
	Content   string
	IsUser    bool
	Timestamp time.Time
	SessionId string
}

// OutboundMessage is a user submission waiting in the delivery queue. It lives
// only in memory for the lifetime of the process.
type OutboundMessage struct {
	Content       string
	EnqueuedAt    time.Time
	CorrelationId string
}
