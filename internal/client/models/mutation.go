package models

import "time"

// QueuedMutation is a write made while offline, waiting to be replayed.
// Only Retries and LastError change after the mutation is enqueued.
type QueuedMutation struct {
	ID         string    `json:"id"`
	Category   Category  `json:"category"`
	Endpoint   string    `json:"endpoint"`
	Method     Method    `json:"method"`
	Payload    Payload   `json:"payload"`
	EnqueuedAt time.Time `json:"enqueued_at"`
	Retries    int       `json:"retries"`
	LastError  string    `json:"last_error,omitempty"`
}
