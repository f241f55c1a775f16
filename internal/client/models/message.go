package models

import (
	"fmt"
	"time"
)

// Message is one entry of a conversation as rendered locally.
type Message struct {
	SenderID   string
	SenderName string
	Content    string
	SentAt     time.Time

	// LocalSeq is assigned per session to locally sent messages, starting
	// at 1. Inbound messages carry 0.
	LocalSeq int64

	// Optimistic marks a local send not yet confirmed by an echo.
	Optimistic bool

	// Outgoing is true when SenderID equals the local participant.
	Outgoing bool
}

// ConnectionState of a chat session.
type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connecting
	Open
	Closing
	Errored
)

func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Closing:
		return "closing"
	case Errored:
		return "errored"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}
