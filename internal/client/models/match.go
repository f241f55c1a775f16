package models

import "time"

// Participant is a user taking part in a match or a conversation.
type Participant struct {
	ID   string
	Name string
}

// Match is an established mutual acceptance as listed by the backend.
type Match struct {
	ID             string
	Participants   []Participant
	ConversationID string
	CreatedAt      time.Time
}

// Conversation is a chat thread the user takes part in.
type Conversation struct {
	ID           string
	Participants []Participant
	UpdatedAt    time.Time

	// LastMessage is nil for a conversation without messages.
	LastMessage *Message
}

// Counterpart returns the first participant other than selfID. With an
// unknown selfID the first participant is returned.
func Counterpart(ps []Participant, selfID string) (Participant, bool) {
	for _, p := range ps {
		if selfID == "" || p.ID != selfID {
			return p, true
		}
	}
	return Participant{}, false
}
