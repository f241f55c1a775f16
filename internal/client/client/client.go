package client

import (
	"context"

	"github.com/dmitrijs2005/matchdeck/internal/client/models"
)

// Client is the backend contract used by the engine: discovery, decision
// reconciliation, unmatch and the match and conversation listings.
type Client interface {
	// Discover fetches one batch of candidates for filter.
	Discover(ctx context.Context, filter models.Filter) ([]models.Candidate, error)

	// Swipe reconciles one verdict. The returned MatchInfo is nil when the
	// backend reported no match.
	Swipe(ctx context.Context, candidateID string, verdict models.Verdict) (*models.MatchInfo, error)

	// Unmatch removes the match with targetID.
	Unmatch(ctx context.Context, targetID string) error

	Matches(ctx context.Context) ([]models.Match, error)
	Conversations(ctx context.Context) ([]models.Conversation, error)

	// Messages returns the stored history of a conversation, oldest first.
	Messages(ctx context.Context, conversationID string) ([]models.Message, error)
}

var _ Client = (*HTTPClient)(nil)

// Conn is one open realtime connection carrying complete JSON frames.
type Conn interface {
	ReadFrame() ([]byte, error)
	WriteFrame(data []byte) error
	Close() error
}

// Dialer opens a realtime connection scoped to one conversation.
type Dialer interface {
	Dial(ctx context.Context, conversationID string) (Conn, error)
}
