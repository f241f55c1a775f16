package decisions

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/matchdeck/internal/client/models"
)

var ErrNotFound = errors.New("decision not found")

// Entry is one journal row.
type Entry struct {
	Decision       models.Decision
	Status         models.ReconcileStatus
	ConversationID string
	Error          string
	ResolvedAt     *time.Time
}

type Repository interface {
	// Record stores d with status pending.
	Record(ctx context.Context, d models.Decision) error

	// Resolve stores the outcome of a pending decision. Only the first
	// resolution is kept.
	Resolve(ctx context.Context, res models.ReconciliationResult) error

	// DecidedCandidates lists candidate ids with at least one decision,
	// oldest first. Failed decisions count only when includeFailed is set.
	DecidedCandidates(ctx context.Context, includeFailed bool) ([]string, error)

	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]Entry, error)
}
