// Package services contains the application services of the matchdeck
// client. This file defines the swipe service: it drives the deck, the
// gesture interpreter of the active card and decision dispatch.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/matchdeck/internal/client/deck"
	"github.com/dmitrijs2005/matchdeck/internal/client/gesture"
	"github.com/dmitrijs2005/matchdeck/internal/client/metrics"
	"github.com/dmitrijs2005/matchdeck/internal/client/models"
	"github.com/dmitrijs2005/matchdeck/internal/client/repositories/decisions"
	"github.com/dmitrijs2005/matchdeck/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/matchdeck/internal/logging"
	"github.com/google/uuid"
)

var (
	ErrNoActiveCandidate = errors.New("no active candidate")
	// ErrStaleCard rejects input aimed at a card that is no longer active.
	ErrStaleCard = fmt.Errorf("%w: card is no longer active", gesture.ErrInputDisabled)
)

const (
	ResurfaceNever     = "never"
	ResurfaceNextBatch = "next-batch"
)

// SwipeService drives one deck session at a time.
//
// Contract:
//   - Load/Reload: fetch a batch for a filter and replace the deck. Reload
//     reuses the last filter, also across restarts.
//   - DragStart/DragMove/DragEnd and Press feed the interpreter of the active
//     card. They name the card they were aimed at; input for any other card
//     fails with ErrStaleCard. A commit advances the deck before
//     reconciliation starts.
//   - Remove: drop a queued candidate, e.g. after an unmatch.
//   - Restore: hide candidates decided in earlier runs.
//   - ResetPreferences: forget the saved filter.
type SwipeService interface {
	Load(ctx context.Context, filter models.Filter) (int, error)
	Reload(ctx context.Context) (int, error)
	Restore(ctx context.Context) error

	Active() (models.Candidate, bool)
	Window() []models.Candidate
	Remaining() int
	Remove(candidateID string) bool

	DragStart(candidateID string, x float64, at time.Time) error
	DragMove(candidateID string, x float64, at time.Time) (gesture.Transform, error)
	DragEnd(ctx context.Context, candidateID string, x float64, at time.Time) (Commit, error)
	Press(ctx context.Context, candidateID string, v models.Verdict) (Commit, error)

	History(ctx context.Context, limit int) ([]decisions.Entry, error)
	ResetPreferences(ctx context.Context) error
}

// Commit is the result of a finished gesture. When Committed is false the
// card went back to rest and stays active. Result yields exactly one value.
type Commit struct {
	Committed bool
	Decision  models.Decision
	Result    <-chan models.ReconciliationResult
}

type Discoverer interface {
	Discover(ctx context.Context, filter models.Filter) ([]models.Candidate, error)
}

type Submitter interface {
	Submit(ctx context.Context, d models.Decision) (<-chan models.ReconciliationResult, error)
	// Prune forgets settled decisions of the previous deck session.
	Prune()
}

type swipeService struct {
	mu      sync.Mutex
	deck    *deck.Deck
	card    *gesture.Interpreter
	cardID  string
	decided map[string]struct{}

	discoverer Discoverer
	dispatcher Submitter
	journal    decisions.Repository
	prefs      metadata.Repository

	thresholds gesture.Thresholds
	depth      int
	resurface  string
	onEmpty    func()
	metrics    *metrics.Metrics
	logger     logging.Logger
	now        func() time.Time
}

type SwipeOption func(*swipeService)

func WithDecisionJournal(j decisions.Repository) SwipeOption {
	return func(s *swipeService) { s.journal = j }
}

func WithPreferences(p metadata.Repository) SwipeOption {
	return func(s *swipeService) { s.prefs = p }
}

func WithThresholds(th gesture.Thresholds) SwipeOption {
	return func(s *swipeService) { s.thresholds = th }
}

func WithVisibleDepth(n int) SwipeOption {
	return func(s *swipeService) { s.depth = n }
}

// WithResurfacePolicy decides whether a candidate whose reconciliation
// failed may appear in a later batch (ResurfaceNextBatch) or not at all.
func WithResurfacePolicy(p string) SwipeOption {
	return func(s *swipeService) { s.resurface = p }
}

// WithEmptyHandler is called when the deck runs out of candidates.
func WithEmptyHandler(fn func()) SwipeOption {
	return func(s *swipeService) { s.onEmpty = fn }
}

func WithSwipeMetrics(m *metrics.Metrics) SwipeOption {
	return func(s *swipeService) { s.metrics = m }
}

func WithSwipeLogger(l logging.Logger) SwipeOption {
	return func(s *swipeService) { s.logger = l }
}

func WithSwipeClock(now func() time.Time) SwipeOption {
	return func(s *swipeService) { s.now = now }
}

func NewSwipeService(discoverer Discoverer, dispatcher Submitter, opts ...SwipeOption) SwipeService {
	s := &swipeService{
		decided:    make(map[string]struct{}),
		discoverer: discoverer,
		dispatcher: dispatcher,
		thresholds: gesture.DefaultThresholds(),
		depth:      deck.DefaultVisibleDepth,
		resurface:  ResurfaceNever,
		logger:     logging.Nop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.deck = deck.New(s.depth, deck.WithEmptyHandler(func() {
		if s.onEmpty != nil {
			s.onEmpty()
		}
	}))
	return s
}

func (s *swipeService) Restore(ctx context.Context) error {
	if s.journal == nil {
		return nil
	}
	ids, err := s.journal.DecidedCandidates(ctx, s.resurface == ResurfaceNever)
	if err != nil {
		return fmt.Errorf("restore decisions: %w", err)
	}
	s.mu.Lock()
	for _, id := range ids {
		s.decided[id] = struct{}{}
	}
	s.mu.Unlock()
	s.logger.Debug(ctx, "restored decided candidates", "count", len(ids))
	return nil
}

func (s *swipeService) Load(ctx context.Context, filter models.Filter) (int, error) {
	batch, err := s.discoverer.Discover(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("load candidates: %w", err)
	}

	if s.prefs != nil {
		if err := metadata.SetJSON(ctx, s.prefs, metadata.KeyLastFilter, filter); err != nil {
			s.logger.Warn(ctx, "saving filter failed", "error", err)
		}
	}

	s.mu.Lock()
	fresh := make([]models.Candidate, 0, len(batch))
	for _, c := range batch {
		if _, done := s.decided[c.ID]; done {
			continue
		}
		fresh = append(fresh, c)
	}
	s.mu.Unlock()

	// LoadBatch may invoke the empty handler; s.mu must not be held.
	n := s.deck.LoadBatch(fresh)

	s.mu.Lock()
	s.card, s.cardID = nil, ""
	s.mu.Unlock()
	s.dispatcher.Prune()

	s.logger.Info(ctx, "deck loaded", "fetched", len(batch), "queued", n)
	return n, nil
}

func (s *swipeService) Reload(ctx context.Context) (int, error) {
	var filter models.Filter
	if s.prefs != nil {
		if _, err := metadata.GetJSON(ctx, s.prefs, metadata.KeyLastFilter, &filter); err != nil {
			s.logger.Warn(ctx, "reading saved filter failed", "error", err)
		}
	}
	return s.Load(ctx, filter)
}

func (s *swipeService) Active() (models.Candidate, bool) {
	return s.deck.Active()
}

func (s *swipeService) Window() []models.Candidate {
	return s.deck.VisibleWindow()
}

func (s *swipeService) Remaining() int {
	return s.deck.Remaining()
}

func (s *swipeService) Remove(candidateID string) bool {
	s.mu.Lock()
	if s.cardID == candidateID {
		s.card, s.cardID = nil, ""
	}
	s.mu.Unlock()
	return s.deck.Remove(candidateID)
}

func (s *swipeService) DragStart(candidateID string, x float64, at time.Time) error {
	card, err := s.activeCard(candidateID)
	if err != nil {
		return err
	}
	return card.Start(x, at)
}

func (s *swipeService) DragMove(candidateID string, x float64, at time.Time) (gesture.Transform, error) {
	card, err := s.activeCard(candidateID)
	if err != nil {
		return gesture.Transform{}, err
	}
	return card.Move(x, at)
}

func (s *swipeService) DragEnd(ctx context.Context, candidateID string, x float64, at time.Time) (Commit, error) {
	card, err := s.activeCard(candidateID)
	if err != nil {
		return Commit{}, err
	}
	out, err := card.End(x, at)
	if err != nil {
		return Commit{}, err
	}
	if !out.Committed {
		return Commit{}, nil
	}
	return s.commit(ctx, candidateID, out.Verdict)
}

func (s *swipeService) Press(ctx context.Context, candidateID string, v models.Verdict) (Commit, error) {
	card, err := s.activeCard(candidateID)
	if err != nil {
		return Commit{}, err
	}
	out, err := card.Press(v)
	if err != nil {
		return Commit{}, err
	}
	return s.commit(ctx, candidateID, out.Verdict)
}

func (s *swipeService) History(ctx context.Context, limit int) ([]decisions.Entry, error) {
	if s.journal == nil {
		return nil, nil
	}
	return s.journal.Recent(ctx, limit)
}

func (s *swipeService) ResetPreferences(ctx context.Context) error {
	if s.prefs == nil {
		return nil
	}
	if err := s.prefs.Clear(ctx); err != nil {
		return fmt.Errorf("reset preferences: %w", err)
	}
	s.logger.Info(ctx, "preferences cleared")
	return nil
}

// activeCard returns the interpreter of the active candidate if that is the
// card the input was aimed at. A fresh interpreter is created whenever a
// different candidate became active. Lock order is s.mu then the deck.
func (s *swipeService) activeCard(candidateID string) (*gesture.Interpreter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	active, ok := s.deck.Active()
	if !ok {
		return nil, ErrNoActiveCandidate
	}
	if candidateID != active.ID {
		return nil, ErrStaleCard
	}
	if s.card == nil || s.cardID != active.ID {
		if _, done := s.decided[active.ID]; done {
			return nil, ErrStaleCard
		}
		s.card = gesture.NewInterpreter(s.thresholds)
		s.cardID = active.ID
	}
	return s.card, nil
}

// commit runs after the card interpreter reported Committed, which happens
// at most once per card.
func (s *swipeService) commit(ctx context.Context, candidateID string, v models.Verdict) (Commit, error) {
	dec := models.Decision{
		ID:          uuid.NewString(),
		CandidateID: candidateID,
		Verdict:     v,
		IssuedAt:    s.now(),
	}

	s.mu.Lock()
	s.decided[candidateID] = struct{}{}
	s.mu.Unlock()

	if active, ok := s.deck.Active(); ok && active.ID == candidateID {
		s.deck.Advance()
	}
	s.metrics.DecisionIssued(v)
	s.logger.Debug(ctx, "decision committed", "candidate_id", candidateID, "verdict", string(v))

	results, err := s.dispatcher.Submit(ctx, dec)
	if err != nil {
		return Commit{Committed: true, Decision: dec}, fmt.Errorf("dispatch: %w", err)
	}

	out := make(chan models.ReconciliationResult, 1)
	go func() {
		defer close(out)
		res, ok := <-results
		if !ok {
			return
		}
		if res.Status == models.StatusFailed && s.resurface == ResurfaceNextBatch {
			s.mu.Lock()
			delete(s.decided, res.CandidateID)
			s.mu.Unlock()
		}
		out <- res
	}()

	return Commit{Committed: true, Decision: dec, Result: out}, nil
}
