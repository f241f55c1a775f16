// Package dispatch reconciles committed decisions with the backend. It
// keeps at most one request in flight per candidate and never puts a
// candidate back into the deck: failures become notices.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/matchdeck/internal/client/metrics"
	"github.com/dmitrijs2005/matchdeck/internal/client/models"
	"github.com/dmitrijs2005/matchdeck/internal/logging"
)

var (
	ErrInFlight          = errors.New("reconciliation already in flight for candidate")
	ErrAlreadyDispatched = errors.New("decision already dispatched")
)

// Swiper issues the reconciliation request. A nil MatchInfo means no match.
type Swiper interface {
	Swipe(ctx context.Context, candidateID string, verdict models.Verdict) (*models.MatchInfo, error)
}

// MatchSink receives match info on a mutual accept.
type MatchSink interface {
	Present(m models.MatchInfo)
}

// NoticeSink receives non-blocking failure notices.
type NoticeSink interface {
	Notify(n models.Notice)
}

// Journal persists decisions and their outcome. Journal failures are
// logged and never fail a reconciliation.
type Journal interface {
	Record(ctx context.Context, d models.Decision) error
	Resolve(ctx context.Context, res models.ReconciliationResult) error
}

type Dispatcher struct {
	mu         sync.Mutex
	inflight   map[string]string
	dispatched map[string]struct{}

	swiper  Swiper
	matches MatchSink
	notices NoticeSink
	journal Journal
	metrics *metrics.Metrics
	logger  logging.Logger
	timeout time.Duration
}

type Option func(*Dispatcher)

func WithMatchSink(s MatchSink) Option   { return func(d *Dispatcher) { d.matches = s } }
func WithNoticeSink(s NoticeSink) Option { return func(d *Dispatcher) { d.notices = s } }
func WithJournal(j Journal) Option       { return func(d *Dispatcher) { d.journal = j } }
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}
func WithLogger(l logging.Logger) Option { return func(d *Dispatcher) { d.logger = l } }

// WithTimeout bounds each reconciliation request; zero means no bound.
func WithTimeout(t time.Duration) Option { return func(d *Dispatcher) { d.timeout = t } }

func New(swiper Swiper, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		inflight:   make(map[string]string),
		dispatched: make(map[string]struct{}),
		swiper:     swiper,
		logger:     logging.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Submit reserves dec and reconciles it on a new goroutine. The result is
// delivered on the returned channel, which is buffered and closed after the
// single send. The reservation happens before Submit returns, so a second
// Submit for the same candidate fails with ErrInFlight.
func (d *Dispatcher) Submit(ctx context.Context, dec models.Decision) (<-chan models.ReconciliationResult, error) {
	if err := d.reserve(dec); err != nil {
		return nil, err
	}
	out := make(chan models.ReconciliationResult, 1)
	go func() {
		defer close(out)
		out <- d.reconcile(ctx, dec)
	}()
	return out, nil
}

// Prune forgets the ids of settled decisions. Decisions belong to one deck
// session; the swipe service prunes when a new session starts. Ids still in
// flight are kept.
func (d *Dispatcher) Prune() {
	d.mu.Lock()
	defer d.mu.Unlock()
	kept := make(map[string]struct{}, len(d.inflight))
	for _, id := range d.inflight {
		kept[id] = struct{}{}
	}
	d.dispatched = kept
}

func (d *Dispatcher) reserve(dec models.Decision) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.dispatched[dec.ID]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyDispatched, dec.ID)
	}
	if _, ok := d.inflight[dec.CandidateID]; ok {
		return fmt.Errorf("%w: %s", ErrInFlight, dec.CandidateID)
	}
	d.inflight[dec.CandidateID] = dec.ID
	d.dispatched[dec.ID] = struct{}{}
	return nil
}

func (d *Dispatcher) release(candidateID string) {
	d.mu.Lock()
	delete(d.inflight, candidateID)
	d.mu.Unlock()
}

func (d *Dispatcher) reconcile(ctx context.Context, dec models.Decision) models.ReconciliationResult {
	defer d.release(dec.CandidateID)

	log := d.logger.With("decision_id", dec.ID, "candidate_id", dec.CandidateID, "verdict", string(dec.Verdict))

	if d.journal != nil {
		if err := d.journal.Record(ctx, dec); err != nil {
			log.Warn(ctx, "journal record failed", "error", err)
		}
	}

	done := d.metrics.ReconciliationStarted()

	reqCtx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	res := models.ReconciliationResult{DecisionID: dec.ID, CandidateID: dec.CandidateID}
	match, err := d.swiper.Swipe(reqCtx, dec.CandidateID, dec.Verdict)
	switch {
	case err != nil:
		res.Status = models.StatusFailed
		res.Err = err
	case match != nil:
		res.Status = models.StatusMatched
		res.Match = match
	default:
		res.Status = models.StatusConfirmed
	}
	done(res.Status)

	if d.journal != nil {
		// Resolve even when ctx is already cancelled.
		if jerr := d.journal.Resolve(context.WithoutCancel(ctx), res); jerr != nil {
			log.Warn(ctx, "journal resolve failed", "error", jerr)
		}
	}

	switch res.Status {
	case models.StatusFailed:
		log.Error(ctx, "reconciliation failed", "error", err)
		if d.notices != nil {
			d.notices.Notify(models.NoticeFor(actionName(dec.Verdict), err))
		}
	case models.StatusMatched:
		log.Info(ctx, "match", "conversation_id", match.ConversationID)
		if d.matches != nil {
			d.matches.Present(*match)
		}
	default:
		log.Debug(ctx, "reconciled")
	}
	return res
}

func actionName(v models.Verdict) string {
	if v == models.VerdictAccept {
		return "Like"
	}
	return "Pass"
}
