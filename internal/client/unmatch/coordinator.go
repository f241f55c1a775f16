// Package unmatch implements the two-step confirm/cancel protocol for
// ending a match. Only one target can be pending; a new request replaces it.
package unmatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/matchdeck/internal/client/metrics"
	"github.com/dmitrijs2005/matchdeck/internal/client/models"
	"github.com/dmitrijs2005/matchdeck/internal/common"
	"github.com/dmitrijs2005/matchdeck/internal/logging"
)

var ErrNothingPending = errors.New("no unmatch pending")

type Unmatcher interface {
	Unmatch(ctx context.Context, targetID string) error
}

type NoticeSink interface {
	Notify(n models.Notice)
}

type Coordinator struct {
	mu      sync.Mutex
	pending *models.UnmatchRequest

	client    Unmatcher
	onPrompt  func(models.UnmatchRequest)
	onRemoved func(targetID string)
	notices   NoticeSink
	metrics   *metrics.Metrics
	logger    logging.Logger
}

type Option func(*Coordinator)

// WithPromptHandler is called when a confirmation prompt should be shown.
func WithPromptHandler(fn func(models.UnmatchRequest)) Option {
	return func(c *Coordinator) { c.onPrompt = fn }
}

// WithRemovedHandler is called after the backend removed the match, so the
// caller can drop it from the visible set or refresh.
func WithRemovedHandler(fn func(targetID string)) Option {
	return func(c *Coordinator) { c.onRemoved = fn }
}

func WithNoticeSink(s NoticeSink) Option    { return func(c *Coordinator) { c.notices = s } }
func WithMetrics(m *metrics.Metrics) Option { return func(c *Coordinator) { c.metrics = m } }
func WithLogger(l logging.Logger) Option    { return func(c *Coordinator) { c.logger = l } }

func New(client Unmatcher, opts ...Option) *Coordinator {
	c := &Coordinator{client: client, logger: logging.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Request stores targetID as the pending target, replacing any previous one.
func (c *Coordinator) Request(targetID string) error {
	targetID = strings.TrimSpace(targetID)
	if targetID == "" {
		return fmt.Errorf("%w: unmatch target is empty", common.ErrValidation)
	}
	req := models.UnmatchRequest{TargetID: targetID}

	c.mu.Lock()
	c.pending = &req
	c.mu.Unlock()

	if c.onPrompt != nil {
		c.onPrompt(req)
	}
	return nil
}

func (c *Coordinator) Pending() (models.UnmatchRequest, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return models.UnmatchRequest{}, false
	}
	return *c.pending, true
}

// Cancel clears the pending target without any network call.
func (c *Coordinator) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	had := c.pending != nil
	c.pending = nil
	return had
}

// Confirm unmatches the pending target. The pending slot is cleared before
// the call; a failure is reported as a notice and returned.
func (c *Coordinator) Confirm(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.pending == nil {
		c.mu.Unlock()
		return "", ErrNothingPending
	}
	target := c.pending.TargetID
	c.pending = nil
	c.mu.Unlock()

	if err := c.client.Unmatch(ctx, target); err != nil {
		c.metrics.Unmatch(metrics.ResultFailed)
		c.logger.Error(ctx, "unmatch failed", "target_id", target, "error", err)
		if c.notices != nil {
			c.notices.Notify(models.NoticeFor("Unmatch", err))
		}
		return target, err
	}

	c.metrics.Unmatch(metrics.ResultOK)
	c.logger.Info(ctx, "unmatched", "target_id", target)
	if c.onRemoved != nil {
		c.onRemoved(target)
	}
	return target, nil
}
