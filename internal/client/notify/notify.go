// Package notify presents match outcomes one at a time and exposes the
// continuation the user picks: keep deciding or open the conversation.
package notify

import (
	"context"
	"errors"
	"sync"

	"github.com/dmitrijs2005/matchdeck/internal/client/models"
	"github.com/dmitrijs2005/matchdeck/internal/logging"
)

var (
	ErrNothingShown   = errors.New("no match is being shown")
	ErrNoConversation = errors.New("match has no conversation")
)

// Navigator receives "open conversation" requests.
type Navigator interface {
	OpenConversation(ctx context.Context, conversationID string) error
}

// Notifier queues matches that arrive while another one is shown.
type Notifier struct {
	mu      sync.Mutex
	current *models.MatchInfo
	queue   []models.MatchInfo

	nav    Navigator
	onShow func(models.MatchInfo)
	logger logging.Logger
}

type Option func(*Notifier)

func WithNavigator(nav Navigator) Option {
	return func(n *Notifier) { n.nav = nav }
}

// WithShowHandler is called, without the lock held, whenever a match
// becomes the one on screen.
func WithShowHandler(fn func(models.MatchInfo)) Option {
	return func(n *Notifier) { n.onShow = fn }
}

func WithLogger(l logging.Logger) Option {
	return func(n *Notifier) { n.logger = l }
}

func New(opts ...Option) *Notifier {
	n := &Notifier{logger: logging.Nop()}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Present shows m, or queues it behind the match currently shown.
func (n *Notifier) Present(m models.MatchInfo) {
	n.mu.Lock()
	if n.current != nil {
		n.queue = append(n.queue, m)
		n.mu.Unlock()
		return
	}
	n.current = &m
	n.mu.Unlock()

	n.show(m)
}

func (n *Notifier) Current() (models.MatchInfo, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current == nil {
		return models.MatchInfo{}, false
	}
	return *n.current, true
}

// Queued counts matches waiting behind the current one.
func (n *Notifier) Queued() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.queue)
}

// Dismiss is the "keep deciding" continuation. Dismissing with nothing on
// screen is a no-op and reports false.
func (n *Notifier) Dismiss() bool {
	_, ok := n.take()
	return ok
}

// Open is the "open conversation" continuation. It dismisses the current
// match, hands its conversation id to the navigator and returns it.
func (n *Notifier) Open(ctx context.Context) (string, error) {
	n.mu.Lock()
	if n.current == nil {
		n.mu.Unlock()
		return "", ErrNothingShown
	}
	if n.current.ConversationID == "" {
		n.mu.Unlock()
		return "", ErrNoConversation
	}
	n.mu.Unlock()

	m, ok := n.take()
	if !ok {
		return "", ErrNothingShown
	}
	if n.nav != nil {
		if err := n.nav.OpenConversation(ctx, m.ConversationID); err != nil {
			return m.ConversationID, err
		}
	}
	n.logger.Debug(ctx, "conversation requested", "conversation_id", m.ConversationID)
	return m.ConversationID, nil
}

// take clears the current match and promotes the next queued one.
func (n *Notifier) take() (models.MatchInfo, bool) {
	n.mu.Lock()
	if n.current == nil {
		n.mu.Unlock()
		return models.MatchInfo{}, false
	}
	taken := *n.current
	n.current = nil
	var next *models.MatchInfo
	if len(n.queue) > 0 {
		m := n.queue[0]
		n.queue = n.queue[1:]
		n.current = &m
		next = &m
	}
	n.mu.Unlock()

	if next != nil {
		n.show(*next)
	}
	return taken, true
}

func (n *Notifier) show(m models.MatchInfo) {
	if n.onShow != nil {
		n.onShow(m)
	}
}
