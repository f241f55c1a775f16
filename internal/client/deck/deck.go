// Package deck holds the ordered queue of candidates awaiting a decision
// and the cursor marking the active one.
package deck

import (
	"sync"

	"github.com/dmitrijs2005/matchdeck/internal/client/models"
)

const DefaultVisibleDepth = 3

// Deck is safe for concurrent use. The cursor only moves forward; the only
// reset is LoadBatch.
type Deck struct {
	mu      sync.Mutex
	items   []models.Candidate
	cursor  int
	depth   int
	emitted bool
	onEmpty func()
}

type Option func(*Deck)

// WithEmptyHandler registers fn to be called once each time the deck runs
// out of candidates. fn runs without the deck lock held.
func WithEmptyHandler(fn func()) Option {
	return func(d *Deck) {
		d.onEmpty = fn
	}
}

func New(depth int, opts ...Option) *Deck {
	if depth <= 0 {
		depth = DefaultVisibleDepth
	}
	d := &Deck{depth: depth}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// LoadBatch replaces the queue with candidates (duplicate ids keep their
// first position) and resets the cursor. It returns the queued count. An
// empty batch emits the empty signal immediately.
func (d *Deck) LoadBatch(candidates []models.Candidate) int {
	seen := make(map[string]struct{}, len(candidates))
	items := make([]models.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if _, dup := seen[c.ID]; dup || c.ID == "" {
			continue
		}
		seen[c.ID] = struct{}{}
		items = append(items, c)
	}

	d.mu.Lock()
	d.items = items
	d.cursor = 0
	d.emitted = false
	notify := d.checkEmptyLocked()
	d.mu.Unlock()

	notify()
	return len(items)
}

// Active returns the candidate at the cursor.
func (d *Deck) Active() (models.Candidate, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cursor >= len(d.items) {
		return models.Candidate{}, false
	}
	return d.items[d.cursor], true
}

// Advance moves past the active candidate and returns the new active one.
func (d *Deck) Advance() (models.Candidate, bool) {
	d.mu.Lock()
	if d.cursor < len(d.items) {
		d.cursor++
	}
	next, ok := models.Candidate{}, false
	if d.cursor < len(d.items) {
		next, ok = d.items[d.cursor], true
	}
	notify := d.checkEmptyLocked()
	d.mu.Unlock()

	notify()
	return next, ok
}

// Remove drops a queued candidate that has not been passed yet. Removing the
// active candidate exposes the next one, like Advance.
func (d *Deck) Remove(id string) bool {
	d.mu.Lock()
	idx := -1
	for i := d.cursor; i < len(d.items); i++ {
		if d.items[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		d.mu.Unlock()
		return false
	}
	d.items = append(d.items[:idx:idx], d.items[idx+1:]...)
	notify := d.checkEmptyLocked()
	d.mu.Unlock()

	notify()
	return true
}

// VisibleWindow returns the active candidate followed by the upcoming ones,
// at most depth entries.
func (d *Deck) VisibleWindow() []models.Candidate {
	d.mu.Lock()
	defer d.mu.Unlock()
	end := min(d.cursor+d.depth, len(d.items))
	if d.cursor >= end {
		return nil
	}
	out := make([]models.Candidate, end-d.cursor)
	copy(out, d.items[d.cursor:end])
	return out
}

// Remaining counts the active and upcoming candidates.
func (d *Deck) Remaining() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.items) - d.cursor
}

func (d *Deck) checkEmptyLocked() func() {
	if d.cursor < len(d.items) || d.emitted || d.onEmpty == nil {
		return func() {}
	}
	d.emitted = true
	return d.onEmpty
}
