package services

import (
	"sync"

	"github.com/dmitrijs2005/matchdeck/internal/client/models"
)

// NoticeBoard collects dismissible notices raised by background work.
type NoticeBoard struct {
	mu       sync.Mutex
	items    []models.Notice
	onNotice func(models.Notice)
}

// NewNoticeBoard returns a board; fn, when not nil, is called for every
// notice as it arrives.
func NewNoticeBoard(fn func(models.Notice)) *NoticeBoard {
	return &NoticeBoard{onNotice: fn}
}

func (b *NoticeBoard) Notify(n models.Notice) {
	b.mu.Lock()
	b.items = append(b.items, n)
	b.mu.Unlock()

	if b.onNotice != nil {
		b.onNotice(n)
	}
}

// Drain returns the outstanding notices and clears them.
func (b *NoticeBoard) Drain() []models.Notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.items
	b.items = nil
	return out
}
