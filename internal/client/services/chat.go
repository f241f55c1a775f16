package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/matchdeck/internal/client/chat"
	"github.com/dmitrijs2005/matchdeck/internal/client/client"
	"github.com/dmitrijs2005/matchdeck/internal/client/models"
	"github.com/dmitrijs2005/matchdeck/internal/logging"
)

var ErrNoConversation = errors.New("no conversation open")

// ChatService owns the chat session of the conversation on screen. Opening
// another conversation closes the previous session. Stored history is loaded
// before the live connection starts; a failed load is logged and the chat
// opens without it.
type ChatService interface {
	OpenConversation(ctx context.Context, conversationID string) error
	Current() *chat.Session
	Send(content string) (models.Message, error)
	Reconnect(ctx context.Context) error
	Leave() error
}

// HistorySource returns the stored messages of a conversation, oldest first.
type HistorySource interface {
	Messages(ctx context.Context, conversationID string) ([]models.Message, error)
}

type chatService struct {
	mu      sync.Mutex
	current *chat.Session

	dialer        client.Dialer
	history       HistorySource
	participantID string
	sessionOpts   []chat.Option
	logger        logging.Logger
}

// NewChatService builds the service. history may be nil.
func NewChatService(dialer client.Dialer, history HistorySource, participantID string, logger logging.Logger, opts ...chat.Option) ChatService {
	if logger == nil {
		logger = logging.Nop()
	}
	return &chatService{
		dialer:        dialer,
		history:       history,
		participantID: participantID,
		sessionOpts:   opts,
		logger:        logger,
	}
}

func (c *chatService) OpenConversation(ctx context.Context, conversationID string) error {
	s, err := chat.NewSession(conversationID, c.participantID, c.dialer, c.sessionOpts...)
	if err != nil {
		return err
	}

	c.mu.Lock()
	prev := c.current
	c.current = s
	c.mu.Unlock()

	if prev != nil {
		if err := prev.Close(); err != nil {
			c.logger.Warn(ctx, "closing previous conversation failed", "conversation_id", prev.ConversationID(), "error", err)
		}
	}

	if c.history != nil {
		msgs, err := c.history.Messages(ctx, conversationID)
		if err != nil {
			c.logger.Warn(ctx, "loading conversation history failed", "conversation_id", conversationID, "error", err)
		} else if err := s.Preload(msgs); err != nil {
			return err
		}
	}

	if err := s.Open(ctx); err != nil {
		return fmt.Errorf("open conversation %s: %w", conversationID, err)
	}
	return nil
}

func (c *chatService) Current() *chat.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *chatService) Send(content string) (models.Message, error) {
	s := c.Current()
	if s == nil {
		return models.Message{}, ErrNoConversation
	}
	return s.Send(content)
}

// Reconnect re-opens the current session; history is kept.
func (c *chatService) Reconnect(ctx context.Context) error {
	s := c.Current()
	if s == nil {
		return ErrNoConversation
	}
	return s.Open(ctx)
}

// Leave closes the current session and forgets it.
func (c *chatService) Leave() error {
	c.mu.Lock()
	s := c.current
	c.current = nil
	c.mu.Unlock()

	if s == nil {
		return ErrNoConversation
	}
	return s.Close()
}
