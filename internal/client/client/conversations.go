package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/matchdeck/internal/client/models"
	"github.com/dmitrijs2005/matchdeck/internal/common"
)

type matchPayload struct {
	ID             flexID       `json:"id"`
	User1          *userPayload `json:"user1"`
	User2          *userPayload `json:"user2"`
	CreatedAt      string       `json:"created_at"`
	ConversationID flexID       `json:"conversation_id"`
}

type messagePayload struct {
	ID        flexID       `json:"id"`
	Sender    *userPayload `json:"sender"`
	Content   string       `json:"content"`
	CreatedAt string       `json:"created_at"`
}

type conversationPayload struct {
	ID           flexID          `json:"id"`
	Participants []userPayload   `json:"participants"`
	UpdatedAt    string          `json:"updated_at"`
	LastMessage  *messagePayload `json:"last_message"`
}

// Matches lists the established matches of the signed-in user.
func (c *HTTPClient) Matches(ctx context.Context) ([]models.Match, error) {
	raw, err := c.getList(ctx, "matches", c.endpoints.Matches)
	if err != nil {
		return nil, err
	}
	items, err := decodeList[matchPayload](raw)
	if err != nil {
		return nil, fmt.Errorf("matches: decode response: %w", err)
	}
	out := make([]models.Match, 0, len(items))
	for _, m := range items {
		match := models.Match{
			ID:             string(m.ID),
			ConversationID: string(m.ConversationID),
		}
		match.CreatedAt, _ = models.ParseTimestamp(m.CreatedAt)
		for _, u := range []*userPayload{m.User1, m.User2} {
			if u != nil {
				match.Participants = append(match.Participants, toParticipant(*u))
			}
		}
		out = append(out, match)
	}
	return out, nil
}

// Conversations lists the conversations of the signed-in user.
func (c *HTTPClient) Conversations(ctx context.Context) ([]models.Conversation, error) {
	raw, err := c.getList(ctx, "conversations", c.endpoints.Conversations)
	if err != nil {
		return nil, err
	}
	items, err := decodeList[conversationPayload](raw)
	if err != nil {
		return nil, fmt.Errorf("conversations: decode response: %w", err)
	}
	out := make([]models.Conversation, 0, len(items))
	for _, p := range items {
		conv := models.Conversation{ID: string(p.ID)}
		conv.UpdatedAt, _ = models.ParseTimestamp(p.UpdatedAt)
		for _, u := range p.Participants {
			conv.Participants = append(conv.Participants, toParticipant(u))
		}
		if p.LastMessage != nil {
			m := toMessage(*p.LastMessage)
			conv.LastMessage = &m
		}
		out = append(out, conv)
	}
	return out, nil
}

// Messages returns the stored history of a conversation, oldest first.
func (c *HTTPClient) Messages(ctx context.Context, conversationID string) ([]models.Message, error) {
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return nil, fmt.Errorf("messages: %w: conversation id is empty", common.ErrValidation)
	}
	raw, err := c.getList(ctx, "messages", expand(c.endpoints.Messages, conversationID))
	if err != nil {
		return nil, err
	}
	items, err := decodeList[messagePayload](raw)
	if err != nil {
		return nil, fmt.Errorf("messages: decode response: %w", err)
	}
	out := make([]models.Message, 0, len(items))
	for _, p := range items {
		out = append(out, toMessage(p))
	}
	return out, nil
}

func (c *HTTPClient) getList(ctx context.Context, op, path string) ([]byte, error) {
	token, err := c.creds.BearerToken()
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, fmt.Errorf("%s: %w: bearer token required", op, common.ErrUnauthorized)
	}

	u := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", op, err)
	}
	c.setHeaders(req, token)

	raw, err := c.doJSONRequest(req, u)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	c.logger.Debug(ctx, "list request completed", "op", op, "bytes", len(raw))
	return raw, nil
}

func toParticipant(u userPayload) models.Participant {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.Username
	}
	return models.Participant{ID: string(u.ID), Name: name}
}

func toMessage(p messagePayload) models.Message {
	m := models.Message{Content: p.Content}
	m.SentAt, _ = models.ParseTimestamp(p.CreatedAt)
	if p.Sender != nil {
		sender := toParticipant(*p.Sender)
		m.SenderID, m.SenderName = sender.ID, sender.Name
	}
	return m
}
