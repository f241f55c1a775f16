// Package chat owns the realtime message exchange of one conversation:
// connection state, ordered local history and the optimistic send protocol.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/matchdeck/internal/client/client"
	"github.com/dmitrijs2005/matchdeck/internal/client/metrics"
	"github.com/dmitrijs2005/matchdeck/internal/client/models"
	"github.com/dmitrijs2005/matchdeck/internal/common"
	"github.com/dmitrijs2005/matchdeck/internal/logging"
)

var (
	ErrNotOpen      = errors.New("chat session is not open")
	ErrAlreadyOpen  = errors.New("chat session already open")
	ErrEmptyMessage = fmt.Errorf("%w: message is empty", common.ErrValidation)
)

type outboundFrame struct {
	Message  string `json:"message"`
	SenderID string `json:"sender_id,omitempty"`
}

type inboundFrame struct {
	SenderID   json.RawMessage `json:"sender_id"`
	SenderName string          `json:"sender_name"`
	Content    *string         `json:"content"`
	Timestamp  string          `json:"timestamp"`
}

// Session is bound to one conversation for its lifetime. It may be opened
// again after a disconnect; history is kept across reconnects.
type Session struct {
	// sendMu orders local sends; the write itself runs without mu held.
	sendMu   sync.Mutex
	mu       sync.Mutex
	state    models.ConnectionState
	conn     client.Conn
	gen      uint64
	messages []models.Message
	seq      int64
	lastErr  error

	conversationID string
	participantID  string
	dialer         client.Dialer

	dedupEchoes     bool
	includeSenderID bool
	onMessage       func(models.Message)
	onState         func(models.ConnectionState)
	logger          logging.Logger
	metrics         *metrics.Metrics
	now             func() time.Time
}

type Option func(*Session)

// WithDedupEchoes makes a self-authored inbound frame confirm the oldest
// optimistic entry with the same content instead of appending a copy.
func WithDedupEchoes(on bool) Option { return func(s *Session) { s.dedupEchoes = on } }

// WithSenderID adds sender_id to outbound frames.
func WithSenderID(on bool) Option { return func(s *Session) { s.includeSenderID = on } }

// WithMessageHandler is called, without the lock held, for every appended message.
func WithMessageHandler(fn func(models.Message)) Option {
	return func(s *Session) { s.onMessage = fn }
}

// WithStateHandler is called, without the lock held, on every state change.
func WithStateHandler(fn func(models.ConnectionState)) Option {
	return func(s *Session) { s.onState = fn }
}

func WithLogger(l logging.Logger) Option    { return func(s *Session) { s.logger = l } }
func WithMetrics(m *metrics.Metrics) Option { return func(s *Session) { s.metrics = m } }
func WithClock(now func() time.Time) Option { return func(s *Session) { s.now = now } }

func NewSession(conversationID, participantID string, dialer client.Dialer, opts ...Option) (*Session, error) {
	if strings.TrimSpace(conversationID) == "" {
		return nil, fmt.Errorf("%w: conversation id is empty", common.ErrValidation)
	}
	if dialer == nil {
		return nil, errors.New("chat: dialer must not be nil")
	}
	s := &Session{
		conversationID: conversationID,
		participantID:  participantID,
		dialer:         dialer,
		logger:         logging.Nop(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("conversation_id", conversationID)
	return s, nil
}

func (s *Session) ConversationID() string { return s.conversationID }

func (s *Session) State() models.ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastError is the error that ended the previous connection, if any.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Messages returns a copy of the history in append order.
func (s *Session) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Preload seeds the history with messages fetched over REST. It is only
// accepted before the first Open, so live frames always follow it. No
// message handler is called for preloaded entries.
func (s *Session) Preload(msgs []models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != 0 {
		return ErrAlreadyOpen
	}
	for _, m := range msgs {
		m.LocalSeq = 0
		m.Optimistic = false
		m.Outgoing = m.SenderID != "" && m.SenderID == s.participantID
		s.messages = append(s.messages, m)
	}
	return nil
}

// Open connects and starts receiving. It is also the explicit reconnect:
// calling it after a disconnect keeps the existing history.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	if s.state == models.Open || s.state == models.Connecting {
		s.mu.Unlock()
		return ErrAlreadyOpen
	}
	s.state = models.Connecting
	s.gen++
	gen := s.gen
	s.mu.Unlock()
	s.emitState(models.Connecting)

	conn, err := s.dialer.Dial(ctx, s.conversationID)

	s.mu.Lock()
	if gen != s.gen {
		// Closed while connecting.
		s.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return ErrNotOpen
	}
	if err != nil {
		s.lastErr = err
		s.state = models.Disconnected
		s.mu.Unlock()
		s.logger.Warn(ctx, "chat connect failed", "error", err)
		s.emitState(models.Errored)
		s.emitState(models.Disconnected)
		return err
	}
	s.conn = conn
	s.state = models.Open
	s.lastErr = nil
	s.mu.Unlock()

	s.logger.Info(ctx, "chat connected")
	s.emitState(models.Open)

	go s.readLoop(conn, gen)
	return nil
}

// Send appends content optimistically and transmits it. Outside Open the
// message is rejected, not queued. If the write fails the entry is removed
// and the connection is treated as lost.
func (s *Session) Send(content string) (models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Message{}, ErrEmptyMessage
	}

	frame := outboundFrame{Message: content}
	if s.includeSenderID {
		frame.SenderID = s.participantID
	}
	payload, err := json.Marshal(frame)
	if err != nil {
		return models.Message{}, fmt.Errorf("encode frame: %w", err)
	}

	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	s.mu.Lock()
	if s.state != models.Open || s.conn == nil {
		s.mu.Unlock()
		return models.Message{}, ErrNotOpen
	}
	conn, gen := s.conn, s.gen
	s.seq++
	msg := models.Message{
		SenderID:   s.participantID,
		Content:    content,
		SentAt:     s.now(),
		LocalSeq:   s.seq,
		Optimistic: true,
		Outgoing:   true,
	}
	s.messages = append(s.messages, msg)
	s.mu.Unlock()

	if err := conn.WriteFrame(payload); err != nil {
		s.mu.Lock()
		s.dropLocalLocked(msg.LocalSeq)
		s.mu.Unlock()
		s.connectionLost(gen, err)
		return models.Message{}, fmt.Errorf("send: %w", err)
	}

	s.metrics.ChatFrame(metrics.DirectionOut)
	s.emitMessage(msg)
	return msg, nil
}

func (s *Session) dropLocalLocked(seq int64) {
	for i := range s.messages {
		if s.messages[i].LocalSeq == seq {
			s.messages = append(s.messages[:i:i], s.messages[i+1:]...)
			return
		}
	}
}

// Close ends the connection. The session can be opened again.
func (s *Session) Close() error {
	s.mu.Lock()
	conn := s.conn
	if conn == nil && s.state != models.Connecting {
		s.state = models.Disconnected
		s.mu.Unlock()
		return nil
	}
	s.state = models.Closing
	s.gen++
	s.conn = nil
	s.mu.Unlock()
	s.emitState(models.Closing)

	var err error
	if conn != nil {
		err = conn.Close()
	}

	s.mu.Lock()
	s.state = models.Disconnected
	s.mu.Unlock()
	s.emitState(models.Disconnected)
	return err
}

func (s *Session) readLoop(conn client.Conn, gen uint64) {
	for {
		data, err := conn.ReadFrame()
		if err != nil {
			s.connectionLost(gen, err)
			return
		}
		s.receive(gen, data)
	}
}

func (s *Session) connectionLost(gen uint64, err error) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	conn := s.conn
	s.conn = nil
	s.lastErr = err
	s.state = models.Disconnected
	s.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	s.logger.Warn(context.Background(), "chat connection lost", "error", err)
	s.emitState(models.Errored)
	s.emitState(models.Disconnected)
}

func (s *Session) receive(gen uint64, data []byte) {
	ctx := context.Background()

	var f inboundFrame
	if err := json.Unmarshal(data, &f); err != nil || f.Content == nil {
		s.logger.Warn(ctx, "skipping malformed chat frame", "frame", truncate(string(data), 200))
		return
	}
	s.metrics.ChatFrame(metrics.DirectionIn)

	senderID := rawID(f.SenderID)
	msg := models.Message{
		SenderID:   senderID,
		SenderName: f.SenderName,
		Content:    *f.Content,
		SentAt:     s.parseTimestamp(f.Timestamp),
		Outgoing:   senderID != "" && senderID == s.participantID,
	}

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	if s.dedupEchoes && msg.Outgoing {
		for i := range s.messages {
			m := &s.messages[i]
			if m.Optimistic && m.Outgoing && m.Content == msg.Content {
				m.Optimistic = false
				if msg.SenderName != "" {
					m.SenderName = msg.SenderName
				}
				s.mu.Unlock()
				return
			}
		}
	}
	s.messages = append(s.messages, msg)
	s.mu.Unlock()

	s.emitMessage(msg)
}

func (s *Session) parseTimestamp(v string) time.Time {
	if t, ok := models.ParseTimestamp(v); ok {
		return t
	}
	return s.now()
}

func (s *Session) emitState(st models.ConnectionState) {
	if s.onState != nil {
		s.onState(st)
	}
}

func (s *Session) emitMessage(m models.Message) {
	if s.onMessage != nil {
		s.onMessage(m)
	}
}

func rawID(raw json.RawMessage) string {
	v := strings.TrimSpace(string(raw))
	if v == "" || v == "null" {
		return ""
	}
	var str string
	if json.Unmarshal(raw, &str) == nil {
		return strings.TrimSpace(str)
	}
	return v
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
