package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dmitrijs2005/matchdeck/internal/client/client"
	"github.com/dmitrijs2005/matchdeck/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu      sync.Mutex
	Written []string
	done    chan struct{}
	once    sync.Once
}

func (c *fakeConn) ReadFrame() ([]byte, error) {
	<-c.done
	return nil, context.Canceled
}

func (c *fakeConn) WriteFrame(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Written = append(c.Written, string(data))
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

type fakeDialer struct {
	mu                 sync.Mutex
	LastConversationID string
	Dials              int
}

func (d *fakeDialer) Dial(_ context.Context, id string) (client.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Dials++
	d.LastConversationID = id
	return &fakeConn{done: make(chan struct{})}, nil
}

func TestChatService_SwitchingConversationClosesPrevious(t *testing.T) {
	ctx := context.Background()
	d := &fakeDialer{}
	svc := NewChatService(d, nil, "me", nil)

	require.NoError(t, svc.OpenConversation(ctx, "1"))
	first := svc.Current()

	require.NoError(t, svc.OpenConversation(ctx, "2"))
	assert.Equal(t, models.Disconnected, first.State())
	assert.Equal(t, "2", svc.Current().ConversationID())
	assert.Equal(t, 2, d.Dials)
}

func TestChatService_SendReconnectLeave(t *testing.T) {
	ctx := context.Background()
	svc := NewChatService(&fakeDialer{}, nil, "me", nil)

	_, err := svc.Send("hi")
	require.ErrorIs(t, err, ErrNoConversation)
	require.ErrorIs(t, svc.Reconnect(ctx), ErrNoConversation)

	require.NoError(t, svc.OpenConversation(ctx, "42"))
	msg, err := svc.Send("hi")
	require.NoError(t, err)
	assert.Equal(t, int64(1), msg.LocalSeq)

	require.NoError(t, svc.Current().Close())
	require.NoError(t, svc.Reconnect(ctx))
	assert.Len(t, svc.Current().Messages(), 1, "history survives reconnect")

	require.NoError(t, svc.Leave())
	assert.Nil(t, svc.Current())
	require.ErrorIs(t, svc.Leave(), ErrNoConversation)
}

func TestChatService_InvalidConversation(t *testing.T) {
	svc := NewChatService(&fakeDialer{}, nil, "me", nil)
	require.Error(t, svc.OpenConversation(context.Background(), ""))
	assert.Nil(t, svc.Current())
}

type fakeHistory struct {
	Msgs   []models.Message
	Err    error
	LastID string
}

func (h *fakeHistory) Messages(_ context.Context, id string) ([]models.Message, error) {
	h.LastID = id
	return h.Msgs, h.Err
}

func TestChatService_PreloadsHistory(t *testing.T) {
	ctx := context.Background()
	h := &fakeHistory{Msgs: []models.Message{
		{SenderID: "9", Content: "hey"},
		{SenderID: "me", Content: "hi"},
	}}
	svc := NewChatService(&fakeDialer{}, h, "me", nil)

	require.NoError(t, svc.OpenConversation(ctx, "42"))
	assert.Equal(t, "42", h.LastID)
	msgs := svc.Current().Messages()
	require.Len(t, msgs, 2)
	assert.False(t, msgs[0].Outgoing)
	assert.True(t, msgs[1].Outgoing)

	_, err := svc.Send("again")
	require.NoError(t, err)
	assert.Len(t, svc.Current().Messages(), 3)
}

func TestChatService_HistoryFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	h := &fakeHistory{Err: errors.New("boom")}
	svc := NewChatService(&fakeDialer{}, h, "me", nil)

	require.NoError(t, svc.OpenConversation(ctx, "42"))
	assert.Equal(t, models.Open, svc.Current().State())
	assert.Empty(t, svc.Current().Messages())
}

func TestNoticeBoard(t *testing.T) {
	var seen []string
	b := NewNoticeBoard(func(n models.Notice) { seen = append(seen, n.Text) })
	b.Notify(models.Notice{Text: "a"})
	b.Notify(models.Notice{Text: "b"})

	assert.Equal(t, []string{"a", "b"}, seen)
	assert.Len(t, b.Drain(), 2)
	assert.Empty(t, b.Drain())
}
