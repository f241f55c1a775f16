package chat

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/dmitrijs2005/matchdeck/internal/client/client"
)

type fakeConn struct {
	mu       sync.Mutex
	Written  [][]byte
	WriteErr error
	Closed   bool

	frames chan []byte
	fail   chan error
	done   chan struct{}
	once   sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		frames: make(chan []byte, 16),
		fail:   make(chan error, 1),
		done:   make(chan struct{}),
	}
}

func (c *fakeConn) ReadFrame() ([]byte, error) {
	select {
	case f := <-c.frames:
		return f, nil
	case err := <-c.fail:
		return nil, err
	case <-c.done:
		return nil, io.EOF
	}
}

func (c *fakeConn) WriteFrame(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.WriteErr != nil {
		return c.WriteErr
	}
	c.Written = append(c.Written, append([]byte(nil), data...))
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() {
		c.mu.Lock()
		c.Closed = true
		c.mu.Unlock()
		close(c.done)
	})
	return nil
}

func (c *fakeConn) written() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.Written))
	for _, w := range c.Written {
		out = append(out, string(w))
	}
	return out
}

func (c *fakeConn) setWriteErr(err error) {
	c.mu.Lock()
	c.WriteErr = err
	c.mu.Unlock()
}

type fakeDialer struct {
	mu                 sync.Mutex
	LastConversationID string
	Dials              int
	Err                error
	conns              []*fakeConn
}

func (d *fakeDialer) Dial(_ context.Context, conversationID string) (client.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Dials++
	d.LastConversationID = conversationID
	if d.Err != nil {
		return nil, d.Err
	}
	c := newFakeConn()
	d.conns = append(d.conns, c)
	return c, nil
}

func (d *fakeDialer) last() *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

var errDropped = errors.New("connection reset by peer")

// stallConn accepts no writes: WriteFrame blocks until Close.
type stallConn struct {
	writing chan struct{}
	done    chan struct{}
	once    sync.Once
}

func newStallConn() *stallConn {
	return &stallConn{writing: make(chan struct{}, 1), done: make(chan struct{})}
}

func (c *stallConn) ReadFrame() ([]byte, error) {
	<-c.done
	return nil, io.EOF
}

func (c *stallConn) WriteFrame([]byte) error {
	select {
	case c.writing <- struct{}{}:
	default:
	}
	<-c.done
	return errors.New("use of closed network connection")
}

func (c *stallConn) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

type stallDialer struct {
	conn *stallConn
}

func (d *stallDialer) Dial(context.Context, string) (client.Conn, error) {
	return d.conn, nil
}
