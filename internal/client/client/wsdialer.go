package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/matchdeck/internal/client/auth"
	"github.com/dmitrijs2005/matchdeck/internal/common"
	"github.com/gorilla/websocket"
)

const chatPath = "/ws/chat/%s/"

// WSDialer opens one websocket per conversation under wsBase.
type WSDialer struct {
	wsBase       string
	creds        auth.Credentials
	dialer       *websocket.Dialer
	writeTimeout time.Duration
}

// NewWSDialer bounds both the handshake and every frame write by timeout.
func NewWSDialer(wsBase string, creds auth.Credentials, timeout time.Duration) (*WSDialer, error) {
	wsBase = strings.TrimRight(strings.TrimSpace(wsBase), "/")
	if !strings.HasPrefix(wsBase, "ws://") && !strings.HasPrefix(wsBase, "wss://") {
		return nil, fmt.Errorf("client: websocket base %q must use ws:// or wss://", wsBase)
	}
	if creds == nil {
		return nil, errors.New("client: credentials must not be nil")
	}
	return &WSDialer{
		wsBase: wsBase,
		creds:  creds,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: timeout,
		},
		writeTimeout: timeout,
	}, nil
}

// Dial connects to the chat channel of conversationID.
func (d *WSDialer) Dial(ctx context.Context, conversationID string) (Conn, error) {
	if conversationID == "" {
		return nil, fmt.Errorf("dial: %w: conversation id is empty", common.ErrValidation)
	}
	token, err := d.creds.BearerToken()
	if err != nil {
		return nil, err
	}

	h := http.Header{}
	if csrf := d.creds.CSRFToken(); csrf != "" {
		h.Set(common.CSRFHeaderName, csrf)
	}
	if token != "" {
		h.Set(common.AuthorizationHeaderName, "Bearer "+token)
	}

	u := d.wsBase + fmt.Sprintf(chatPath, url.PathEscape(conversationID))
	c, resp, err := d.dialer.DialContext(ctx, u, h)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, common.ErrSessionExpired
		}
		if resp != nil && resp.StatusCode == http.StatusForbidden {
			return nil, fmt.Errorf("dial: %w: status %d", common.ErrUnauthorized, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w: %w", u, common.ErrTransport, err)
	}
	return &wsConn{conn: c, writeTimeout: d.writeTimeout}, nil
}

// wsConn adapts a gorilla connection to Conn. gorilla permits one concurrent
// reader and one concurrent writer; data writes are serialized here. Close
// only uses WriteControl and Close, which gorilla allows alongside a write,
// so it never waits for a stalled WriteFrame.
type wsConn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func (c *wsConn) ReadFrame() ([]byte, error) {
	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if mt == websocket.TextMessage || mt == websocket.BinaryMessage {
			return data, nil
		}
	}
}

func (c *wsConn) WriteFrame(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.writeTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return fmt.Errorf("%w: %w", common.ErrTransport, err)
		}
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("%w: %w", common.ErrTransport, err)
	}
	return nil
}

// Close sends a normal closure and releases the socket. Safe to call twice.
func (c *wsConn) Close() error {
	c.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}
