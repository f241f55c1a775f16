package client

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/matchdeck/internal/client/auth"
	"github.com/dmitrijs2005/matchdeck/internal/common"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoChat upgrades /ws/chat/{id}/ and echoes every text frame back.
func echoChat(t *testing.T, lastPath *string, lastAuth *string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	r := mux.NewRouter()
	r.HandleFunc("/ws/chat/denied/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	r.HandleFunc("/ws/chat/{id}/", func(w http.ResponseWriter, req *http.Request) {
		*lastPath = req.URL.Path
		*lastAuth = req.Header.Get("Authorization")
		c, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			return
		}
		defer c.Close()
		for {
			mt, data, err := c.ReadMessage()
			if err != nil {
				return
			}
			if err := c.WriteMessage(mt, data); err != nil {
				return
			}
		}
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestNewWSDialer_RequiresWebsocketScheme(t *testing.T) {
	_, err := NewWSDialer("http://localhost", auth.NewStaticCredentials("", ""), time.Second)
	require.Error(t, err)
}

func TestWSDialer_RoundTrip(t *testing.T) {
	var path, authz string
	srv := echoChat(t, &path, &authz)

	d, err := NewWSDialer(wsURL(srv), auth.NewStaticCredentials("c", "tok"), 2*time.Second)
	require.NoError(t, err)

	conn, err := d.Dial(context.Background(), "42")
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, "/ws/chat/42/", path)
	assert.Equal(t, "Bearer tok", authz)

	require.NoError(t, conn.WriteFrame([]byte(`{"message":"hi"}`)))
	got, err := conn.ReadFrame()
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"hi"}`, string(got))

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close(), "close is idempotent")
}

func TestWSDialer_Unauthorized(t *testing.T) {
	var path, authz string
	srv := echoChat(t, &path, &authz)

	d, err := NewWSDialer(wsURL(srv), auth.NewStaticCredentials("", ""), 2*time.Second)
	require.NoError(t, err)

	_, err = d.Dial(context.Background(), "denied")
	require.ErrorIs(t, err, common.ErrSessionExpired)
}

func TestWSDialer_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := wsURL(srv)
	srv.Close()

	d, err := NewWSDialer(base, auth.NewStaticCredentials("", ""), time.Second)
	require.NoError(t, err)

	_, err = d.Dial(context.Background(), "1")
	require.ErrorIs(t, err, common.ErrTransport)

	_, err = d.Dial(context.Background(), "")
	require.ErrorIs(t, err, common.ErrValidation)
}

// silentChat upgrades and then never reads, so client writes back up.
func silentChat(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	stop := make(chan struct{})

	r := mux.NewRouter()
	r.HandleFunc("/ws/chat/{id}/", func(w http.ResponseWriter, req *http.Request) {
		c, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			return
		}
		defer c.Close()
		<-stop
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(stop) })
	return srv
}

func TestWSConn_WriteDeadline(t *testing.T) {
	srv := silentChat(t)
	d, err := NewWSDialer(wsURL(srv), auth.NewStaticCredentials("", ""), 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, d.writeTimeout)
	d.writeTimeout = 50 * time.Millisecond

	conn, err := d.Dial(context.Background(), "42")
	require.NoError(t, err)
	defer conn.Close()

	frame := bytes.Repeat([]byte("x"), 1<<20)
	start := time.Now()
	for i := 0; i < 512; i++ {
		if err = conn.WriteFrame(frame); err != nil {
			break
		}
	}
	require.ErrorIs(t, err, common.ErrTransport, "writes to a peer that never reads time out")
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestWSConn_CloseDoesNotWaitForWriter(t *testing.T) {
	srv := silentChat(t)
	d, err := NewWSDialer(wsURL(srv), auth.NewStaticCredentials("", ""), 2*time.Second)
	require.NoError(t, err)

	conn, err := d.Dial(context.Background(), "42")
	require.NoError(t, err)
	ws := conn.(*wsConn)

	// A writer holding the lock stands in for a stalled WriteFrame.
	ws.writeMu.Lock()
	defer ws.writeMu.Unlock()

	done := make(chan struct{})
	go func() {
		_ = conn.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("close waited for the write lock")
	}
}
