package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/bee/component"
	"github.com/c360/bee/config"
	"github.com/c360/bee/errors"
	"github.com/c360/bee/metric"
	"github.com/c360/bee/pkg/buffer"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

// streamServer replies to the first frame it reads with frames, then closes
// normally. The subscription it read is delivered on subscribed.
func streamServer(t *testing.T, frames []string, subscribed chan<- string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(streamHandler(t, frames, subscribed))
}

func streamHandler(t *testing.T, frames []string, subscribed chan<- string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("Upgrade error: %v", err)
			return
		}
		defer conn.Close()

		if subscribed != nil {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			subscribed <- string(msg)
		}
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"))
		time.Sleep(50 * time.Millisecond)
	})
}

func wsURL(s *httptest.Server) string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func collect(t *testing.T, run func(*buffer.Sender[[]byte]) error) ([]string, error) {
	t.Helper()
	ch, err := buffer.New[[]byte](16)
	require.NoError(t, err)
	sender, err := ch.Sender()
	require.NoError(t, err)

	runErr := run(sender)
	require.NoError(t, sender.Close())

	var got []string
	for {
		msg, err := ch.Recv(context.Background())
		if err != nil {
			break
		}
		got = append(got, string(msg))
	}
	return got, runErr
}

func TestInput_ForwardsFramesAfterSubscribing(t *testing.T) {
	subscribed := make(chan string, 1)
	server := streamServer(t, []string{`{"a":1}`, `{"a":2}`, `{"a":3}`}, subscribed)
	defer server.Close()

	registry := metric.NewMetricsRegistry()
	in := NewInput(Config{
		URI:              wsURL(server),
		Subscribe:        `{"method":"eth_subscribe"}`,
		HandshakeTimeout: time.Second,
		ReadLimit:        1 << 10,
	}, component.Dependencies{MetricsRegistry: registry})

	got, err := collect(t, func(out *buffer.Sender[[]byte]) error {
		return in.Run(context.Background(), out)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{`{"a":1}`, `{"a":2}`, `{"a":3}`}, got)
	assert.Equal(t, `{"method":"eth_subscribe"}`, <-subscribed)
	assert.Equal(t, int64(3), in.Received())
	assert.False(t, in.LastActivity().IsZero())
	assert.Equal(t, 3.0, testutil.ToFloat64(in.metrics.messagesReceived))
	assert.Equal(t, 1.0, testutil.ToFloat64(in.metrics.connectionsTotal))
	assert.Equal(t, 0.0, testutil.ToFloat64(in.metrics.connectionsActive))
}

func TestInput_CancelReturnsNil(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	in := NewInput(Config{URI: wsURL(server), HandshakeTimeout: time.Second, ReadLimit: 1 << 10}, component.Dependencies{})
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	got, err := collect(t, func(out *buffer.Sender[[]byte]) error {
		return in.Run(ctx, out)
	})
	assert.NoError(t, err)
	assert.Empty(t, got)
}

func TestInput_DialFailureIsTransient(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := wsURL(server)
	server.Close()

	in := NewInput(Config{URI: url, HandshakeTimeout: time.Second, ReadLimit: 1 << 10}, component.Dependencies{})
	_, err := collect(t, func(out *buffer.Sender[[]byte]) error {
		return in.Run(context.Background(), out)
	})
	require.Error(t, err)
	assert.True(t, errors.IsIO(err), "got %v", err)
	assert.True(t, errors.IsTransient(err), "got %v", err)
}

func TestInput_RejectedHandshakeIsAuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	in := NewInput(Config{URI: wsURL(server), HandshakeTimeout: time.Second, ReadLimit: 1 << 10}, component.Dependencies{})
	_, err := collect(t, func(out *buffer.Sender[[]byte]) error {
		return in.Run(context.Background(), out)
	})
	assert.True(t, errors.IsInvalidAuth(err), "got %v", err)
	assert.False(t, errors.IsTransient(err))
}

func TestInput_DroppedConnectionIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte("one"))
		_ = conn.UnderlyingConn().Close()
	}))
	defer server.Close()

	in := NewInput(Config{URI: wsURL(server), HandshakeTimeout: time.Second, ReadLimit: 1 << 10}, component.Dependencies{})
	got, err := collect(t, func(out *buffer.Sender[[]byte]) error {
		return in.Run(context.Background(), out)
	})
	assert.Equal(t, []string{"one"}, got)
	assert.True(t, errors.IsTransient(err), "got %v", err)
}

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig(config.New(config.Table{
		"uri":          "wss://node.example/ws",
		"subscribe":    "{}",
		"read_timeout": "30s",
	}))
	require.NoError(t, err)
	assert.Equal(t, "wss://node.example/ws", cfg.URI)
	assert.Equal(t, "{}", cfg.Subscribe)
	assert.Equal(t, 30*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 45*time.Second, cfg.HandshakeTimeout)

	_, err = ParseConfig(config.New(nil))
	assert.True(t, errors.IsOneOf(err, errors.InvalidIndex))

	_, err = ParseConfig(config.New(config.Table{"uri": "http://node.example"}))
	assert.True(t, errors.IsOneOf(err, errors.InvalidURL))
}

func TestRegister(t *testing.T) {
	r := component.NewRegistry()
	require.NoError(t, Register(r))

	src, err := r.NewSource("websocket", config.New(config.Table{"uri": "ws://127.0.0.1:1"}), component.Dependencies{})
	require.NoError(t, err)
	assert.IsType(t, &Input{}, src)
}

func TestCreateInput_TLS(t *testing.T) {
	server := httptest.NewTLSServer(streamHandler(t, []string{"secure"}, nil))
	defer server.Close()
	require.True(t, strings.HasPrefix(wsURL(server), "wss://"))

	src, err := CreateInput(config.New(config.Table{
		"uri":               wsURL(server),
		"handshake_timeout": "1s",
		"tls":               map[string]any{"insecure_skip_verify": true},
	}), component.Dependencies{})
	require.NoError(t, err)
	in := src.(*Input)
	require.NotNil(t, in.dialer.TLSClientConfig)

	got, err := collect(t, func(out *buffer.Sender[[]byte]) error {
		return in.Run(context.Background(), out)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"secure"}, got)

	_, err = CreateInput(config.New(config.Table{
		"uri": wsURL(server),
		"tls": map[string]any{"min_version": "1.0"},
	}), component.Dependencies{})
	assert.True(t, errors.IsOneOf(err, errors.InvalidParam), "got %v", err)
}
