package udp

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/bee/component"
	"github.com/c360/bee/config"
	"github.com/c360/bee/errors"
	"github.com/c360/bee/metric"
	"github.com/c360/bee/pkg/buffer"
)

func localConfig() Config {
	cfg := DefaultConfig()
	cfg.Bind = "127.0.0.1"
	cfg.ReadBuffer = 0
	return cfg
}

// start runs in on a fresh channel and waits until the socket is bound.
func start(t *testing.T, in *Input) (*buffer.Channel[[]byte], context.CancelFunc, <-chan error) {
	t.Helper()
	ch, err := buffer.New[[]byte](16)
	require.NoError(t, err)
	sender, err := ch.Sender()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- in.Run(ctx, sender)
		_ = sender.Close()
	}()

	require.Eventually(t, func() bool { return in.Addr() != nil }, 2*time.Second, 5*time.Millisecond)
	return ch, cancel, done
}

func send(t *testing.T, addr net.Addr, payloads ...string) {
	t.Helper()
	conn, err := net.Dial("udp", addr.String())
	require.NoError(t, err)
	defer conn.Close()
	for _, p := range payloads {
		_, err := conn.Write([]byte(p))
		require.NoError(t, err)
	}
}

func recv(t *testing.T, ch *buffer.Channel[[]byte]) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	msg, err := ch.Recv(ctx)
	require.NoError(t, err)
	return string(msg)
}

func TestInput_ForwardsDatagrams(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	in := NewInput(localConfig(), component.Dependencies{MetricsRegistry: registry})
	ch, cancel, done := start(t, in)

	send(t, in.Addr(), `{"n":1}`, `{"n":2}`)
	assert.Equal(t, `{"n":1}`, recv(t, ch))
	assert.Equal(t, `{"n":2}`, recv(t, ch))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	assert.Equal(t, int64(2), in.Received())
	assert.Equal(t, 2.0, testutil.ToFloat64(in.metrics.packetsReceived))
	assert.Equal(t, 14.0, testutil.ToFloat64(in.metrics.bytesReceived))
}

func TestInput_DropsOversizedDatagrams(t *testing.T) {
	cfg := localConfig()
	cfg.MaxPacket = 8
	in := NewInput(cfg, component.Dependencies{})
	ch, cancel, done := start(t, in)
	defer func() {
		cancel()
		<-done
	}()

	send(t, in.Addr(), strings.Repeat("x", 9), "fits")
	assert.Equal(t, "fits", recv(t, ch))
	assert.Equal(t, int64(1), in.Dropped())
}

func TestInput_PortInUse(t *testing.T) {
	first := NewInput(localConfig(), component.Dependencies{})
	_, cancel, done := start(t, first)
	defer func() {
		cancel()
		<-done
	}()

	cfg := localConfig()
	cfg.Port = first.Addr().(*net.UDPAddr).Port
	second := NewInput(cfg, component.Dependencies{})

	ch, err := buffer.New[[]byte](1)
	require.NoError(t, err)
	sender, err := ch.Sender()
	require.NoError(t, err)
	err = second.Run(context.Background(), sender)
	require.Error(t, err)
	assert.True(t, errors.IsAddrInUse(err), "got %v", err)
}

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig(config.New(config.Table{"port": int64(5140), "bind": "127.0.0.1"}))
	require.NoError(t, err)
	assert.Equal(t, 5140, cfg.Port)
	assert.Equal(t, "127.0.0.1", cfg.Bind)
	assert.Equal(t, 65535, cfg.MaxPacket)

	tests := []struct {
		name     string
		table    config.Table
		wantCode errors.Code
	}{
		{"missing port", config.Table{}, errors.InvalidIndex},
		{"port out of range", config.Table{"port": int64(70000)}, errors.InvalidParam},
		{"bind is not an IP", config.Table{"port": int64(1), "bind": "localhost"}, errors.InvalidParam},
		{"zero max packet", config.Table{"port": int64(1), "max_packet": int64(0)}, errors.InvalidParam},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig(config.New(tt.table))
			assert.True(t, errors.IsOneOf(err, tt.wantCode), "got %v", err)
		})
	}
}

func TestRegister(t *testing.T) {
	r := component.NewRegistry()
	require.NoError(t, Register(r))
	src, err := r.NewSource("udp", config.New(config.Table{"port": int64(0)}), component.Dependencies{})
	require.NoError(t, err)
	assert.IsType(t, &Input{}, src)
}
