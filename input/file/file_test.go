package file

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/bee/component"
	"github.com/c360/bee/config"
	"github.com/c360/bee/errors"
	"github.com/c360/bee/pkg/buffer"
)

func drain(ch *buffer.Channel[[]byte]) []string {
	var out []string
	for {
		msg, err := ch.Recv(context.Background())
		if err != nil {
			return out
		}
		out = append(out, string(msg))
	}
}

func TestInput_ReadsLinesToEOF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"n\":1}\r\n\n{\"n\":2}\n   \n{\"n\":3}"), 0o600))

	ch, err := buffer.New[[]byte](8)
	require.NoError(t, err)
	sender, err := ch.Sender()
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Path = path
	require.NoError(t, NewInput(cfg, component.Dependencies{}).Run(context.Background(), sender))
	require.NoError(t, sender.Close())

	assert.Equal(t, []string{`{"n":1}`, `{"n":2}`, `{"n":3}`}, drain(ch))
}

func TestInput_MissingFile(t *testing.T) {
	ch, _ := buffer.New[[]byte](1)
	sender, _ := ch.Sender()

	cfg := DefaultConfig()
	cfg.Path = filepath.Join(t.TempDir(), "nope.log")
	err := NewInput(cfg, component.Dependencies{}).Run(context.Background(), sender)
	assert.True(t, errors.IsOneOf(err, errors.IONotFound), "got %v", err)
}

func TestInput_LineTooLong(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.log")
	require.NoError(t, os.WriteFile(path, []byte("0123456789\n"), 0o600))
	ch, _ := buffer.New[[]byte](1)
	sender, _ := ch.Sender()

	cfg := DefaultConfig()
	cfg.Path = path
	cfg.MaxLineSize = 4
	err := NewInput(cfg, component.Dependencies{}).Run(context.Background(), sender)
	assert.True(t, errors.IsOneOf(err, errors.IOInvalidData), "got %v", err)
}

func TestInput_FollowPicksUpAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tail.log")
	require.NoError(t, os.WriteFile(path, []byte("first\n"), 0o600))

	ch, err := buffer.New[[]byte](8)
	require.NoError(t, err)
	sender, err := ch.Sender()
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Path = path
	cfg.Follow = true
	cfg.PollInterval = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	var runErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		runErr = NewInput(cfg, component.Dependencies{}).Run(ctx, sender)
		_ = sender.Close()
	}()

	first, err := ch.Recv(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "first", string(first))

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600)
	require.NoError(t, err)
	_, err = f.WriteString("sec")
	require.NoError(t, err)
	_, err = f.WriteString("ond\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	recvCtx, recvCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer recvCancel()
	second, err := ch.Recv(recvCtx)
	require.NoError(t, err)
	assert.Equal(t, "second", string(second))

	cancel()
	wg.Wait()
	assert.NoError(t, runErr)
}

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig(config.New(config.Table{"path": "a.log", "follow": true, "poll_interval": "250ms"}))
	require.NoError(t, err)
	assert.Equal(t, "a.log", cfg.Path)
	assert.True(t, cfg.Follow)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval)

	_, err = ParseConfig(config.New(nil))
	assert.True(t, errors.IsOneOf(err, errors.InvalidIndex))

	_, err = ParseConfig(config.New(config.Table{"path": "a.log", "max_line_size": int64(0)}))
	assert.True(t, errors.IsOneOf(err, errors.InvalidParam))
}
