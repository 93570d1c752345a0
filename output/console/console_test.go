package console

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/bee/component"
	"github.com/c360/bee/config"
	beeerrors "github.com/c360/bee/errors"
	"github.com/c360/bee/event"
	"github.com/c360/bee/value"
)

func sample() event.Event {
	return event.New().
		Set("address", value.String("0xabc")).
		Set("block_number", value.Integer(7)).
		Set("removed", value.Boolean(false))
}

func TestSink_JSON(t *testing.T) {
	var buf bytes.Buffer
	s, err := New(&buf, FormatJSON)
	require.NoError(t, err)

	require.NoError(t, s.Write(context.Background(), sample()))
	assert.Equal(t, `{"address":"0xabc","block_number":7,"removed":false}`+"\n", buf.String())
	assert.Equal(t, int64(1), s.Written())
}

func TestSink_Text(t *testing.T) {
	var buf bytes.Buffer
	s, err := New(&buf, FormatText)
	require.NoError(t, err)

	require.NoError(t, s.Write(context.Background(), sample()))
	assert.Equal(t, `address="0xabc" block_number=7 removed=false`+"\n", buf.String())
}

func TestSink_ConcurrentLinesDoNotInterleave(t *testing.T) {
	var buf bytes.Buffer
	s, err := New(&buf, FormatJSON)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = s.Write(context.Background(), sample())
			}
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 400)
	for _, line := range lines {
		assert.Equal(t, `{"address":"0xabc","block_number":7,"removed":false}`, line)
	}
}

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("closed pipe") }

func TestSink_WriteError(t *testing.T) {
	s, err := New(brokenWriter{}, FormatJSON)
	require.NoError(t, err)
	assert.Error(t, s.Write(context.Background(), sample()))
	assert.Zero(t, s.Written())
}

func TestCreateSink(t *testing.T) {
	_, err := New(&bytes.Buffer{}, "xml")
	assert.True(t, beeerrors.IsOneOf(err, beeerrors.InvalidParam))

	_, err = CreateSink(config.New(config.Table{"stream": "printer"}), component.Dependencies{})
	assert.True(t, beeerrors.IsOneOf(err, beeerrors.InvalidParam))

	r := component.NewRegistry()
	require.NoError(t, Register(r))
	sink, err := r.NewSink("console", config.New(config.Table{"format": "text"}), component.Dependencies{})
	require.NoError(t, err)
	assert.IsType(t, &Sink{}, sink)
}
