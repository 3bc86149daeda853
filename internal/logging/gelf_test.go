package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gelfSpy struct {
	msgs []*gelf.Message
	err  error
}

func (s *gelfSpy) WriteMessage(m *gelf.Message) error {
	s.msgs = append(s.msgs, m)
	return s.err
}

func TestGelfHandler_Fields(t *testing.T) {
	spy := &gelfSpy{}
	logger := slog.New(NewGelfHandler(spy, slog.LevelInfo)).With("session", "s1")

	logger.Warn("segment completed", "index", 2, "error", errors.New("boom"))

	require.Len(t, spy.msgs, 1)
	m := spy.msgs[0]
	assert.Equal(t, "1.1", m.Version)
	assert.Equal(t, "segment completed", m.Short)
	assert.Equal(t, gelfWarning, m.Level)
	assert.Equal(t, "s1", m.Extra["_session"])
	assert.Equal(t, int64(2), m.Extra["_index"])
	assert.Equal(t, "boom", m.Extra["_error"])
	assert.InDelta(t, float64(time.Now().Unix()), m.TimeUnix, 5)
}

func TestGelfHandler_Groups(t *testing.T) {
	spy := &gelfSpy{}
	logger := slog.New(NewGelfHandler(spy, slog.LevelDebug)).WithGroup("marker").With("id", "m1")

	logger.Debug("moved", slog.Group("pos", "lat", -23.0))

	require.Len(t, spy.msgs, 1)
	assert.Equal(t, "m1", spy.msgs[0].Extra["_marker.id"])
	assert.Equal(t, -23.0, spy.msgs[0].Extra["_marker.pos.lat"])
	assert.Equal(t, gelfDebug, spy.msgs[0].Level)
}

func TestGelfHandler_LevelFilter(t *testing.T) {
	spy := &gelfSpy{}
	logger := slog.New(NewGelfHandler(spy, slog.LevelWarn))

	logger.Info("dropped")
	logger.Error("kept")

	require.Len(t, spy.msgs, 1)
	assert.Equal(t, gelfError, spy.msgs[0].Level)
}

func TestGelfHandler_MultilineMessage(t *testing.T) {
	spy := &gelfSpy{}
	slog.New(NewGelfHandler(spy, slog.LevelInfo)).Info("first line\nsecond line")

	require.Len(t, spy.msgs, 1)
	assert.Equal(t, "first line", spy.msgs[0].Short)
	assert.Equal(t, "first line\nsecond line", spy.msgs[0].Full)
}

func TestSetup_WithGraylog(t *testing.T) {
	spy := &gelfSpy{}
	var buf bytes.Buffer
	m := NewSlogManager()
	m.Setup(Options{File: &buf, Level: "info", Graylog: spy})

	m.Logger().Info("to both")
	assert.Contains(t, buf.String(), "to both")
	require.NotEmpty(t, spy.msgs)
	assert.Equal(t, "to both", spy.msgs[len(spy.msgs)-1].Short)
}

func TestSetup_WithContext(t *testing.T) {
	var buf bytes.Buffer
	route := "01-1-123456"
	m := NewSlogManager()
	m.Setup(Options{File: &buf, Level: "info", Playback: func() (PlaybackState, bool) {
		return PlaybackState{Route: route}, true
	}})

	m.Logger().Info("tick")
	assert.Contains(t, buf.String(), "route=01-1-123456")

	route = "02-1-9"
	m.Logger().With("k", "v").Info("tock")
	assert.Contains(t, buf.String(), "route=02-1-9")
	assert.Contains(t, buf.String(), "k=v")
}
