package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/Graylog2/go-gelf/gelf"
)

// syslog severities used by GELF
const (
	gelfError   int32 = 3
	gelfWarning int32 = 4
	gelfInfo    int32 = 6
	gelfDebug   int32 = 7
)

// GelfWriter sends one GELF message. *gelf.Writer implements it.
type GelfWriter interface {
	WriteMessage(m *gelf.Message) error
}

// DialGraylog opens a UDP GELF writer to addr.
func DialGraylog(addr string) (*gelf.Writer, error) {
	w, err := gelf.NewWriter(addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to graylog at %s: %w", addr, err)
	}
	w.Facility = "routeplay"
	return w, nil
}

// GelfHandler is a slog.Handler that ships records to Graylog. Attributes
// become GELF additional fields, with groups joined by dots.
type GelfHandler struct {
	w      GelfWriter
	level  slog.Leveler
	host   string
	attrs  []slog.Attr
	prefix string
}

// NewGelfHandler creates a handler writing records at or above level to w.
func NewGelfHandler(w GelfWriter, level slog.Leveler) *GelfHandler {
	host, _ := os.Hostname()
	return &GelfHandler{w: w, level: level, host: host}
}

func (h *GelfHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *GelfHandler) Handle(_ context.Context, r slog.Record) error {
	extra := make(map[string]any, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		addField(extra, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		addField(extra, h.prefix, a)
		return true
	})

	short, full := r.Message, ""
	if i := strings.IndexByte(short, '\n'); i >= 0 {
		short, full = short[:i], short
	}

	return h.w.WriteMessage(&gelf.Message{
		Version:  "1.1",
		Host:     h.host,
		Short:    short,
		Full:     full,
		TimeUnix: float64(r.Time.UnixNano()) / 1e9,
		Level:    gelfLevel(r.Level),
		Extra:    extra,
	})
}

func (h *GelfHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := *h
	out.attrs = append([]slog.Attr(nil), h.attrs...)
	for _, a := range attrs {
		if h.prefix != "" {
			a.Key = h.prefix + a.Key
		}
		out.attrs = append(out.attrs, a)
	}
	return &out
}

func (h *GelfHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	out := *h
	out.prefix = h.prefix + name + "."
	return &out
}

func addField(extra map[string]any, prefix string, a slog.Attr) {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		for _, ga := range v.Group() {
			addField(extra, prefix+a.Key+".", ga)
		}
		return
	}
	if a.Key == "" {
		return
	}
	if v.Kind() == slog.KindAny {
		if err, ok := v.Any().(error); ok {
			extra["_"+prefix+a.Key] = err.Error()
			return
		}
	}
	extra["_"+prefix+a.Key] = v.Any()
}

func gelfLevel(l slog.Level) int32 {
	switch {
	case l >= slog.LevelError:
		return gelfError
	case l >= slog.LevelWarn:
		return gelfWarning
	case l >= slog.LevelInfo:
		return gelfInfo
	default:
		return gelfDebug
	}
}
