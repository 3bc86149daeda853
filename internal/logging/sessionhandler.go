package logging

import (
	"context"
	"log/slog"
	"strconv"
)

// PlaybackState is the part of the session status stamped onto every record.
type PlaybackState struct {
	Route string
	Phase string
	Leg   string
	Stop  int
	Stops int
}

// StateSource reports what is playing. ok is false while no route is loaded.
type StateSource func() (state PlaybackState, ok bool)

// SessionHandler tags records with the route, phase and leg being played.
// Records that already carry a route key keep their own value.
type SessionHandler struct {
	inner  slog.Handler
	source StateSource
}

// NewSessionHandler wraps inner. A nil source leaves records untouched.
func NewSessionHandler(inner slog.Handler, source StateSource) *SessionHandler {
	return &SessionHandler{inner: inner, source: source}
}

func (h *SessionHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *SessionHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.source == nil {
		return h.inner.Handle(ctx, r)
	}
	st, ok := h.source()
	if !ok || st.Route == "" {
		return h.inner.Handle(ctx, r)
	}

	hasRoute := false
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "route" {
			hasRoute = true
			return false
		}
		return true
	})

	attrs := make([]slog.Attr, 0, 4)
	if !hasRoute {
		attrs = append(attrs, slog.String("route", st.Route))
	}
	if st.Phase != "" {
		attrs = append(attrs, slog.String("phase", st.Phase))
	}
	if st.Leg != "" {
		attrs = append(attrs, slog.String("leg", st.Leg))
	}
	if st.Stops > 0 {
		attrs = append(attrs, slog.String("stop", strconv.Itoa(st.Stop+1)+"/"+strconv.Itoa(st.Stops)))
	}
	r.AddAttrs(attrs...)
	return h.inner.Handle(ctx, r)
}

func (h *SessionHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &SessionHandler{inner: h.inner.WithAttrs(attrs), source: h.source}
}

func (h *SessionHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &SessionHandler{inner: h.inner.WithGroup(name), source: h.source}
}
