package logging

import (
	"context"
	"errors"
	"log/slog"
)

// FanoutHandler copies each record to the file, OTel and Graylog outputs.
// A failing output does not stop the others; Handle reports every failure.
type FanoutHandler struct {
	outputs []slog.Handler
}

// NewFanoutHandler skips nil outputs, so optional sinks can be passed as is.
func NewFanoutHandler(outputs ...slog.Handler) *FanoutHandler {
	h := &FanoutHandler{}
	for _, o := range outputs {
		if o != nil {
			h.outputs = append(h.outputs, o)
		}
	}
	return h
}

func (h *FanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, o := range h.outputs {
		if o.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *FanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, o := range h.outputs {
		if !o.Enabled(ctx, r.Level) {
			continue
		}
		if err := o.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h *FanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.each(func(o slog.Handler) slog.Handler { return o.WithAttrs(attrs) })
}

func (h *FanoutHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return h.each(func(o slog.Handler) slog.Handler { return o.WithGroup(name) })
}

func (h *FanoutHandler) each(fn func(slog.Handler) slog.Handler) *FanoutHandler {
	out := &FanoutHandler{outputs: make([]slog.Handler, len(h.outputs))}
	for i, o := range h.outputs {
		out.outputs[i] = fn(o)
	}
	return out
}
