package logging

import (
	"context"
	"log/slog"
	"time"
)

// Poster is the part of *fluent.Fluent the handler uses.
type Poster interface {
	Post(tag string, message any) error
}

// FluentHandler forwards records to a fluent agent as flat maps. Group
// names become dotted key prefixes.
type FluentHandler struct {
	poster Poster
	tag    string
	level  slog.Level
	attrs  []slog.Attr
	group  string
}

// NewFluentHandler creates a handler posting under tag.
func NewFluentHandler(p Poster, tag string, level slog.Level) *FluentHandler {
	return &FluentHandler{poster: p, tag: tag, level: level}
}

func (h *FluentHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *FluentHandler) Handle(_ context.Context, r slog.Record) error {
	msg := map[string]any{
		"time":  r.Time.Format(time.RFC3339Nano),
		"level": r.Level.String(),
		"msg":   r.Message,
	}
	for _, a := range h.attrs {
		addAttr(msg, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		addAttr(msg, h.group, a)
		return true
	})
	return h.poster.Post(h.tag, msg)
}

func addAttr(msg map[string]any, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if prefix != "" {
		key = prefix + "." + key
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			addAttr(msg, key, ga)
		}
		return
	}
	switch v := a.Value.Any().(type) {
	case error:
		msg[key] = v.Error()
	case time.Duration:
		msg[key] = v.String()
	case time.Time:
		msg[key] = v.Format(time.RFC3339Nano)
	default:
		msg[key] = v
	}
}

func (h *FluentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append([]slog.Attr(nil), h.attrs...)
	for _, a := range attrs {
		if h.group != "" {
			a.Key = h.group + "." + a.Key
		}
		clone.attrs = append(clone.attrs, a)
	}
	return &clone
}

func (h *FluentHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	if h.group != "" {
		name = h.group + "." + name
	}
	clone.group = name
	return &clone
}
