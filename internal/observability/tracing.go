package observability

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Span times one unit of work, such as a request or a forecast fit. Spans
// nest through the context and are emitted through slog, not exported.
type Span struct {
	TraceID   string
	SpanID    string
	ParentID  string
	Operation string
	Start     time.Time
	Duration  time.Duration
	Err       error

	attrs []slog.Attr
	ended bool
}

type spanContextKey struct{}

// StartSpan opens a span under the one already in ctx, if any.
func StartSpan(ctx context.Context, operation string) (context.Context, *Span) {
	span := &Span{
		SpanID:    newID(),
		Operation: operation,
		Start:     time.Now(),
	}

	if parent := SpanFromContext(ctx); parent != nil {
		span.TraceID = parent.TraceID
		span.ParentID = parent.SpanID
	} else {
		span.TraceID = newID()
	}

	return context.WithValue(ctx, spanContextKey{}, span), span
}

func SpanFromContext(ctx context.Context) *Span {
	if span, ok := ctx.Value(spanContextKey{}).(*Span); ok {
		return span
	}
	return nil
}

// SetAttr records a key/value that is logged with the span. A later value
// for the same key replaces the earlier one.
func (s *Span) SetAttr(key string, value any) {
	for i := range s.attrs {
		if s.attrs[i].Key == key {
			s.attrs[i] = slog.Any(key, value)
			return
		}
	}
	s.attrs = append(s.attrs, slog.Any(key, value))
}

// End stops the clock and records err. Only the first call has any effect.
func (s *Span) End(err error) {
	if s.ended {
		return
	}
	s.ended = true
	s.Duration = time.Since(s.Start)
	s.Err = err
}

func (s *Span) Failed() bool { return s.Err != nil }

// LogValue lets spans be passed straight to slog.
func (s *Span) LogValue() slog.Value {
	status := "OK"
	if s.Failed() {
		status = "ERROR"
	}

	attrs := make([]slog.Attr, 0, len(s.attrs)+7)
	attrs = append(attrs,
		slog.String("trace_id", s.TraceID),
		slog.String("span_id", s.SpanID),
		slog.String("operation", s.Operation),
		slog.String("status", status),
	)
	if s.ParentID != "" {
		attrs = append(attrs, slog.String("parent_id", s.ParentID))
	}
	if s.ended {
		attrs = append(attrs, slog.Duration("duration", s.Duration))
	}
	if s.Err != nil {
		attrs = append(attrs, slog.String("error", s.Err.Error()))
	}
	attrs = append(attrs, s.attrs...)
	return slog.GroupValue(attrs...)
}

// newID returns 16 hex characters.
func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}
