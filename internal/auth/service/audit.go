package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// AuditEvent records one authorization decision.
type AuditEvent struct {
	ID            string
	Time          time.Time
	Subject       string
	HeldRoles     []string
	RequiredRoles []string
	Route         string
	Decision      string // "allow" or "deny"
	Reason        string
}

// AuditSink receives authorization decisions. Implementations must be cheap
// and non-blocking; the engine swallows sink panics so a broken sink can
// never fail the authorization call itself.
type AuditSink interface {
	Log(event AuditEvent)
}

// slogSink writes audit events to a structured logger.
type slogSink struct {
	logger *slog.Logger
}

// NewSlogAuditSink returns an AuditSink backed by the given logger.
func NewSlogAuditSink(logger *slog.Logger) AuditSink {
	return &slogSink{logger: logger}
}

func (s *slogSink) Log(event AuditEvent) {
	s.logger.Info("authorization decision",
		slog.String("event_id", event.ID),
		slog.Time("time", event.Time),
		slog.String("subject", event.Subject),
		slog.Any("held_roles", event.HeldRoles),
		slog.Any("required_roles", event.RequiredRoles),
		slog.String("route", event.Route),
		slog.String("decision", event.Decision),
		slog.String("reason", event.Reason),
	)
}

func newAuditEvent(subject string, held, required []string, route, decision, reason string) AuditEvent {
	return AuditEvent{
		ID:            uuid.NewString(),
		Time:          time.Now().UTC(),
		Subject:       subject,
		HeldRoles:     held,
		RequiredRoles: required,
		Route:         route,
		Decision:      decision,
		Reason:        reason,
	}
}

type routeKey struct{}

// WithRoute tags the context with the route being authorized so audit events
// can attribute the decision.
func WithRoute(ctx context.Context, route string) context.Context {
	return context.WithValue(ctx, routeKey{}, route)
}

func routeFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(routeKey{}).(string); ok {
		return v
	}
	return ""
}
