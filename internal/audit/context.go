package audit

import (
	"context"
	"strings"

	"clinicdesk.org/internal/auth"
)

// Origin describes where a request came from.
type Origin struct {
	IPAddress string
	UserAgent string
	RequestID string
}

type originContextKey struct{}

// WithOrigin attaches request origin details to the context for audit entries.
func WithOrigin(ctx context.Context, o Origin) context.Context {
	o.IPAddress = strings.TrimSpace(o.IPAddress)
	o.UserAgent = strings.TrimSpace(o.UserAgent)
	o.RequestID = strings.TrimSpace(o.RequestID)
	return context.WithValue(ctx, originContextKey{}, o)
}

// OriginFromContext returns the origin stored by WithOrigin, if any.
func OriginFromContext(ctx context.Context) Origin {
	if ctx == nil {
		return Origin{}
	}
	o, _ := ctx.Value(originContextKey{}).(Origin)
	return o
}

// NewEvent builds an Event with actor and origin taken from ctx.
func NewEvent(ctx context.Context, action Action, entityType string, entityID int64, payload any) Event {
	o := OriginFromContext(ctx)
	ev := Event{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Payload:    payload,
		IPAddress:  o.IPAddress,
		UserAgent:  o.UserAgent,
		RequestID:  o.RequestID,
	}
	if id, ok := auth.IdentityFromContext(ctx); ok && id.ID > 0 {
		actor := id.ID
		ev.ActorID = &actor
	}
	return ev
}
