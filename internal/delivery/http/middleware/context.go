package middleware

import (
	"context"

	"conferencehub/internal/domain"
)

type contextKey string

const (
	userKey       contextKey = "user"
	conferenceKey contextKey = "conference"
	createdKey    contextKey = "created"
)

// SetUser returns a context with the authenticated user attached. The
// membership reconciliation stage overwrites this slot with the resolved
// member form of the same identity.
func SetUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the authenticated user, if present.
func UserFromContext(ctx context.Context) (*domain.User, bool) {
	u, ok := ctx.Value(userKey).(*domain.User)
	return u, ok && u != nil
}

// SetConference returns a context with the conference attached. Passing nil
// clears the slot: downstream stages observe the conference as absent.
func SetConference(ctx context.Context, conference *domain.Conference) context.Context {
	return context.WithValue(ctx, conferenceKey, conference)
}

// ConferenceFromContext returns the attached conference, if present.
func ConferenceFromContext(ctx context.Context) (*domain.Conference, bool) {
	c, ok := ctx.Value(conferenceKey).(*domain.Conference)
	return c, ok && c != nil
}

// SetCreated marks the request as having created its conference.
func SetCreated(ctx context.Context, created bool) context.Context {
	return context.WithValue(ctx, createdKey, created)
}

// CreatedFromContext reports whether this request created its conference.
func CreatedFromContext(ctx context.Context) bool {
	created, ok := ctx.Value(createdKey).(bool)
	return ok && created
}
