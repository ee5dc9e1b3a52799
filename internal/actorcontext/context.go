// Package actorcontext carries the authenticated caller resolved by the auth gateway.
package actorcontext

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
)

// UserContextKey is the request context key for the caller's user ID.
type UserContextKey struct{}

// WithUserID stores the caller's user ID in the context.
func WithUserID(ctx context.Context, userID snowflake.ID) context.Context {
	return context.WithValue(ctx, UserContextKey{}, userID)
}

// UserIDFromContext returns the caller's user ID, if set.
func UserIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	if ctx == nil {
		return 0, false
	}

	switch typed := ctx.Value(UserContextKey{}).(type) {
	case snowflake.ID:
		return typed, typed != 0
	case int64:
		return snowflake.ID(typed), typed != 0
	case string:
		parsed, err := ParseUserID(typed)
		if err == nil {
			return parsed, true
		}
	}
	return 0, false
}

// ParseUserID parses a decimal user ID as sent in the X-User-ID header.
func ParseUserID(raw string) (snowflake.ID, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if parsed <= 0 {
		return 0, strconvError(raw)
	}
	return parsed, nil
}

type strconvError string

func (e strconvError) Error() string {
	return "invalid user id " + string(e)
}
