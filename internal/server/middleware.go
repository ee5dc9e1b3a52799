package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/leasehold/internal/actorcontext"
	auditdomain "github.com/smallbiznis/leasehold/internal/audit/domain"
)

const (
	HeaderUserID     = "X-User-ID"
	contextUserIDKey = "user_id"
)

// CallerRequired reads the caller resolved by the auth gateway from X-User-ID.
func CallerRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if raw == "" {
			AbortWithError(c, ErrUnauthenticated)
			return
		}
		userID, err := actorcontext.ParseUserID(raw)
		if err != nil {
			AbortWithError(c, ErrUnauthenticated)
			return
		}

		c.Set(contextUserIDKey, userID.String())
		ctx := actorcontext.WithUserID(c.Request.Context(), userID)
		ctx = auditdomain.WithClient(ctx, c.ClientIP(), c.Request.UserAgent())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func callerID(c *gin.Context) snowflake.ID {
	userID, _ := actorcontext.UserIDFromContext(c.Request.Context())
	return userID
}
