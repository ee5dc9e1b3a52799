package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/leasehold/internal/audit/domain"
	"github.com/smallbiznis/leasehold/internal/observability/logger"
	"go.uber.org/zap"
)

// recordAudit writes an audit entry for a completed mutation. Failures are
// logged and never change the response.
func (s *Server) recordAudit(c *gin.Context, action, targetType string, targetID snowflake.ID, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	var target *string
	if targetID != 0 {
		id := targetID.String()
		target = &id
	}
	ctx := c.Request.Context()
	if err := s.auditSvc.AuditLog(ctx, action, targetType, target, metadata); err != nil {
		logger.WithContext(ctx, s.log).Warn("audit log dropped",
			zap.String("action", action),
			zap.Error(err),
		)
	}
}

func (s *Server) ListAuditLogs(c *gin.Context) {
	if s.auditSvc == nil {
		c.JSON(http.StatusOK, gin.H{"data": []auditdomain.AuditLog{}})
		return
	}

	req := auditdomain.ListAuditLogRequest{
		Action:     strings.TrimSpace(c.Query("action")),
		TargetType: strings.TrimSpace(c.Query("target_type")),
		TargetID:   strings.TrimSpace(c.Query("target_id")),
	}
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			AbortWithError(c, newValidationError("limit", "invalid_limit", "limit must be a positive integer"))
			return
		}
		req.Limit = limit
	}

	resp, err := s.auditSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
