package domain

import (
	"context"

	"github.com/smallbiznis/leasehold/internal/apperror"
)

type Service interface {
	// AuditLog records action on the target for the caller found in ctx.
	AuditLog(ctx context.Context, action string, targetType string, targetID *string, metadata map[string]any) error
	// List returns the caller's own entries, newest first.
	List(ctx context.Context, req ListAuditLogRequest) ([]AuditLog, error)
}

type ListAuditLogRequest struct {
	Action     string
	TargetType string
	TargetID   string
	Limit      int
}

var (
	ErrInvalidAction = apperror.BadRequest("invalid_action")
	ErrMissingActor  = apperror.Unauthorized("missing_actor")
)
