package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/leasehold/internal/apperror"
	auditdomain "github.com/smallbiznis/leasehold/internal/audit/domain"
	"github.com/smallbiznis/leasehold/internal/audit/masking"
	"github.com/smallbiznis/leasehold/internal/clock"
	obscontext "github.com/smallbiznis/leasehold/internal/observability/context"
	"github.com/smallbiznis/leasehold/internal/observability/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const maxListLimit = 200

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  auditdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  auditdomain.Repository
}

func New(p Params) auditdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) AuditLog(ctx context.Context, action string, targetType string, targetID *string, metadata map[string]any) error {
	action = strings.TrimSpace(action)
	targetType = strings.TrimSpace(targetType)
	if action == "" || targetType == "" {
		return auditdomain.ErrInvalidAction
	}

	entry := auditdomain.AuditLog{
		ID:         s.genID.Generate(),
		Action:     action,
		TargetType: targetType,
		TargetID:   trimmedPtr(targetID),
		CreatedAt:  s.clock.Now().UTC(),
	}
	if actor := obscontext.ActorFromContext(ctx); actor != "" {
		entry.ActorID = &actor
	}

	meta := masking.MaskFields(metadata)
	if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
		if meta == nil {
			meta = map[string]any{}
		}
		meta["request_id"] = requestID
	}
	if meta != nil {
		entry.Metadata = datatypes.JSONMap(meta)
	}

	ipAddress, userAgent := auditdomain.ClientFromContext(ctx)
	entry.IPAddress = trimmedPtr(&ipAddress)
	entry.UserAgent = trimmedPtr(&userAgent)

	if err := s.repo.Insert(ctx, s.db, &entry); err != nil {
		logger.WithContext(ctx, s.log).Warn("failed to write audit log",
			zap.String("action", action),
			zap.String("target_type", targetType),
			zap.Error(err),
		)
		return apperror.Wrap(err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, req auditdomain.ListAuditLogRequest) ([]auditdomain.AuditLog, error) {
	actor := obscontext.ActorFromContext(ctx)
	if actor == "" {
		return nil, auditdomain.ErrMissingActor
	}

	limit := req.Limit
	if limit > maxListLimit {
		limit = maxListLimit
	}

	items, err := s.repo.List(ctx, s.db, auditdomain.ListFilter{
		ActorID:    actor,
		Action:     req.Action,
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
		Limit:      limit,
	})
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	if items == nil {
		items = []auditdomain.AuditLog{}
	}
	return items, nil
}

func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
