package repository

import (
	"context"
	"strings"

	auditdomain "github.com/smallbiznis/leasehold/internal/audit/domain"
	"github.com/smallbiznis/leasehold/pkg/db/option"
	"github.com/smallbiznis/leasehold/pkg/repository"
	"gorm.io/gorm"
)

const defaultListLimit = 50

type repo struct{}

func Provide() auditdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *auditdomain.AuditLog) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO audit_logs (id, actor_id, action, target_type, target_id, metadata, ip_address, user_agent, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.ActorID,
		entry.Action,
		entry.TargetType,
		entry.TargetID,
		entry.Metadata,
		entry.IPAddress,
		entry.UserAgent,
		entry.CreatedAt,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter auditdomain.ListFilter) ([]auditdomain.AuditLog, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := &auditdomain.AuditLog{
		Action:     strings.TrimSpace(filter.Action),
		TargetType: strings.TrimSpace(filter.TargetType),
	}
	if actorID := strings.TrimSpace(filter.ActorID); actorID != "" {
		query.ActorID = &actorID
	}
	if targetID := strings.TrimSpace(filter.TargetID); targetID != "" {
		query.TargetID = &targetID
	}

	return repository.ProvideStore[auditdomain.AuditLog](db).Find(ctx, query,
		option.WithOrderBy("created_at DESC, id DESC"),
		option.WithLimit(limit),
	)
}
