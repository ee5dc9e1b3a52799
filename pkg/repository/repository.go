package repository

import (
	"context"

	"github.com/smallbiznis/leasehold/pkg/db/option"
	"gorm.io/gorm"
)

// Repository is a generic gorm-backed store for simple id lookups.
// Every method runs on the handle passed to WithTrx, or the pool by default.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	FindByID(ctx context.Context, id any, opts ...option.QueryOption) (*T, error)
	FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]T, error)
	Create(ctx context.Context, resource *T) error
	Count(ctx context.Context, query *T) (int64, error)
}
