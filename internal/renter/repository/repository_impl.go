package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	renterdomain "github.com/smallbiznis/leasehold/internal/renter/domain"
	"github.com/smallbiznis/leasehold/pkg/repository"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() renterdomain.Repository {
	return &repo{}
}

func (r *repo) InsertUser(ctx context.Context, db *gorm.DB, user *renterdomain.User) error {
	return repository.ProvideStore[renterdomain.User](db).Create(ctx, user)
}

func (r *repo) InsertRenter(ctx context.Context, db *gorm.DB, renter *renterdomain.Renter) error {
	return repository.ProvideStore[renterdomain.Renter](db).Create(ctx, renter)
}

func (r *repo) FindUser(ctx context.Context, db *gorm.DB, id snowflake.ID) (*renterdomain.User, error) {
	return repository.ProvideStore[renterdomain.User](db).FindByID(ctx, id)
}

func (r *repo) FindRenter(ctx context.Context, db *gorm.DB, id snowflake.ID) (*renterdomain.Renter, error) {
	return repository.ProvideStore[renterdomain.Renter](db).FindByID(ctx, id)
}
