package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertUser(ctx context.Context, db *gorm.DB, user *User) error
	InsertRenter(ctx context.Context, db *gorm.DB, renter *Renter) error
	FindUser(ctx context.Context, db *gorm.DB, id snowflake.ID) (*User, error)
	FindRenter(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Renter, error)
}
