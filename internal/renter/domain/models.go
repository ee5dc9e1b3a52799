package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// User is an account known to the auth gateway. Landlords and tenants are both users.
type User struct {
	ID        snowflake.ID `gorm:"primaryKey;autoIncrement:false"`
	Username  string       `gorm:"type:varchar(150);not null"`
	Email     string       `gorm:"type:varchar(255)"`
	Phone     string       `gorm:"type:varchar(50)"`
	Address   string       `gorm:"type:text"`
	CreatedAt time.Time    `gorm:"not null"`
	UpdatedAt time.Time    `gorm:"not null"`
}

func (User) TableName() string { return "users" }

// Renter links a tenant user to the landlord who manages them.
type Renter struct {
	ID         snowflake.ID `gorm:"primaryKey;autoIncrement:false"`
	UserID     snowflake.ID `gorm:"not null;uniqueIndex"`
	OwnerID    snowflake.ID `gorm:"not null;index"`
	IDDocument string       `gorm:"type:varchar(255)"`
	CreatedAt  time.Time    `gorm:"not null"`
	UpdatedAt  time.Time    `gorm:"not null"`
}

func (Renter) TableName() string { return "renters" }
