package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Service interface {
	// UpsertRates replaces the unit's full rate set in one transaction.
	UpsertRates(ctx context.Context, req UpsertRatesRequest) ([]RateResponse, error)
	ListRates(ctx context.Context, unitID snowflake.ID) ([]RateResponse, error)

	ListUtilityTypes(ctx context.Context) ([]UtilityType, error)
	CreateUtilityType(ctx context.Context, req CreateUtilityTypeRequest) (*UtilityType, error)

	// ResolveKind finds a utility type by code or numeric id on db, which may be a caller transaction.
	ResolveKind(ctx context.Context, db *gorm.DB, ref string) (*UtilityType, error)
}

// RateInput is one incoming rate. UtilityType is a kind code or a utility type id.
type RateInput struct {
	UtilityType string `json:"utility_type" binding:"required"`
	BillingType string `json:"billing_type" binding:"required"`
	Amount      string `json:"amount"`
}

// UpsertRatesRequest replaces the unit's rate set. A non-zero OwnerID must
// own the unit.
type UpsertRatesRequest struct {
	OwnerID snowflake.ID
	UnitID  snowflake.ID
	Rates   []RateInput
}

type CreateUtilityTypeRequest struct {
	Name string `json:"name" binding:"required"`
	Code string `json:"code"`
}

type RateResponse struct {
	ID            snowflake.ID     `json:"id"`
	UnitID        snowflake.ID     `json:"unit_id"`
	UtilityTypeID snowflake.ID     `json:"utility_type_id"`
	UtilityKind   UtilityKind      `json:"utility_kind"`
	UtilityName   string           `json:"utility_name"`
	BillingType   BillingType      `json:"billing_type"`
	FixedRate     *decimal.Decimal `json:"fixed_rate"`
	UnitRate      *decimal.Decimal `json:"unit_rate"`
	UpdatedAt     time.Time        `json:"updated_at"`
}
