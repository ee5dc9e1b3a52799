package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/leasehold/internal/apperror"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*LeaseResponse, error)
	Update(ctx context.Context, req UpdateRequest) (*LeaseResponse, error)
	Delete(ctx context.Context, leaseID snowflake.ID) error
	Get(ctx context.Context, leaseID, ownerID snowflake.ID) (*LeaseResponse, error)
	List(ctx context.Context, ownerID snowflake.ID) ([]LeaseResponse, error)
	// ListActive lists the owner's active leases, the candidates for invoicing.
	ListActive(ctx context.Context, ownerID snowflake.ID) ([]LeaseResponse, error)
}

// CreateRequest opens a lease. When OwnerID is set, the unit must belong to
// that owner.
type CreateRequest struct {
	OwnerID       snowflake.ID
	UnitID        snowflake.ID
	RenterID      snowflake.ID
	StartDate     time.Time
	EndDate       time.Time
	RentAmount    decimal.Decimal
	DepositAmount *decimal.Decimal
	Status        string
}

// UpdateRequest applies only the non-nil fields. A non-zero OwnerID must own
// the unit the lease ends up on.
type UpdateRequest struct {
	OwnerID       snowflake.ID
	LeaseID       snowflake.ID
	UnitID        *snowflake.ID
	RenterID      *snowflake.ID
	StartDate     *time.Time
	EndDate       *time.Time
	RentAmount    *decimal.Decimal
	DepositAmount *decimal.Decimal
	Status        *string
}

type LeaseResponse struct {
	ID            snowflake.ID     `json:"id"`
	UnitID        snowflake.ID     `json:"unit_id"`
	UnitNumber    string           `json:"unit_number"`
	UnitAvailable bool             `json:"unit_available"`
	PropertyID    snowflake.ID     `json:"property_id"`
	RenterID      snowflake.ID     `json:"renter_id"`
	RenterName    string           `json:"renter_name"`
	StartDate     string           `json:"start_date"`
	EndDate       string           `json:"end_date"`
	RentAmount    decimal.Decimal  `json:"rent_amount"`
	DepositAmount *decimal.Decimal `json:"deposit_amount"`
	Status        string           `json:"status"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

var (
	ErrInvalidID              = apperror.BadRequest("invalid_id")
	ErrInvalidStatus          = apperror.BadRequest("invalid_status")
	ErrInvalidDateRange       = apperror.BadRequest("invalid_date_range")
	ErrInvalidRentAmount      = apperror.BadRequest("invalid_rent_amount")
	ErrLeaseNotFound          = apperror.NotFound("lease_not_found")
	ErrUnitNotFound           = apperror.NotFound("unit_not_found")
	ErrRenterNotFound         = apperror.NotFound("renter_not_found")
	ErrUnitOccupied           = apperror.Conflict("unit_already_leased")
	ErrLeaseHasBillingRecords = apperror.Conflict("lease_has_billing_records")
	ErrLeaseForbidden         = apperror.Unauthorized("lease_forbidden")
)
