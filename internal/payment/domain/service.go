package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/leasehold/internal/apperror"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*PaymentDetail, error)
	Update(ctx context.Context, req UpdateRequest) (*PaymentDetail, error)
	// Delete removes the payment and every meter reading of its unit dated in the payment's month.
	// A non-zero ownerID must own the payment's unit.
	Delete(ctx context.Context, paymentID, ownerID snowflake.ID) (*PaymentSummary, error)
	List(ctx context.Context, ownerID snowflake.ID) ([]PaymentDetail, error)
}

// ReadingInput is a meter value settled by the payment. Kind is a utility
// type code or id resolved through the rate catalog.
// Usage, when set, replaces the derived consumption.
type ReadingInput struct {
	Kind  string
	Value decimal.Decimal
	Usage *decimal.Decimal
}

// CreateRequest records a payment. When OwnerID is set, the lease's unit
// must belong to that owner.
type CreateRequest struct {
	OwnerID     snowflake.ID
	LeaseID     snowflake.ID
	PaymentDate time.Time
	AmountPaid  decimal.Decimal
	Method      string
	ReceiptURL  string
	Readings    []ReadingInput
}

// UpdateRequest applies only the non-nil fields. Readings are upserted on the
// resulting payment date. When OwnerID is set, both the current and the
// target lease must sit on units of that owner.
type UpdateRequest struct {
	OwnerID     snowflake.ID
	PaymentID   snowflake.ID
	LeaseID     *snowflake.ID
	PaymentDate *time.Time
	AmountPaid  *decimal.Decimal
	Method      *string
	ReceiptURL  *string
	Readings    []ReadingInput
}

type PaymentSummary struct {
	ID          snowflake.ID    `json:"id"`
	LeaseID     snowflake.ID    `json:"lease_id"`
	PaymentDate string          `json:"payment_date"`
	AmountPaid  decimal.Decimal `json:"amount_paid"`
	Method      string          `json:"method"`
	ReceiptURL  string          `json:"receipt_url"`
}

type PaymentDetail struct {
	PaymentSummary
	UnitID       snowflake.ID    `json:"unit_id"`
	UnitNumber   string          `json:"unit_number"`
	PropertyID   snowflake.ID    `json:"property_id"`
	PropertyName string          `json:"property_name"`
	RenterName   string          `json:"renter_name"`
	OwnerName    string          `json:"owner_name"`
	Readings     []ReadingDetail `json:"meter_readings"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// ReadingDetail is a meter reading on the payment date joined with the
// unit's billing rule for that utility, when one exists.
type ReadingDetail struct {
	ID              snowflake.ID     `json:"id"`
	UtilityTypeID   snowflake.ID     `json:"utility_type_id"`
	UtilityKind     string           `json:"utility_kind"`
	ReadingDate     string           `json:"reading_date"`
	PreviousReading decimal.Decimal  `json:"previous_reading"`
	CurrentReading  decimal.Decimal  `json:"current_reading"`
	Usage           decimal.Decimal  `json:"usage"`
	BillingType     string           `json:"billing_type,omitempty"`
	UnitRate        *decimal.Decimal `json:"unit_rate,omitempty"`
	FixedRate       *decimal.Decimal `json:"fixed_rate,omitempty"`
}

var (
	ErrInvalidID           = apperror.BadRequest("invalid_id")
	ErrInvalidAmount       = apperror.BadRequest("invalid_amount")
	ErrInvalidPaymentDate  = apperror.BadRequest("invalid_payment_date")
	ErrLeaseNotFound       = apperror.BadRequest("lease_not_found")
	ErrPaymentNotFound     = apperror.NotFound("payment_not_found")
	ErrPaymentForbidden    = apperror.Unauthorized("payment_forbidden")
	ErrDuplicatePayment    = apperror.Conflict("payment_already_exists")
	ErrReadingKindRejected = apperror.BadRequest("reading_kind_not_accepted")
)
