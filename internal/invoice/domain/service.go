package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/leasehold/internal/apperror"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*InvoiceDetail, error)
	Update(ctx context.Context, req UpdateRequest) (*InvoiceDetail, error)
	List(ctx context.Context, userID snowflake.ID) ([]InvoiceSummary, error)
	GetByID(ctx context.Context, invoiceID, userID snowflake.ID) (*InvoiceDetail, error)
	Delete(ctx context.Context, invoiceID, ownerID snowflake.ID) error
	RenderPDF(ctx context.Context, invoiceID, userID snowflake.ID) (*RenderedInvoice, error)
}

// Renderer turns an invoice detail into a printable document.
type Renderer interface {
	Render(ctx context.Context, detail InvoiceDetail, opts RenderOptions) ([]byte, error)
}

type RenderOptions struct {
	CurrencyLabel string
	GeneratedAt   time.Time
}

type CreateRequest struct {
	LeaseID snowflake.ID
	Month   time.Time
	OwnerID snowflake.ID
}

// UpdateRequest applies non-nil fields as overrides. With Recompute set, rent,
// utility, total and status are derived again from the rates, readings and
// payment of the resulting month instead.
type UpdateRequest struct {
	InvoiceID snowflake.ID
	OwnerID   snowflake.ID
	LeaseID   *snowflake.ID
	Month     *time.Time
	Rent      *decimal.Decimal
	Utility   *decimal.Decimal
	Total     *decimal.Decimal
	Status    *string
	Recompute bool
}

type InvoiceSummary struct {
	ID         snowflake.ID    `json:"id"`
	LeaseID    snowflake.ID    `json:"lease_id"`
	Month      string          `json:"month"`
	Period     string          `json:"period"`
	Rent       decimal.Decimal `json:"rent"`
	Utility    decimal.Decimal `json:"utility"`
	Total      decimal.Decimal `json:"total"`
	Status     string          `json:"status"`
	UnitID     snowflake.ID    `json:"unit_id"`
	UnitNumber string          `json:"unit_number"`
	RenterName string          `json:"renter_name"`
	Utilities  []UtilityLine   `json:"utilities"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

type PropertyInfo struct {
	ID      snowflake.ID `json:"id"`
	Name    string       `json:"name"`
	Address string       `json:"address"`
	City    string       `json:"city"`
}

type Party struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type InvoiceDetail struct {
	InvoiceSummary
	LeaseStartDate string          `json:"lease_start_date"`
	LeaseEndDate   string          `json:"lease_end_date"`
	LeaseRent      decimal.Decimal `json:"lease_rent_amount"`
	Property       *PropertyInfo   `json:"property,omitempty"`
	Tenant         *Party          `json:"tenant,omitempty"`
	Landlord       *Party          `json:"landlord,omitempty"`
}

type RenderedInvoice struct {
	FileName    string
	ContentType string
	Content     []byte
}

var (
	ErrInvalidID        = apperror.BadRequest("invalid_id")
	ErrInvalidMonth     = apperror.BadRequest("invalid_month")
	ErrInvalidStatus    = apperror.BadRequest("invalid_invoice_status")
	ErrLeaseNotActive   = apperror.BadRequest("lease_not_active")
	ErrLeaseNotFound    = apperror.NotFound("lease_not_found")
	ErrInvoiceNotFound  = apperror.NotFound("invoice_not_found")
	ErrInvoiceForbidden = apperror.Unauthorized("invoice_forbidden")
	ErrDuplicateInvoice = apperror.Conflict("invoice_already_exists")
)
