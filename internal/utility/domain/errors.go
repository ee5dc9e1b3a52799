package domain

import "github.com/smallbiznis/leasehold/internal/apperror"

var (
	ErrUnitNotFound           = apperror.NotFound("unit_not_found")
	ErrInvalidUnitID          = apperror.BadRequest("invalid_unit_id")
	ErrInvalidAmount          = apperror.BadRequest("invalid_amount")
	ErrInvalidBillingType     = apperror.BadRequest("invalid_billing_type")
	ErrUnknownUtilityType     = apperror.BadRequest("unknown_utility_type")
	ErrInvalidUtilityTypeName = apperror.BadRequest("invalid_utility_type_name")
	ErrDuplicateUtilityType   = apperror.Conflict("duplicate_utility_type")
	ErrUnitForbidden          = apperror.Unauthorized("unit_forbidden")
)
