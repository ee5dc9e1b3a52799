package domain

import (
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/leasehold/internal/billingperiod"
	meterdomain "github.com/smallbiznis/leasehold/internal/meter/domain"
	utilitydomain "github.com/smallbiznis/leasehold/internal/utility/domain"
)

// UtilityLine is one utility's contribution to an invoice.
type UtilityLine struct {
	UtilityTypeID   snowflake.ID     `json:"utility_type_id"`
	UtilityKind     string           `json:"utility_kind"`
	UtilityName     string           `json:"utility_name"`
	BillingType     string           `json:"billing_type"`
	FixedRate       *decimal.Decimal `json:"fixed_rate,omitempty"`
	UnitRate        *decimal.Decimal `json:"unit_rate,omitempty"`
	ReadingDate     string           `json:"reading_date,omitempty"`
	PreviousReading *decimal.Decimal `json:"previous_reading,omitempty"`
	CurrentReading  *decimal.Decimal `json:"current_reading,omitempty"`
	Usage           *decimal.Decimal `json:"usage,omitempty"`
	Cost            decimal.Decimal  `json:"cost"`
}

// ChargeInput pairs a unit's billing rule with the latest reading of the
// billed month. Reading is ignored for fixed rules and may be nil.
type ChargeInput struct {
	Rule    utilitydomain.UnitUtility
	Type    *utilitydomain.UtilityType
	Reading *meterdomain.MeterReading
}

// ComputeUtilityCharges prices each rule and returns the lines with their sum.
// Fixed rules cost their fixed rate. Per-unit rules cost usage * unit rate,
// zero without a reading or a rate. Negative usage yields a negative cost.
// Line costs are exact; only the sum is rounded to cents.
func ComputeUtilityCharges(inputs []ChargeInput) ([]UtilityLine, decimal.Decimal) {
	lines := make([]UtilityLine, 0, len(inputs))
	total := decimal.Zero

	for _, in := range inputs {
		line := UtilityLine{
			UtilityTypeID: in.Rule.UtilityTypeID,
			BillingType:   string(in.Rule.BillingType),
			FixedRate:     optional(in.Rule.FixedRate),
			UnitRate:      optional(in.Rule.UnitRate),
			Cost:          decimal.Zero,
		}
		if in.Type != nil {
			line.UtilityKind = string(in.Type.Code)
			line.UtilityName = in.Type.Name
		}

		switch in.Rule.BillingType {
		case utilitydomain.BillingTypeFixed:
			if in.Rule.FixedRate.Valid {
				line.Cost = in.Rule.FixedRate.Decimal
			}
		case utilitydomain.BillingTypePerUnit:
			if in.Reading != nil {
				previous := in.Reading.PreviousReading
				current := in.Reading.CurrentReading
				usage := in.Reading.Usage
				line.ReadingDate = in.Reading.ReadingDate.Format(billingperiod.DateLayout)
				line.PreviousReading = &previous
				line.CurrentReading = &current
				line.Usage = &usage
				if in.Rule.UnitRate.Valid {
					line.Cost = usage.Mul(in.Rule.UnitRate.Decimal)
				}
			}
		}

		total = total.Add(line.Cost)
		lines = append(lines, line)
	}
	return lines, total.Round(2)
}

func optional(v decimal.NullDecimal) *decimal.Decimal {
	if !v.Valid {
		return nil
	}
	d := v.Decimal
	return &d
}
