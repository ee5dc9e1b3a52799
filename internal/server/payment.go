package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	paymentdomain "github.com/smallbiznis/leasehold/internal/payment/domain"
	utilitydomain "github.com/smallbiznis/leasehold/internal/utility/domain"
)

type readingRequest struct {
	UtilityType string           `json:"utility_type" binding:"required"`
	Value       decimal.Decimal  `json:"value"`
	Usage       *decimal.Decimal `json:"usage"`
}

// paymentReadings keeps the electricity_reading and water_reading fields
// next to the general readings list.
type paymentReadings struct {
	ElectricityReading *decimal.Decimal `json:"electricity_reading"`
	WaterReading       *decimal.Decimal `json:"water_reading"`
	Readings           []readingRequest `json:"readings" binding:"dive"`
}

func (r paymentReadings) inputs() []paymentdomain.ReadingInput {
	out := make([]paymentdomain.ReadingInput, 0, len(r.Readings)+2)
	if r.ElectricityReading != nil {
		out = append(out, paymentdomain.ReadingInput{Kind: string(utilitydomain.KindElectricity), Value: *r.ElectricityReading})
	}
	if r.WaterReading != nil {
		out = append(out, paymentdomain.ReadingInput{Kind: string(utilitydomain.KindWater), Value: *r.WaterReading})
	}
	for _, reading := range r.Readings {
		out = append(out, paymentdomain.ReadingInput{Kind: reading.UtilityType, Value: reading.Value, Usage: reading.Usage})
	}
	return out
}

type createPaymentRequest struct {
	paymentReadings
	LeaseID     string           `json:"lease_id" binding:"required"`
	PaymentDate string           `json:"payment_date" binding:"required"`
	AmountPaid  *decimal.Decimal `json:"amount_paid" binding:"required"`
	Method      string           `json:"method"`
	ReceiptURL  string           `json:"receipt_url"`
}

type updatePaymentRequest struct {
	paymentReadings
	LeaseID     *string          `json:"lease_id"`
	PaymentDate *string          `json:"payment_date"`
	AmountPaid  *decimal.Decimal `json:"amount_paid"`
	Method      *string          `json:"method"`
	ReceiptURL  *string          `json:"receipt_url"`
}

func (s *Server) CreatePayment(c *gin.Context) {
	var req createPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	leaseID, err := parseSnowflakeID(req.LeaseID)
	if err != nil {
		AbortWithError(c, newValidationError("lease_id", "invalid_lease_id", "invalid lease_id"))
		return
	}
	paymentDate, err := parseDate(req.PaymentDate)
	if err != nil {
		AbortWithError(c, newValidationError("payment_date", "invalid_payment_date", "payment_date must be YYYY-MM-DD"))
		return
	}

	resp, err := s.paymentSvc.Create(c.Request.Context(), paymentdomain.CreateRequest{
		OwnerID:     callerID(c),
		LeaseID:     leaseID,
		PaymentDate: paymentDate,
		AmountPaid:  *req.AmountPaid,
		Method:      req.Method,
		ReceiptURL:  req.ReceiptURL,
		Readings:    req.inputs(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.recordAudit(c, "payment.create", "payment", resp.ID, paymentAuditMetadata(resp.PaymentSummary, len(resp.Readings)))

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListPayments(c *gin.Context) {
	resp, err := s.paymentSvc.List(c.Request.Context(), callerID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdatePayment(c *gin.Context) {
	paymentID, err := pathID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req updatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	leaseID, err := parseOptionalSnowflakeID(req.LeaseID)
	if err != nil {
		AbortWithError(c, newValidationError("lease_id", "invalid_lease_id", "invalid lease_id"))
		return
	}
	paymentDate, err := parseOptionalDate(req.PaymentDate)
	if err != nil {
		AbortWithError(c, newValidationError("payment_date", "invalid_payment_date", "payment_date must be YYYY-MM-DD"))
		return
	}

	resp, err := s.paymentSvc.Update(c.Request.Context(), paymentdomain.UpdateRequest{
		OwnerID:     callerID(c),
		PaymentID:   paymentID,
		LeaseID:     leaseID,
		PaymentDate: paymentDate,
		AmountPaid:  req.AmountPaid,
		Method:      req.Method,
		ReceiptURL:  req.ReceiptURL,
		Readings:    req.inputs(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.recordAudit(c, "payment.update", "payment", resp.ID, paymentAuditMetadata(resp.PaymentSummary, len(resp.Readings)))

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeletePayment(c *gin.Context) {
	paymentID, err := pathID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.paymentSvc.Delete(c.Request.Context(), paymentID, callerID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.recordAudit(c, "payment.delete", "payment", paymentID, paymentAuditMetadata(*resp, 0))

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func paymentAuditMetadata(p paymentdomain.PaymentSummary, readings int) map[string]any {
	meta := map[string]any{
		"lease_id":     p.LeaseID.String(),
		"payment_date": p.PaymentDate,
		"amount_paid":  p.AmountPaid.String(),
		"receipt_url":  p.ReceiptURL,
	}
	if readings > 0 {
		meta["readings"] = readings
	}
	return meta
}
