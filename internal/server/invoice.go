package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/leasehold/internal/invoice/domain"
)

type createInvoiceRequest struct {
	LeaseID string `json:"lease_id" binding:"required"`
	Month   string `json:"month" binding:"required"`
}

type updateInvoiceRequest struct {
	LeaseID   *string          `json:"lease_id"`
	Month     *string          `json:"month"`
	Rent      *decimal.Decimal `json:"rent"`
	Utility   *decimal.Decimal `json:"utility"`
	Total     *decimal.Decimal `json:"total"`
	Status    *string          `json:"status"`
	Recompute bool             `json:"recompute"`
}

func (s *Server) CreateInvoice(c *gin.Context) {
	var req createInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	leaseID, err := parseSnowflakeID(req.LeaseID)
	if err != nil {
		AbortWithError(c, newValidationError("lease_id", "invalid_lease_id", "invalid lease_id"))
		return
	}
	month, err := parseMonth(req.Month)
	if err != nil {
		AbortWithError(c, newValidationError("month", "invalid_month", "month must be YYYY-MM or YYYY-MM-DD"))
		return
	}

	resp, err := s.invoiceSvc.Create(c.Request.Context(), invoicedomain.CreateRequest{
		LeaseID: leaseID,
		Month:   month,
		OwnerID: callerID(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.recordAudit(c, "invoice.create", "invoice", resp.ID, map[string]any{
		"lease_id": resp.LeaseID.String(),
		"period":   resp.Period,
		"total":    resp.Total.String(),
		"status":   resp.Status,
	})

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListInvoices(c *gin.Context) {
	resp, err := s.invoiceSvc.List(c.Request.Context(), callerID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetInvoiceByID(c *gin.Context) {
	invoiceID, err := pathID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.invoiceSvc.GetByID(c.Request.Context(), invoiceID, callerID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateInvoice(c *gin.Context) {
	invoiceID, err := pathID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req updateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	leaseID, err := parseOptionalSnowflakeID(req.LeaseID)
	if err != nil {
		AbortWithError(c, newValidationError("lease_id", "invalid_lease_id", "invalid lease_id"))
		return
	}
	month, err := parseOptionalMonth(req.Month)
	if err != nil {
		AbortWithError(c, newValidationError("month", "invalid_month", "month must be YYYY-MM or YYYY-MM-DD"))
		return
	}

	resp, err := s.invoiceSvc.Update(c.Request.Context(), invoicedomain.UpdateRequest{
		InvoiceID: invoiceID,
		OwnerID:   callerID(c),
		LeaseID:   leaseID,
		Month:     month,
		Rent:      req.Rent,
		Utility:   req.Utility,
		Total:     req.Total,
		Status:    req.Status,
		Recompute: req.Recompute,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.recordAudit(c, "invoice.update", "invoice", resp.ID, map[string]any{
		"period":    resp.Period,
		"total":     resp.Total.String(),
		"status":    resp.Status,
		"recompute": req.Recompute,
	})

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteInvoice(c *gin.Context) {
	invoiceID, err := pathID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.invoiceSvc.Delete(c.Request.Context(), invoiceID, callerID(c)); err != nil {
		AbortWithError(c, err)
		return
	}
	s.recordAudit(c, "invoice.delete", "invoice", invoiceID, nil)

	c.Status(http.StatusNoContent)
}

func (s *Server) DownloadInvoicePDF(c *gin.Context) {
	invoiceID, err := pathID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	doc, err := s.invoiceSvc.RenderPDF(c.Request.Context(), invoiceID, callerID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.FileName))
	c.Data(http.StatusOK, doc.ContentType, doc.Content)
}
