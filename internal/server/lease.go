package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	leasedomain "github.com/smallbiznis/leasehold/internal/lease/domain"
)

type createLeaseRequest struct {
	UnitID        string           `json:"unit_id" binding:"required"`
	RenterID      string           `json:"renter_id" binding:"required"`
	StartDate     string           `json:"start_date" binding:"required"`
	EndDate       string           `json:"end_date" binding:"required"`
	RentAmount    *decimal.Decimal `json:"rent_amount" binding:"required"`
	DepositAmount *decimal.Decimal `json:"deposit_amount"`
	Status        string           `json:"status"`
}

type updateLeaseRequest struct {
	UnitID        *string          `json:"unit_id"`
	RenterID      *string          `json:"renter_id"`
	StartDate     *string          `json:"start_date"`
	EndDate       *string          `json:"end_date"`
	RentAmount    *decimal.Decimal `json:"rent_amount"`
	DepositAmount *decimal.Decimal `json:"deposit_amount"`
	Status        *string          `json:"status"`
}

func (s *Server) CreateLease(c *gin.Context) {
	var req createLeaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	unitID, err := parseSnowflakeID(req.UnitID)
	if err != nil {
		AbortWithError(c, newValidationError("unit_id", "invalid_unit_id", "invalid unit_id"))
		return
	}
	renterID, err := parseSnowflakeID(req.RenterID)
	if err != nil {
		AbortWithError(c, newValidationError("renter_id", "invalid_renter_id", "invalid renter_id"))
		return
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		AbortWithError(c, newValidationError("start_date", "invalid_start_date", "start_date must be YYYY-MM-DD"))
		return
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		AbortWithError(c, newValidationError("end_date", "invalid_end_date", "end_date must be YYYY-MM-DD"))
		return
	}
	status := req.Status
	if status == "" {
		status = leasedomain.StatusActive
	}

	resp, err := s.leaseSvc.Create(c.Request.Context(), leasedomain.CreateRequest{
		OwnerID:       callerID(c),
		UnitID:        unitID,
		RenterID:      renterID,
		StartDate:     start,
		EndDate:       end,
		RentAmount:    *req.RentAmount,
		DepositAmount: req.DepositAmount,
		Status:        status,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.recordAudit(c, "lease.create", "lease", resp.ID, map[string]any{
		"unit_id":     resp.UnitID.String(),
		"renter_id":   resp.RenterID.String(),
		"rent_amount": resp.RentAmount.String(),
		"status":      resp.Status,
	})

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListLeases(c *gin.Context) {
	resp, err := s.leaseSvc.List(c.Request.Context(), callerID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListActiveLeases(c *gin.Context) {
	resp, err := s.leaseSvc.ListActive(c.Request.Context(), callerID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetLease(c *gin.Context) {
	leaseID, err := pathID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.leaseSvc.Get(c.Request.Context(), leaseID, callerID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateLease(c *gin.Context) {
	leaseID, err := pathID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req updateLeaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	unitID, err := parseOptionalSnowflakeID(req.UnitID)
	if err != nil {
		AbortWithError(c, newValidationError("unit_id", "invalid_unit_id", "invalid unit_id"))
		return
	}
	renterID, err := parseOptionalSnowflakeID(req.RenterID)
	if err != nil {
		AbortWithError(c, newValidationError("renter_id", "invalid_renter_id", "invalid renter_id"))
		return
	}
	start, err := parseOptionalDate(req.StartDate)
	if err != nil {
		AbortWithError(c, newValidationError("start_date", "invalid_start_date", "start_date must be YYYY-MM-DD"))
		return
	}
	end, err := parseOptionalDate(req.EndDate)
	if err != nil {
		AbortWithError(c, newValidationError("end_date", "invalid_end_date", "end_date must be YYYY-MM-DD"))
		return
	}

	if _, err := s.leaseSvc.Get(c.Request.Context(), leaseID, callerID(c)); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.leaseSvc.Update(c.Request.Context(), leasedomain.UpdateRequest{
		OwnerID:       callerID(c),
		LeaseID:       leaseID,
		UnitID:        unitID,
		RenterID:      renterID,
		StartDate:     start,
		EndDate:       end,
		RentAmount:    req.RentAmount,
		DepositAmount: req.DepositAmount,
		Status:        req.Status,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.recordAudit(c, "lease.update", "lease", resp.ID, map[string]any{
		"unit_id": resp.UnitID.String(),
		"status":  resp.Status,
	})

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteLease(c *gin.Context) {
	leaseID, err := pathID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if _, err := s.leaseSvc.Get(c.Request.Context(), leaseID, callerID(c)); err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.leaseSvc.Delete(c.Request.Context(), leaseID); err != nil {
		AbortWithError(c, err)
		return
	}
	s.recordAudit(c, "lease.delete", "lease", leaseID, nil)

	c.Status(http.StatusNoContent)
}
