package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	meterdomain "github.com/smallbiznis/leasehold/internal/meter/domain"
	utilitydomain "github.com/smallbiznis/leasehold/internal/utility/domain"
)

func (s *Server) ListUtilityTypes(c *gin.Context) {
	resp, err := s.utilitySvc.ListUtilityTypes(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateUtilityType(c *gin.Context) {
	var req utilitydomain.CreateUtilityTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.utilitySvc.CreateUtilityType(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.recordAudit(c, "utility_type.create", "utility_type", resp.ID, map[string]any{"code": string(resp.Code)})

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListUnitUtilities(c *gin.Context) {
	unitID, err := pathID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.utilitySvc.ListRates(c.Request.Context(), unitID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type upsertUnitUtilitiesRequest struct {
	Utilities []utilitydomain.RateInput `json:"utilities" binding:"dive"`
}

func (s *Server) UpsertUnitUtilities(c *gin.Context) {
	unitID, err := pathID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req upsertUnitUtilitiesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.utilitySvc.UpsertRates(c.Request.Context(), utilitydomain.UpsertRatesRequest{
		OwnerID: callerID(c),
		UnitID:  unitID,
		Rates:   req.Utilities,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.recordAudit(c, "unit_utilities.upsert", "unit", unitID, map[string]any{"rates": len(resp)})

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListMeterReadings(c *gin.Context) {
	unitID, err := pathID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	req := meterdomain.ListRequest{UnitID: unitID}
	if kind := strings.TrimSpace(c.Query("utility_type")); kind != "" {
		utilityType, err := s.utilitySvc.ResolveKind(c.Request.Context(), nil, kind)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		req.UtilityTypeID = utilityType.ID
	}

	resp, err := s.meterSvc.ListReadings(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
