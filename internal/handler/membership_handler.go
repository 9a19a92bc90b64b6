package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kopitetangga/service-loyalty/internal/application"
	"github.com/kopitetangga/service-loyalty/pkg/auth"
	"github.com/kopitetangga/service-loyalty/pkg/middleware"
	"github.com/kopitetangga/service-loyalty/pkg/response"
)

// MembershipHandler handles HTTP requests for the stamp-cycle engine.
type MembershipHandler struct {
	service *application.LoyaltyService
}

// NewMembershipHandler creates a new MembershipHandler.
func NewMembershipHandler(service *application.LoyaltyService) *MembershipHandler {
	return &MembershipHandler{service: service}
}

// RegisterRoutes registers all membership routes on the given router group.
func (h *MembershipHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	memberships := r.Group("/memberships")
	memberships.Use(middleware.AuthMiddleware(jwtManager))
	memberships.Use(middleware.RequireRole(auth.RoleCashier))
	{
		memberships.GET("/lookup", h.Lookup)
		memberships.GET("/scan/:publicId", h.Scan)
		memberships.GET("/:id", h.GetMembership)
		memberships.GET("/:id/history", h.History)
		memberships.GET("/:id/history-summary", h.HistorySummary)
		memberships.POST("/:id/stamps", h.AddStamp)
		memberships.POST("/:id/redeem", h.Redeem)
	}
}

// Lookup handles GET /api/v1/memberships/lookup?q=
func (h *MembershipHandler) Lookup(c *gin.Context) {
	dto, err := h.service.Lookup(c.Request.Context(), c.Query("q"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}

// Scan handles GET /api/v1/memberships/scan/:publicId
func (h *MembershipHandler) Scan(c *gin.Context) {
	userID := optionalUserID(c)

	dto, err := h.service.Scan(c.Request.Context(), c.Param("publicId"), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}

// GetMembership handles GET /api/v1/memberships/:id
func (h *MembershipHandler) GetMembership(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid membership ID")
		return
	}

	dto, err := h.service.GetMembership(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}

// History handles GET /api/v1/memberships/:id/history
func (h *MembershipHandler) History(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid membership ID")
		return
	}

	dto, err := h.service.GetMembership(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"membership_id": dto.ID, "cycles": dto.Cycles})
}

// HistorySummary handles GET /api/v1/memberships/:id/history-summary
func (h *MembershipHandler) HistorySummary(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid membership ID")
		return
	}

	dto, err := h.service.HistorySummary(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}

// AddStamp handles POST /api/v1/memberships/:id/stamps
func (h *MembershipHandler) AddStamp(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid membership ID")
		return
	}

	var req application.AddStampRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.AddStamp(c.Request.Context(), id, optionalUserID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	if result.Awarded {
		response.Created(c, result)
		return
	}
	response.Success(c, result)
}

// Redeem handles POST /api/v1/memberships/:id/redeem
func (h *MembershipHandler) Redeem(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid membership ID")
		return
	}

	var req application.RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.Redeem(c.Request.Context(), id, optionalUserID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

func optionalUserID(c *gin.Context) *uuid.UUID {
	if userID, ok := middleware.GetUserID(c); ok {
		return &userID
	}
	return nil
}
