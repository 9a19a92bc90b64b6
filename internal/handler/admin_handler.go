package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kopitetangga/service-loyalty/internal/application"
	"github.com/kopitetangga/service-loyalty/pkg/auth"
	"github.com/kopitetangga/service-loyalty/pkg/middleware"
	"github.com/kopitetangga/service-loyalty/pkg/response"
)

// AdminHandler serves the admin surface: program settings and reports.
type AdminHandler struct {
	service *application.ProgramService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(service *application.ProgramService) *AdminHandler {
	return &AdminHandler{service: service}
}

// RegisterRoutes registers admin routes on the given router group.
func (h *AdminHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	admin := r.Group("/admin")
	admin.Use(middleware.AuthMiddleware(jwtManager))
	admin.Use(middleware.RequireRole(auth.RoleAdmin))
	{
		admin.GET("/settings", h.GetSettings)
		admin.PUT("/settings", h.UpdateSettings)
		admin.GET("/reports/summary", h.SummaryReport)
		admin.GET("/reports/rewards", h.RewardReport)
	}
}

// GetSettings handles GET /api/v1/admin/settings
func (h *AdminHandler) GetSettings(c *gin.Context) {
	dto, err := h.service.GetSettings(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}

// UpdateSettings handles PUT /api/v1/admin/settings
func (h *AdminHandler) UpdateSettings(c *gin.Context) {
	var req application.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	dto, err := h.service.UpdateSettings(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}

// SummaryReport handles GET /api/v1/admin/reports/summary?from=&to=
func (h *AdminHandler) SummaryReport(c *gin.Context) {
	from, to, ok := parsePeriod(c)
	if !ok {
		return
	}

	dto, err := h.service.SummaryReport(c.Request.Context(), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}

// RewardReport handles GET /api/v1/admin/reports/rewards?from=&to=
func (h *AdminHandler) RewardReport(c *gin.Context) {
	from, to, ok := parsePeriod(c)
	if !ok {
		return
	}

	dto, err := h.service.RewardReport(c.Request.Context(), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}

// parsePeriod reads optional from/to date bounds. The to bound is inclusive:
// it covers the whole named day.
func parsePeriod(c *gin.Context) (*time.Time, *time.Time, bool) {
	var from, to *time.Time

	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.BadRequest(c, "invalid 'from' date, expected YYYY-MM-DD")
			return nil, nil, false
		}
		from = &t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.BadRequest(c, "invalid 'to' date, expected YYYY-MM-DD")
			return nil, nil, false
		}
		end := t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		to = &end
	}

	return from, to, true
}
