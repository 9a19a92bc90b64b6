package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/kopitetangga/service-loyalty/internal/application"
	"github.com/kopitetangga/service-loyalty/internal/saga"
	"github.com/kopitetangga/service-loyalty/pkg/auth"
	"github.com/kopitetangga/service-loyalty/pkg/middleware"
	"github.com/kopitetangga/service-loyalty/pkg/response"
)

// CardHandler handles card inventory and activation requests.
type CardHandler struct {
	cards      *application.CardService
	activation *saga.ActivationSagaService
}

// NewCardHandler creates a new CardHandler.
func NewCardHandler(cards *application.CardService, activation *saga.ActivationSagaService) *CardHandler {
	return &CardHandler{cards: cards, activation: activation}
}

// RegisterRoutes registers card routes on the given router group.
func (h *CardHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	cards := r.Group("/cards")
	cards.Use(middleware.AuthMiddleware(jwtManager))
	{
		cards.POST("", middleware.RequireRole(auth.RoleAdmin), h.RegisterCards)
		cards.GET("/:cardNumber", middleware.RequireRole(auth.RoleCashier), h.GetCard)
	}

	memberships := r.Group("/memberships")
	memberships.Use(middleware.AuthMiddleware(jwtManager))
	{
		memberships.POST("/activate-card", middleware.RequireRole(auth.RoleCashier), h.ActivateCard)
	}
}

// RegisterCards handles POST /api/v1/cards
func (h *CardHandler) RegisterCards(c *gin.Context) {
	var req application.RegisterCardsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	dtos, err := h.cards.RegisterCards(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dtos)
}

// GetCard handles GET /api/v1/cards/:cardNumber
func (h *CardHandler) GetCard(c *gin.Context) {
	dto, err := h.cards.GetCard(c.Request.Context(), c.Param("cardNumber"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}

// ActivateCard handles POST /api/v1/memberships/activate-card
func (h *CardHandler) ActivateCard(c *gin.Context) {
	var req saga.ActivateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	m, err := h.activation.ActivateCard(c.Request.Context(), req, optionalUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, gin.H{
		"membership_id": m.ID().String(),
		"card_number":   m.CardNumber(),
		"public_id":     m.PublicID().String(),
		"status":        string(m.Status()),
		"start_date":    m.StartDate().Format("2006-01-02"),
		"end_date":      m.EndDate().Format("2006-01-02"),
	})
}
