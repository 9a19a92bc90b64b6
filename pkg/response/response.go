package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kopitetangga/service-loyalty/pkg/domain"
)

// Envelope is the standard success body.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

// PaginatedEnvelope wraps list responses with paging metadata.
type PaginatedEnvelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Total   int64       `json:"total"`
	Page    int         `json:"page"`
	Limit   int         `json:"limit"`
}

// Success writes a 200 with the given payload.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

// Created writes a 201 with the given payload.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Data: data})
}

// Paginated writes a 200 with list data and paging metadata.
func Paginated(c *gin.Context, data interface{}, total int64, page, limit int) {
	c.JSON(http.StatusOK, PaginatedEnvelope{
		Success: true, Data: data, Total: total, Page: page, Limit: limit,
	})
}

// BadRequest writes a 400 with the given message.
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": message})
}

// NotFound writes a 404 with the given message.
func NotFound(c *gin.Context, message string) {
	c.JSON(http.StatusNotFound, gin.H{"success": false, "error": message})
}

// Error maps a domain error to the appropriate HTTP status. Unrecognized
// errors become opaque 500s so internals never leak to the client.
func Error(c *gin.Context, err error) {
	var domErr *domain.DomainError
	if errors.As(err, &domErr) {
		switch {
		case errors.Is(domErr.Err, domain.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": domErr.Message})
		case errors.Is(domErr.Err, domain.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": domErr.Message})
		case errors.Is(domErr.Err, domain.ErrConflict):
			c.JSON(http.StatusConflict, gin.H{"success": false, "error": domErr.Message})
		case errors.Is(domErr.Err, domain.ErrInvalidState):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"success": false, "error": domErr.Message})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal server error"})
		}
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal server error"})
}
