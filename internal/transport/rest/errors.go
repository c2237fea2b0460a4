package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/bookstore/internal/domain"
)

// statusFor сопоставляет доменную ошибку с HTTP-статусом и кодом ответа.
// Порядок важен: InventoryAdjustmentError разворачивается и в причину (например, ErrBookNotFound).
func statusFor(err error) (int, string) {
	switch {
	case domain.IsInventoryAdjustment(err):
		var adj *domain.InventoryAdjustmentError
		if errors.As(err, &adj) && adj.Compensated() {
			return http.StatusConflict, "inventory_adjustment_failed"
		}
		return http.StatusInternalServerError, "inventory_adjustment_failed"
	case domain.IsValidation(err):
		if domain.IsInvalidStatus(err) {
			return http.StatusBadRequest, "invalid_status"
		}
		return http.StatusBadRequest, "validation_failed"
	case domain.IsForbidden(err):
		return http.StatusForbidden, "forbidden"
	case domain.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case domain.IsInvalidTransition(err):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, domain.ErrInsufficientStock):
		return http.StatusConflict, "insufficient_stock"
	case errors.Is(err, domain.ErrInsufficientSales):
		return http.StatusConflict, "insufficient_sales"
	case domain.IsVersionConflict(err):
		return http.StatusConflict, "concurrent_update"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeError(c *gin.Context, err error) {
	status, code := statusFor(err)
	body := errorDTO{Code: code, Message: err.Error()}
	if status == http.StatusInternalServerError && code == "internal" {
		body.Message = "internal error"
		_ = c.Error(err)
	}

	var adj *domain.InventoryAdjustmentError
	if errors.As(err, &adj) {
		compensated := adj.Compensated()
		body.Compensated = &compensated
	}
	c.AbortWithStatusJSON(status, errorResponse{Error: body})
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, errorResponse{Error: errorDTO{Code: code, Message: message}})
}
