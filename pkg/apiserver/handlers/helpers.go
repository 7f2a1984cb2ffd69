package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/gpucost/gpucost/pkg/model"
	"github.com/gpucost/gpucost/pkg/tracker"
)

const timeRFC3339Nano = time.RFC3339Nano

// Tracker is the application surface the handlers serve.
type Tracker interface {
	GetDashboard(ctx context.Context) (*tracker.Dashboard, error)
	CheckBudget(ctx context.Context, rt model.ResourceType, units int, hours float64) (*model.BudgetCheck, error)
	Allocate(ctx context.Context, req model.AllocationRequest) (*model.Allocation, error)
	GetModelCost(ctx context.Context, name string) (*model.ModelCost, error)
}

func formatTime(value time.Time) string {
	return value.UTC().Format(timeRFC3339Nano)
}

func dollars(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

// writeError maps the admission error taxonomy onto HTTP statuses.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	var admissionErr *model.AdmissionError
	errors.As(err, &admissionErr)

	switch {
	case errors.Is(err, model.ErrInvalidRequest),
		errors.Is(err, model.ErrInvalidQuantity),
		errors.Is(err, model.ErrUnknownResourceType):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
	case errors.Is(err, model.ErrInsufficientResources):
		body := gin.H{"error": "Insufficient GPU resources", "details": err.Error()}
		if admissionErr != nil {
			body["available"] = admissionErr.Available
		}
		c.JSON(http.StatusConflict, body)
	case errors.Is(err, model.ErrBudgetExceeded):
		body := gin.H{"error": "budget exceeded", "details": err.Error()}
		if admissionErr != nil {
			body["estimated_cost"] = dollars(admissionErr.EstimatedCost)
			body["budget_remaining"] = dollars(admissionErr.BudgetRemaining)
		}
		c.JSON(http.StatusPaymentRequired, body)
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "request timed out"})
	default:
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
