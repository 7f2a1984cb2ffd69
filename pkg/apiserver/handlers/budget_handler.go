package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gpucost/gpucost/pkg/model"
)

type BudgetHandler struct {
	tracker Tracker
	logger  *zap.Logger
}

func NewBudgetHandler(tracker Tracker, logger *zap.Logger) *BudgetHandler {
	return &BudgetHandler{tracker: tracker, logger: logger}
}

type budgetCheckResponse struct {
	GPUType         string  `json:"gpuType"`
	Approved        bool    `json:"approved"`
	EstimatedCost   float64 `json:"estimatedCost"`
	BudgetRemaining float64 `json:"budgetRemaining"`
	Message         string  `json:"message"`
}

// Check previews the budget decision for gpuType, gpuCount and hours.
func (h *BudgetHandler) Check(c *gin.Context) {
	units, err := strconv.Atoi(c.Query("gpuCount"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid gpuCount"})
		return
	}
	hours, err := strconv.ParseFloat(c.Query("hours"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid hours"})
		return
	}

	check, err := h.tracker.CheckBudget(c.Request.Context(), model.ResourceType(c.Query("gpuType")), units, hours)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, budgetCheckResponse{
		GPUType:         check.ResourceType.String(),
		Approved:        check.Approved,
		EstimatedCost:   dollars(check.EstimatedCost),
		BudgetRemaining: dollars(check.BudgetRemaining),
		Message:         check.Message,
	})
}
