package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ModelHandler struct {
	tracker Tracker
	logger  *zap.Logger
}

func NewModelHandler(tracker Tracker, logger *zap.Logger) *ModelHandler {
	return &ModelHandler{tracker: tracker, logger: logger}
}

type modelCostResponse struct {
	ModelName   string  `json:"modelName"`
	DailyCost   float64 `json:"dailyCost"`
	MonthlyCost float64 `json:"monthlyCost"`
	GPUHours    float64 `json:"gpuHours"`
	APICalls    int64   `json:"apiCalls"`
}

func (h *ModelHandler) Get(c *gin.Context) {
	mc, err := h.tracker.GetModelCost(c.Request.Context(), c.Param("name"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, modelCostResponse{
		ModelName:   mc.ModelName,
		DailyCost:   mc.DailyCost,
		MonthlyCost: mc.MonthlyCost,
		GPUHours:    mc.GPUHours,
		APICalls:    mc.APICalls,
	})
}
