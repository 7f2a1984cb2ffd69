package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gpucost/gpucost/pkg/model"
)

type AllocationHandler struct {
	tracker Tracker
	logger  *zap.Logger
}

func NewAllocationHandler(tracker Tracker, logger *zap.Logger) *AllocationHandler {
	return &AllocationHandler{tracker: tracker, logger: logger}
}

type allocationCreateRequest struct {
	Name      string  `json:"name"`
	Framework string  `json:"framework"`
	GPUType   string  `json:"gpuType"`
	GPUCount  int     `json:"gpuCount"`
	MaxHours  float64 `json:"maxHours"`
	Priority  string  `json:"priority"`
}

type allocationResponse struct {
	AllocationID      string  `json:"allocationId"`
	Name              string  `json:"name"`
	Framework         string  `json:"framework"`
	GPUType           string  `json:"gpuType"`
	GPUCount          int     `json:"gpuCount"`
	MaxHours          float64 `json:"maxHours"`
	Priority          string  `json:"priority"`
	EstimatedCost     float64 `json:"estimatedCost"`
	SpotEstimatedCost float64 `json:"spotEstimatedCost"`
	Status            string  `json:"status"`
	Timestamp         string  `json:"timestamp"`
}

func toAllocationResponse(a model.Allocation) allocationResponse {
	return allocationResponse{
		AllocationID:      a.ID,
		Name:              a.Name,
		Framework:         a.Framework,
		GPUType:           a.ResourceType.String(),
		GPUCount:          a.UnitCount,
		MaxHours:          a.MaxHours,
		Priority:          a.Priority,
		EstimatedCost:     dollars(a.EstimatedCost),
		SpotEstimatedCost: dollars(a.SpotEstimatedCost),
		Status:            string(a.Status),
		Timestamp:         formatTime(a.CreatedAt),
	}
}

func (h *AllocationHandler) Create(c *gin.Context) {
	var req allocationCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	allocation, err := h.tracker.Allocate(c.Request.Context(), model.AllocationRequest{
		Name:         req.Name,
		Framework:    req.Framework,
		ResourceType: model.ResourceType(req.GPUType),
		UnitCount:    req.GPUCount,
		MaxHours:     req.MaxHours,
		Priority:     req.Priority,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, toAllocationResponse(*allocation))
}
