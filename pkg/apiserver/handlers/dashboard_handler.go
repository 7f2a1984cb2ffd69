package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type DashboardHandler struct {
	tracker Tracker
	logger  *zap.Logger
}

func NewDashboardHandler(tracker Tracker, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{tracker: tracker, logger: logger}
}

type inventoryResponse struct {
	Total     int `json:"total"`
	Available int `json:"available"`
}

type costMetricsResponse struct {
	CurrentSpend       float64 `json:"currentSpend"`
	MonthlyBudget      float64 `json:"monthlyBudget"`
	UtilizationPercent float64 `json:"utilizationPercent"`
	ProjectedMonthly   float64 `json:"projectedMonthly"`
	DaysUntilLimit     *int64  `json:"daysUntilLimit"`
	BudgetRemaining    float64 `json:"budgetRemaining"`
}

type dashboardResponse struct {
	GPUInventory   map[string]inventoryResponse `json:"gpuInventory"`
	Allocations    []allocationResponse         `json:"allocations"`
	CostMetrics    costMetricsResponse          `json:"costMetrics"`
	GPUUtilization map[string]float64           `json:"gpuUtilization"`
}

func (h *DashboardHandler) Get(c *gin.Context) {
	dash, err := h.tracker.GetDashboard(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	inventory := make(map[string]inventoryResponse, len(dash.Inventory))
	for rt, e := range dash.Inventory {
		inventory[rt.String()] = inventoryResponse{Total: e.TotalUnits, Available: e.AvailableUnits}
	}

	utilization := make(map[string]float64, len(dash.Utilization))
	for rt, pct := range dash.Utilization {
		utilization[rt.String()] = pct.InexactFloat64()
	}

	allocations := make([]allocationResponse, 0, len(dash.Allocations))
	for _, a := range dash.Allocations {
		allocations = append(allocations, toAllocationResponse(a))
	}

	b := dash.Budget
	c.JSON(http.StatusOK, dashboardResponse{
		GPUInventory: inventory,
		Allocations:  allocations,
		CostMetrics: costMetricsResponse{
			CurrentSpend:       dollars(b.CurrentSpend),
			MonthlyBudget:      dollars(b.MonthlyBudget),
			UtilizationPercent: b.UtilizationPercent.InexactFloat64(),
			ProjectedMonthly:   dollars(b.ProjectedMonthlySpend),
			DaysUntilLimit:     b.DaysUntilLimit,
			BudgetRemaining:    dollars(b.BudgetRemaining),
		},
		GPUUtilization: utilization,
	})
}
