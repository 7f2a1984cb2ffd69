package model

// ModelCost summarises what serving a model costs.
type ModelCost struct {
	ModelName   string
	DailyCost   float64
	MonthlyCost float64
	GPUHours    float64
	APICalls    int64
}
