package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/studyquest/server/internal/observability"
)

// MetricsOverviewResponse represents the overview response of system metrics
type MetricsOverviewResponse struct {
	TotalRequests int64                             `json:"total_requests"`
	SuccessRate   float64                           `json:"success_rate"`
	ErrorCount    int64                             `json:"error_count"`
	ReviewsTotal  int64                             `json:"reviews_total"`
	Operations    []observability.OperationSnapshot `json:"operations"`
	Cache         map[string]any                    `json:"cache,omitempty"`
}

// GetMetricsOverview returns the in-process request metrics.
// GET /api/v1/system/metrics
func (s *APIV1Service) GetMetricsOverview(c echo.Context) error {
	snapshot := s.Metrics.Snapshot()
	resp := MetricsOverviewResponse{
		TotalRequests: snapshot.RequestTotal,
		SuccessRate:   snapshot.SuccessRate(),
		ErrorCount:    snapshot.RequestFailed,
		ReviewsTotal:  snapshot.ReviewsTotal,
		Operations:    snapshot.Operations,
	}
	if s.CacheStats != nil {
		resp.Cache = s.CacheStats()
	}
	return c.JSON(http.StatusOK, resp)
}
