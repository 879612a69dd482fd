package http

import (
	"context"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/readtrack/internal/stats"
)

type StatsSource interface {
	Summary(ctx context.Context) (stats.Summary, error)
}

// StatsResponse adds display strings to the raw summary.
type StatsResponse struct {
	stats.Summary
	TotalAppTime        string `json:"total_app_time"`
	TotalReadingTime    string `json:"total_reading_time"`
	AverageDailyReading string `json:"average_daily_reading"`
}

type StatsController struct {
	source StatsSource
}

func NewStatsController(source StatsSource) *StatsController {
	return &StatsController{source: source}
}

// GetStats GET /api/stats
func (sc *StatsController) GetStats(c *gin.Context) {
	summary, err := sc.source.Summary(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "load stats")
		return
	}

	c.JSON(http.StatusOK, StatsResponse{
		Summary:             summary,
		TotalAppTime:        stats.FormatDuration(summary.TotalAppSeconds),
		TotalReadingTime:    stats.FormatDuration(summary.TotalReadingSeconds),
		AverageDailyReading: stats.FormatDuration(uint64(math.Round(summary.AverageDailyReadingSeconds))),
	})
}
