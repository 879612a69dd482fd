package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/readtrack/internal/entities"
)

type AuditLog interface {
	GetEvents(eventType entities.AuditEventType, limit, offset int) ([]entities.AuditEvent, int64, error)
	History(entityType, entityID string) ([]entities.AuditEvent, error)
}

type AuditController struct {
	log AuditLog
}

func NewAuditController(log AuditLog) *AuditController {
	return &AuditController{log: log}
}

// GetAuditEvents returns paginated audit events.
// GET /api/audit?type=&page=&limit=
func (ac *AuditController) GetAuditEvents(c *gin.Context) {
	page := parseIntQuery(c, "page", 1)
	limit := parseIntQuery(c, "limit", 25)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 25
	}

	events, total, err := ac.log.GetEvents(entities.AuditEventType(c.Query("type")), limit, (page-1)*limit)
	if err != nil {
		respondInternalError(c, err, "load audit events")
		return
	}

	totalPages := (int(total) + limit - 1) / limit
	if totalPages < 1 {
		totalPages = 1
	}
	c.JSON(http.StatusOK, gin.H{
		"events":      events,
		"total":       total,
		"page":        page,
		"total_pages": totalPages,
	})
}

// GetHistory GET /api/audit/:entity_type/:id
func (ac *AuditController) GetHistory(c *gin.Context) {
	events, err := ac.log.History(c.Param("entity_type"), c.Param("id"))
	if err != nil {
		respondInternalError(c, err, "load history")
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}
