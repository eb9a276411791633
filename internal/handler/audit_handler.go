package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"minimart/internal/logging"
	"minimart/internal/model"
	"minimart/internal/service"

	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

// AuditHandler serves the admin audit trail.
type AuditHandler struct {
	service service.AuditService
	log     logging.Logger
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(s service.AuditService, log logging.Logger) *AuditHandler {
	return &AuditHandler{service: s, log: log}
}

// parseAuditFilters reads the shared query filters. Dates are whole days in
// the display zone; end_date is inclusive.
func parseAuditFilters(c *gin.Context) (model.AuditFilters, bool) {
	var filters model.AuditFilters
	if actorParam := c.Query("actor"); actorParam != "" {
		actor := service.NormalizeEmail(actorParam)
		filters.ActorEmail = &actor
	}
	if actionParam := c.Query("action"); actionParam != "" {
		filters.Action = &actionParam
	}
	if entityParam := c.Query("entity_type"); entityParam != "" {
		filters.EntityType = &entityParam
	}
	if startDateParam := c.Query("start_date"); startDateParam != "" {
		parsedDate, err := time.ParseInLocation(dateLayout, startDateParam, model.DisplayZone)
		if err != nil {
			badRequest(c, "Invalid date format for 'start_date', use YYYY-MM-DD")
			return filters, false
		}
		filters.StartDate = &parsedDate
	}
	if endDateParam := c.Query("end_date"); endDateParam != "" {
		parsedDate, err := time.ParseInLocation(dateLayout, endDateParam, model.DisplayZone)
		if err != nil {
			badRequest(c, "Invalid date format for 'end_date', use YYYY-MM-DD")
			return filters, false
		}
		// Adjust end date to include the whole day
		endOfDay := parsedDate.Add(24*time.Hour - time.Nanosecond)
		filters.EndDate = &endOfDay
	}
	if filters.StartDate != nil && filters.EndDate != nil && filters.EndDate.Before(*filters.StartDate) {
		badRequest(c, "'end_date' must not be before 'start_date'")
		return filters, false
	}
	if limitParam := c.Query("limit"); limitParam != "" {
		limit, err := strconv.Atoi(limitParam)
		if err != nil || limit <= 0 {
			badRequest(c, "Invalid value for 'limit', use a positive integer")
			return filters, false
		}
		filters.Limit = limit
	}
	return filters, true
}

func (h *AuditHandler) ListLogs(c *gin.Context) {
	filters, ok := parseAuditFilters(c)
	if !ok {
		return
	}
	logs, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		respondError(c, h.log, err, "Failed to retrieve audit logs")
		return
	}
	c.JSON(http.StatusOK, logs)
}

func (h *AuditHandler) ExportCSV(c *gin.Context) {
	filters, ok := parseAuditFilters(c)
	if !ok {
		return
	}
	buffer, err := h.service.ExportCSV(c.Request.Context(), filters)
	if err != nil {
		respondError(c, h.log, err, "Failed to export audit logs")
		return
	}

	fileName := fmt.Sprintf("audit_logs_%s.csv", time.Now().In(model.DisplayZone).Format("20060102_150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	c.Data(http.StatusOK, "text/csv", buffer.Bytes())
}

// RegisterAuditRoutes registers audit routes on the admin group.
func (h *AuditHandler) RegisterAuditRoutes(admin *gin.RouterGroup) {
	logs := admin.Group("/audit-logs")
	{
		logs.GET("", h.ListLogs)
		logs.GET("/export/csv", h.ExportCSV)
	}
}
