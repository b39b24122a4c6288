package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	apierrors "github.com/taskhub/project-management-api/internal/errors"
	"github.com/taskhub/project-management-api/internal/logging"
	"github.com/taskhub/project-management-api/internal/repository"
	"github.com/taskhub/project-management-api/internal/services"
	"github.com/taskhub/project-management-api/internal/validation"
)

// AnalyticsHandler handles the reporting endpoint
type AnalyticsHandler struct {
	reports *services.ReportService
}

// NewAnalyticsHandler creates a new AnalyticsHandler
func NewAnalyticsHandler(reports *services.ReportService) *AnalyticsHandler {
	return &AnalyticsHandler{reports: reports}
}

// GetAnalytics handles GET /api/analytics with optional project_id, team_id,
// start_date and end_date filters.
func (h *AnalyticsHandler) GetAnalytics(c *gin.Context) {
	var filter repository.ReportFilter
	var violations []validation.FieldError

	projectID, ferrs := validation.ParseOptionalUUID("project_id", c.Query("project_id"))
	violations = append(violations, ferrs...)
	filter.ProjectID = projectID

	teamID, ferrs := validation.ParseOptionalUUID("team_id", c.Query("team_id"))
	violations = append(violations, ferrs...)
	filter.TeamID = teamID

	start, ferrs := parseOptionalDate("start_date", c.Query("start_date"))
	violations = append(violations, ferrs...)
	filter.StartDate = start

	end, ferrs := parseOptionalDate("end_date", c.Query("end_date"))
	violations = append(violations, ferrs...)
	filter.EndDate = end

	if len(violations) > 0 {
		apierrors.ValidationFailed(c, violations)
		return
	}

	report, err := h.reports.BuildReport(filter)
	if err != nil {
		logging.Logger.WithError(err).Error("failed to build analytics report")
		apierrors.InternalError(c, "")
		return
	}
	c.JSON(http.StatusOK, report)
}

// parseOptionalDate accepts RFC 3339 timestamps and bare dates.
func parseOptionalDate(field, value string) (*time.Time, []validation.FieldError) {
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return &t, nil
	}
	return nil, []validation.FieldError{{Field: field, Message: "must be a valid date"}}
}
