package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/learning-insights-api/internal/dto"
	"github.com/noah-isme/learning-insights-api/internal/service"
	appErrors "github.com/noah-isme/learning-insights-api/pkg/errors"
	"github.com/noah-isme/learning-insights-api/pkg/response"
)

type reportService interface {
	Export(ctx context.Context, req service.ReportRequest) (*service.ReportFile, error)
}

// ReportHandler exposes insight report downloads.
type ReportHandler struct {
	reports reportService
}

// NewReportHandler constructs handler.
func NewReportHandler(reports reportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// StudentReport godoc
// @Summary Download a student's insight report
// @Tags Reports
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Student ID"
// @Param format query string false "csv or pdf" default(csv)
// @Param days_ahead query int false "Forecast horizon in days (0-365)" default(30)
// @Param tenant_id query string false "Tenant ID"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /students/{id}/insights/report [get]
func (h *ReportHandler) StudentReport(c *gin.Context) {
	if h.reports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnavailable, "reports are disabled"))
		return
	}
	var query dto.ReportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query parameters"))
		return
	}

	file, err := h.reports.Export(c.Request.Context(), service.ReportRequest{
		TenantID:  strings.TrimSpace(query.TenantID),
		StudentID: strings.TrimSpace(c.Param("id")),
		Format:    strings.ToLower(strings.TrimSpace(query.Format)),
		DaysAhead: intOrDefault(query.DaysAhead, defaultDaysAhead),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Content)
}
