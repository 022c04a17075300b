package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/learning-insights-api/internal/dto"
	"github.com/noah-isme/learning-insights-api/internal/middleware"
	"github.com/noah-isme/learning-insights-api/internal/models"
	"github.com/noah-isme/learning-insights-api/internal/service"
	appErrors "github.com/noah-isme/learning-insights-api/pkg/errors"
	"github.com/noah-isme/learning-insights-api/pkg/response"
)

const defaultDaysAhead = 30

type predictionService interface {
	Predict(ctx context.Context, req service.PredictionRequest) (*models.PredictionResult, bool, error)
}

type recommendationService interface {
	Recommend(ctx context.Context, req service.RecommendationRequest) (*models.RecommendationResult, bool, error)
	PeerRecommendations(ctx context.Context, req service.PeerRecommendationRequest) (*models.PeerRecommendationResult, bool, error)
}

// InsightHandler exposes score predictions and content recommendations.
type InsightHandler struct {
	predictions     predictionService
	recommendations recommendationService
	now             func() time.Time
}

// NewInsightHandler constructs the handler.
func NewInsightHandler(predictions predictionService, recommendations recommendationService) *InsightHandler {
	return &InsightHandler{predictions: predictions, recommendations: recommendations, now: time.Now}
}

// Predictions godoc
// @Summary Predict a subject score
// @Tags Insights
// @Produce json
// @Param id path string true "Student ID"
// @Param subject query string true "Subject"
// @Param days_ahead query int false "Forecast horizon in days (0-365)" default(30)
// @Param tenant_id query string false "Tenant ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /students/{id}/predictions [get]
func (h *InsightHandler) Predictions(c *gin.Context) {
	if h.predictions == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	var query dto.PredictionQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query parameters"))
		return
	}
	daysAhead := intOrDefault(query.DaysAhead, defaultDaysAhead)
	studentID := strings.TrimSpace(c.Param("id"))

	result, cacheHit, err := h.predictions.Predict(c.Request.Context(), service.PredictionRequest{
		TenantID:  strings.TrimSpace(query.TenantID),
		StudentID: studentID,
		Subject:   strings.TrimSpace(query.Subject),
		DaysAhead: daysAhead,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, dto.NewPredictionResponse(studentID, daysAhead, result), middleware.ExtractMeta(c))
}

// Recommendations godoc
// @Summary Rank catalog content for a student
// @Tags Insights
// @Produce json
// @Param id path string true "Student ID"
// @Param subject query string false "Restrict to one subject"
// @Param limit query int false "Maximum items (1-20)" default(10)
// @Param include_reasons query bool false "Attach human readable reasons" default(true)
// @Param tenant_id query string false "Tenant ID"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /students/{id}/recommendations [get]
func (h *InsightHandler) Recommendations(c *gin.Context) {
	if h.recommendations == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	var query dto.RecommendationQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query parameters"))
		return
	}
	includeReasons := true
	if query.IncludeReasons != nil {
		includeReasons = *query.IncludeReasons
	}
	studentID := strings.TrimSpace(c.Param("id"))

	result, cacheHit, err := h.recommendations.Recommend(c.Request.Context(), service.RecommendationRequest{
		TenantID:       strings.TrimSpace(query.TenantID),
		StudentID:      studentID,
		Subject:        strings.TrimSpace(query.Subject),
		Limit:          intOrDefault(query.Limit, 10),
		IncludeReasons: includeReasons,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, dto.RecommendationResponse{
		StudentID:            studentID,
		RecommendationResult: *result,
		GeneratedAt:          h.now().UTC(),
	}, middleware.ExtractMeta(c))
}

// PeerRecommendations godoc
// @Summary Recommend content studied by similar students
// @Tags Insights
// @Produce json
// @Param id path string true "Student ID"
// @Param limit query int false "Maximum items (1-20)" default(10)
// @Param min_common query int false "Minimum shared items for a peer (1-50)" default(2)
// @Param tenant_id query string false "Tenant ID"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /students/{id}/recommendations/peers [get]
func (h *InsightHandler) PeerRecommendations(c *gin.Context) {
	if h.recommendations == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	var query dto.PeerRecommendationQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query parameters"))
		return
	}
	studentID := strings.TrimSpace(c.Param("id"))

	result, cacheHit, err := h.recommendations.PeerRecommendations(c.Request.Context(), service.PeerRecommendationRequest{
		TenantID:  strings.TrimSpace(query.TenantID),
		StudentID: studentID,
		Limit:     intOrDefault(query.Limit, 10),
		MinCommon: intOrDefault(query.MinCommon, 0),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, dto.NewPeerRecommendationResponse(studentID, result), middleware.ExtractMeta(c))
}

// intOrDefault returns fallback when the parameter was omitted. An explicit zero is kept so
// range validation can reject it.
func intOrDefault(value *int, fallback int) int {
	if value == nil {
		return fallback
	}
	return *value
}
