package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/learning-insights-api/internal/middleware"
	"github.com/noah-isme/learning-insights-api/internal/models"
	"github.com/noah-isme/learning-insights-api/internal/service"
	appErrors "github.com/noah-isme/learning-insights-api/pkg/errors"
)

type fakePredictionSrv struct {
	result  *models.PredictionResult
	hit     bool
	err     error
	lastReq service.PredictionRequest
}

func (f *fakePredictionSrv) Predict(_ context.Context, req service.PredictionRequest) (*models.PredictionResult, bool, error) {
	f.lastReq = req
	return f.result, f.hit, f.err
}

type fakeRecommendationSrv struct {
	result      *models.RecommendationResult
	peers       *models.PeerRecommendationResult
	hit         bool
	err         error
	lastReq     service.RecommendationRequest
	lastPeerReq service.PeerRecommendationRequest
}

func (f *fakeRecommendationSrv) Recommend(_ context.Context, req service.RecommendationRequest) (*models.RecommendationResult, bool, error) {
	f.lastReq = req
	return f.result, f.hit, f.err
}

func (f *fakeRecommendationSrv) PeerRecommendations(_ context.Context, req service.PeerRecommendationRequest) (*models.PeerRecommendationResult, bool, error) {
	f.lastPeerReq = req
	return f.peers, f.hit, f.err
}

type insightEnvelope struct {
	Data  map[string]interface{} `json:"data"`
	Error map[string]interface{} `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

func serveInsight(t *testing.T, h gin.HandlerFunc, target string) (*httptest.ResponseRecorder, insightEnvelope) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	_, router := gin.CreateTestContext(rec)
	router.Use(middleware.WithResponseMeta())
	router.GET("/students/:id/predictions", h)
	router.GET("/students/:id/recommendations", h)
	router.GET("/students/:id/recommendations/peers", h)

	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	var envelope insightEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return rec, envelope
}

func TestInsightHandlerPredictionsDefaults(t *testing.T) {
	current := 67.0
	srv := &fakePredictionSrv{
		result: &models.PredictionResult{Subject: "math", CurrentScore: &current, PredictedScore: 65.4608, Confidence: 0.75, Trend: models.TrendImproving, Estimator: models.EstimatorHeuristic},
		hit:    true,
	}
	h := NewInsightHandler(srv, nil)

	rec, envelope := serveInsight(t, h.Predictions, "/students/s1/predictions?subject=math")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.PredictionRequest{StudentID: "s1", Subject: "math", DaysAhead: 30}, srv.lastReq)
	assert.Equal(t, 65.5, envelope.Data["predicted_score"])
	assert.Equal(t, "heuristic", envelope.Data["estimator"])
	assert.Equal(t, true, envelope.Meta["cache_hit"])
}

func TestInsightHandlerPredictionsPassesExplicitHorizon(t *testing.T) {
	srv := &fakePredictionSrv{result: &models.PredictionResult{Subject: "math", Estimator: models.EstimatorNone}}
	h := NewInsightHandler(srv, nil)

	rec, _ := serveInsight(t, h.Predictions, "/students/s1/predictions?subject=math&days_ahead=0&tenant_id=t1")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, srv.lastReq.DaysAhead)
	assert.Equal(t, "t1", srv.lastReq.TenantID)
}

func TestInsightHandlerPredictionsInvalidNumber(t *testing.T) {
	h := NewInsightHandler(&fakePredictionSrv{}, nil)

	rec, envelope := serveInsight(t, h.Predictions, "/students/s1/predictions?subject=math&days_ahead=soon")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", envelope.Error["code"])
}

func TestInsightHandlerPredictionsServiceErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"missing subject", appErrors.Clone(appErrors.ErrValidation, "missing required parameter: subject"), http.StatusBadRequest},
		{"out of range", appErrors.Clone(appErrors.ErrUnprocessable, "days_ahead must satisfy max=365"), http.StatusUnprocessableEntity},
		{"no history", appErrors.Clone(appErrors.ErrNotFound, "no score history for student"), http.StatusNotFound},
		{"unexpected", assert.AnError, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewInsightHandler(&fakePredictionSrv{err: tc.err}, nil)
			rec, _ := serveInsight(t, h.Predictions, "/students/s1/predictions?subject=math")
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestInsightHandlerRecommendations(t *testing.T) {
	srv := &fakeRecommendationSrv{result: &models.RecommendationResult{
		Items:        []models.ScoredContent{{Content: models.ContentItem{ID: "c-1"}, RelevanceScore: 85}},
		WeakSubjects: []string{"science"},
		Strategy:     models.StrategyWeakPriority,
	}}
	h := NewInsightHandler(nil, srv)
	h.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }

	rec, envelope := serveInsight(t, h.Recommendations, "/students/s1/recommendations?subject=math&limit=5&include_reasons=false")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.RecommendationRequest{StudentID: "s1", Subject: "math", Limit: 5, IncludeReasons: false}, srv.lastReq)
	assert.Equal(t, "weak_priority", envelope.Data["strategy"])
	assert.Equal(t, "s1", envelope.Data["student_id"])
	assert.Equal(t, "2024-06-01T00:00:00Z", envelope.Data["generated_at"])
	assert.Len(t, envelope.Data["items"], 1)
}

func TestInsightHandlerRecommendationsDefaults(t *testing.T) {
	srv := &fakeRecommendationSrv{result: &models.RecommendationResult{Items: []models.ScoredContent{}}}
	h := NewInsightHandler(nil, srv)

	rec, _ := serveInsight(t, h.Recommendations, "/students/s1/recommendations")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10, srv.lastReq.Limit)
	assert.True(t, srv.lastReq.IncludeReasons)
}

func TestInsightHandlerPeerRecommendations(t *testing.T) {
	srv := &fakeRecommendationSrv{peers: &models.PeerRecommendationResult{
		SimilarStudents: []models.PeerMatch{{StudentID: "s2", Similarity: 2.0 / 3.0, CommonItems: 2}},
		Items:           []models.PeerRecommendation{{Content: models.ContentItem{ID: "c3"}, PeerCount: 2}},
	}}
	h := NewInsightHandler(nil, srv)

	rec, envelope := serveInsight(t, h.PeerRecommendations, "/students/s1/recommendations/peers?min_common=3")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.PeerRecommendationRequest{StudentID: "s1", Limit: 10, MinCommon: 3}, srv.lastPeerReq)
	peers := envelope.Data["similar_students"].([]interface{})
	require.Len(t, peers, 1)
	assert.Equal(t, 0.667, peers[0].(map[string]interface{})["similarity"])
}
