package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/learning-insights-api/internal/models"
	appErrors "github.com/noah-isme/learning-insights-api/pkg/errors"
)

func newTestPredictionService(repo *fakeInsightRepo, cache *CacheService, metrics *MetricsService) *PredictionService {
	return NewPredictionService(repo, cache, metrics, nil, zap.NewNop(), PredictionServiceConfig{MinSamplesForModel: 10, ModelTimeout: time.Second})
}

func TestPredictionServicePredictHeuristic(t *testing.T) {
	repo := &fakeInsightRepo{scores: fixtureScores()}
	metrics := NewMetricsService()
	svc := newTestPredictionService(repo, nil, metrics)

	result, hit, err := svc.Predict(context.Background(), PredictionRequest{StudentID: "student-1", Subject: "math", DaysAhead: 30})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, models.EstimatorHeuristic, result.Estimator)
	assert.Equal(t, models.TrendImproving, result.Trend)
	assert.False(t, result.Fallback)
	require.NotNil(t, result.CurrentScore)
	assert.Equal(t, 67.0, *result.CurrentScore)
	assert.InDelta(t, 65.46, result.PredictedScore, 0.01)
	assert.InDelta(t, 0.75, result.Confidence, 1e-9)

	snapshot := metrics.Snapshot()
	assert.Equal(t, uint64(1), snapshot.Predictions["heuristic"])
	assert.Equal(t, uint64(2), snapshot.DBQueryCount)
}

func TestPredictionServiceInsufficientSubjectHistory(t *testing.T) {
	repo := &fakeInsightRepo{scores: fixtureScores()}
	svc := newTestPredictionService(repo, nil, nil)

	result, _, err := svc.Predict(context.Background(), PredictionRequest{StudentID: "student-1", Subject: "science", DaysAhead: 30})
	require.NoError(t, err)
	assert.Equal(t, models.EstimatorNone, result.Estimator)
	assert.Nil(t, result.CurrentScore)
	assert.NotEmpty(t, result.Factors.Message)
}

func TestPredictionServiceModelFallbackOnCancelledContext(t *testing.T) {
	repo := &fakeInsightRepo{scores: scoreSeries("physics", fixtureStart, 50, 52, 55, 53, 58, 60, 62, 61, 65, 67, 70, 72)}
	metrics := NewMetricsService()
	svc := newTestPredictionService(repo, nil, metrics)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, _, err := svc.Predict(ctx, PredictionRequest{StudentID: "student-1", Subject: "physics", DaysAhead: 30})
	require.NoError(t, err)
	assert.Equal(t, models.EstimatorHeuristic, result.Estimator)
	assert.True(t, result.Fallback)
	assert.Equal(t, uint64(1), metrics.Snapshot().ModelFallbacks)
}

func TestPredictionServiceUsesModelWithEnoughSamples(t *testing.T) {
	repo := &fakeInsightRepo{scores: scoreSeries("physics", fixtureStart, 50, 52, 55, 53, 58, 60, 62, 61, 65, 67, 70, 72)}
	svc := newTestPredictionService(repo, nil, nil)

	result, _, err := svc.Predict(context.Background(), PredictionRequest{StudentID: "student-1", Subject: "physics", DaysAhead: 30})
	require.NoError(t, err)
	assert.Equal(t, models.EstimatorModel, result.Estimator)
	assert.False(t, result.Fallback)
	assert.GreaterOrEqual(t, result.Confidence, 0.2)
	assert.LessOrEqual(t, result.Confidence, 1.0)
}

func TestPredictionServiceValidation(t *testing.T) {
	svc := newTestPredictionService(&fakeInsightRepo{}, nil, nil)

	_, _, err := svc.Predict(context.Background(), PredictionRequest{StudentID: "student-1", DaysAhead: 30})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.Contains(t, appErr.Message, "subject")

	_, _, err = svc.Predict(context.Background(), PredictionRequest{StudentID: "student-1", Subject: "math", DaysAhead: 400})
	require.Error(t, err)
	appErr = appErrors.FromError(err)
	assert.Equal(t, http.StatusUnprocessableEntity, appErr.Status)
	assert.Contains(t, appErr.Message, "days_ahead")

	_, _, err = svc.Predict(context.Background(), PredictionRequest{Subject: "math", DaysAhead: 30})
	require.Error(t, err)
	appErr = appErrors.FromError(err)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.Equal(t, "missing required parameter: student_id", appErr.Message)
}

func TestPredictionServiceNoHistory(t *testing.T) {
	svc := newTestPredictionService(&fakeInsightRepo{}, nil, nil)

	_, _, err := svc.Predict(context.Background(), PredictionRequest{StudentID: "ghost", Subject: "math", DaysAhead: 30})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestPredictionServiceRepositoryError(t *testing.T) {
	repo := &fakeInsightRepo{scores: fixtureScores(), planErr: assert.AnError}
	svc := newTestPredictionService(repo, nil, nil)

	_, _, err := svc.Predict(context.Background(), PredictionRequest{StudentID: "student-1", Subject: "math", DaysAhead: 30})
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, http.StatusInternalServerError, appErrors.FromError(err).Status)
}

func TestPredictionServiceCaching(t *testing.T) {
	repo := &fakeInsightRepo{scores: fixtureScores()}
	cache := NewCacheService(&memoryCacheRepo{}, nil, time.Minute, zap.NewNop(), true)
	svc := newTestPredictionService(repo, cache, nil)
	req := PredictionRequest{StudentID: "student-1", Subject: "math", DaysAhead: 30}

	first, hit, err := svc.Predict(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, hit)

	second, hit, err := svc.Predict(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, int32(1), repo.scoreCalls)
	assert.Equal(t, first.PredictedScore, second.PredictedScore)
	assert.Equal(t, first.Trend, second.Trend)
}

func TestPredictionServiceDoesNotCacheFallbacks(t *testing.T) {
	repo := &fakeInsightRepo{scores: scoreSeries("physics", fixtureStart, 50, 52, 55, 53, 58, 60, 62, 61, 65, 67, 70, 72, 71, 74, 76)}
	cache := NewCacheService(&memoryCacheRepo{}, nil, time.Minute, zap.NewNop(), true)
	svc := newTestPredictionService(repo, cache, nil)
	req := PredictionRequest{StudentID: "student-1", Subject: "physics", DaysAhead: 30}

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	degraded, hit, err := svc.Predict(cancelled, req)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.True(t, degraded.Fallback)
	assert.Equal(t, models.EstimatorHeuristic, degraded.Estimator)

	recovered, hit, err := svc.Predict(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.False(t, recovered.Fallback)
	assert.Equal(t, models.EstimatorModel, recovered.Estimator)
	assert.Equal(t, int32(2), repo.scoreCalls)

	cached, hit, err := svc.Predict(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, models.EstimatorModel, cached.Estimator)
	assert.Equal(t, int32(2), repo.scoreCalls)
}

func TestPredictionServicePredictAll(t *testing.T) {
	repo := &fakeInsightRepo{scores: fixtureScores()}
	svc := newTestPredictionService(repo, nil, nil)

	results, err := svc.PredictAll(context.Background(), models.InsightScope{StudentID: "student-1"}, 14)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "english", results[0].Subject)
	assert.Equal(t, "math", results[1].Subject)
	assert.Equal(t, "science", results[2].Subject)
	assert.Equal(t, models.EstimatorNone, results[2].Estimator)
	assert.Equal(t, int32(1), repo.scoreCalls)
}
