package service

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/learning-insights-api/internal/insights"
	"github.com/noah-isme/learning-insights-api/internal/models"
	appErrors "github.com/noah-isme/learning-insights-api/pkg/errors"
)

// studentHistoryReader loads the per-student rows the engines consume.
type studentHistoryReader interface {
	ListScores(ctx context.Context, scope models.InsightScope, limit int) ([]models.ScoreRecord, error)
	ListPlans(ctx context.Context, scope models.InsightScope) ([]models.PlanRecord, error)
}

// PredictionServiceConfig tunes prediction behaviour.
type PredictionServiceConfig struct {
	MinSamplesForModel int
	ModelTimeout       time.Duration
	MaxScoreHistory    int
}

// PredictionService forecasts subject scores from a student's assessment history.
type PredictionService struct {
	repo      studentHistoryReader
	predictor *insights.Predictor
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       PredictionServiceConfig
}

// NewPredictionService constructs a prediction service.
func NewPredictionService(repo studentHistoryReader, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg PredictionServiceConfig) *PredictionService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ModelTimeout <= 0 {
		cfg.ModelTimeout = 2 * time.Second
	}
	if cfg.MaxScoreHistory <= 0 {
		cfg.MaxScoreHistory = 500
	}
	return &PredictionService{
		repo:      repo,
		predictor: insights.NewPredictor(insights.PredictorConfig{MinSamplesForModel: cfg.MinSamplesForModel}),
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// Predict forecasts one subject. The boolean reports whether the result came from cache.
func (s *PredictionService) Predict(ctx context.Context, req PredictionRequest) (*models.PredictionResult, bool, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, false, validationError(err)
	}

	key := makeCacheKey("prediction", req.TenantID, req.StudentID, req.Subject, strconv.Itoa(req.DaysAhead))
	result, hit, err := cachedLoadWhen(ctx, s.cache, key, func(ctx context.Context) (models.PredictionResult, error) {
		scores, plans, err := s.loadHistory(ctx, models.InsightScope{TenantID: req.TenantID, StudentID: req.StudentID})
		if err != nil {
			return models.PredictionResult{}, err
		}
		return s.run(ctx, req.StudentID, scores, plans, req.Subject, req.DaysAhead), nil
	}, servedByIntendedEstimator)
	if err != nil {
		return nil, false, err
	}
	return &result, hit, nil
}

// servedByIntendedEstimator rejects fallback results so a timed-out model run is
// recomputed on the next request.
func servedByIntendedEstimator(result models.PredictionResult) bool {
	return !result.Fallback
}

// PredictAll forecasts every subject present in the student's history, ordered by subject.
func (s *PredictionService) PredictAll(ctx context.Context, scope models.InsightScope, daysAhead int) ([]models.PredictionResult, error) {
	if scope.StudentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "missing required parameter: student_id")
	}
	scores, plans, err := s.loadHistory(ctx, scope)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	subjects := make([]string, 0)
	for _, record := range scores {
		if _, ok := seen[record.Subject]; ok {
			continue
		}
		seen[record.Subject] = struct{}{}
		subjects = append(subjects, record.Subject)
	}
	sort.Strings(subjects)

	results := make([]models.PredictionResult, 0, len(subjects))
	for _, subject := range subjects {
		results = append(results, s.run(ctx, scope.StudentID, scores, plans, subject, daysAhead))
	}
	return results, nil
}

// loadHistory fetches scores and plans concurrently. A student without any score rows is
// reported as not found.
func (s *PredictionService) loadHistory(ctx context.Context, scope models.InsightScope) ([]models.ScoreRecord, []models.PlanRecord, error) {
	var (
		scores []models.ScoreRecord
		plans  []models.PlanRecord
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		var err error
		scores, err = s.repo.ListScores(gctx, scope, s.cfg.MaxScoreHistory)
		s.metrics.ObserveDBQuery("insights_scores", time.Since(start))
		return err
	})
	g.Go(func() error {
		start := time.Now()
		var err error
		plans, err = s.repo.ListPlans(gctx, scope)
		s.metrics.ObserveDBQuery("insights_plans", time.Since(start))
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("load student history", zap.String("student_id", scope.StudentID), zap.Error(err))
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student history")
	}
	if len(scores) == 0 {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "no score history for student")
	}
	return scores, plans, nil
}

func (s *PredictionService) run(ctx context.Context, studentID string, scores []models.ScoreRecord, plans []models.PlanRecord, subject string, daysAhead int) models.PredictionResult {
	modelCtx, cancel := context.WithTimeout(ctx, s.cfg.ModelTimeout)
	defer cancel()

	start := time.Now()
	result := s.predictor.PredictContext(modelCtx, scores, plans, subject, daysAhead)
	s.metrics.RecordPrediction(string(result.Estimator), result.Fallback, time.Since(start))

	if result.Fallback {
		s.logger.Warn("model estimator failed, served heuristic prediction",
			zap.String("student_id", studentID),
			zap.String("subject", subject),
		)
	}
	return result
}
