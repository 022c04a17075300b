package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/learning-insights-api/internal/insights"
	"github.com/noah-isme/learning-insights-api/internal/models"
	appErrors "github.com/noah-isme/learning-insights-api/pkg/errors"
)

// recommendationReader extends the student history reader with catalog and co-study data.
type recommendationReader interface {
	studentHistoryReader
	ListCatalog(ctx context.Context, tenantID, subject string) ([]models.ContentItem, error)
	ListStudyRecords(ctx context.Context, tenantID string, limit int) ([]models.StudyRecord, error)
	ListStudentStudyRecords(ctx context.Context, scope models.InsightScope) ([]models.StudyRecord, error)
}

// RecommendationServiceConfig tunes recommendation behaviour.
type RecommendationServiceConfig struct {
	MaxScoreHistory  int
	MaxPeerRecords   int
	DefaultMinCommon int
}

// RecommendationService ranks catalog content for a student, by content relevance or by
// what similar students studied.
type RecommendationService struct {
	repo      recommendationReader
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       RecommendationServiceConfig
}

// NewRecommendationService constructs a recommendation service.
func NewRecommendationService(repo recommendationReader, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg RecommendationServiceConfig) *RecommendationService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxScoreHistory <= 0 {
		cfg.MaxScoreHistory = 500
	}
	if cfg.MaxPeerRecords <= 0 {
		cfg.MaxPeerRecords = 20000
	}
	if cfg.DefaultMinCommon <= 0 {
		cfg.DefaultMinCommon = 2
	}
	return &RecommendationService{repo: repo, cache: cache, metrics: metrics, validator: validate, logger: logger, cfg: cfg}
}

// Recommend ranks catalog items for the student. The boolean reports whether the catalog
// was served from cache.
func (s *RecommendationService) Recommend(ctx context.Context, req RecommendationRequest) (*models.RecommendationResult, bool, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, false, validationError(err)
	}

	scope := models.InsightScope{TenantID: req.TenantID, StudentID: req.StudentID}
	var (
		scores   []models.ScoreRecord
		plans    []models.PlanRecord
		catalog  []models.ContentItem
		cacheHit bool
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
	g.Go(func() error {
		var err error
		catalog, cacheHit, err = s.catalog(gctx, req.TenantID, req.Subject)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("load recommendation inputs", zap.String("student_id", req.StudentID), zap.Error(err))
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recommendation inputs")
	}

	start := time.Now()
	result := insights.RecommendContent(insights.ContentQuery{
		Scores:         scores,
		Catalog:        catalog,
		Plans:          plans,
		SubjectFilter:  req.Subject,
		Limit:          req.Limit,
		IncludeReasons: req.IncludeReasons,
	})
	s.metrics.RecordRecommendation("content", string(result.Strategy), time.Since(start))

	return &result, cacheHit, nil
}

// PeerRecommendations surfaces content studied by students with overlapping history.
// A zero MinCommon uses the configured default. Students without any study records
// receive an empty result. The boolean is true only when every input (tenant records,
// the student's own records and the catalog) came from cache.
func (s *RecommendationService) PeerRecommendations(ctx context.Context, req PeerRecommendationRequest) (*models.PeerRecommendationResult, bool, error) {
	if req.MinCommon == 0 {
		req.MinCommon = s.cfg.DefaultMinCommon
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, false, validationError(err)
	}

	var (
		records    []models.StudyRecord
		own        []models.StudyRecord
		catalog    []models.ContentItem
		recordsHit bool
		ownHit     bool
		catalogHit bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records, recordsHit, err = s.studyRecords(gctx, req.TenantID)
		return err
	})
	g.Go(func() error {
		var err error
		own, ownHit, err = s.studentStudyRecords(gctx, models.InsightScope{TenantID: req.TenantID, StudentID: req.StudentID})
		return err
	})
	g.Go(func() error {
		var err error
		catalog, catalogHit, err = s.catalog(gctx, req.TenantID, "")
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("load peer inputs", zap.String("student_id", req.StudentID), zap.Error(err))
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load peer recommendation inputs")
	}

	records = withStudentRecords(records, own, req.StudentID)

	start := time.Now()
	matches := insights.FindSimilar(req.StudentID, records, req.MinCommon)
	items := insights.RecommendFromPeers(req.StudentID, insights.PeerIDs(matches), records, catalog, req.Limit)
	s.metrics.RecordRecommendation("collaborative", "", time.Since(start))

	s.logger.Debug("peer recommendations computed",
		zap.String("student_id", req.StudentID),
		zap.Int("peers", len(matches)),
		zap.Int("items", len(items)),
	)
	return &models.PeerRecommendationResult{SimilarStudents: matches, Items: items}, recordsHit && ownHit && catalogHit, nil
}

func (s *RecommendationService) catalog(ctx context.Context, tenantID, subject string) ([]models.ContentItem, bool, error) {
	return cachedLoad(ctx, s.cache, makeCacheKey("catalog", tenantID, subject), func(ctx context.Context) ([]models.ContentItem, error) {
		start := time.Now()
		items, err := s.repo.ListCatalog(ctx, tenantID, subject)
		s.metrics.ObserveDBQuery("insights_catalog", time.Since(start))
		return items, err
	})
}

func (s *RecommendationService) studyRecords(ctx context.Context, tenantID string) ([]models.StudyRecord, bool, error) {
	return cachedLoad(ctx, s.cache, makeCacheKey("study_records", tenantID), func(ctx context.Context) ([]models.StudyRecord, error) {
		start := time.Now()
		records, err := s.repo.ListStudyRecords(ctx, tenantID, s.cfg.MaxPeerRecords)
		s.metrics.ObserveDBQuery("insights_study_records", time.Since(start))
		return records, err
	})
}

func (s *RecommendationService) studentStudyRecords(ctx context.Context, scope models.InsightScope) ([]models.StudyRecord, bool, error) {
	return cachedLoad(ctx, s.cache, makeCacheKey("student_study_records", scope.TenantID, scope.StudentID), func(ctx context.Context) ([]models.StudyRecord, error) {
		start := time.Now()
		records, err := s.repo.ListStudentStudyRecords(ctx, scope)
		s.metrics.ObserveDBQuery("insights_student_study_records", time.Since(start))
		return records, err
	})
}

// withStudentRecords replaces the student's rows in the capped tenant-wide slice with the
// complete set loaded for that student, keeping the other students' encounter order.
func withStudentRecords(tenant, own []models.StudyRecord, studentID string) []models.StudyRecord {
	merged := make([]models.StudyRecord, 0, len(tenant)+len(own))
	merged = append(merged, own...)
	for _, record := range tenant {
		if record.StudentID == studentID {
			continue
		}
		merged = append(merged, record)
	}
	return merged
}
