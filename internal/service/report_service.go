package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/learning-insights-api/internal/insights"
	"github.com/noah-isme/learning-insights-api/internal/models"
	appErrors "github.com/noah-isme/learning-insights-api/pkg/errors"
	"github.com/noah-isme/learning-insights-api/pkg/export"
)

// Report formats.
const (
	ReportFormatCSV = "csv"
	ReportFormatPDF = "pdf"
)

const reportRecommendationLimit = 10

type subjectPredictor interface {
	PredictAll(ctx context.Context, scope models.InsightScope, daysAhead int) ([]models.PredictionResult, error)
}

type contentRecommender interface {
	Recommend(ctx context.Context, req RecommendationRequest) (*models.RecommendationResult, bool, error)
}

type reportRenderer interface {
	Render(report export.Report) ([]byte, error)
}

// ReportRequest selects the student and format of an insight report.
type ReportRequest struct {
	TenantID  string
	StudentID string `name:"student_id" validate:"required"`
	Format    string `name:"format" validate:"oneof=csv pdf"`
	DaysAhead int    `name:"days_ahead" validate:"min=0,max=365"`
}

// ReportFile is a rendered report ready for download.
type ReportFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ReportService renders per-subject predictions and top recommendations into a
// downloadable document.
type ReportService struct {
	predictions     subjectPredictor
	recommendations contentRecommender
	csv             reportRenderer
	pdf             reportRenderer
	validator       *validator.Validate
	logger          *zap.Logger
	now             func() time.Time
}

// NewReportService constructs a ReportService. Nil renderers fall back to the default exporters.
func NewReportService(predictions subjectPredictor, recommendations contentRecommender, csv, pdf reportRenderer, validate *validator.Validate, logger *zap.Logger) *ReportService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter("")
	}
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		predictions:     predictions,
		recommendations: recommendations,
		csv:             csv,
		pdf:             pdf,
		validator:       validate,
		logger:          logger,
		now:             time.Now,
	}
}

// Export renders the insight report of a student.
func (s *ReportService) Export(ctx context.Context, req ReportRequest) (*ReportFile, error) {
	if req.Format == "" {
		req.Format = ReportFormatCSV
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}

	scope := models.InsightScope{TenantID: req.TenantID, StudentID: req.StudentID}
	predictions, err := s.predictions.PredictAll(ctx, scope, req.DaysAhead)
	if err != nil {
		return nil, err
	}
	recommendations, _, err := s.recommendations.Recommend(ctx, RecommendationRequest{
		TenantID:       req.TenantID,
		StudentID:      req.StudentID,
		Limit:          reportRecommendationLimit,
		IncludeReasons: true,
	})
	if err != nil {
		return nil, err
	}

	generatedAt := s.now().UTC()
	report := export.Report{
		Title:       "Learning insights report",
		Subtitle:    fmt.Sprintf("student %s, %d days ahead", req.StudentID, req.DaysAhead),
		GeneratedAt: generatedAt,
		Sections: []export.Section{
			{Title: "Score predictions", Data: predictionDataset(predictions)},
			{Title: "Recommended content (" + string(recommendations.Strategy) + ")", Data: recommendationDataset(recommendations)},
		},
	}

	renderer, contentType := s.csv, "text/csv"
	if req.Format == ReportFormatPDF {
		renderer, contentType = s.pdf, "application/pdf"
	}
	content, err := renderer.Render(report)
	if err != nil {
		s.logger.Error("render insight report", zap.String("student_id", req.StudentID), zap.String("format", req.Format), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}

	return &ReportFile{
		Filename:    fmt.Sprintf("insights_%s_%s.%s", req.StudentID, generatedAt.Format("20060102"), req.Format),
		ContentType: contentType,
		Content:     content,
	}, nil
}

func predictionDataset(results []models.PredictionResult) export.Dataset {
	headers := []string{"subject", "current_score", "predicted_score", "confidence", "trend", "estimator"}
	rows := make([]map[string]string, 0, len(results))
	for _, r := range results {
		current := ""
		if r.CurrentScore != nil {
			current = formatFloat(*r.CurrentScore, 1)
		}
		rows = append(rows, map[string]string{
			"subject":         r.Subject,
			"current_score":   current,
			"predicted_score": formatFloat(r.PredictedScore, 1),
			"confidence":      formatFloat(r.Confidence, 2),
			"trend":           string(r.Trend),
			"estimator":       string(r.Estimator),
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}

func recommendationDataset(result *models.RecommendationResult) export.Dataset {
	headers := []string{"content_id", "title", "subject", "type", "difficulty", "relevance_score", "reason"}
	rows := make([]map[string]string, 0, len(result.Items))
	for _, item := range result.Items {
		rows = append(rows, map[string]string{
			"content_id":      item.Content.ID,
			"title":           item.Content.Title,
			"subject":         item.Content.Subject,
			"type":            insights.ContentTypeLabel(item.Content.ContentType),
			"difficulty":      string(item.Content.Difficulty),
			"relevance_score": strconv.Itoa(item.RelevanceScore),
			"reason":          item.Reason,
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}

func formatFloat(v float64, precision int) string {
	return strconv.FormatFloat(v, 'f', precision, 64)
}
