package dto

import (
	"math"
	"time"

	"github.com/noah-isme/learning-insights-api/internal/models"
)

// PredictionQuery captures GET /students/:id/predictions query parameters.
type PredictionQuery struct {
	Subject   string `form:"subject"`
	DaysAhead *int   `form:"days_ahead"`
	TenantID  string `form:"tenant_id"`
}

// RecommendationQuery captures GET /students/:id/recommendations query parameters.
type RecommendationQuery struct {
	Subject        string `form:"subject"`
	Limit          *int   `form:"limit"`
	IncludeReasons *bool  `form:"include_reasons"`
	TenantID       string `form:"tenant_id"`
}

// PeerRecommendationQuery captures GET /students/:id/recommendations/peers query parameters.
type PeerRecommendationQuery struct {
	Limit     *int   `form:"limit"`
	MinCommon *int   `form:"min_common"`
	TenantID  string `form:"tenant_id"`
}

// ReportQuery captures GET /students/:id/insights/report query parameters.
type ReportQuery struct {
	Format    string `form:"format"`
	DaysAhead *int   `form:"days_ahead"`
	TenantID  string `form:"tenant_id"`
}

// PredictionResponse is the API shape of a score forecast.
type PredictionResponse struct {
	StudentID      string                   `json:"student_id"`
	Subject        string                   `json:"subject"`
	DaysAhead      int                      `json:"days_ahead"`
	CurrentScore   *float64                 `json:"current_score"`
	PredictedScore float64                  `json:"predicted_score"`
	Confidence     float64                  `json:"confidence"`
	Trend          models.TrendDirection    `json:"trend"`
	Estimator      models.Estimator         `json:"estimator"`
	Fallback       bool                     `json:"fallback"`
	Factors        models.PredictionFactors `json:"factors"`
}

// NewPredictionResponse rounds scores to one decimal and confidence to two.
func NewPredictionResponse(studentID string, daysAhead int, result *models.PredictionResult) PredictionResponse {
	resp := PredictionResponse{
		StudentID:      studentID,
		Subject:        result.Subject,
		DaysAhead:      daysAhead,
		PredictedScore: roundTo(result.PredictedScore, 1),
		Confidence:     roundTo(result.Confidence, 2),
		Trend:          result.Trend,
		Estimator:      result.Estimator,
		Fallback:       result.Fallback,
		Factors:        result.Factors,
	}
	if result.CurrentScore != nil {
		current := roundTo(*result.CurrentScore, 1)
		resp.CurrentScore = &current
	}
	return resp
}

// RecommendationResponse is the API shape of a ranked content list.
type RecommendationResponse struct {
	StudentID string `json:"student_id"`
	models.RecommendationResult
	GeneratedAt time.Time `json:"generated_at"`
}

// PeerMatchResponse is a similar student with rounded similarity.
type PeerMatchResponse struct {
	StudentID   string  `json:"student_id"`
	Similarity  float64 `json:"similarity"`
	CommonItems int     `json:"common_items"`
}

// PeerRecommendationResponse is the API shape of collaborative recommendations.
type PeerRecommendationResponse struct {
	StudentID       string                      `json:"student_id"`
	SimilarStudents []PeerMatchResponse         `json:"similar_students"`
	Items           []models.PeerRecommendation `json:"items"`
}

// NewPeerRecommendationResponse rounds similarities to three decimals.
func NewPeerRecommendationResponse(studentID string, result *models.PeerRecommendationResult) PeerRecommendationResponse {
	peers := make([]PeerMatchResponse, 0, len(result.SimilarStudents))
	for _, m := range result.SimilarStudents {
		peers = append(peers, PeerMatchResponse{StudentID: m.StudentID, Similarity: roundTo(m.Similarity, 3), CommonItems: m.CommonItems})
	}
	items := result.Items
	if items == nil {
		items = []models.PeerRecommendation{}
	}
	return PeerRecommendationResponse{StudentID: studentID, SimilarStudents: peers, Items: items}
}

func roundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
