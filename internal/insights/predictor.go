package insights

import (
	"context"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/noah-isme/learning-insights-api/internal/models"
)

const (
	// MinRecordsForPrediction is the smallest subject history that yields a forecast.
	MinRecordsForPrediction = 3
	// DefaultMinSamplesForModel is the history length at which the model estimator is tried.
	DefaultMinSamplesForModel = 10

	daysPerAssessment  = 30.0
	minTrainingRows    = 3
	featureLags        = 3
	rollingWindow      = 5
	modelConfidenceMin = 0.2
	modelConfidenceFit = 0.8

	insufficientDataMessage = "insufficient score history for prediction"
)

// PredictorConfig tunes the score prediction engine.
type PredictorConfig struct {
	MinSamplesForModel int
	Boosting           BoostingParams
}

// Predictor forecasts a subject score. It holds configuration only and is safe for
// concurrent use.
type Predictor struct {
	minSamplesForModel int
	newModel           func() regressor
}

// NewPredictor constructs a predictor with defaults applied.
func NewPredictor(cfg PredictorConfig) *Predictor {
	if cfg.MinSamplesForModel <= 0 {
		cfg.MinSamplesForModel = DefaultMinSamplesForModel
	}
	params := cfg.Boosting.normalize()
	return &Predictor{
		minSamplesForModel: cfg.MinSamplesForModel,
		newModel:           func() regressor { return newBoostedTrees(params) },
	}
}

// Predict forecasts the subject score daysAhead days from the most recent record.
func (p *Predictor) Predict(scores []models.ScoreRecord, plans []models.PlanRecord, subject string, daysAhead int) models.PredictionResult {
	return p.PredictContext(context.Background(), scores, plans, subject, daysAhead)
}

// PredictContext is Predict with a context bounding model fitting. A cancelled or expired
// context makes the model estimator fail, which degrades to the heuristic estimator.
func (p *Predictor) PredictContext(ctx context.Context, scores []models.ScoreRecord, plans []models.PlanRecord, subject string, daysAhead int) models.PredictionResult {
	values := subjectSeries(scores, subject)
	if len(values) < MinRecordsForPrediction {
		return models.PredictionResult{
			Subject:   subject,
			Trend:     models.TrendUnknown,
			Estimator: models.EstimatorNone,
			Factors:   models.PredictionFactors{Message: insufficientDataMessage},
		}
	}
	if daysAhead < 0 {
		daysAhead = 0
	}

	current := values[len(values)-1]
	trend := AnalyzeTrend(values)

	var (
		est      estimate
		fallback bool
	)
	if len(values) >= p.minSamplesForModel {
		modelEst, err := p.modelEstimate(ctx, values)
		if err != nil {
			est = heuristicEstimate(values, trend, daysAhead)
			fallback = true
		} else {
			est = modelEst
		}
	} else {
		est = heuristicEstimate(values, trend, daysAhead)
	}

	return models.PredictionResult{
		Subject:        subject,
		CurrentScore:   float64Ptr(current),
		PredictedScore: clamp(est.value, 0, 100),
		Confidence:     clamp(est.confidence, 0, 1),
		Trend:          trend.Direction,
		Estimator:      est.estimator,
		Fallback:       fallback,
		Factors:        predictionFactors(values, plans, subject),
	}
}

type estimate struct {
	value      float64
	confidence float64
	estimator  models.Estimator
}

func (p *Predictor) modelEstimate(ctx context.Context, values []float64) (estimate, error) {
	rows := extractFeatures(values)
	trainX := rows[:len(rows)-1]
	trainY := values[1:]
	if len(trainX) < minTrainingRows {
		return estimate{}, errTooFewTrainingRows
	}

	model := p.newModel()
	if err := model.Fit(ctx, trainX, trainY); err != nil {
		return estimate{}, fmt.Errorf("fit model: %w", err)
	}

	predicted := model.Predict(rows[len(rows)-1])
	fit := model.Score(trainX, trainY)
	if !isFinite(predicted) || !isFinite(fit) {
		return estimate{}, errNonFiniteModel
	}

	return estimate{
		value:      predicted,
		confidence: clamp(fit, 0, 1)*modelConfidenceFit + modelConfidenceMin,
		estimator:  models.EstimatorModel,
	}, nil
}

func heuristicEstimate(values []float64, trend models.TrendResult, daysAhead int) estimate {
	n := len(values)
	weights := make([]float64, n)
	if n == 1 {
		weights[0] = 1
	} else {
		floats.Span(weights, 0, 1)
		for i, w := range weights {
			weights[i] = math.Exp(w)
		}
	}
	weighted := floats.Dot(values, weights) / floats.Sum(weights)

	predicted := weighted + trend.Slope*(float64(daysAhead)/daysPerAssessment)
	confidence := 0.5*math.Min(float64(n)/10, 1) + 0.5*math.Min(math.Abs(trend.FitQuality), 1)

	return estimate{value: predicted, confidence: confidence, estimator: models.EstimatorHeuristic}
}

// extractFeatures builds one row per index: three lagged scores, a trailing mean and a
// trailing population standard deviation.
func extractFeatures(values []float64) [][]float64 {
	rows := make([][]float64, len(values))
	for i := range values {
		row := make([]float64, 0, featureLags+2)
		for lag := 1; lag <= featureLags; lag++ {
			idx := i - lag
			if idx < 0 {
				idx = 0
			}
			row = append(row, values[idx])
		}

		start := i + 1 - rollingWindow
		if start < 0 {
			start = 0
		}
		window := values[start : i+1]
		row = append(row, mean(window))

		std := 0.0
		if i >= 2 {
			std = popStdDev(window)
		}
		row = append(row, std)

		rows[i] = row
	}
	return rows
}

func predictionFactors(values []float64, plans []models.PlanRecord, subject string) models.PredictionFactors {
	n := len(values)
	factors := models.PredictionFactors{AverageScore: float64Ptr(mean(values))}
	if n >= 2 {
		factors.RecentChange = float64Ptr(values[n-1] - values[n-2])
	}
	if n >= 3 {
		factors.Volatility = float64Ptr(popStdDev(values))
	}

	sessions := 0
	minutes := 0.0
	for _, plan := range plans {
		if plan.Subject != subject {
			continue
		}
		sessions++
		if plan.ActualDuration != nil {
			minutes += *plan.ActualDuration
		}
	}
	if sessions > 0 {
		factors.StudySessions = intPtr(sessions)
		factors.TotalStudyMinutes = float64Ptr(minutes)
	}
	return factors
}

// subjectSeries returns the subject's scores ordered by time. The input is not modified.
func subjectSeries(scores []models.ScoreRecord, subject string) []float64 {
	filtered := make([]models.ScoreRecord, 0, len(scores))
	for _, s := range scores {
		if s.Subject == subject {
			filtered = append(filtered, s)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].RecordedAt.Before(filtered[j].RecordedAt)
	})

	values := make([]float64, len(filtered))
	for i, s := range filtered {
		values[i] = s.Score
	}
	return values
}
