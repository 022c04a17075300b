package insights

import (
	"gonum.org/v1/gonum/stat"

	"github.com/noah-isme/learning-insights-api/internal/models"
)

// trendBand is the slope (points per assessment) separating stable from moving trends.
const trendBand = 0.5

// AnalyzeTrend fits an ordinary least-squares line of score against position index.
// Fewer than two points yield a stable trend with zero slope and zero fit.
func AnalyzeTrend(scores []float64) models.TrendResult {
	if len(scores) < 2 {
		return models.TrendResult{Direction: models.TrendStable}
	}

	xs := indexSeries(len(scores))
	alpha, beta := stat.LinearRegression(xs, scores, nil, false)

	var fit float64
	if stat.PopVariance(scores, nil) > 0 {
		fit = stat.RSquared(xs, scores, nil, alpha, beta)
	}

	return models.TrendResult{
		Direction:  classifySlope(beta),
		Slope:      beta,
		FitQuality: fit,
	}
}

func classifySlope(slope float64) models.TrendDirection {
	switch {
	case slope > trendBand:
		return models.TrendImproving
	case slope < -trendBand:
		return models.TrendDeclining
	default:
		return models.TrendStable
	}
}
