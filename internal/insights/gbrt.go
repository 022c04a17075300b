package insights

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	errTooFewTrainingRows = errors.New("too few training rows")
	errNonFiniteModel     = errors.New("model produced a non-finite value")
)

// regressor is the nonlinear model behind the model-based estimator.
type regressor interface {
	Fit(ctx context.Context, features [][]float64, labels []float64) error
	Predict(features []float64) float64
	// Score returns the coefficient of determination on the given rows.
	Score(features [][]float64, labels []float64) float64
}

// BoostingParams tunes the gradient-boosted tree regressor.
type BoostingParams struct {
	Rounds       int
	LearningRate float64
	MaxDepth     int
	MinLeafSize  int
}

// DefaultBoostingParams mirrors the usual small-data defaults for gradient boosting.
func DefaultBoostingParams() BoostingParams {
	return BoostingParams{Rounds: 100, LearningRate: 0.1, MaxDepth: 3, MinLeafSize: 1}
}

func (p BoostingParams) normalize() BoostingParams {
	d := DefaultBoostingParams()
	if p.Rounds <= 0 {
		p.Rounds = d.Rounds
	}
	if p.LearningRate <= 0 || p.LearningRate > 1 {
		p.LearningRate = d.LearningRate
	}
	if p.MaxDepth <= 0 {
		p.MaxDepth = d.MaxDepth
	}
	if p.MinLeafSize <= 0 {
		p.MinLeafSize = d.MinLeafSize
	}
	return p
}

// boostedTrees is a least-squares gradient-boosted ensemble of regression trees.
// Fitting is deterministic: no row or feature subsampling.
type boostedTrees struct {
	params BoostingParams
	base   float64
	trees  []*treeNode
}

func newBoostedTrees(params BoostingParams) *boostedTrees {
	return &boostedTrees{params: params.normalize()}
}

type treeNode struct {
	leaf      bool
	value     float64
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
}

func (n *treeNode) predict(x []float64) float64 {
	for !n.leaf {
		if x[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

// Fit trains the ensemble. The context is checked between boosting rounds.
func (m *boostedTrees) Fit(ctx context.Context, features [][]float64, labels []float64) error {
	if len(features) != len(labels) {
		return fmt.Errorf("feature rows %d != labels %d", len(features), len(labels))
	}
	if len(labels) == 0 {
		return errTooFewTrainingRows
	}

	m.base = mean(labels)
	m.trees = m.trees[:0]

	current := make([]float64, len(labels))
	for i := range current {
		current[i] = m.base
	}
	residuals := make([]float64, len(labels))
	rows := make([]int, len(labels))
	for i := range rows {
		rows[i] = i
	}

	for round := 0; round < m.params.Rounds; round++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("boosting round %d: %w", round, err)
		}
		for i := range residuals {
			residuals[i] = labels[i] - current[i]
		}
		tree := m.buildNode(features, residuals, rows, 0)
		m.trees = append(m.trees, tree)
		for i := range current {
			current[i] += m.params.LearningRate * tree.predict(features[i])
		}
	}
	return nil
}

// Predict evaluates the ensemble for one feature row.
func (m *boostedTrees) Predict(features []float64) float64 {
	out := m.base
	for _, tree := range m.trees {
		out += m.params.LearningRate * tree.predict(features)
	}
	return out
}

// Score returns R² of the ensemble on the rows. A constant target scores 1 when it is
// reproduced exactly and 0 otherwise.
func (m *boostedTrees) Score(features [][]float64, labels []float64) float64 {
	if len(labels) == 0 {
		return 0
	}
	avg := mean(labels)
	var ssRes, ssTot float64
	for i, row := range features {
		diff := labels[i] - m.Predict(row)
		ssRes += diff * diff
		dev := labels[i] - avg
		ssTot += dev * dev
	}
	if ssTot == 0 {
		if ssRes < 1e-12 {
			return 1
		}
		return 0
	}
	return 1 - ssRes/ssTot
}

func (m *boostedTrees) buildNode(features [][]float64, targets []float64, rows []int, depth int) *treeNode {
	leafValue := 0.0
	for _, r := range rows {
		leafValue += targets[r]
	}
	leafValue /= float64(len(rows))

	if depth >= m.params.MaxDepth || len(rows) < 2*m.params.MinLeafSize {
		return &treeNode{leaf: true, value: leafValue}
	}

	feature, threshold, ok := m.bestSplit(features, targets, rows)
	if !ok {
		return &treeNode{leaf: true, value: leafValue}
	}

	var left, right []int
	for _, r := range rows {
		if features[r][feature] <= threshold {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}

	return &treeNode{
		feature:   feature,
		threshold: threshold,
		left:      m.buildNode(features, targets, left, depth+1),
		right:     m.buildNode(features, targets, right, depth+1),
	}
}

// bestSplit scans every feature for the threshold with the largest reduction in squared
// error. Ties keep the first candidate found so training is reproducible.
func (m *boostedTrees) bestSplit(features [][]float64, targets []float64, rows []int) (int, float64, bool) {
	n := len(rows)
	var total, totalSq float64
	for _, r := range rows {
		total += targets[r]
		totalSq += targets[r] * targets[r]
	}
	parentSSE := totalSq - total*total/float64(n)
	if parentSSE <= 1e-12 {
		return 0, 0, false
	}

	bestGain := 0.0
	bestFeature := -1
	bestThreshold := 0.0

	sorted := make([]int, n)
	for f := 0; f < len(features[rows[0]]); f++ {
		copy(sorted, rows)
		sort.SliceStable(sorted, func(i, j int) bool {
			return features[sorted[i]][f] < features[sorted[j]][f]
		})

		var leftSum, leftSq float64
		for i := 0; i < n-1; i++ {
			t := targets[sorted[i]]
			leftSum += t
			leftSq += t * t

			cur, next := features[sorted[i]][f], features[sorted[i+1]][f]
			if cur == next {
				continue
			}
			leftN := i + 1
			rightN := n - leftN
			if leftN < m.params.MinLeafSize || rightN < m.params.MinLeafSize {
				continue
			}
			rightSum := total - leftSum
			rightSq := totalSq - leftSq
			sse := (leftSq - leftSum*leftSum/float64(leftN)) + (rightSq - rightSum*rightSum/float64(rightN))
			gain := parentSSE - sse
			if gain > bestGain+1e-12 {
				bestGain = gain
				bestFeature = f
				bestThreshold = (cur + next) / 2
			}
		}
	}

	if bestFeature < 0 {
		return 0, 0, false
	}
	return bestFeature, bestThreshold, true
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
