package insights

import (
	"sort"
	"strings"

	"github.com/noah-isme/learning-insights-api/internal/models"
)

const (
	// WeakScoreThreshold is the absolute ceiling of the weak-subject threshold.
	WeakScoreThreshold = 60.0

	weakFocusMinSubjects = 3
	recentSessionWindow  = 10

	weakSubjectHit  = 40
	weakSubjectMiss = 10

	difficultyUnknown = 15

	diversityNewType  = 20
	diversitySeenType = 10

	noveltyUnstudied = 10
	noveltyStudied   = 0
)

// difficultyMatrix[preferred][actual] rewards an exact match and penalises distance.
// A medium learner is nudged up rather than down.
var difficultyMatrix = map[models.Difficulty]map[models.Difficulty]int{
	models.DifficultyEasy:   {models.DifficultyEasy: 30, models.DifficultyMedium: 20, models.DifficultyHard: 10},
	models.DifficultyMedium: {models.DifficultyEasy: 15, models.DifficultyMedium: 30, models.DifficultyHard: 20},
	models.DifficultyHard:   {models.DifficultyEasy: 10, models.DifficultyMedium: 20, models.DifficultyHard: 30},
}

// ContentQuery is the input of RecommendContent.
type ContentQuery struct {
	Scores         []models.ScoreRecord
	Catalog        []models.ContentItem
	Plans          []models.PlanRecord
	SubjectFilter  string
	Limit          int
	IncludeReasons bool
}

// RecommendContent ranks catalog items by relevance to the student. Limit <= 0 returns
// every scored item.
func RecommendContent(q ContentQuery) models.RecommendationResult {
	weak := WeakSubjects(q.Scores)
	studied := studiedContent(q.Plans)
	strategy := DetermineStrategy(len(weak), len(q.Scores))
	preferred := PreferredDifficulty(q.Scores)

	candidates := make([]models.ContentItem, 0, len(q.Catalog))
	for _, item := range q.Catalog {
		if q.SubjectFilter != "" && item.Subject != q.SubjectFilter {
			continue
		}
		candidates = append(candidates, item)
	}

	result := models.RecommendationResult{
		Items:               []models.ScoredContent{},
		WeakSubjects:        weak,
		Strategy:            strategy,
		PreferredDifficulty: preferred,
	}
	if len(candidates) == 0 {
		result.Strategy = models.StrategyNoContent
		return result
	}

	weakSet := toSet(weak)
	recentTypes := recentContentTypes(q.Plans)

	scored := make([]models.ScoredContent, 0, len(candidates))
	for _, item := range candidates {
		_, isStudied := studied[item.ID]
		breakdown := models.ScoreBreakdown{
			WeakSubject: weakSubjectScore(item, weakSet),
			Difficulty:  difficultyScore(item, preferred),
			Diversity:   diversityScore(item, recentTypes),
			Novelty:     noveltyScore(isStudied),
		}
		scored = append(scored, models.ScoredContent{
			Content:        item,
			IsStudied:      isStudied,
			RelevanceScore: breakdown.Total(),
			Breakdown:      breakdown,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].RelevanceScore > scored[j].RelevanceScore
	})
	if q.Limit > 0 && len(scored) > q.Limit {
		scored = scored[:q.Limit]
	}

	if q.IncludeReasons {
		for i := range scored {
			scored[i].Reason = contentReason(scored[i], weakSet)
		}
	}

	result.Items = scored
	return result
}

// WeakSubjects returns subjects whose mean score is strictly below min(overall mean, 60),
// weakest first. Subjects with equal means keep their first-appearance order.
func WeakSubjects(scores []models.ScoreRecord) []string {
	if len(scores) == 0 {
		return []string{}
	}

	type agg struct {
		sum   float64
		count int
	}
	var order []string
	bySubject := make(map[string]*agg)
	var total float64
	for _, s := range scores {
		total += s.Score
		a, ok := bySubject[s.Subject]
		if !ok {
			a = &agg{}
			bySubject[s.Subject] = a
			order = append(order, s.Subject)
		}
		a.sum += s.Score
		a.count++
	}

	threshold := total / float64(len(scores))
	if threshold > WeakScoreThreshold {
		threshold = WeakScoreThreshold
	}

	means := make(map[string]float64, len(order))
	weak := make([]string, 0)
	for _, subject := range order {
		a := bySubject[subject]
		m := a.sum / float64(a.count)
		means[subject] = m
		if m < threshold {
			weak = append(weak, subject)
		}
	}
	sort.SliceStable(weak, func(i, j int) bool {
		return means[weak[i]] < means[weak[j]]
	})
	return weak
}

// DetermineStrategy labels the recommendation policy for the student's situation.
func DetermineStrategy(weakCount, scoreCount int) models.Strategy {
	switch {
	case weakCount == 0 && scoreCount == 0:
		return models.StrategyExploration
	case weakCount == 0:
		return models.StrategyBalanced
	case weakCount >= weakFocusMinSubjects:
		return models.StrategyWeakFocus
	default:
		return models.StrategyWeakPriority
	}
}

// PreferredDifficulty infers the level a student should study at from their overall mean.
func PreferredDifficulty(scores []models.ScoreRecord) models.Difficulty {
	if len(scores) == 0 {
		return models.DifficultyMedium
	}
	var total float64
	for _, s := range scores {
		total += s.Score
	}
	avg := total / float64(len(scores))
	switch {
	case avg >= 80:
		return models.DifficultyHard
	case avg >= 60:
		return models.DifficultyMedium
	default:
		return models.DifficultyEasy
	}
}

func weakSubjectScore(item models.ContentItem, weak map[string]struct{}) int {
	if _, ok := weak[item.Subject]; ok {
		return weakSubjectHit
	}
	return weakSubjectMiss
}

func difficultyScore(item models.ContentItem, preferred models.Difficulty) int {
	if !item.Difficulty.Valid() {
		return difficultyUnknown
	}
	return difficultyMatrix[preferred][item.Difficulty]
}

func diversityScore(item models.ContentItem, recent map[string]struct{}) int {
	if item.ContentType == "" {
		return diversitySeenType
	}
	if _, seen := recent[item.ContentType]; seen {
		return diversitySeenType
	}
	return diversityNewType
}

func noveltyScore(studied bool) int {
	if studied {
		return noveltyStudied
	}
	return noveltyUnstudied
}

func contentReason(sc models.ScoredContent, weak map[string]struct{}) string {
	var clauses []string
	if _, ok := weak[sc.Content.Subject]; ok {
		clauses = append(clauses, weakSubjectReason(sc.Content.Subject))
	}
	if label := DifficultyLabel(sc.Content.Difficulty); label != "" {
		clauses = append(clauses, "난이도 "+label)
	}
	if sc.Content.ContentType != "" {
		clauses = append(clauses, ContentTypeLabel(sc.Content.ContentType))
	}
	if !sc.IsStudied {
		clauses = append(clauses, reasonNewContent)
	}
	if len(clauses) == 0 {
		return reasonFallback
	}
	return strings.Join(clauses, reasonSeparator)
}

func studiedContent(plans []models.PlanRecord) map[string]struct{} {
	studied := make(map[string]struct{})
	for _, p := range plans {
		if p.ContentID != "" {
			studied[p.ContentID] = struct{}{}
		}
	}
	return studied
}

// recentContentTypes collects content types of the most recent sessions by scheduled date.
func recentContentTypes(plans []models.PlanRecord) map[string]struct{} {
	ordered := make([]models.PlanRecord, len(plans))
	copy(ordered, plans)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ScheduledDate.After(ordered[j].ScheduledDate)
	})
	if len(ordered) > recentSessionWindow {
		ordered = ordered[:recentSessionWindow]
	}

	types := make(map[string]struct{})
	for _, p := range ordered {
		if p.ContentType != "" {
			types[p.ContentType] = struct{}{}
		}
	}
	return types
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
