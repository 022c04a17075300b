package models

import "time"

// PlanStatus captures the lifecycle state of a study session.
type PlanStatus string

const (
	// PlanStatusScheduled marks a session that has not started yet.
	PlanStatusScheduled PlanStatus = "scheduled"
	// PlanStatusInProgress marks a session currently being studied.
	PlanStatusInProgress PlanStatus = "in_progress"
	// PlanStatusCompleted marks a finished session.
	PlanStatusCompleted PlanStatus = "completed"
	// PlanStatusSkipped marks a session the student skipped.
	PlanStatusSkipped PlanStatus = "skipped"
	// PlanStatusCancelled marks a session removed from the plan.
	PlanStatusCancelled PlanStatus = "cancelled"
)

// Difficulty is the declared difficulty of a content item.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Valid reports whether the difficulty is one of the known levels.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Content types known to the catalog. The field is open, other values are allowed.
const (
	ContentTypeBook    = "book"
	ContentTypeLecture = "lecture"
	ContentTypeVideo   = "video"
	ContentTypeCustom  = "custom"
)

// ScoreRecord is a single recorded test score.
type ScoreRecord struct {
	Subject    string    `db:"subject" json:"subject"`
	Score      float64   `db:"score" json:"score"`
	RecordedAt time.Time `db:"recorded_at" json:"recorded_at"`
}

// PlanRecord is a scheduled or executed study session. Empty strings mean the field was not set.
type PlanRecord struct {
	Subject        string     `db:"subject" json:"subject,omitempty"`
	ContentID      string     `db:"content_id" json:"content_id,omitempty"`
	ContentType    string     `db:"content_type" json:"content_type,omitempty"`
	ActualDuration *float64   `db:"actual_duration" json:"actual_duration,omitempty"`
	ScheduledDate  time.Time  `db:"scheduled_date" json:"scheduled_date"`
	Status         PlanStatus `db:"status" json:"status"`
}

// ContentItem is read-only catalog reference data.
type ContentItem struct {
	ID          string     `db:"id" json:"id"`
	Title       string     `db:"title" json:"title"`
	Subject     string     `db:"subject" json:"subject"`
	ContentType string     `db:"content_type" json:"content_type,omitempty"`
	Difficulty  Difficulty `db:"difficulty" json:"difficulty,omitempty"`
}

// StudyRecord links a student to a content item they studied.
type StudyRecord struct {
	StudentID string `db:"student_id" json:"student_id"`
	ContentID string `db:"content_id" json:"content_id"`
}

// TrendDirection classifies the slope of a score trend.
type TrendDirection string

const (
	TrendImproving TrendDirection = "improving"
	TrendStable    TrendDirection = "stable"
	TrendDeclining TrendDirection = "declining"
	TrendUnknown   TrendDirection = "unknown"
)

// TrendResult describes a linear fit over an ordered score sequence.
type TrendResult struct {
	Direction  TrendDirection `json:"direction"`
	Slope      float64        `json:"slope"`
	FitQuality float64        `json:"fit_quality"`
}

// Estimator names the strategy that produced a prediction.
type Estimator string

const (
	EstimatorNone      Estimator = "none"
	EstimatorModel     Estimator = "model"
	EstimatorHeuristic Estimator = "heuristic"
)

// PredictionFactors is descriptive metadata attached to a prediction.
type PredictionFactors struct {
	Message           string   `json:"message,omitempty"`
	RecentChange      *float64 `json:"recent_change,omitempty"`
	AverageScore      *float64 `json:"average_score,omitempty"`
	Volatility        *float64 `json:"volatility,omitempty"`
	StudySessions     *int     `json:"study_sessions,omitempty"`
	TotalStudyMinutes *float64 `json:"total_study_minutes,omitempty"`
}

// PredictionResult is the outcome of a score forecast for one subject.
type PredictionResult struct {
	Subject        string            `json:"subject"`
	CurrentScore   *float64          `json:"current_score"`
	PredictedScore float64           `json:"predicted_score"`
	Confidence     float64           `json:"confidence"`
	Trend          TrendDirection    `json:"trend"`
	Estimator      Estimator         `json:"estimator"`
	Fallback       bool              `json:"fallback"`
	Factors        PredictionFactors `json:"factors"`
}

// Strategy labels the policy that produced a ranked content list.
type Strategy string

const (
	StrategyExploration  Strategy = "exploration"
	StrategyBalanced     Strategy = "balanced"
	StrategyWeakPriority Strategy = "weak_priority"
	StrategyWeakFocus    Strategy = "weak_focus"
	StrategyNoContent    Strategy = "no_content"
)

// ScoreBreakdown holds the four sub-scores of a relevance score.
type ScoreBreakdown struct {
	WeakSubject int `json:"weak_subject"`
	Difficulty  int `json:"difficulty"`
	Diversity   int `json:"diversity"`
	Novelty     int `json:"novelty"`
}

// Total returns the relevance score.
func (b ScoreBreakdown) Total() int {
	return b.WeakSubject + b.Difficulty + b.Diversity + b.Novelty
}

// ScoredContent is a catalog item ranked for a student.
type ScoredContent struct {
	Content        ContentItem    `json:"content"`
	IsStudied      bool           `json:"is_studied"`
	RelevanceScore int            `json:"relevance_score"`
	Breakdown      ScoreBreakdown `json:"breakdown"`
	Reason         string         `json:"reason,omitempty"`
}

// RecommendationResult is the ranked output of the content scoring engine.
type RecommendationResult struct {
	Items               []ScoredContent `json:"items"`
	WeakSubjects        []string        `json:"weak_subjects"`
	Strategy            Strategy        `json:"strategy"`
	PreferredDifficulty Difficulty      `json:"preferred_difficulty"`
}

// PeerMatch is a student whose study history overlaps with the target.
type PeerMatch struct {
	StudentID   string  `json:"student_id"`
	Similarity  float64 `json:"similarity"`
	CommonItems int     `json:"common_items"`
}

// PeerRecommendation is a content item surfaced from similar students.
type PeerRecommendation struct {
	Content   ContentItem `json:"content"`
	PeerCount int         `json:"peer_count"`
	Reason    string      `json:"reason"`
}

// PeerRecommendationResult pairs the similar students found with what they studied.
type PeerRecommendationResult struct {
	SimilarStudents []PeerMatch          `json:"similar_students"`
	Items           []PeerRecommendation `json:"items"`
}
