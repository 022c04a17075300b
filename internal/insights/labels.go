package insights

import (
	"fmt"

	"github.com/noah-isme/learning-insights-api/internal/models"
)

// Reason strings are rendered in the product locale (ko-KR).
const (
	reasonSeparator    = " · "
	reasonNewContent   = "새로운 콘텐츠"
	reasonFallback     = "학습 이력 기반 추천"
	reasonPeerStudied  = "비슷한 학습자들이 학습한 콘텐츠"
	weakSubjectPattern = "취약 과목(%s) 보완"
)

var difficultyLabels = map[models.Difficulty]string{
	models.DifficultyEasy:   "쉬움",
	models.DifficultyMedium: "보통",
	models.DifficultyHard:   "어려움",
}

var contentTypeLabels = map[string]string{
	models.ContentTypeBook:    "교재",
	models.ContentTypeLecture: "강의",
	models.ContentTypeVideo:   "영상",
	models.ContentTypeCustom:  "직접 등록",
}

// DifficultyLabel returns the localized difficulty name, or "" for unknown levels.
func DifficultyLabel(d models.Difficulty) string {
	return difficultyLabels[d]
}

// ContentTypeLabel returns the localized content type name. Unknown types are returned as-is.
func ContentTypeLabel(contentType string) string {
	if label, ok := contentTypeLabels[contentType]; ok {
		return label
	}
	return contentType
}

func weakSubjectReason(subject string) string {
	return fmt.Sprintf(weakSubjectPattern, subject)
}
