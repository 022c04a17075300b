package service

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/noah-isme/learning-insights-api/internal/models"
	appErrors "github.com/noah-isme/learning-insights-api/pkg/errors"
)

type fakeInsightRepo struct {
	scores   []models.ScoreRecord
	plans    []models.PlanRecord
	catalog  []models.ContentItem
	records  []models.StudyRecord
	scoreErr error
	planErr  error

	// studentRecords, when set, backs ListStudentStudyRecords instead of records.
	studentRecords []models.StudyRecord

	scoreCalls     int32
	planCalls      int32
	catalogCalls   int32
	recordCalls    int32
	ownRecordCalls int32
}

func (f *fakeInsightRepo) ListScores(_ context.Context, _ models.InsightScope, _ int) ([]models.ScoreRecord, error) {
	atomic.AddInt32(&f.scoreCalls, 1)
	return f.scores, f.scoreErr
}

func (f *fakeInsightRepo) ListPlans(_ context.Context, _ models.InsightScope) ([]models.PlanRecord, error) {
	atomic.AddInt32(&f.planCalls, 1)
	return f.plans, f.planErr
}

func (f *fakeInsightRepo) ListCatalog(_ context.Context, _ string, subject string) ([]models.ContentItem, error) {
	atomic.AddInt32(&f.catalogCalls, 1)
	if subject == "" {
		return f.catalog, nil
	}
	var filtered []models.ContentItem
	for _, item := range f.catalog {
		if item.Subject == subject {
			filtered = append(filtered, item)
		}
	}
	return filtered, nil
}

func (f *fakeInsightRepo) ListStudyRecords(_ context.Context, _ string, _ int) ([]models.StudyRecord, error) {
	atomic.AddInt32(&f.recordCalls, 1)
	return f.records, nil
}

func (f *fakeInsightRepo) ListStudentStudyRecords(_ context.Context, scope models.InsightScope) ([]models.StudyRecord, error) {
	atomic.AddInt32(&f.ownRecordCalls, 1)
	source := f.records
	if f.studentRecords != nil {
		source = f.studentRecords
	}
	var own []models.StudyRecord
	for _, record := range source {
		if record.StudentID == scope.StudentID {
			own = append(own, record)
		}
	}
	return own, nil
}

type memoryCacheRepo struct {
	mu    sync.Mutex
	store map[string][]byte
}

func (m *memoryCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	payload, ok := m.store[key]
	m.mu.Unlock()
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (m *memoryCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.store == nil {
		m.store = make(map[string][]byte)
	}
	m.store[key] = payload
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(_ context.Context, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store = nil
	return nil
}

func scoreSeries(subject string, start time.Time, values ...float64) []models.ScoreRecord {
	records := make([]models.ScoreRecord, len(values))
	for i, v := range values {
		records[i] = models.ScoreRecord{Subject: subject, Score: v, RecordedAt: start.AddDate(0, 0, 7*i)}
	}
	return records
}

var fixtureStart = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

func fixtureScores() []models.ScoreRecord {
	var scores []models.ScoreRecord
	scores = append(scores, scoreSeries("math", fixtureStart, 55, 58, 61, 64, 67)...)
	scores = append(scores, scoreSeries("english", fixtureStart, 82, 80, 84, 81)...)
	scores = append(scores, scoreSeries("science", fixtureStart, 40, 45)...)
	return scores
}

func fixtureCatalog() []models.ContentItem {
	return []models.ContentItem{
		{ID: "c-1", Title: "Algebra drills", Subject: "math", ContentType: string(models.ContentTypeBook), Difficulty: models.DifficultyMedium},
		{ID: "c-2", Title: "Reading lab", Subject: "english", ContentType: string(models.ContentTypeVideo), Difficulty: models.DifficultyHard},
		{ID: "c-3", Title: "Cells", Subject: "science", ContentType: string(models.ContentTypeLecture), Difficulty: models.DifficultyEasy},
	}
}
