package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/learning-insights-api/internal/models"
)

// InsightRepository reads the score, study plan and catalog rows the insight engines consume.
type InsightRepository struct {
	db *sqlx.DB
}

// NewInsightRepository instantiates the repository.
func NewInsightRepository(db *sqlx.DB) *InsightRepository {
	return &InsightRepository{db: db}
}

// ListScores returns the most recent score records of a student, newest first.
func (r *InsightRepository) ListScores(ctx context.Context, scope models.InsightScope, limit int) ([]models.ScoreRecord, error) {
	var builder strings.Builder
	builder.WriteString("SELECT subject, score, recorded_at FROM student_scores WHERE student_id = $1")
	args := []interface{}{scope.StudentID}
	if scope.TenantID != "" {
		args = append(args, scope.TenantID)
		builder.WriteString(fmt.Sprintf(" AND tenant_id = $%d", len(args)))
	}
	builder.WriteString(" ORDER BY recorded_at DESC")
	if limit > 0 {
		builder.WriteString(fmt.Sprintf(" LIMIT %d", limit))
	}

	var scores []models.ScoreRecord
	if err := r.db.SelectContext(ctx, &scores, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("query student scores: %w", err)
	}
	return scores, nil
}

// ListPlans returns the study sessions of a student, newest first.
func (r *InsightRepository) ListPlans(ctx context.Context, scope models.InsightScope) ([]models.PlanRecord, error) {
	var builder strings.Builder
	builder.WriteString(`SELECT COALESCE(subject, '') AS subject, COALESCE(content_id, '') AS content_id,
        COALESCE(content_type, '') AS content_type, actual_duration, plan_date AS scheduled_date, status
        FROM student_plans WHERE student_id = $1`)
	args := []interface{}{scope.StudentID}
	if scope.TenantID != "" {
		args = append(args, scope.TenantID)
		builder.WriteString(fmt.Sprintf(" AND tenant_id = $%d", len(args)))
	}
	builder.WriteString(" ORDER BY plan_date DESC")

	var plans []models.PlanRecord
	if err := r.db.SelectContext(ctx, &plans, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("query student plans: %w", err)
	}
	return plans, nil
}

// ListCatalog returns the content catalog, optionally restricted to one subject.
func (r *InsightRepository) ListCatalog(ctx context.Context, tenantID, subject string) ([]models.ContentItem, error) {
	var builder strings.Builder
	builder.WriteString(`SELECT id, title, subject, COALESCE(content_type, '') AS content_type,
        COALESCE(difficulty, '') AS difficulty FROM content_catalog WHERE 1=1`)
	var args []interface{}
	if tenantID != "" {
		args = append(args, tenantID)
		builder.WriteString(fmt.Sprintf(" AND tenant_id = $%d", len(args)))
	}
	if subject != "" {
		args = append(args, subject)
		builder.WriteString(fmt.Sprintf(" AND subject = $%d", len(args)))
	}
	builder.WriteString(" ORDER BY created_at, id")

	var items []models.ContentItem
	if err := r.db.SelectContext(ctx, &items, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("query content catalog: %w", err)
	}
	return items, nil
}

// ListStudyRecords returns which student studied which content, newest sessions first.
func (r *InsightRepository) ListStudyRecords(ctx context.Context, tenantID string, limit int) ([]models.StudyRecord, error) {
	var builder strings.Builder
	builder.WriteString("SELECT student_id, content_id FROM student_plans WHERE content_id IS NOT NULL AND content_id <> ''")
	var args []interface{}
	if tenantID != "" {
		args = append(args, tenantID)
		builder.WriteString(fmt.Sprintf(" AND tenant_id = $%d", len(args)))
	}
	builder.WriteString(" ORDER BY plan_date DESC, student_id")
	if limit > 0 {
		builder.WriteString(fmt.Sprintf(" LIMIT %d", limit))
	}

	var records []models.StudyRecord
	if err := r.db.SelectContext(ctx, &records, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("query study records: %w", err)
	}
	return records, nil
}

// ListStudentStudyRecords returns every study record of one student. Tenant-wide reads
// are capped, so the target student's rows are loaded separately.
func (r *InsightRepository) ListStudentStudyRecords(ctx context.Context, scope models.InsightScope) ([]models.StudyRecord, error) {
	var builder strings.Builder
	builder.WriteString("SELECT student_id, content_id FROM student_plans WHERE student_id = $1 AND content_id IS NOT NULL AND content_id <> ''")
	args := []interface{}{scope.StudentID}
	if scope.TenantID != "" {
		args = append(args, scope.TenantID)
		builder.WriteString(fmt.Sprintf(" AND tenant_id = $%d", len(args)))
	}
	builder.WriteString(" ORDER BY plan_date DESC")

	var records []models.StudyRecord
	if err := r.db.SelectContext(ctx, &records, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("query student study records: %w", err)
	}
	return records, nil
}

// Ping verifies the database connection for readiness checks.
func (r *InsightRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
