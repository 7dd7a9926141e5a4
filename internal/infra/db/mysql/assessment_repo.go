package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	domain "github.com/bryanwahyu/lifeline-triage/internal/domain/assessment"
)

type AssessmentRepository struct {
	db *sql.DB
}

func NewAssessmentRepository(db *sql.DB) *AssessmentRepository {
	return &AssessmentRepository{db: db}
}

// Save insert/update Assessment record
func (r *AssessmentRepository) Save(ctx context.Context, a *domain.Assessment) error {
	const q = `
INSERT INTO call_assessments
(id, source, filename, submitted_at, status, risk_score, risk_category,
 artifact_url, result_json, duration_ms)
VALUES (?,?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
 status=VALUES(status), risk_score=VALUES(risk_score), risk_category=VALUES(risk_category),
 artifact_url=VALUES(artifact_url), result_json=VALUES(result_json), duration_ms=VALUES(duration_ms);
`
	source := stringOrDash(string(a.Source))
	status := stringOrDash(string(a.Status))
	submitted := a.SubmittedAt
	if submitted.IsZero() {
		submitted = time.Now()
	}
	result := a.ResultJSON
	if strings.TrimSpace(result) == "" {
		// result_json column requires valid JSON; use empty object
		result = "{}"
	}

	_, err := r.db.ExecContext(ctx, q,
		a.ID, source, a.Filename, submitted, status,
		a.RiskScore, string(a.Category),
		a.ArtifactURL, result, a.DurationMS,
	)
	return err
}

// Get by ID
func (r *AssessmentRepository) Get(ctx context.Context, id domain.AssessmentID) (*domain.Assessment, error) {
	const q = `
SELECT id, source, filename, submitted_at, status, risk_score, risk_category,
       artifact_url, result_json, duration_ms
FROM call_assessments
WHERE id=? LIMIT 1;
`
	row := r.db.QueryRowContext(ctx, q, id)
	return scanAssessment(row)
}

// Latest assessments, newest first
func (r *AssessmentRepository) Latest(ctx context.Context, limit int) ([]*domain.Assessment, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, source, filename, submitted_at, status, risk_score, risk_category,
       artifact_url, result_json, duration_ms
FROM call_assessments
ORDER BY submitted_at DESC LIMIT ?;
`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Assessment
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Paginate with offset + limit (classic pagination)
func (r *AssessmentRepository) Paginate(ctx context.Context, page, pageSize int) (domain.PaginatedResult, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	const q = `
SELECT id, source, filename, submitted_at, status, risk_score, risk_category,
       artifact_url, result_json, duration_ms
FROM call_assessments
ORDER BY submitted_at DESC, id DESC
LIMIT ? OFFSET ?;
`
	rows, err := r.db.QueryContext(ctx, q, pageSize, offset)
	if err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("querying assessments: %w", err)
	}
	defer rows.Close()

	var list []*domain.Assessment
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return domain.PaginatedResult{}, fmt.Errorf("scanning row: %w", err)
		}
		list = append(list, a)
	}
	if err = rows.Err(); err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("iterating rows: %w", err)
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM call_assessments;`).Scan(&total); err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("getting total count: %w", err)
	}

	return domain.PaginatedResult{
		Data:       list,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	}, nil
}

// Summary counts assessments per risk category since N days
func (r *AssessmentRepository) Summary(ctx context.Context, sinceDays int) (map[string]int, error) {
	if sinceDays <= 0 {
		sinceDays = 7
	}
	cut := time.Now().AddDate(0, 0, -sinceDays)

	const q = `
SELECT COUNT(*) AS total,
       COALESCE(SUM(risk_category='Critical'),0) AS critical,
       COALESCE(SUM(risk_category='High'),0)     AS high,
       COALESCE(SUM(risk_category='Medium'),0)   AS medium,
       COALESCE(SUM(risk_category='Low'),0)      AS low
FROM call_assessments
WHERE submitted_at >= ?;
`
	var t, c, h, m, l int
	if err := r.db.QueryRowContext(ctx, q, cut).Scan(&t, &c, &h, &m, &l); err != nil {
		return nil, err
	}
	return map[string]int{
		"total":    t,
		"critical": c,
		"high":     h,
		"medium":   m,
		"low":      l,
	}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// stringOrDash keeps enum columns non-empty; "-" marks a missing value.
func stringOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func scanAssessment(row rowScanner) (*domain.Assessment, error) {
	var a domain.Assessment
	var source, status, category string
	if err := row.Scan(
		&a.ID, &source, &a.Filename, &a.SubmittedAt, &status,
		&a.RiskScore, &category,
		&a.ArtifactURL, &a.ResultJSON, &a.DurationMS,
	); err != nil {
		return nil, err
	}
	a.Source = domain.SourceKind(source)
	a.Status = domain.Status(status)
	a.Category = domain.RiskCategory(category)
	return &a, nil
}
