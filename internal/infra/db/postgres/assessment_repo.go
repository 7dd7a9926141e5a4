package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	_ "github.com/lib/pq"

	domain "github.com/bryanwahyu/lifeline-triage/internal/domain/assessment"
)

// AssessmentRepository is the Postgres variant of the MySQL repository for
// deployments that already run Postgres.
type AssessmentRepository struct{ db *sql.DB }

func NewAssessmentRepository(db *sql.DB) *AssessmentRepository { return &AssessmentRepository{db: db} }

// Connect opens a Postgres pool and verifies it with a ping.
func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx2); err != nil {
		return nil, err
	}
	return db, nil
}

// Save insert/update Assessment record
func (r *AssessmentRepository) Save(ctx context.Context, a *domain.Assessment) error {
	const q = `
INSERT INTO call_assessments
(id, source, filename, submitted_at, status, risk_score, risk_category,
 artifact_url, result_json, duration_ms)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET
 status = EXCLUDED.status,
 risk_score = EXCLUDED.risk_score,
 risk_category = EXCLUDED.risk_category,
 artifact_url = EXCLUDED.artifact_url,
 result_json = EXCLUDED.result_json,
 duration_ms = EXCLUDED.duration_ms;`

	submitted := a.SubmittedAt
	if submitted.IsZero() {
		submitted = time.Now()
	}
	result := a.ResultJSON
	if strings.TrimSpace(result) == "" {
		result = "{}"
	}

	_, err := r.db.ExecContext(ctx, q,
		a.ID, string(a.Source), a.Filename, submitted, string(a.Status),
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
WHERE id=$1
LIMIT 1;`
	row := r.db.QueryRowContext(ctx, q, id)

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

// Latest assessments, newest first
func (r *AssessmentRepository) Latest(ctx context.Context, limit int) ([]*domain.Assessment, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, source, filename, submitted_at, status, risk_score, risk_category,
       artifact_url, result_json, duration_ms
FROM call_assessments
ORDER BY submitted_at DESC
LIMIT $1;`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Assessment
	for rows.Next() {
		var a domain.Assessment
		var source, status, category string
		if err := rows.Scan(
			&a.ID, &source, &a.Filename, &a.SubmittedAt, &status,
			&a.RiskScore, &category,
			&a.ArtifactURL, &a.ResultJSON, &a.DurationMS,
		); err != nil {
			return nil, err
		}
		a.Source = domain.SourceKind(source)
		a.Status = domain.Status(status)
		a.Category = domain.RiskCategory(category)
		out = append(out, &a)
	}
	return out, rows.Err()
}

// Paginate with offset + limit
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
LIMIT $1 OFFSET $2;`
	rows, err := r.db.QueryContext(ctx, q, pageSize, offset)
	if err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("querying assessments: %w", err)
	}
	defer rows.Close()

	var list []*domain.Assessment
	for rows.Next() {
		var a domain.Assessment
		var source, status, category string
		if err := rows.Scan(
			&a.ID, &source, &a.Filename, &a.SubmittedAt, &status,
			&a.RiskScore, &category,
			&a.ArtifactURL, &a.ResultJSON, &a.DurationMS,
		); err != nil {
			return domain.PaginatedResult{}, fmt.Errorf("scanning row: %w", err)
		}
		a.Source = domain.SourceKind(source)
		a.Status = domain.Status(status)
		a.Category = domain.RiskCategory(category)
		list = append(list, &a)
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
       COALESCE(SUM((risk_category='Critical')::int),0) AS critical,
       COALESCE(SUM((risk_category='High')::int),0)     AS high,
       COALESCE(SUM((risk_category='Medium')::int),0)   AS medium,
       COALESCE(SUM((risk_category='Low')::int),0)      AS low
FROM call_assessments
WHERE submitted_at >= $1;`
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
