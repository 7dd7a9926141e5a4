package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	domain "github.com/bryanwahyu/lifeline-triage/internal/domain/assessmenterrors"
)

type AssessmentErrorRepository struct {
	db *sql.DB
}

func NewAssessmentErrorRepository(db *sql.DB) *AssessmentErrorRepository {
	return &AssessmentErrorRepository{db: db}
}

func (r *AssessmentErrorRepository) Save(ctx context.Context, e *domain.AssessmentError) error {
	const q = `
INSERT INTO assessment_errors
  (assessment_id, source, phase, message, details_json, created_at)
VALUES (?,?,?,?,?,?)
`
	assessmentID := stringOrDash(e.AssessmentID)
	source := stringOrDash(e.Source)
	phase := stringOrDash(e.Phase)
	msg := stringOrDash(e.Message)
	details := e.DetailsJSON
	if strings.TrimSpace(details) == "" {
		details = "{}"
	} else {
		// ensure valid json; if invalid, wrap as string field
		var js any
		if json.Unmarshal([]byte(details), &js) != nil {
			b, _ := json.Marshal(map[string]string{"raw": details})
			details = string(b)
		}
	}
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q, assessmentID, source, phase, msg, details, created)
	return err
}

func (r *AssessmentErrorRepository) ListByAssessment(ctx context.Context, assessmentID string, limit int) ([]*domain.AssessmentError, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, assessment_id, source, phase, message, details_json, created_at
FROM assessment_errors
WHERE assessment_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ?;`
	rows, err := r.db.QueryContext(ctx, q, assessmentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.AssessmentError
	for rows.Next() {
		var e domain.AssessmentError
		if err := rows.Scan(&e.ID, &e.AssessmentID, &e.Source, &e.Phase,
			&e.Message, &e.DetailsJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
