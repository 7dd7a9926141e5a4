package assessmenterrors

import (
	"context"
)

// Repository defines persistence for assessment failures
type Repository interface {
	Save(ctx context.Context, e *AssessmentError) error
	ListByAssessment(ctx context.Context, assessmentID string, limit int) ([]*AssessmentError, error)
}
