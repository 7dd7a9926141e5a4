package assessmenterrors

import "time"

// AssessmentError represents a persisted failure entry for one assessment run
type AssessmentError struct {
	ID           int64     `json:"id"`
	AssessmentID string    `json:"assessment_id"`
	Source       string    `json:"source,omitempty"`
	Phase        string    `json:"phase,omitempty"` // transcribe | analyze | other
	Message      string    `json:"message"`
	DetailsJSON  string    `json:"details_json,omitempty"` // raw JSON string
	CreatedAt    time.Time `json:"created_at"`
}
