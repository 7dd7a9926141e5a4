package assessment

import (
	"time"
)

// ID tipe untuk Assessment
type AssessmentID string

// SourceKind enum
type SourceKind string

const (
	SourceAudio  SourceKind = "audio"
	SourceText   SourceKind = "text"
	SourceGemini SourceKind = "gemini"
)

// Status enum
type Status string

const (
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
)

// RiskCategory enum assigned by the model
type RiskCategory string

const (
	RiskLow      RiskCategory = "Low"
	RiskMedium   RiskCategory = "Medium"
	RiskHigh     RiskCategory = "High"
	RiskCritical RiskCategory = "Critical"
)

// ScoredDescription value object: free text plus a 0-100 score
type ScoredDescription struct {
	Description    string  `json:"description"`
	IntensityScore float64 `json:"intensity_score"`
}

// RiskFactors / ProtectiveFactors value objects: ordered factor lists plus a
// 0-100 score. The score field name differs on the wire, so two types.
type RiskFactors struct {
	List            []string `json:"list"`
	PrevalenceScore float64  `json:"prevalence_score"`
}

type ProtectiveFactors struct {
	List          []string `json:"list"`
	StrengthScore float64  `json:"strength_score"`
}

// AnalysisResult is the wire contract produced by the model and consumed by
// the result viewer. It is written once and never mutated.
type AnalysisResult struct {
	OverallRiskScore   float64           `json:"overall_risk_score"`
	RiskCategory       RiskCategory      `json:"risk_category"`
	LanguagePatterns   ScoredDescription `json:"language_patterns"`
	RiskFactors        RiskFactors       `json:"risk_factors"`
	ProtectiveFactors  ProtectiveFactors `json:"protective_factors"`
	EmotionalState     ScoredDescription `json:"emotional_state"`
	KeyExcerpts        []string          `json:"key_excerpts"`
	AIInsights         string            `json:"ai_insights"`
	RecommendedActions []string          `json:"recommended_actions"`
	ConfidenceLevel    string            `json:"confidence_level,omitempty"`
}

// Aggregate Root: Assessment
type Assessment struct {
	ID          AssessmentID `json:"id"`
	Source      SourceKind   `json:"source"`
	Filename    string       `json:"filename,omitempty"`
	SubmittedAt time.Time    `json:"submitted_at"`
	Status      Status       `json:"status"`
	RiskScore   float64      `json:"risk_score"`
	Category    RiskCategory `json:"risk_category,omitempty"`
	ArtifactURL string       `json:"artifact_url,omitempty"`
	ResultJSON  string       `json:"result_json,omitempty"`
	DurationMS  int64        `json:"duration_ms"`
}
