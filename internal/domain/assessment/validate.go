package assessment

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidFormat indicates a response body that is not valid JSON or does
// not satisfy the minimal result shape (numeric overall_risk_score).
var ErrInvalidFormat = errors.New("invalid analysis format")

// ErrNoData indicates no published result exists yet.
var ErrNoData = errors.New("no analysis data")

// Decode parses raw JSON into an AnalysisResult and applies the minimal shape
// check. The check is intentionally loose: only overall_risk_score must be
// present and numeric, everything else may be empty.
func Decode(raw []byte) (*AnalysisResult, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("%w: parse analysis JSON: %v", ErrInvalidFormat, err)
	}
	scoreRaw, ok := probe["overall_risk_score"]
	if !ok {
		return nil, fmt.Errorf("%w: missing overall_risk_score", ErrInvalidFormat)
	}
	var score float64
	if err := json.Unmarshal(scoreRaw, &score); err != nil {
		return nil, fmt.Errorf("%w: overall_risk_score is not numeric", ErrInvalidFormat)
	}

	var res AnalysisResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("decode analysis result: %w", err)
	}
	res.RiskCategory = NormalizeCategory(res.RiskCategory)
	return &res, nil
}

// NormalizeCategory maps case/whitespace variants onto the canonical enum
// values ("high" -> "High"). Unrecognized categories pass through untouched;
// they render with the neutral tier.
func NormalizeCategory(c RiskCategory) RiskCategory {
	trimmed := RiskCategory(strings.TrimSpace(string(c)))
	if KnownCategory(trimmed) {
		return trimmed
	}
	for _, k := range []RiskCategory{RiskLow, RiskMedium, RiskHigh, RiskCritical} {
		if strings.EqualFold(string(trimmed), string(k)) {
			return k
		}
	}
	return trimmed
}

// KnownCategory reports whether the category is one of the enum values.
// Unknown categories are still rendered, just with the neutral tier.
func KnownCategory(c RiskCategory) bool {
	switch c {
	case RiskLow, RiskMedium, RiskHigh, RiskCritical:
		return true
	}
	return false
}
