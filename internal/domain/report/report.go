package report

import (
	"regexp"
	"strconv"

	"github.com/bryanwahyu/lifeline-triage/internal/domain/assessment"
)

// Tier enum: the color tier a risk category maps to in the UI
type Tier string

const (
	TierRed     Tier = "red"
	TierAmber   Tier = "amber"
	TierGreen   Tier = "green"
	TierNeutral Tier = "neutral"
)

// Placeholder sentences rendered instead of empty list sections
const (
	NoExcerpts          = "No key excerpts identified."
	NoRiskFactors       = "No specific risk factors identified."
	NoProtectiveFactors = "No protective factors identified."
	NoActions           = "No recommended actions provided."
)

var confidenceRe = regexp.MustCompile(`Confidence Level:\s*(\d{1,3})%`)

// Bar is a percentage bar fill derived from a sub-score
type Bar struct {
	Label   string  `json:"label"`
	Percent float64 `json:"percent"`
}

// Section is a rendered list section; Items is never empty, empty source
// lists are replaced by a single placeholder sentence.
type Section struct {
	Items       []string `json:"items"`
	Placeholder bool     `json:"placeholder"`
	Bar         Bar      `json:"bar"`
}

// View is the fully rendered result the display layer consumes.
type View struct {
	OverallRiskScore   float64                 `json:"overall_risk_score"`
	RiskCategory       assessment.RiskCategory `json:"risk_category"`
	Tier               Tier                    `json:"tier"`
	LanguagePatterns   string                  `json:"language_patterns"`
	LanguageBar        Bar                     `json:"language_bar"`
	EmotionalState     string                  `json:"emotional_state"`
	EmotionBar         Bar                     `json:"emotion_bar"`
	RiskFactors        Section                 `json:"risk_factors"`
	ProtectiveFactors  Section                 `json:"protective_factors"`
	KeyExcerpts        Section                 `json:"key_excerpts"`
	AIInsights         string                  `json:"ai_insights"`
	Confidence         int                     `json:"confidence,omitempty"`
	HasConfidence      bool                    `json:"has_confidence"`
	ConfidenceTier     Tier                    `json:"confidence_tier,omitempty"`
	RecommendedActions []string                `json:"recommended_actions"`
	TopAction          string                  `json:"top_action,omitempty"`
}

// TierFor maps a risk category to its color tier.
// High/Critical red, Medium amber, Low green, anything else neutral.
func TierFor(c assessment.RiskCategory) Tier {
	switch c {
	case assessment.RiskHigh, assessment.RiskCritical:
		return TierRed
	case assessment.RiskMedium:
		return TierAmber
	case assessment.RiskLow:
		return TierGreen
	default:
		return TierNeutral
	}
}

// Clamp bounds a sub-score into the displayable 0-100 range.
func Clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Confidence resolves the displayed confidence figure. An explicit
// confidence_level field wins; otherwise the first "Confidence Level: N%"
// occurrence inside ai_insights is used. The bool reports whether a figure
// was found at all.
func Confidence(res *assessment.AnalysisResult) (int, bool) {
	if res.ConfidenceLevel != "" {
		if n, ok := parsePercent(res.ConfidenceLevel); ok {
			return n, true
		}
	}
	m := confidenceRe.FindStringSubmatch(res.AIInsights)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// parsePercent accepts "87", "87%" or "Confidence Level: 87%".
func parsePercent(s string) (int, bool) {
	if m := confidenceRe.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[1])
		return n, err == nil
	}
	trimmed := s
	if len(trimmed) > 0 && trimmed[len(trimmed)-1] == '%' {
		trimmed = trimmed[:len(trimmed)-1]
	}
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, false
	}
	return n, true
}

func section(items []string, placeholder, label string, score float64) Section {
	if len(items) == 0 {
		return Section{
			Items:       []string{placeholder},
			Placeholder: true,
			Bar:         Bar{Label: label, Percent: Clamp(score)},
		}
	}
	return Section{Items: items, Bar: Bar{Label: label, Percent: Clamp(score)}}
}

// Render builds the view model for one result.
func Render(res *assessment.AnalysisResult) *View {
	tier := TierFor(res.RiskCategory)
	v := &View{
		OverallRiskScore: Clamp(res.OverallRiskScore),
		RiskCategory:     res.RiskCategory,
		Tier:             tier,
		LanguagePatterns: res.LanguagePatterns.Description,
		LanguageBar:      Bar{Label: "Intensity", Percent: Clamp(res.LanguagePatterns.IntensityScore)},
		EmotionalState:   res.EmotionalState.Description,
		EmotionBar:       Bar{Label: "Intensity", Percent: Clamp(res.EmotionalState.IntensityScore)},
		RiskFactors: section(res.RiskFactors.List, NoRiskFactors,
			"Prevalence", res.RiskFactors.PrevalenceScore),
		ProtectiveFactors: section(res.ProtectiveFactors.List, NoProtectiveFactors,
			"Strength", res.ProtectiveFactors.StrengthScore),
		AIInsights: res.AIInsights,
	}

	if len(res.KeyExcerpts) == 0 {
		v.KeyExcerpts = Section{Items: []string{NoExcerpts}, Placeholder: true}
	} else {
		v.KeyExcerpts = Section{Items: res.KeyExcerpts}
	}

	if n, ok := Confidence(res); ok {
		v.Confidence = n
		v.HasConfidence = true
		v.ConfidenceTier = tier
	}

	if len(res.RecommendedActions) == 0 {
		v.RecommendedActions = []string{NoActions}
	} else {
		v.RecommendedActions = res.RecommendedActions
		v.TopAction = res.RecommendedActions[0]
	}

	return v
}
