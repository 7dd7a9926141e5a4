package report

import (
	"testing"

	"github.com/bryanwahyu/lifeline-triage/internal/domain/assessment"
)

func TestTierFor(t *testing.T) {
	cases := []struct {
		category assessment.RiskCategory
		want     Tier
	}{
		{assessment.RiskCritical, TierRed},
		{assessment.RiskHigh, TierRed},
		{assessment.RiskMedium, TierAmber},
		{assessment.RiskLow, TierGreen},
		{"Unknown", TierNeutral},
		{"", TierNeutral},
	}
	for _, c := range cases {
		if got := TierFor(c.category); got != c.want {
			t.Errorf("TierFor(%q) = %q, want %q", c.category, got, c.want)
		}
	}
}

func TestClamp(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{-5, 0},
		{0, 0},
		{55.5, 55.5},
		{100, 100},
		{130, 100},
	}
	for _, c := range cases {
		if got := Clamp(c.in); got != c.want {
			t.Errorf("Clamp(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestConfidenceFromInsights(t *testing.T) {
	res := &assessment.AnalysisResult{
		AIInsights: "Text. Confidence Level: 87%. More text.",
	}
	n, ok := Confidence(res)
	if !ok {
		t.Fatal("expected a confidence figure")
	}
	if n != 87 {
		t.Errorf("expected 87, got %d", n)
	}
}

func TestConfidenceFieldOverridesInsights(t *testing.T) {
	res := &assessment.AnalysisResult{
		AIInsights:      "Confidence Level: 60%.",
		ConfidenceLevel: "92%",
	}
	n, ok := Confidence(res)
	if !ok || n != 92 {
		t.Errorf("expected 92 from confidence_level, got %d (ok=%v)", n, ok)
	}
}

func TestConfidenceAbsent(t *testing.T) {
	res := &assessment.AnalysisResult{AIInsights: "No figure here."}
	if _, ok := Confidence(res); ok {
		t.Error("expected no confidence figure")
	}
}

func TestRenderEmptyLists(t *testing.T) {
	res := &assessment.AnalysisResult{
		OverallRiskScore: 12,
		RiskCategory:     assessment.RiskLow,
	}
	v := Render(res)

	if !v.KeyExcerpts.Placeholder || len(v.KeyExcerpts.Items) != 1 || v.KeyExcerpts.Items[0] != NoExcerpts {
		t.Errorf("expected excerpt placeholder, got %+v", v.KeyExcerpts)
	}
	if !v.RiskFactors.Placeholder || v.RiskFactors.Items[0] != NoRiskFactors {
		t.Errorf("expected risk factor placeholder, got %+v", v.RiskFactors)
	}
	if !v.ProtectiveFactors.Placeholder || v.ProtectiveFactors.Items[0] != NoProtectiveFactors {
		t.Errorf("expected protective factor placeholder, got %+v", v.ProtectiveFactors)
	}
	if v.RecommendedActions[0] != NoActions {
		t.Errorf("expected actions placeholder, got %+v", v.RecommendedActions)
	}
	if v.TopAction != "" {
		t.Errorf("no top action expected for empty list, got %q", v.TopAction)
	}
}

func TestRenderFull(t *testing.T) {
	res := &assessment.AnalysisResult{
		OverallRiskScore: 150, // out of range, must clamp
		RiskCategory:     assessment.RiskCritical,
		LanguagePatterns: assessment.ScoredDescription{Description: "dense risk language", IntensityScore: 120},
		RiskFactors: assessment.RiskFactors{
			List:            []string{"stated intent", "access to means"},
			PrevalenceScore: -10,
		},
		EmotionalState:     assessment.ScoredDescription{Description: "agitated", IntensityScore: 90},
		KeyExcerpts:        []string{"quote one", "quote two"},
		AIInsights:         "Acute crisis indicators. Confidence Level: 95%.",
		RecommendedActions: []string{"initiate emergency dispatch", "stay on the line"},
	}
	v := Render(res)

	if v.Tier != TierRed {
		t.Errorf("expected red tier, got %q", v.Tier)
	}
	if v.OverallRiskScore != 100 {
		t.Errorf("expected clamped score 100, got %v", v.OverallRiskScore)
	}
	if v.LanguageBar.Percent != 100 {
		t.Errorf("expected clamped language bar, got %v", v.LanguageBar.Percent)
	}
	if v.RiskFactors.Bar.Percent != 0 {
		t.Errorf("expected clamped prevalence 0, got %v", v.RiskFactors.Bar.Percent)
	}
	if v.RiskFactors.Placeholder {
		t.Error("non-empty risk factors must not use the placeholder")
	}
	if len(v.KeyExcerpts.Items) != 2 || v.KeyExcerpts.Placeholder {
		t.Errorf("expected 2 excerpts, got %+v", v.KeyExcerpts)
	}
	if !v.HasConfidence || v.Confidence != 95 {
		t.Errorf("expected confidence 95, got %d (has=%v)", v.Confidence, v.HasConfidence)
	}
	if v.ConfidenceTier != TierRed {
		t.Errorf("confidence tier must match risk tier, got %q", v.ConfidenceTier)
	}
	if v.TopAction != "initiate emergency dispatch" {
		t.Errorf("first action must be top priority, got %q", v.TopAction)
	}
}
