package assessment

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

const validResult = `{
	"overall_risk_score": 72.5,
	"risk_category": "High",
	"language_patterns": {"description": "Repeated hopelessness statements", "intensity_score": 80},
	"risk_factors": {"list": ["Social isolation", "Recent job loss"], "prevalence_score": 65},
	"protective_factors": {"list": ["Supportive sister"], "strength_score": 30},
	"emotional_state": {"description": "Acute distress", "intensity_score": 85},
	"key_excerpts": ["I just can't see a way out anymore"],
	"ai_insights": "Language suggests elevated risk. Confidence Level: 88%.",
	"recommended_actions": ["Conduct structured risk assessment", "Build safety plan"]
}`

func TestDecodeValid(t *testing.T) {
	res, err := Decode([]byte(validResult))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.OverallRiskScore != 72.5 {
		t.Errorf("expected score 72.5, got %v", res.OverallRiskScore)
	}
	if res.RiskCategory != RiskHigh {
		t.Errorf("expected High category, got %q", res.RiskCategory)
	}
	if len(res.RiskFactors.List) != 2 {
		t.Errorf("expected 2 risk factors, got %d", len(res.RiskFactors.List))
	}
	if res.ProtectiveFactors.StrengthScore != 30 {
		t.Errorf("expected strength 30, got %v", res.ProtectiveFactors.StrengthScore)
	}
}

func TestDecodeMissingScore(t *testing.T) {
	_, err := Decode([]byte(`{"risk_category": "Low"}`))
	if !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("expected ErrInvalidFormat, got %v", err)
	}
}

func TestDecodeNonNumericScore(t *testing.T) {
	_, err := Decode([]byte(`{"overall_risk_score": "high"}`))
	if !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("expected ErrInvalidFormat, got %v", err)
	}
}

func TestDecodeCorruptJSON(t *testing.T) {
	_, err := Decode([]byte(`{"overall_risk_score": 10`))
	if !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("expected ErrInvalidFormat for corrupt JSON, got %v", err)
	}
}

func TestDecodeNormalizesCategory(t *testing.T) {
	cases := []struct {
		in   string
		want RiskCategory
	}{
		{`"high"`, RiskHigh},
		{`"  Critical "`, RiskCritical},
		{`"LOW"`, RiskLow},
		{`"Severe"`, "Severe"}, // unknown passes through, renders neutral
	}
	for _, c := range cases {
		raw := []byte(`{"overall_risk_score": 50, "risk_category": ` + c.in + `}`)
		res, err := Decode(raw)
		if err != nil {
			t.Fatalf("Decode(%s): %v", c.in, err)
		}
		if res.RiskCategory != c.want {
			t.Errorf("Decode(%s) category = %q, want %q", c.in, res.RiskCategory, c.want)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	orig := AnalysisResult{
		OverallRiskScore: 41,
		RiskCategory:     RiskMedium,
		LanguagePatterns: ScoredDescription{Description: "mixed", IntensityScore: 40},
		RiskFactors: RiskFactors{
			List:            []string{"insomnia", "isolation"},
			PrevalenceScore: 35,
		},
		ProtectiveFactors: ProtectiveFactors{
			List:          []string{"therapy engagement"},
			StrengthScore: 50,
		},
		EmotionalState:     ScoredDescription{Description: "flat affect", IntensityScore: 45},
		KeyExcerpts:        []string{"I haven't slept in days"},
		AIInsights:         "Moderate indicators. Confidence Level: 74%.",
		RecommendedActions: []string{"follow up within 48h"},
		ConfidenceLevel:    "74",
	}

	raw, err := json.Marshal(orig)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Decode(raw)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(*got, orig) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", *got, orig)
	}
}

func TestKnownCategory(t *testing.T) {
	for _, c := range []RiskCategory{RiskLow, RiskMedium, RiskHigh, RiskCritical} {
		if !KnownCategory(c) {
			t.Errorf("%q should be known", c)
		}
	}
	if KnownCategory("Severe") {
		t.Error("Severe should not be a known category")
	}
}
