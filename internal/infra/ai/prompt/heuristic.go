package prompt

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// HeuristicAnalyzer inspects transcript text for risk and protective language
// and returns a JSON string matching the required schema. It runs fully
// offline and backs the service when no AI provider is configured; it is also
// the deterministic analyzer used in tests.
type HeuristicAnalyzer struct{}

func (HeuristicAnalyzer) Analyze(_ context.Context, transcript string) (string, error) {
	return AnalyzeTranscript(transcript), nil
}

type detector struct {
	re     *regexp.Regexp
	weight float64
	factor string
}

// Phrase detectors for risk language. Weights feed the overall score; the
// factor string is what shows up in risk_factors.list.
var riskDetectors = []detector{
	{regexp.MustCompile(`(?i)\b(kill(ing)? myself|end my life|suicide|suicidal)\b`), 40, "Direct expressions of suicidal intent"},
	{regexp.MustCompile(`(?i)\b(want(s)? to die|better off dead|not want to (be alive|live))\b`), 35, "Expressed desire to die"},
	{regexp.MustCompile(`(?i)\b(plan(ned)?|pills|rope|gun|bridge|overdose)\b`), 30, "References to method or means"},
	{regexp.MustCompile(`(?i)\b(goodbye|final|last (time|letter)|give(n)? away my)\b`), 20, "Farewell or finality language"},
	{regexp.MustCompile(`(?i)\b(hopeless|no way out|pointless|no future|trapped)\b`), 18, "Expressions of hopelessness"},
	{regexp.MustCompile(`(?i)\b(burden|everyone would be better without me)\b`), 18, "Perceived burdensomeness"},
	{regexp.MustCompile(`(?i)\b(alone|lonely|nobody|no one) (cares|understands|left)?\b`), 12, "Social isolation"},
	{regexp.MustCompile(`(?i)\b(can't sleep|not sleeping|drinking|drunk|using again)\b`), 10, "Sleep disruption or substance use"},
	{regexp.MustCompile(`(?i)\b(hurt(ing)? myself|self[- ]harm|cutting)\b`), 25, "Self-harm references"},
}

var protectiveDetectors = []detector{
	{regexp.MustCompile(`(?i)\b(my (kids|children|daughter|son|dog|cat))\b`), 15, "Responsibility to dependents"},
	{regexp.MustCompile(`(?i)\b(my (therapist|counselor|doctor|psychiatrist))\b`), 15, "Engaged with professional support"},
	{regexp.MustCompile(`(?i)\b(friend|family|sister|brother|mother|father) (helps|listens|supports|checks)\b`), 12, "Available social support"},
	{regexp.MustCompile(`(?i)\b(want(s)? (help|to get better)|reach(ed|ing) out)\b`), 15, "Help-seeking behaviour"},
	{regexp.MustCompile(`(?i)\b(next (week|month)|looking forward|planning to)\b`), 10, "Future-oriented statements"},
	{regexp.MustCompile(`(?i)\b(faith|church|pray(er|ing)?)\b`), 8, "Faith or belief framework"},
}

// AnalyzeTranscript scores the transcript against the detector tables and
// composes a schema-valid AnalysisResult JSON string. It never returns an
// error; marshal failure falls back to a minimal valid object.
func AnalyzeTranscript(transcript string) string {
	type scored struct {
		Description string  `json:"description"`
		Intensity   float64 `json:"intensity_score"`
	}
	type riskFactors struct {
		List       []string `json:"list"`
		Prevalence float64  `json:"prevalence_score"`
	}
	type protectiveFactors struct {
		List     []string `json:"list"`
		Strength float64  `json:"strength_score"`
	}
	type output struct {
		OverallRiskScore   float64           `json:"overall_risk_score"`
		RiskCategory       string            `json:"risk_category"`
		LanguagePatterns   scored            `json:"language_patterns"`
		RiskFactors        riskFactors       `json:"risk_factors"`
		ProtectiveFactors  protectiveFactors `json:"protective_factors"`
		EmotionalState     scored            `json:"emotional_state"`
		KeyExcerpts        []string          `json:"key_excerpts"`
		AIInsights         string            `json:"ai_insights"`
		RecommendedActions []string          `json:"recommended_actions"`
	}

	clamp := func(v float64) float64 {
		if v < 0 {
			return 0
		}
		if v > 100 {
			return 100
		}
		return v
	}

	var (
		riskScore   float64
		riskList    []string
		protScore   float64
		protList    []string
		excerpts    []string
		seenFactors = map[string]bool{}
	)

	addExcerpt := func(match string) {
		line := surroundingSentence(transcript, match)
		if line == "" {
			return
		}
		for _, e := range excerpts {
			if e == line {
				return
			}
		}
		if len(excerpts) < 5 {
			excerpts = append(excerpts, line)
		}
	}

	for _, d := range riskDetectors {
		m := d.re.FindString(transcript)
		if m == "" {
			continue
		}
		riskScore += d.weight
		if !seenFactors[d.factor] {
			riskList = append(riskList, d.factor)
			seenFactors[d.factor] = true
		}
		addExcerpt(m)
	}
	for _, d := range protectiveDetectors {
		if d.re.FindStringIndex(transcript) == nil {
			continue
		}
		protScore += d.weight
		if !seenFactors[d.factor] {
			protList = append(protList, d.factor)
			seenFactors[d.factor] = true
		}
	}

	// Protective language offsets risk, but never below a floor when direct
	// intent was detected.
	overall := clamp(riskScore - protScore/2)
	if riskScore >= 40 && overall < 50 {
		overall = 50
	}

	category := "Low"
	switch {
	case overall >= 80:
		category = "Critical"
	case overall >= 60:
		category = "High"
	case overall >= 30:
		category = "Medium"
	}

	out := output{
		OverallRiskScore: overall,
		RiskCategory:     category,
		LanguagePatterns: scored{
			Description: languageSummary(len(riskList), len(protList)),
			Intensity:   clamp(riskScore),
		},
		RiskFactors:       riskFactors{List: riskList, Prevalence: clamp(riskScore)},
		ProtectiveFactors: protectiveFactors{List: protList, Strength: clamp(protScore * 2)},
		EmotionalState: scored{
			Description: emotionSummary(transcript),
			Intensity:   clamp(overall + 10),
		},
		KeyExcerpts:        excerpts,
		RecommendedActions: actionsFor(category),
	}

	confidence := 60 + 5*len(riskList) + 3*len(protList)
	if confidence > 95 {
		confidence = 95
	}
	out.AIInsights = fmt.Sprintf(
		"Pattern-based screening detected %d risk indicator(s) and %d protective indicator(s). %s Confidence Level: %d%%.",
		len(riskList), len(protList), insightFor(category), confidence)

	b, err := json.Marshal(out)
	if err != nil {
		fb := output{RiskCategory: "Low", AIInsights: "Screening error; re-run the analysis. Confidence Level: 0%."}
		data, _ := json.Marshal(fb)
		return string(data)
	}
	return string(b)
}

// surroundingSentence returns the sentence containing the first occurrence of
// match, trimmed to a displayable quote.
func surroundingSentence(text, match string) string {
	idx := strings.Index(strings.ToLower(text), strings.ToLower(match))
	if idx < 0 {
		return ""
	}
	start := idx
	for start > 0 && !isSentenceBreak(text[start-1]) {
		start--
	}
	end := idx + len(match)
	for end < len(text) && !isSentenceBreak(text[end]) {
		end++
	}
	s := strings.TrimSpace(text[start:end])
	if len(s) > 160 {
		cut := 160
		// back off to a rune boundary so the quote stays valid UTF-8
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut] + "..."
	}
	return s
}

func isSentenceBreak(b byte) bool {
	return b == '.' || b == '!' || b == '?' || b == '\n'
}

func languageSummary(riskCount, protCount int) string {
	switch {
	case riskCount == 0 && protCount == 0:
		return "No salient risk or protective language detected in the transcript."
	case riskCount == 0:
		return "Language is predominantly stable with identifiable protective themes."
	case riskCount >= 4:
		return "Dense clustering of high-risk language across the transcript."
	default:
		return "Intermittent risk language present alongside neutral conversation."
	}
}

func emotionSummary(transcript string) string {
	lower := strings.ToLower(transcript)
	switch {
	case strings.Contains(lower, "angry") || strings.Contains(lower, "furious"):
		return "Agitated, anger-forward affect."
	case strings.Contains(lower, "cry") || strings.Contains(lower, "tears"):
		return "Acute distress with tearfulness."
	case strings.Contains(lower, "numb") || strings.Contains(lower, "empty"):
		return "Flattened affect with emotional numbing."
	case strings.Contains(lower, "calm"):
		return "Outwardly calm presentation."
	default:
		return "Mixed affect; tone varies through the call."
	}
}

func actionsFor(category string) []string {
	switch category {
	case "Critical":
		return []string{
			"Keep the caller engaged and initiate emergency dispatch protocol.",
			"Ask directly about access to means and work on securing them.",
			"Stay on the line until a warm handoff to emergency services completes.",
		}
	case "High":
		return []string{
			"Conduct a structured risk assessment before ending the call.",
			"Build a written safety plan with the caller.",
			"Schedule a same-day follow-up contact.",
		}
	case "Medium":
		return []string{
			"Explore the identified stressors and validate the caller's experience.",
			"Reinforce the protective factors the caller named.",
			"Offer a follow-up call within 48 hours.",
		}
	default:
		return []string{
			"Provide supportive listening and local resource referrals.",
			"Invite the caller to reach out again if anything changes.",
		}
	}
}

func insightFor(category string) string {
	switch category {
	case "Critical":
		return "Language is consistent with acute suicidal crisis; treat as an emergency."
	case "High":
		return "Multiple converging indicators suggest elevated near-term risk."
	case "Medium":
		return "Indicators suggest distress without clear acute intent."
	default:
		return "Transcript reads as low acuity on pattern screening alone."
	}
}
