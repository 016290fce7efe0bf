package core

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/mikey/llm-mail-triage/internal/utils"
)

// SanitizeOutcome says how a classifier reply was turned into an assessment
type SanitizeOutcome string

const (
	// OutcomeParsed means the reply's JSON was used as-is
	OutcomeParsed SanitizeOutcome = "parsed"
	// OutcomeAdjusted means the JSON parsed but some field had to be coerced, dropped or derived
	OutcomeAdjusted SanitizeOutcome = "adjusted"
	// OutcomeNoJSON means no {...} span was found and the fallback was used
	OutcomeNoJSON SanitizeOutcome = "no_json"
	// OutcomeInvalidJSON means the {...} span did not parse or carried no usable score,
	// and the fallback was used
	OutcomeInvalidJSON SanitizeOutcome = "invalid_json"
)

// IsFallback reports whether the fixed safe default was substituted
func (o SanitizeOutcome) IsFallback() bool {
	return o == OutcomeNoJSON || o == OutcomeInvalidJSON
}

const (
	FallbackRiskScore    = 15
	FallbackRiskLevel    = RiskLevelSafe
	FallbackSummaryLimit = 500
	UnparsableIndicator  = "Unable to parse AI analysis"
)

// Score boundaries used when a level has to be derived from the score
const (
	suspiciousFromScore = 40
	dangerousFromScore  = 70
)

// SanitizeResponse turns a classifier reply into a fully populated assessment.
// It never fails: replies without usable JSON yield the fixed fallback.
// Fields of an unexpected type are coerced or dropped one at a time.
func SanitizeResponse(raw string) (*RiskAssessment, SanitizeOutcome) {
	span, found := extractJSONObject(raw)
	if !found {
		return fallbackAssessment(raw, []string{}), OutcomeNoJSON
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(span), &fields); err != nil {
		return fallbackAssessment(raw, []string{UnparsableIndicator}), OutcomeInvalidJSON
	}

	score, exact, ok := decodeScore(fields["riskScore"])
	if !ok {
		return fallbackAssessment(raw, []string{UnparsableIndicator}), OutcomeInvalidJSON
	}

	outcome := OutcomeParsed
	clamped := clampScore(score)
	if !exact || float64(clamped) != score {
		outcome = OutcomeAdjusted
	}

	level, exact := decodeLevel(fields["riskLevel"], clamped)
	if !exact {
		outcome = OutcomeAdjusted
	}

	indicators, exact := decodeIndicators(fields["threatIndicators"])
	if !exact {
		outcome = OutcomeAdjusted
	}

	var summary string
	if msg, present := fields["analysisSummary"]; present && !isJSONNull(msg) {
		if err := json.Unmarshal(msg, &summary); err != nil {
			summary = ""
			outcome = OutcomeAdjusted
		}
	}

	return &RiskAssessment{
		RiskScore:        clamped,
		RiskLevel:        level,
		ThreatIndicators: indicators,
		AnalysisSummary:  summary,
	}, outcome
}

// decodeScore accepts a JSON number or a numeric string. exact is false when
// the value had to be converted.
func decodeScore(msg json.RawMessage) (score float64, exact, ok bool) {
	if len(msg) == 0 || isJSONNull(msg) {
		return 0, false, false
	}
	if err := json.Unmarshal(msg, &score); err == nil {
		return score, true, true
	}
	var s string
	if err := json.Unmarshal(msg, &s); err != nil {
		return 0, false, false
	}
	score, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(score) || math.IsInf(score, 0) {
		return 0, false, false
	}
	return score, false, true
}

// decodeLevel falls back to the score bands when the level is missing or unknown
func decodeLevel(msg json.RawMessage, score int) (RiskLevel, bool) {
	var s string
	if len(msg) == 0 || json.Unmarshal(msg, &s) != nil {
		return levelForScore(score), false
	}
	if level := RiskLevel(s); level.Valid() {
		return level, true
	}
	if normalized := RiskLevel(strings.ToLower(strings.TrimSpace(s))); normalized.Valid() {
		return normalized, false
	}
	return levelForScore(score), false
}

// decodeIndicators keeps the string items and drops everything else
func decodeIndicators(msg json.RawMessage) ([]string, bool) {
	indicators := []string{}
	if len(msg) == 0 || isJSONNull(msg) {
		return indicators, true
	}
	var items []json.RawMessage
	if err := json.Unmarshal(msg, &items); err != nil {
		return indicators, false
	}
	exact := true
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err != nil {
			exact = false
			continue
		}
		indicators = append(indicators, s)
	}
	return indicators, exact
}

func isJSONNull(msg json.RawMessage) bool {
	return string(bytes.TrimSpace(msg)) == "null"
}

// extractJSONObject returns the greedy span from the first '{' to the last '}'
func extractJSONObject(raw string) (string, bool) {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end < start {
		return "", false
	}
	return raw[start : end+1], true
}

func fallbackAssessment(raw string, indicators []string) *RiskAssessment {
	return &RiskAssessment{
		RiskScore:        FallbackRiskScore,
		RiskLevel:        FallbackRiskLevel,
		ThreatIndicators: indicators,
		AnalysisSummary:  utils.TruncateRunes(raw, FallbackSummaryLimit),
	}
}

func clampScore(score float64) int {
	if math.IsNaN(score) {
		return FallbackRiskScore
	}
	rounded := math.Round(score)
	switch {
	case rounded < 0:
		return 0
	case rounded > 100:
		return 100
	default:
		return int(rounded)
	}
}

func levelForScore(score int) RiskLevel {
	switch {
	case score >= dangerousFromScore:
		return RiskLevelDangerous
	case score >= suspiciousFromScore:
		return RiskLevelSuspicious
	default:
		return RiskLevelSafe
	}
}
