package core

import (
	"reflect"
	"strings"
	"testing"
)

func TestSanitizeResponseTrustsValidJSON(t *testing.T) {
	raw := "Sure! ```json\n" + `{"riskScore":92,"riskLevel":"dangerous","threatIndicators":["urgency language","spoofed domain"],"analysisSummary":"Phishing attempt"}` + "\n```"

	got, outcome := SanitizeResponse(raw)
	want := &RiskAssessment{
		RiskScore:        92,
		RiskLevel:        RiskLevelDangerous,
		ThreatIndicators: []string{"urgency language", "spoofed domain"},
		AnalysisSummary:  "Phishing attempt",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SanitizeResponse() = %+v, want %+v", got, want)
	}
	if outcome != OutcomeParsed {
		t.Errorf("outcome = %s, want %s", outcome, OutcomeParsed)
	}
}

func TestSanitizeResponseFallback(t *testing.T) {
	long := strings.Repeat("x", FallbackSummaryLimit+100)

	tests := []struct {
		name           string
		raw            string
		wantOutcome    SanitizeOutcome
		wantIndicators []string
		wantSummary    string
	}{
		{
			name:           "prose",
			raw:            "This email appears to be a standard business update.",
			wantOutcome:    OutcomeNoJSON,
			wantIndicators: []string{},
			wantSummary:    "This email appears to be a standard business update.",
		},
		{
			name:           "long prose",
			raw:            long,
			wantOutcome:    OutcomeNoJSON,
			wantIndicators: []string{},
			wantSummary:    long[:FallbackSummaryLimit],
		},
		{
			name:           "broken json",
			raw:            `{"riskScore": 80, "riskLevel": }`,
			wantOutcome:    OutcomeInvalidJSON,
			wantIndicators: []string{UnparsableIndicator},
			wantSummary:    `{"riskScore": 80, "riskLevel": }`,
		},
		{
			name:           "reversed braces",
			raw:            "} nothing {",
			wantOutcome:    OutcomeNoJSON,
			wantIndicators: []string{},
			wantSummary:    "} nothing {",
		},
		{
			name:           "missing score",
			raw:            `{"riskLevel": "safe"}`,
			wantOutcome:    OutcomeInvalidJSON,
			wantIndicators: []string{UnparsableIndicator},
			wantSummary:    `{"riskLevel": "safe"}`,
		},
		{
			name:           "empty",
			raw:            "",
			wantOutcome:    OutcomeNoJSON,
			wantIndicators: []string{},
			wantSummary:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, outcome := SanitizeResponse(tt.raw)
			if outcome != tt.wantOutcome {
				t.Errorf("outcome = %s, want %s", outcome, tt.wantOutcome)
			}
			if !outcome.IsFallback() {
				t.Errorf("IsFallback() = false for %s", outcome)
			}
			if got.RiskScore != FallbackRiskScore || got.RiskLevel != FallbackRiskLevel {
				t.Errorf("score/level = %d/%s, want %d/%s", got.RiskScore, got.RiskLevel, FallbackRiskScore, FallbackRiskLevel)
			}
			if !reflect.DeepEqual(got.ThreatIndicators, tt.wantIndicators) {
				t.Errorf("ThreatIndicators = %#v, want %#v", got.ThreatIndicators, tt.wantIndicators)
			}
			if got.AnalysisSummary != tt.wantSummary {
				t.Errorf("AnalysisSummary = %q, want %q", got.AnalysisSummary, tt.wantSummary)
			}
		})
	}
}

func TestSanitizeResponseClamps(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantScore int
		wantLevel RiskLevel
	}{
		{name: "score above range", raw: `{"riskScore": 150, "riskLevel": "dangerous"}`, wantScore: 100, wantLevel: RiskLevelDangerous},
		{name: "negative score", raw: `{"riskScore": -3, "riskLevel": "safe"}`, wantScore: 0, wantLevel: RiskLevelSafe},
		{name: "fractional score", raw: `{"riskScore": 41.6, "riskLevel": "suspicious"}`, wantScore: 42, wantLevel: RiskLevelSuspicious},
		{name: "level casing", raw: `{"riskScore": 80, "riskLevel": " Dangerous "}`, wantScore: 80, wantLevel: RiskLevelDangerous},
		{name: "unknown level from high score", raw: `{"riskScore": 75, "riskLevel": "critical"}`, wantScore: 75, wantLevel: RiskLevelDangerous},
		{name: "unknown level from mid score", raw: `{"riskScore": 40, "riskLevel": "meh"}`, wantScore: 40, wantLevel: RiskLevelSuspicious},
		{name: "unknown level from low score", raw: `{"riskScore": 5, "riskLevel": ""}`, wantScore: 5, wantLevel: RiskLevelSafe},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, outcome := SanitizeResponse(tt.raw)
			if outcome != OutcomeAdjusted {
				t.Errorf("outcome = %s, want %s", outcome, OutcomeAdjusted)
			}
			if got.RiskScore != tt.wantScore || got.RiskLevel != tt.wantLevel {
				t.Errorf("score/level = %d/%s, want %d/%s", got.RiskScore, got.RiskLevel, tt.wantScore, tt.wantLevel)
			}
			if got.ThreatIndicators == nil {
				t.Error("ThreatIndicators = nil, want empty slice")
			}
		})
	}
}

func TestSanitizeResponseCoercesFieldTypes(t *testing.T) {
	tests := []struct {
		name           string
		raw            string
		wantScore      int
		wantLevel      RiskLevel
		wantIndicators []string
		wantSummary    string
	}{
		{
			name:           "numeric string score",
			raw:            `{"riskScore":"92","riskLevel":"dangerous","threatIndicators":["spoofed"],"analysisSummary":"Phishing"}`,
			wantScore:      92,
			wantLevel:      RiskLevelDangerous,
			wantIndicators: []string{"spoofed"},
			wantSummary:    "Phishing",
		},
		{
			name:           "non-string indicator dropped",
			raw:            `{"riskScore":92,"riskLevel":"dangerous","threatIndicators":["spoofed",3,null,{"a":1}],"analysisSummary":"Phishing"}`,
			wantScore:      92,
			wantLevel:      RiskLevelDangerous,
			wantIndicators: []string{"spoofed"},
			wantSummary:    "Phishing",
		},
		{
			name:           "missing level derived from score",
			raw:            `{"riskScore":92,"threatIndicators":["spoofed"],"analysisSummary":"Phishing"}`,
			wantScore:      92,
			wantLevel:      RiskLevelDangerous,
			wantIndicators: []string{"spoofed"},
			wantSummary:    "Phishing",
		},
		{
			name:           "numeric level derived from score",
			raw:            `{"riskScore":55,"riskLevel":2}`,
			wantScore:      55,
			wantLevel:      RiskLevelSuspicious,
			wantIndicators: []string{},
		},
		{
			name:           "indicators not an array",
			raw:            `{"riskScore":80,"riskLevel":"dangerous","threatIndicators":"urgent tone"}`,
			wantScore:      80,
			wantLevel:      RiskLevelDangerous,
			wantIndicators: []string{},
		},
		{
			name:           "non-string summary",
			raw:            `{"riskScore":10,"riskLevel":"safe","analysisSummary":{"text":"fine"}}`,
			wantScore:      10,
			wantLevel:      RiskLevelSafe,
			wantIndicators: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, outcome := SanitizeResponse(tt.raw)
			if outcome != OutcomeAdjusted {
				t.Errorf("outcome = %s, want %s", outcome, OutcomeAdjusted)
			}
			want := &RiskAssessment{
				RiskScore:        tt.wantScore,
				RiskLevel:        tt.wantLevel,
				ThreatIndicators: tt.wantIndicators,
				AnalysisSummary:  tt.wantSummary,
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("SanitizeResponse() = %+v, want %+v", got, want)
			}
		})
	}
}

func TestSanitizeResponseUnusableScoreFallsBack(t *testing.T) {
	for _, raw := range []string{
		`{"riskScore":"high","riskLevel":"dangerous"}`,
		`{"riskScore":null,"riskLevel":"dangerous"}`,
		`{"riskScore":[92],"riskLevel":"dangerous"}`,
	} {
		got, outcome := SanitizeResponse(raw)
		if outcome != OutcomeInvalidJSON {
			t.Errorf("SanitizeResponse(%s) outcome = %s, want %s", raw, outcome, OutcomeInvalidJSON)
		}
		if got.RiskScore != FallbackRiskScore || got.RiskLevel != FallbackRiskLevel {
			t.Errorf("SanitizeResponse(%s) = %d/%s, want fallback", raw, got.RiskScore, got.RiskLevel)
		}
	}
}
