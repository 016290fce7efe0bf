package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"go.uber.org/zap"
)

type tokenProvider map[string]string

func (p tokenProvider) Resolve(ctx context.Context, token string) (*Principal, error) {
	id, ok := p[token]
	if !ok {
		return nil, fmt.Errorf("%w: unknown token", ErrUnauthorized)
	}
	return &Principal{ID: id}, nil
}

type brokenProvider struct{}

func (brokenProvider) Resolve(ctx context.Context, token string) (*Principal, error) {
	return nil, errors.New("identity backend timeout")
}

type fakeStore struct {
	mu       sync.Mutex
	profiles map[string]bool
	records  []*RiskRecord
	err      error
}

func (s *fakeStore) Insert(ctx context.Context, record *RiskRecord) (*RiskRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	stored := *record
	stored.ID = fmt.Sprintf("rec-%d", len(s.records)+1)
	s.records = append(s.records, &stored)
	return &stored, nil
}

func (s *fakeStore) ListByUser(ctx context.Context, userID string) ([]*RiskRecord, error) {
	var out []*RiskRecord
	for _, r := range s.records {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeStore) Get(ctx context.Context, id string) (*RiskRecord, error) {
	for _, r := range s.records {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, ErrRecordNotFound
}

func (s *fakeStore) GetProfile(ctx context.Context, id string) (*Profile, error) {
	if !s.profiles[id] {
		return nil, ErrProfileNotFound
	}
	return &Profile{ID: id}, nil
}

func (s *fakeStore) EnsureProfile(ctx context.Context, profile *Profile) error {
	s.profiles[profile.ID] = true
	return nil
}

type harness struct {
	service *TriageService
	store   *fakeStore
	llm     *fakeLLM
}

func newHarness(llm *fakeLLM) *harness {
	logger := zap.NewNop()
	st := &fakeStore{profiles: map[string]bool{"user-1": true, "user-2": true}}
	provider := tokenProvider{"token-1": "user-1", "token-2": "user-2", "token-ghost": "ghost"}
	guard := NewIdentityGuard(provider, st, logger)
	classifier := NewClassifier(llm, ClassifierConfig{Provider: "fake"}, nil, logger)
	return &harness{
		service: NewTriageService(guard, classifier, st, nil, logger),
		store:   st,
		llm:     llm,
	}
}

func requestBody(userID, senderEmail string) []byte {
	body := `{
		"userId": "` + userID + `",
		"emailId": "msg-001",
		"subject": "Account suspended",
		"sender": "Support",
		"content": "Your account has been suspended. Click here...",
		"receivedDate": "2024-05-01T10:00:00Z",
		"hasAttachments": false`
	if senderEmail != "" {
		body += `, "senderEmail": "` + senderEmail + `"`
	}
	return []byte(body + "}")
}

func TestAnalyzeEmailStoresClassifierVerdict(t *testing.T) {
	h := newHarness(&fakeLLM{reply: `{"riskScore":92,"riskLevel":"dangerous","threatIndicators":["urgency language","spoofed domain"],"analysisSummary":"Phishing attempt"}`})

	record, err := h.service.AnalyzeEmail(context.Background(), "Bearer token-1", requestBody("user-1", "support@examp1e.com"))
	if err != nil {
		t.Fatalf("AnalyzeEmail() error = %v", err)
	}

	if record.ID == "" {
		t.Error("record has no ID")
	}
	if record.RiskScore != 92 || record.RiskLevel != RiskLevelDangerous {
		t.Errorf("record = %d/%s, want 92/dangerous", record.RiskScore, record.RiskLevel)
	}
	if record.Preview != "Your account has been suspended. Click here..." {
		t.Errorf("Preview = %q", record.Preview)
	}
	if len(h.store.records) != 1 {
		t.Errorf("stored %d records, want 1", len(h.store.records))
	}
}

func TestAnalyzeEmailProseReplyUsesFallback(t *testing.T) {
	reply := "This email appears to be a standard business update."
	h := newHarness(&fakeLLM{reply: reply})

	record, err := h.service.AnalyzeEmail(context.Background(), "Bearer token-1", requestBody("user-1", "support@examp1e.com"))
	if err != nil {
		t.Fatalf("AnalyzeEmail() error = %v", err)
	}
	if record.RiskScore != 15 || record.RiskLevel != RiskLevelSafe {
		t.Errorf("record = %d/%s, want 15/safe", record.RiskScore, record.RiskLevel)
	}
	if record.AnalysisSummary != reply {
		t.Errorf("AnalysisSummary = %q, want the full reply", record.AnalysisSummary)
	}
}

func TestAnalyzeEmailRejectsBeforeClassifying(t *testing.T) {
	tests := []struct {
		name    string
		auth    string
		body    []byte
		wantErr error
	}{
		{name: "missing senderEmail", auth: "Bearer token-1", body: requestBody("user-1", ""), wantErr: ErrInvalidRequest},
		{name: "missing credential", auth: "", body: requestBody("user-1", "a@example.com"), wantErr: ErrMissingCredential},
		{name: "unknown credential", auth: "Bearer nope", body: requestBody("user-1", "a@example.com"), wantErr: ErrUnauthorized},
		{name: "no profile", auth: "Bearer token-ghost", body: requestBody("ghost", "a@example.com"), wantErr: ErrProfileNotFound},
		{name: "someone else's userId", auth: "Bearer token-2", body: requestBody("user-1", "a@example.com"), wantErr: ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(&fakeLLM{reply: "{}"})

			_, err := h.service.AnalyzeEmail(context.Background(), tt.auth, tt.body)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("AnalyzeEmail() error = %v, want %v", err, tt.wantErr)
			}
			if len(h.llm.prompts) != 0 {
				t.Errorf("classifier called %d times, want 0", len(h.llm.prompts))
			}
			if len(h.store.records) != 0 {
				t.Errorf("stored %d records, want 0", len(h.store.records))
			}
		})
	}
}

func TestAnalyzeEmailMissingSenderEmailNamesOneField(t *testing.T) {
	h := newHarness(&fakeLLM{reply: "{}"})

	_, err := h.service.AnalyzeEmail(context.Background(), "Bearer token-1", requestBody("user-1", ""))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("AnalyzeEmail() error = %v, want *ValidationError", err)
	}
	if len(verr.Fields) != 1 || verr.Fields[0].Field != "senderEmail" {
		t.Errorf("fields = %+v, want senderEmail only", verr.Fields)
	}
}

func TestAnalyzeEmailProviderFailureIsUnauthorized(t *testing.T) {
	h := newHarness(&fakeLLM{reply: "{}"})
	h.service.guard.provider = brokenProvider{}

	_, err := h.service.AnalyzeEmail(context.Background(), "Bearer token-1", requestBody("user-1", "a@example.com"))
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("AnalyzeEmail() error = %v, want ErrUnauthorized", err)
	}
}

func TestAnalyzeEmailFailures(t *testing.T) {
	t.Run("classifier unavailable", func(t *testing.T) {
		h := newHarness(&fakeLLM{err: errors.New("timeout")})

		_, err := h.service.AnalyzeEmail(context.Background(), "Bearer token-1", requestBody("user-1", "a@example.com"))
		if !errors.Is(err, ErrClassifierUnavailable) {
			t.Errorf("AnalyzeEmail() error = %v, want ErrClassifierUnavailable", err)
		}
		if len(h.store.records) != 0 {
			t.Errorf("stored %d records, want 0", len(h.store.records))
		}
	})

	t.Run("persistence failed", func(t *testing.T) {
		h := newHarness(&fakeLLM{reply: "{}"})
		h.store.err = errors.New("disk full")

		_, err := h.service.AnalyzeEmail(context.Background(), "Bearer token-1", requestBody("user-1", "a@example.com"))
		if !errors.Is(err, ErrPersistenceFailed) {
			t.Errorf("AnalyzeEmail() error = %v, want ErrPersistenceFailed", err)
		}
	})
}

func TestAnalyzeEmailIsNotIdempotent(t *testing.T) {
	h := newHarness(&fakeLLM{reply: `{"riskScore": 10, "riskLevel": "safe"}`})
	body := requestBody("user-1", "a@example.com")

	first, err := h.service.AnalyzeEmail(context.Background(), "Bearer token-1", body)
	if err != nil {
		t.Fatalf("first AnalyzeEmail() error = %v", err)
	}
	second, err := h.service.AnalyzeEmail(context.Background(), "Bearer token-1", body)
	if err != nil {
		t.Fatalf("second AnalyzeEmail() error = %v", err)
	}

	if first.ID == second.ID {
		t.Errorf("both submissions stored as %s, want distinct records", first.ID)
	}
	if len(h.llm.prompts) != 2 {
		t.Errorf("classifier called %d times, want 2", len(h.llm.prompts))
	}
}

func TestGetRecordHidesOtherUsers(t *testing.T) {
	h := newHarness(&fakeLLM{reply: `{"riskScore": 10, "riskLevel": "safe"}`})
	record, err := h.service.AnalyzeEmail(context.Background(), "Bearer token-1", requestBody("user-1", "a@example.com"))
	if err != nil {
		t.Fatalf("AnalyzeEmail() error = %v", err)
	}

	if _, err := h.service.GetRecord(context.Background(), "Bearer token-1", record.ID); err != nil {
		t.Errorf("GetRecord() as owner error = %v", err)
	}
	if _, err := h.service.GetRecord(context.Background(), "Bearer token-2", record.ID); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("GetRecord() as other user error = %v, want ErrRecordNotFound", err)
	}

	list, err := h.service.ListRecords(context.Background(), "Bearer token-2")
	if err != nil {
		t.Fatalf("ListRecords() error = %v", err)
	}
	if len(list) != 0 {
		t.Errorf("ListRecords() for other user = %d records, want 0", len(list))
	}
}

func TestExplain(t *testing.T) {
	h := newHarness(&fakeLLM{reply: "It impersonates your bank."})

	answer, err := h.service.Explain(context.Background(), "Bearer token-1", []byte(`{"subject": "Verify", "question": "why?"}`))
	if err != nil {
		t.Fatalf("Explain() error = %v", err)
	}
	if answer != "It impersonates your bank." {
		t.Errorf("Explain() = %q", answer)
	}
	if len(h.store.records) != 0 {
		t.Error("Explain() stored a record")
	}

	if _, err := h.service.Explain(context.Background(), "", []byte(`{}`)); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Explain() without credential error = %v, want ErrUnauthorized", err)
	}
	if _, err := h.service.Explain(context.Background(), "Bearer token-1", []byte(`{"riskLevel": "bad"}`)); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("Explain() with bad body error = %v, want ErrInvalidRequest", err)
	}
}

func TestScanForUserRequiresProfile(t *testing.T) {
	h := newHarness(&fakeLLM{reply: "{}"})
	req := sampleRequest()
	req.UserID = "ghost"

	if _, err := h.service.ScanForUser(context.Background(), req); !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("ScanForUser() error = %v, want ErrProfileNotFound", err)
	}
}

func TestBearerToken(t *testing.T) {
	tests := map[string]string{
		"Bearer abc":   "abc",
		"bearer  abc ": "abc",
		"abc":          "abc",
		"Bearer ":      "",
		"":             "",
	}
	for in, want := range tests {
		if got := BearerToken(in); got != want {
			t.Errorf("BearerToken(%q) = %q, want %q", in, got, want)
		}
	}
}
