package intake

import (
	"strings"
	"testing"
	"time"

	"github.com/mikey/llm-mail-triage/internal/core"
)

func TestAnalysisPayloadIsValidRequest(t *testing.T) {
	msg := &ParsedMessage{
		MessageID:   "abc@example.com",
		Subject:     "Hello",
		FromName:    "Jane",
		FromAddress: "jane@example.com",
		Date:        time.Date(2024, 5, 1, 8, 0, 0, 0, time.FixedZone("CEST", 2*3600)),
		Body:        "Body text",
	}

	payload, err := AnalysisPayload(msg, "user-1", time.Now())
	if err != nil {
		t.Fatalf("AnalysisPayload() error = %v", err)
	}

	req, err := core.ParseAnalysisRequest(payload)
	if err != nil {
		t.Fatalf("ParseAnalysisRequest() error = %v", err)
	}
	if req.UserID != "user-1" || req.EmailID != "abc@example.com" {
		t.Errorf("ids = %s/%s, want user-1/abc@example.com", req.UserID, req.EmailID)
	}
	if req.Sender != "Jane" || req.SenderEmail != "jane@example.com" {
		t.Errorf("sender = %s <%s>, want Jane <jane@example.com>", req.Sender, req.SenderEmail)
	}
	if !req.ReceivedDate.Equal(msg.Date) {
		t.Errorf("ReceivedDate = %v, want %v", req.ReceivedDate, msg.Date)
	}
}

func TestAnalysisPayloadDefaults(t *testing.T) {
	received := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	msg := &ParsedMessage{
		FromAddress: "jane@example.com",
		Body:        strings.Repeat("a", core.MaxContentLength+10),
	}

	payload, err := AnalysisPayload(msg, "user-1", received)
	if err != nil {
		t.Fatalf("AnalysisPayload() error = %v", err)
	}

	req, err := core.ParseAnalysisRequest(payload)
	if err != nil {
		t.Fatalf("ParseAnalysisRequest() error = %v", err)
	}
	if req.Subject != noSubject {
		t.Errorf("Subject = %q, want %q", req.Subject, noSubject)
	}
	if req.Sender != "jane@example.com" {
		t.Errorf("Sender = %q, want the address", req.Sender)
	}
	if req.EmailID == "" {
		t.Error("EmailID is empty, want a generated id")
	}
	if !req.ReceivedDate.Equal(received) {
		t.Errorf("ReceivedDate = %v, want %v", req.ReceivedDate, received)
	}
	if len(req.Content) != core.MaxContentLength {
		t.Errorf("Content length = %d, want %d", len(req.Content), core.MaxContentLength)
	}
}

func TestAnalysisPayloadBadSenderFailsValidation(t *testing.T) {
	msg := &ParsedMessage{FromAddress: "not-an-address", Body: "x"}

	payload, err := AnalysisPayload(msg, "user-1", time.Now())
	if err != nil {
		t.Fatalf("AnalysisPayload() error = %v", err)
	}

	_, err = core.ParseAnalysisRequest(payload)
	verr, ok := err.(*core.ValidationError)
	if !ok {
		t.Fatalf("ParseAnalysisRequest() error = %v, want *ValidationError", err)
	}
	if len(verr.Fields) != 1 || verr.Fields[0].Field != "senderEmail" {
		t.Errorf("fields = %+v, want senderEmail only", verr.Fields)
	}
}
