// Package intake turns raw RFC 822 messages into pipeline requests, over SMTP or from the CLI.
package intake

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mikey/llm-mail-triage/internal/core"
	"github.com/mikey/llm-mail-triage/internal/utils"
)

const noSubject = "(no subject)"

// AnalysisPayload renders msg as the JSON body accepted by the pipeline.
// Over-long fields are cut to their limits; the sender address is left for the validator to judge.
func AnalysisPayload(msg *ParsedMessage, userID string, received time.Time) ([]byte, error) {
	emailID := msg.MessageID
	if emailID == "" {
		emailID = uuid.NewString()
	}

	subject := msg.Subject
	if subject == "" {
		subject = noSubject
	}

	sender := msg.FromName
	if sender == "" {
		sender = msg.FromAddress
	}

	date := msg.Date
	if date.IsZero() {
		date = received
	}

	req := core.AnalysisRequest{
		UserID:         userID,
		EmailID:        utils.TruncateRunes(emailID, core.MaxIDLength),
		Subject:        utils.TruncateRunes(subject, core.MaxSubjectLength),
		Sender:         utils.TruncateRunes(sender, core.MaxSenderLength),
		SenderEmail:    msg.FromAddress,
		Content:        utils.TruncateRunes(msg.Body, core.MaxContentLength),
		ReceivedDate:   date.UTC(),
		HasAttachments: msg.HasAttachments,
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode analysis request: %w", err)
	}
	return payload, nil
}
