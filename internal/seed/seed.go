// Package seed loads demo emails for exercising the pipeline without a mail source.
package seed

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mikey/llm-mail-triage/internal/core"
	"gopkg.in/yaml.v3"
)

// User is the profile the demo emails are scanned for
type User struct {
	ID          string `yaml:"id"`
	Email       string `yaml:"email"`
	DisplayName string `yaml:"display_name"`
}

// Email is one demo message. Age is how long before the scan it was received.
type Email struct {
	EmailID        string        `yaml:"email_id"`
	Subject        string        `yaml:"subject"`
	Sender         string        `yaml:"sender"`
	SenderEmail    string        `yaml:"sender_email"`
	Content        string        `yaml:"content"`
	Age            time.Duration `yaml:"age"`
	HasAttachments bool          `yaml:"has_attachments"`
}

// File is the top-level layout of a seed file
type File struct {
	User   User    `yaml:"user"`
	Emails []Email `yaml:"emails"`
}

// Load parses seed data
func Load(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed data: %w", err)
	}
	if len(f.Emails) == 0 {
		return nil, fmt.Errorf("seed data contains no emails")
	}
	return &f, nil
}

// LoadFile reads and parses a seed file
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file %s: %w", path, err)
	}
	return Load(data)
}

// Default returns the built-in demo set: one phishing attempt, one ordinary
// internal email and one borderline invoice reminder.
func Default() *File {
	return &File{
		User: User{
			ID:          "demo-user",
			Email:       "demo@example.com",
			DisplayName: "Demo User",
		},
		Emails: []Email{
			{
				Subject:     "Urgent: Verify Your Account Now!",
				Sender:      "Security Team",
				SenderEmail: "no-reply@secure-bank-verify.com",
				Content:     "Your account has been suspended. Click here immediately...",
			},
			{
				Subject:        "Meeting Notes - Q4 Planning",
				Sender:         "Sarah Johnson",
				SenderEmail:    "sarah.johnson@company.com",
				Content:        "Hi team, here are the notes from yesterday's Q4 planning meeting...",
				Age:            time.Hour,
				HasAttachments: true,
			},
			{
				Subject:        "Re: Invoice Payment Due",
				Sender:         "Accounts Payable",
				SenderEmail:    "payments@vendor-portal.net",
				Content:        "Dear valued customer, your invoice #12345 is overdue...",
				Age:            2 * time.Hour,
				HasAttachments: true,
			},
		},
	}
}

// Profile returns the seed user as a store profile
func (f *File) Profile() *core.Profile {
	return &core.Profile{
		ID:          f.User.ID,
		Email:       f.User.Email,
		DisplayName: f.User.DisplayName,
	}
}

// Requests turns the demo emails into validated analysis requests for userID.
// Emails without an id get one derived from now, so repeated runs do not collide.
func (f *File) Requests(userID string, now time.Time) ([]*core.AnalysisRequest, error) {
	requests := make([]*core.AnalysisRequest, 0, len(f.Emails))
	for i, email := range f.Emails {
		emailID := email.EmailID
		if emailID == "" {
			emailID = fmt.Sprintf("demo-%d-%d", now.UnixMilli(), i+1)
		}

		payload, err := json.Marshal(core.AnalysisRequest{
			UserID:         userID,
			EmailID:        emailID,
			Subject:        email.Subject,
			Sender:         email.Sender,
			SenderEmail:    email.SenderEmail,
			Content:        email.Content,
			ReceivedDate:   now.Add(-email.Age).UTC(),
			HasAttachments: email.HasAttachments,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to encode seed email %d: %w", i+1, err)
		}

		req, err := core.ParseAnalysisRequest(payload)
		if err != nil {
			return nil, fmt.Errorf("seed email %d: %w", i+1, err)
		}
		requests = append(requests, req)
	}
	return requests, nil
}
