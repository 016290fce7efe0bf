package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"
)

// Field bounds, in characters. MaxIDLength also caps userId.
const (
	MaxIDLength       = 255
	MaxSubjectLength  = 500
	MaxSenderLength   = 255
	MaxEmailLength    = 255
	MaxContentLength  = 50000
	MaxQuestionLength = 2000
)

// ParseAnalysisRequest validates a raw JSON body and returns the typed request.
// On failure the error is a *ValidationError listing every violated field.
func ParseAnalysisRequest(raw []byte) (*AnalysisRequest, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	v := &fieldValidator{obj: obj}
	req := &AnalysisRequest{}
	req.UserID, _ = v.str("userId", true, 1, MaxIDLength)
	req.EmailID, _ = v.str("emailId", true, 1, MaxIDLength)
	req.Subject, _ = v.str("subject", true, 1, MaxSubjectLength)
	req.Sender, _ = v.str("sender", true, 1, MaxSenderLength)
	req.SenderEmail, _ = v.email("senderEmail", true)
	req.Content, _ = v.str("content", true, 1, MaxContentLength)
	req.ReceivedDate, _ = v.timestamp("receivedDate", true)
	req.HasAttachments, _ = v.boolean("hasAttachments", true)

	if err := v.result(); err != nil {
		return nil, err
	}
	return req, nil
}

// ParseExplanationRequest validates the body of an explanation request.
// All fields are optional but must be well-formed when present.
func ParseExplanationRequest(raw []byte) (*ExplanationRequest, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	v := &fieldValidator{obj: obj}
	req := &ExplanationRequest{}
	req.EmailID, _ = v.str("emailId", false, 1, MaxIDLength)
	req.Subject, _ = v.str("subject", false, 1, MaxSubjectLength)
	req.Sender, _ = v.str("sender", false, 1, MaxSenderLength)
	req.SenderEmail, _ = v.email("senderEmail", false)
	req.Content, _ = v.str("content", false, 1, MaxContentLength)
	if ts, ok := v.timestamp("receivedDate", false); ok {
		req.ReceivedDate = &ts
	}
	if b, ok := v.boolean("hasAttachments", false); ok {
		req.HasAttachments = &b
	}
	if score, ok := v.number("riskScore", false, 0, 100); ok {
		req.RiskScore = &score
	}
	if level, ok := v.enum("riskLevel", false, RiskLevels); ok {
		req.RiskLevel = RiskLevel(level)
	}
	req.ThreatIndicators, _ = v.stringArray("threatIndicators", false)
	req.AnalysisSummary, _ = v.str("analysisSummary", false, 0, MaxContentLength)
	req.Question, _ = v.str("question", false, 0, MaxQuestionLength)

	if err := v.result(); err != nil {
		return nil, err
	}
	return req, nil
}

func decodeObject(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	invalid := &ValidationError{Fields: []FieldError{{Message: "Invalid JSON body"}}}
	var body any
	if err := dec.Decode(&body); err != nil {
		return nil, invalid
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, invalid
	}
	obj, ok := body.(map[string]any)
	if !ok {
		return nil, &ValidationError{Fields: []FieldError{{
			Message: fmt.Sprintf("Expected object, received %s", jsonTypeName(body)),
		}}}
	}
	return obj, nil
}

// fieldValidator accumulates violations instead of stopping at the first one
type fieldValidator struct {
	obj  map[string]any
	errs []FieldError
}

func (v *fieldValidator) fail(field, format string, args ...any) {
	v.errs = append(v.errs, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (v *fieldValidator) result() error {
	if len(v.errs) == 0 {
		return nil
	}
	return &ValidationError{Fields: v.errs}
}

// lookup returns the value and whether the caller should keep checking it
func (v *fieldValidator) lookup(field string, required bool) (any, bool) {
	value, present := v.obj[field]
	if !present {
		if required {
			v.fail(field, "Required")
		}
		return nil, false
	}
	return value, true
}

func (v *fieldValidator) typed(field, want string, value any) bool {
	if got := jsonTypeName(value); got != want {
		v.fail(field, "Expected %s, received %s", want, got)
		return false
	}
	return true
}

func (v *fieldValidator) str(field string, required bool, min, max int) (string, bool) {
	value, ok := v.lookup(field, required)
	if !ok || !v.typed(field, "string", value) {
		return "", false
	}
	s := value.(string)
	n := utf8.RuneCountInString(s)
	if n < min {
		v.fail(field, "String must contain at least %d character(s)", min)
		return "", false
	}
	if max > 0 && n > max {
		v.fail(field, "String must contain at most %d character(s)", max)
		return "", false
	}
	return s, true
}

func (v *fieldValidator) email(field string, required bool) (string, bool) {
	value, ok := v.lookup(field, required)
	if !ok || !v.typed(field, "string", value) {
		return "", false
	}
	s := value.(string)
	if !isEmailAddress(s) {
		v.fail(field, "Invalid email")
		return "", false
	}
	if utf8.RuneCountInString(s) > MaxEmailLength {
		v.fail(field, "String must contain at most %d character(s)", MaxEmailLength)
		return "", false
	}
	return s, true
}

func (v *fieldValidator) timestamp(field string, required bool) (time.Time, bool) {
	value, ok := v.lookup(field, required)
	if !ok || !v.typed(field, "string", value) {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339Nano, value.(string))
	if err != nil {
		v.fail(field, "Invalid datetime")
		return time.Time{}, false
	}
	return ts, true
}

func (v *fieldValidator) boolean(field string, required bool) (bool, bool) {
	value, ok := v.lookup(field, required)
	if !ok || !v.typed(field, "boolean", value) {
		return false, false
	}
	return value.(bool), true
}

func (v *fieldValidator) number(field string, required bool, min, max float64) (float64, bool) {
	value, ok := v.lookup(field, required)
	if !ok || !v.typed(field, "number", value) {
		return 0, false
	}
	n, err := value.(json.Number).Float64()
	if err != nil {
		v.fail(field, "Expected number, received string")
		return 0, false
	}
	if n < min {
		v.fail(field, "Number must be greater than or equal to %v", min)
		return 0, false
	}
	if n > max {
		v.fail(field, "Number must be less than or equal to %v", max)
		return 0, false
	}
	return n, true
}

func (v *fieldValidator) enum(field string, required bool, allowed []RiskLevel) (string, bool) {
	value, ok := v.lookup(field, required)
	if !ok || !v.typed(field, "string", value) {
		return "", false
	}
	s := value.(string)
	quoted := make([]string, len(allowed))
	for i, a := range allowed {
		if string(a) == s {
			return s, true
		}
		quoted[i] = "'" + string(a) + "'"
	}
	v.fail(field, "Invalid enum value. Expected %s, received '%s'", strings.Join(quoted, " | "), s)
	return "", false
}

func (v *fieldValidator) stringArray(field string, required bool) ([]string, bool) {
	value, ok := v.lookup(field, required)
	if !ok || !v.typed(field, "array", value) {
		return nil, false
	}
	items := value.([]any)
	out := make([]string, 0, len(items))
	valid := true
	for i, item := range items {
		s, isString := item.(string)
		if !isString {
			v.fail(fmt.Sprintf("%s.%d", field, i), "Expected string, received %s", jsonTypeName(item))
			valid = false
			continue
		}
		out = append(out, s)
	}
	if !valid {
		return nil, false
	}
	return out, true
}

// isEmailAddress accepts a bare addr-spec, not a display-name form
func isEmailAddress(s string) bool {
	if s == "" || strings.ContainsAny(s, " <>") {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}
	at := strings.LastIndex(s, "@")
	return at > 0 && strings.Contains(s[at+1:], ".")
}

func jsonTypeName(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number, float64:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", value)
	}
}
