package utils

import (
	"testing"

	"go.uber.org/zap"
)

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		text string
		max  int
		want string
	}{
		{text: "hello", max: 10, want: "hello"},
		{text: "hello", max: 5, want: "hello"},
		{text: "hello", max: 3, want: "hel"},
		{text: "héllo", max: 2, want: "hé"},
		{text: "日本語テキスト", max: 3, want: "日本語"},
		{text: "hello", max: 0, want: ""},
		{text: "", max: 5, want: ""},
	}

	for _, tt := range tests {
		if got := TruncateRunes(tt.text, tt.max); got != tt.want {
			t.Errorf("TruncateRunes(%q, %d) = %q, want %q", tt.text, tt.max, got, tt.want)
		}
	}
}

func TestPreview(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	if got := tp.Preview("short\n\ttext", 20); got != "short text" {
		t.Errorf("Preview() = %q, want %q", got, "short text")
	}
	if got := tp.Preview("one two three", 7); got != "one two..." {
		t.Errorf("Preview() = %q, want %q", got, "one two...")
	}
}

func TestSanitizeUTF8(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	if got := tp.SanitizeUTF8("valid é"); got != "valid é" {
		t.Errorf("SanitizeUTF8() changed valid text to %q", got)
	}
	if got := tp.SanitizeUTF8("bad\xffbyte"); got != "badbyte" {
		t.Errorf("SanitizeUTF8() = %q, want %q", got, "badbyte")
	}
	// A literal replacement character is valid UTF-8 and kept
	if got := tp.SanitizeUTF8("�\xfe"); got != "�" {
		t.Errorf("SanitizeUTF8() = %q, want %q", got, "�")
	}
}

func TestProcessText(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	if got := tp.ProcessText("ab\xffcdef", 4); got != "abcd" {
		t.Errorf("ProcessText() = %q, want %q", got, "abcd")
	}
}
