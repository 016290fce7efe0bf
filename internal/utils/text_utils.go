package utils

import (
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

// TruncateRunes returns the first maxChars characters of text.
// It never splits a multi-byte character.
func TruncateRunes(text string, maxChars int) string {
	if maxChars <= 0 {
		return ""
	}
	if len(text) <= maxChars {
		return text
	}

	count := 0
	for i := range text {
		if count == maxChars {
			return text[:i]
		}
		count++
	}
	return text
}

// TextProcessor provides utilities for processing text
type TextProcessor struct {
	logger *zap.Logger
}

// NewTextProcessor creates a new TextProcessor
func NewTextProcessor(logger *zap.Logger) *TextProcessor {
	return &TextProcessor{
		logger: logger,
	}
}

// Preview returns a one-line excerpt of text for display, marked when shortened
func (tp *TextProcessor) Preview(text string, maxChars int) string {
	flattened := strings.Join(strings.Fields(text), " ")
	truncated := TruncateRunes(flattened, maxChars)
	if truncated == flattened {
		return flattened
	}
	return truncated + "..."
}

// SanitizeUTF8 ensures the string contains only valid UTF-8 characters
func (tp *TextProcessor) SanitizeUTF8(text string) string {
	if utf8.ValidString(text) {
		return text
	}

	// Drop invalid bytes, keep everything else
	var b strings.Builder
	b.Grow(len(text))
	for i, r := range text {
		if r == utf8.RuneError {
			if _, size := utf8.DecodeRuneInString(text[i:]); size == 1 {
				continue
			}
		}
		b.WriteRune(r)
	}
	sanitized := b.String()

	tp.logger.Debug("Text sanitized",
		zap.Int("original_size", len(text)),
		zap.Int("sanitized_size", len(sanitized)))

	return sanitized
}

// ProcessText sanitizes text and cuts it to maxChars characters
func (tp *TextProcessor) ProcessText(text string, maxChars int) string {
	sanitized := tp.SanitizeUTF8(text)
	truncated := TruncateRunes(sanitized, maxChars)
	if len(truncated) < len(sanitized) {
		tp.logger.Debug("Text truncated",
			zap.Int("original_size", len(sanitized)),
			zap.Int("truncated_size", len(truncated)),
			zap.Int("max_chars", maxChars))
	}
	return truncated
}
