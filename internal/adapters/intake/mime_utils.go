package intake

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/text/encoding/htmlindex"
)

const noTextPlaceholder = "[No text content found in multipart message]"

// ParsedMessage is the part of an RFC 822 message the pipeline cares about
type ParsedMessage struct {
	MessageID      string
	Subject        string
	FromName       string
	FromAddress    string
	Date           time.Time
	Body           string
	HasAttachments bool
}

// charsetReader decodes any charset known to the WHATWG encoding index
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(charset) {
	case "", "utf-8", "utf8", "us-ascii", "ascii":
		return input, nil
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", charset, err)
	}
	return enc.NewDecoder().Reader(input), nil
}

var headerDecoder = &mime.WordDecoder{CharsetReader: charsetReader}

// decodeHeader decodes RFC 2047 encoded words, returning the input when decoding fails
func decodeHeader(value string) string {
	decoded, err := headerDecoder.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}

// ParseMessage extracts the sender, subject, date, text body and attachment flag from raw
func ParseMessage(raw []byte) (*ParsedMessage, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse email message: %w", err)
	}

	parsed := &ParsedMessage{
		MessageID: strings.Trim(strings.TrimSpace(msg.Header.Get("Message-Id")), "<>"),
		Subject:   strings.TrimSpace(decodeHeader(msg.Header.Get("Subject"))),
	}

	if from := msg.Header.Get("From"); from != "" {
		parser := mail.AddressParser{WordDecoder: headerDecoder}
		addr, err := parser.Parse(from)
		if err != nil {
			parsed.FromAddress = strings.TrimSpace(from)
		} else {
			parsed.FromName = addr.Name
			parsed.FromAddress = addr.Address
		}
	}

	if date, err := msg.Header.Date(); err == nil {
		parsed.Date = date
	}

	body, attachments, err := extractText(msg.Header.Get("Content-Type"), msg.Header.Get("Content-Transfer-Encoding"), msg.Body, true)
	if err != nil {
		return nil, err
	}
	parsed.Body = strings.TrimSpace(body)
	parsed.HasAttachments = attachments

	return parsed, nil
}

// extractText returns the text/plain content of an entity and whether it carries attachments.
// Nested multiparts are walked recursively. A single-part message of any text type is read as is.
func extractText(contentType, transferEncoding string, body io.Reader, topLevel bool) (string, bool, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		// Untyped bodies are plain text per RFC 2045
		mediaType = "text/plain"
		params = map[string]string{}
	}

	if !strings.HasPrefix(mediaType, "multipart/") {
		if mediaType != "text/plain" && !(topLevel && strings.HasPrefix(mediaType, "text/")) {
			return "", false, nil
		}
		text, err := decodeBody(body, transferEncoding, params["charset"])
		return text, false, err
	}

	boundary, ok := params["boundary"]
	if !ok {
		data, err := io.ReadAll(body)
		if err != nil {
			return "", false, err
		}
		return string(data), false, nil
	}

	var textContent strings.Builder
	hasAttachments := false

	mr := multipart.NewReader(body, boundary)
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Truncated multipart: keep what was read so far
			break
		}

		if isAttachment(part) {
			hasAttachments = true
			continue
		}

		partType := part.Header.Get("Content-Type")
		if partType == "" {
			partType = "text/plain"
		}
		text, nestedAttachments, err := extractText(partType, part.Header.Get("Content-Transfer-Encoding"), part, false)
		if err != nil {
			continue
		}
		hasAttachments = hasAttachments || nestedAttachments
		if text != "" {
			textContent.WriteString(text)
			textContent.WriteString("\n")
		}
	}

	if textContent.Len() == 0 {
		return noTextPlaceholder, hasAttachments, nil
	}
	return textContent.String(), hasAttachments, nil
}

func isAttachment(part *multipart.Part) bool {
	disposition, params, err := mime.ParseMediaType(part.Header.Get("Content-Disposition"))
	if err == nil {
		if disposition == "attachment" {
			return true
		}
		if params["filename"] != "" {
			return true
		}
	}
	return part.FileName() != ""
}

func decodeBody(body io.Reader, transferEncoding, charset string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(transferEncoding)) {
	case "base64":
		body = base64.NewDecoder(base64.StdEncoding, body)
	case "quoted-printable":
		body = quotedprintable.NewReader(body)
	}

	decoded, err := charsetReader(charset, body)
	if err != nil {
		// Unknown charset, read the raw bytes
		decoded = body
	}

	data, err := io.ReadAll(decoded)
	if err != nil {
		return "", fmt.Errorf("failed to read message body: %w", err)
	}
	return string(data), nil
}
