package intake

import (
	"strings"
	"testing"
	"time"
)

func crlf(s string) []byte {
	return []byte(strings.ReplaceAll(s, "\n", "\r\n"))
}

func TestParseMessagePlain(t *testing.T) {
	raw := crlf(`From: "Jane Doe" <jane@example.com>
To: bob@example.com
Subject: Lunch
Message-ID: <abc123@example.com>
Date: Wed, 01 May 2024 10:00:00 +0200

Are we still on for lunch?
`)

	msg, err := ParseMessage(raw)
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}

	if msg.MessageID != "abc123@example.com" {
		t.Errorf("MessageID = %q, want abc123@example.com", msg.MessageID)
	}
	if msg.FromName != "Jane Doe" || msg.FromAddress != "jane@example.com" {
		t.Errorf("From = %q <%q>, want Jane Doe <jane@example.com>", msg.FromName, msg.FromAddress)
	}
	if msg.Subject != "Lunch" {
		t.Errorf("Subject = %q, want Lunch", msg.Subject)
	}
	want := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	if !msg.Date.Equal(want) {
		t.Errorf("Date = %v, want %v", msg.Date, want)
	}
	if msg.Body != "Are we still on for lunch?" {
		t.Errorf("Body = %q, want the text", msg.Body)
	}
	if msg.HasAttachments {
		t.Error("HasAttachments = true, want false")
	}
}

func TestParseMessageMultipartWithAttachment(t *testing.T) {
	raw := crlf(`From: billing@example.com
Subject: =?ISO-8859-1?Q?Facture_impay=E9e?=
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="outer"

--outer
Content-Type: multipart/alternative; boundary="inner"

--inner
Content-Type: text/plain; charset=iso-8859-1
Content-Transfer-Encoding: quoted-printable

Veuillez r=E9gler la facture.
--inner
Content-Type: text/html; charset=utf-8

<p>Veuillez régler la facture.</p>
--inner--
--outer
Content-Type: application/pdf
Content-Disposition: attachment; filename="invoice.pdf"
Content-Transfer-Encoding: base64

JVBERi0xLjQK
--outer--
`)

	msg, err := ParseMessage(raw)
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}

	if msg.Subject != "Facture impayée" {
		t.Errorf("Subject = %q, want Facture impayée", msg.Subject)
	}
	if msg.Body != "Veuillez régler la facture." {
		t.Errorf("Body = %q, want the decoded text part only", msg.Body)
	}
	if !msg.HasAttachments {
		t.Error("HasAttachments = false, want true")
	}
	if msg.FromName != "" || msg.FromAddress != "billing@example.com" {
		t.Errorf("From = %q <%q>, want bare billing@example.com", msg.FromName, msg.FromAddress)
	}
}

func TestParseMessageBase64Body(t *testing.T) {
	raw := crlf(`From: a@example.com
Subject: Encoded
Content-Type: text/plain; charset=utf-8
Content-Transfer-Encoding: base64

SGVsbG8g
d29ybGQ=
`)

	msg, err := ParseMessage(raw)
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}
	if msg.Body != "Hello world" {
		t.Errorf("Body = %q, want Hello world", msg.Body)
	}
}

func TestParseMessageMultipartWithoutText(t *testing.T) {
	raw := crlf(`From: a@example.com
Content-Type: multipart/mixed; boundary="b"

--b
Content-Type: image/png
Content-Disposition: inline; filename="logo.png"

xxx
--b--
`)

	msg, err := ParseMessage(raw)
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}
	if msg.Body != noTextPlaceholder {
		t.Errorf("Body = %q, want placeholder", msg.Body)
	}
	if !msg.HasAttachments {
		t.Error("HasAttachments = false, want true")
	}
}

func TestParseMessageInvalid(t *testing.T) {
	if _, err := ParseMessage([]byte("not a message")); err == nil {
		t.Error("ParseMessage() error = nil, want error")
	}
}
