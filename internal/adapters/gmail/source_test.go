package gmail

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	gmailapi "google.golang.org/api/gmail/v1"
)

func b64url(s string) string {
	return base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString([]byte(s))
}

func TestCollectBodiesFindsFirstTextAndHTML(t *testing.T) {
	part := &gmailapi.MessagePart{
		MimeType: "multipart/alternative",
		Parts: []*gmailapi.MessagePart{
			{
				MimeType: "text/plain",
				Body:     &gmailapi.MessagePartBody{Data: b64url("plain body")},
			},
			{
				MimeType: "text/html",
				Body:     &gmailapi.MessagePartBody{Data: b64url("<p>html body</p>")},
			},
			{
				MimeType: "text/plain",
				Body:     &gmailapi.MessagePartBody{Data: b64url("second plain part")},
			},
		},
	}

	text, html := collectBodies(part)
	assert.Equal(t, "plain body", text)
	assert.Equal(t, "<p>html body</p>", html)
}

func TestCollectBodiesNested(t *testing.T) {
	part := &gmailapi.MessagePart{
		MimeType: "multipart/mixed",
		Parts: []*gmailapi.MessagePart{
			{
				MimeType: "multipart/alternative",
				Parts: []*gmailapi.MessagePart{
					{
						MimeType: "text/plain",
						Body:     &gmailapi.MessagePartBody{Data: b64url("nested body")},
					},
				},
			},
		},
	}

	text, html := collectBodies(part)
	assert.Equal(t, "nested body", text)
	assert.Empty(t, html)
}

func TestDecodePartBodyToleratesPadding(t *testing.T) {
	padded := base64.URLEncoding.EncodeToString([]byte("padded content"))
	assert.Equal(t, "padded content", decodePartBody(padded))
	assert.Equal(t, "bare content", decodePartBody(b64url("bare content")))
	assert.Empty(t, decodePartBody("!!not base64!!"))
}

func TestParseFromHeader(t *testing.T) {
	addr, name := parseFromHeader(`"AWS Cost Anomaly Detection" <no-reply@costalerts.amazonaws.com>`)
	assert.Equal(t, "no-reply@costalerts.amazonaws.com", addr)
	assert.Equal(t, "AWS Cost Anomaly Detection", name)

	addr, name = parseFromHeader("bare@example.com")
	assert.Equal(t, "bare@example.com", addr)
	assert.Empty(t, name)
}
