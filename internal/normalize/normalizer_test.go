package normalize

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/llm-anomaly-triage/internal/core"
)

func TestNormalizeStripsQuotedReply(t *testing.T) {
	n := NewNormalizer(zap.NewNop(), 0)

	email := &core.RawEmail{
		ID: "msg-1",
		TextBody: "Cost anomaly detected in account 111111111111.\n" +
			"Total Impact: $301.55\n" +
			"On Mon, Jan 5, 2026 at 9:00 AM AWS Budgets <no-reply@aws.com> wrote:\n" +
			"> earlier thread content\n",
	}

	content, err := n.Normalize(email)
	require.NoError(t, err)
	assert.Contains(t, content.Text, "Total Impact: $301.55")
	assert.NotContains(t, content.Text, "earlier thread content")
	assert.NotContains(t, content.Text, "wrote:")
}

func TestNormalizeStripsSignatureAndFooter(t *testing.T) {
	n := NewNormalizer(zap.NewNop(), 0)

	email := &core.RawEmail{
		ID: "msg-2",
		TextBody: "Anomaly details here.\n" +
			"-- \n" +
			"FinOps Team\n" +
			"Amazon Web Services, Inc. is a subsidiary of Amazon.com, Inc.\n",
	}

	content, err := n.Normalize(email)
	require.NoError(t, err)
	assert.Equal(t, "Anomaly details here.", content.Text)
}

func TestNormalizeCutsAtEarliestMarker(t *testing.T) {
	n := NewNormalizer(zap.NewNop(), 0)

	email := &core.RawEmail{
		ID: "msg-3",
		TextBody: "Report body.\n" +
			"If you wish to stop receiving these notifications, unsubscribe here.\n" +
			"-- \n" +
			"signature\n",
	}

	content, err := n.Normalize(email)
	require.NoError(t, err)
	assert.Equal(t, "Report body.", content.Text)
}

func TestNormalizeDerivesTextFromHTML(t *testing.T) {
	n := NewNormalizer(zap.NewNop(), 0)

	email := &core.RawEmail{
		ID:       "msg-4",
		HTMLBody: "<html><body><p>Cost anomaly detected</p><p>Impact: $42.00</p></body></html>",
	}

	content, err := n.Normalize(email)
	require.NoError(t, err)
	assert.Contains(t, content.Text, "Cost anomaly detected")
	assert.Contains(t, content.Text, "Impact: $42.00")
	assert.Equal(t, email.HTMLBody, content.HTML, "HTML body must be retained for link recovery")
}

func TestNormalizeRejectsEmptyEmail(t *testing.T) {
	n := NewNormalizer(zap.NewNop(), 0)

	_, err := n.Normalize(&core.RawEmail{ID: "msg-5", TextBody: "   \n  "})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrMalformedEmail))
	assert.Contains(t, err.Error(), "msg-5")
}

func TestNormalizeTruncatesOversizeBody(t *testing.T) {
	n := NewNormalizer(zap.NewNop(), 100)

	email := &core.RawEmail{
		ID:       "msg-6",
		TextBody: strings.Repeat("anomaly ", 100),
	}

	content, err := n.Normalize(email)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(content.Text), 100)
}

func TestHTMLToTextSkipsScriptAndStyle(t *testing.T) {
	src := `<html><head><style>body{color:red}</style></head>` +
		`<body><script>alert(1)</script><div>visible text</div></body></html>`

	text := HTMLToText(src)
	assert.Contains(t, text, "visible text")
	assert.NotContains(t, text, "alert")
	assert.NotContains(t, text, "color:red")
}

func TestTruncateUTF8KeepsRunesWhole(t *testing.T) {
	s := "שלום עולם" // multi-byte runes
	for size := 1; size < len(s); size++ {
		got := TruncateUTF8(s, size)
		assert.True(t, len(got) <= size)
		assert.True(t, strings.HasPrefix(s, got))
	}
	assert.Equal(t, s, TruncateUTF8(s, 0), "non-positive max disables truncation")
}

func TestForwardedMetadataPrefersToLine(t *testing.T) {
	body := "---------- Forwarded message ---------\n" +
		"From: AWS Cost Anomaly Detection <no-reply@costalerts.amazonaws.com>\n" +
		"Date: Mon, 5 Jan 2026 09:14:00 +0200\n" +
		"Subject: AWS Cost Anomaly Detected\n" +
		"To: FinOps Desk <finops@customer.example>\n\n" +
		"Anomaly body follows.\n"

	meta, ok := ForwardedMetadata(body)
	require.True(t, ok)
	assert.Equal(t, "finops@customer.example", meta.FromAddress)
	assert.Equal(t, "FinOps Desk", meta.FromName)
	assert.Equal(t, "AWS Cost Anomaly Detected", meta.Subject)
	assert.Equal(t, "Mon, 5 Jan 2026 09:14:00 +0200", meta.Date)
}

func TestForwardedMetadataAbsent(t *testing.T) {
	_, ok := ForwardedMetadata("A plain notification with no wrapper at all.")
	assert.False(t, ok)
}
