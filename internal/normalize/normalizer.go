package normalize

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/mikey/llm-anomaly-triage/internal/core"
)

// Named pattern matchers composed by the normalizer. Each returns the byte
// offset where its match begins and an explicit found flag; no match is a
// normal outcome, not an error.
var (
	quotedReplyPattern = regexp.MustCompile(`(?m)^On .{1,200}? wrote:\s*$`)
	signaturePattern   = regexp.MustCompile(`(?m)^--\s*$`)
	footerPatterns     = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Amazon Web Services, Inc\. is a subsidiary`),
		regexp.MustCompile(`(?i)This message was produced and distributed by`),
		regexp.MustCompile(`(?i)All rights reserved\.\s*Amazon Web Services`),
		regexp.MustCompile(`(?i)If you wish to stop receiving these notifications`),
	}
)

// QuotedReplyStart returns the offset of the first quoted-reply header.
func QuotedReplyStart(text string) (int, bool) {
	loc := quotedReplyPattern.FindStringIndex(text)
	if loc == nil {
		return 0, false
	}
	return loc[0], true
}

// SignatureStart returns the offset of a trailing signature delimiter.
func SignatureStart(text string) (int, bool) {
	loc := signaturePattern.FindStringIndex(text)
	if loc == nil {
		return 0, false
	}
	return loc[0], true
}

// FooterStart returns the offset of the earliest boilerplate legal footer.
func FooterStart(text string) (int, bool) {
	best := -1
	for _, p := range footerPatterns {
		if loc := p.FindStringIndex(text); loc != nil {
			if best == -1 || loc[0] < best {
				best = loc[0]
			}
		}
	}
	if best == -1 {
		return 0, false
	}
	return best, true
}

// Normalizer cleans raw emails into NormalizedContent.
type Normalizer struct {
	logger      *zap.Logger
	maxBodySize int
}

// NewNormalizer creates a new content normalizer. maxBodySize bounds the
// cleaned text in bytes; zero or negative disables the cap.
func NewNormalizer(logger *zap.Logger, maxBodySize int) *Normalizer {
	return &Normalizer{logger: logger, maxBodySize: maxBodySize}
}

// Normalize strips quoted replies, signature blocks and legal footers from
// the plain-text body, deriving text from HTML when the plain part is absent.
// The HTML body is retained unmodified for link recovery. An email with
// neither body is rejected with ErrMalformedEmail.
func (n *Normalizer) Normalize(email *core.RawEmail) (*core.NormalizedContent, error) {
	text := email.TextBody
	if strings.TrimSpace(text) == "" && email.HTMLBody != "" {
		text = HTMLToText(email.HTMLBody)
		n.logger.Debug("Derived plain text from HTML body",
			zap.String("email_id", email.ID),
			zap.Int("derived_bytes", len(text)))
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("email %s: %w", email.ID, core.ErrMalformedEmail)
	}

	cut := len(text)
	if i, ok := QuotedReplyStart(text); ok && i < cut {
		cut = i
	}
	if i, ok := SignatureStart(text); ok && i < cut {
		cut = i
	}
	if i, ok := FooterStart(text); ok && i < cut {
		cut = i
	}
	if cut < len(text) {
		n.logger.Debug("Trimmed trailing noise",
			zap.String("email_id", email.ID),
			zap.Int("removed_bytes", len(text)-cut))
		text = text[:cut]
	}

	text = strings.TrimSpace(TruncateUTF8(text, n.maxBodySize))
	if text == "" {
		return nil, fmt.Errorf("email %s: %w", email.ID, core.ErrMalformedEmail)
	}

	return &core.NormalizedContent{
		EmailID: email.ID,
		Text:    text,
		HTML:    email.HTMLBody,
	}, nil
}
