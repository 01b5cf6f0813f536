package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/mikey/llm-anomaly-triage/internal/core"
)

const gmailUser = "me"

// Source pulls billing notification emails from a Gmail mailbox using a
// search query. Handled messages are tagged with a label so the same query
// never returns them again.
type Source struct {
	svc            *gmailapi.Service
	query          string
	processedLabel string
	labelID        string
	logger         *zap.Logger
}

// NewSource creates a Gmail source from a service-account or OAuth
// credentials file. The processed label is created on first use if the
// mailbox does not have it yet.
func NewSource(ctx context.Context, credentialsFile, query, processedLabel string, logger *zap.Logger) (*Source, error) {
	svc, err := gmailapi.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(gmailapi.GmailModifyScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return &Source{
		svc:            svc,
		query:          query,
		processedLabel: processedLabel,
		logger:         logger,
	}, nil
}

// Fetch returns up to limit messages matching the configured query that do
// not yet carry the processed label.
func (s *Source) Fetch(ctx context.Context, limit int) ([]*core.RawEmail, error) {
	query := s.query
	if s.processedLabel != "" {
		query = fmt.Sprintf("%s -label:%s", query, s.processedLabel)
	}

	call := s.svc.Users.Messages.List(gmailUser).Q(query).Context(ctx)
	if limit > 0 {
		call = call.MaxResults(int64(limit))
	}

	listResp, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list Gmail messages: %w", err)
	}

	emails := make([]*core.RawEmail, 0, len(listResp.Messages))
	for _, ref := range listResp.Messages {
		msg, err := s.svc.Users.Messages.Get(gmailUser, ref.Id).Format("full").Context(ctx).Do()
		if err != nil {
			s.logger.Warn("Failed to fetch Gmail message",
				zap.String("message_id", ref.Id),
				zap.Error(err))
			continue
		}

		email := s.toRawEmail(msg)
		emails = append(emails, email)
	}

	s.logger.Info("Fetched Gmail messages",
		zap.Int("matched", len(listResp.Messages)),
		zap.Int("retrieved", len(emails)))

	return emails, nil
}

// MarkProcessed adds the processed label to a message so it drops out of the
// fetch query.
func (s *Source) MarkProcessed(ctx context.Context, emailID string) error {
	if s.processedLabel == "" {
		return nil
	}

	labelID, err := s.ensureLabel(ctx)
	if err != nil {
		return err
	}

	_, err = s.svc.Users.Messages.Modify(gmailUser, emailID, &gmailapi.ModifyMessageRequest{
		AddLabelIds: []string{labelID},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to label Gmail message %s: %w", emailID, err)
	}

	return nil
}

// ensureLabel resolves the processed label ID, creating the label on first
// use. The resolved ID is cached for the life of the source.
func (s *Source) ensureLabel(ctx context.Context) (string, error) {
	if s.labelID != "" {
		return s.labelID, nil
	}

	labels, err := s.svc.Users.Labels.List(gmailUser).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to list Gmail labels: %w", err)
	}

	for _, label := range labels.Labels {
		if label.Name == s.processedLabel {
			s.labelID = label.Id
			return s.labelID, nil
		}
	}

	created, err := s.svc.Users.Labels.Create(gmailUser, &gmailapi.Label{
		Name:                  s.processedLabel,
		LabelListVisibility:   "labelShow",
		MessageListVisibility: "show",
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to create Gmail label %q: %w", s.processedLabel, err)
	}

	s.logger.Info("Created processed label", zap.String("label", s.processedLabel))
	s.labelID = created.Id
	return s.labelID, nil
}

// toRawEmail flattens a Gmail message into the pipeline's source unit.
func (s *Source) toRawEmail(msg *gmailapi.Message) *core.RawEmail {
	email := &core.RawEmail{
		ID:         msg.Id,
		ReceivedAt: time.UnixMilli(msg.InternalDate).UTC(),
	}

	if msg.Payload == nil {
		return email
	}

	for _, header := range msg.Payload.Headers {
		switch strings.ToLower(header.Name) {
		case "subject":
			email.Subject = header.Value
		case "from":
			email.From, email.FromName = parseFromHeader(header.Value)
		}
	}

	text, html := collectBodies(msg.Payload)
	email.TextBody = text
	email.HTMLBody = html
	return email
}

// collectBodies walks the MIME part tree and gathers the first text/plain and
// text/html bodies it finds.
func collectBodies(part *gmailapi.MessagePart) (text, html string) {
	if part == nil {
		return "", ""
	}

	switch part.MimeType {
	case "text/plain":
		if part.Body != nil && part.Body.Data != "" {
			text = decodePartBody(part.Body.Data)
		}
	case "text/html":
		if part.Body != nil && part.Body.Data != "" {
			html = decodePartBody(part.Body.Data)
		}
	}

	for _, child := range part.Parts {
		childText, childHTML := collectBodies(child)
		if text == "" {
			text = childText
		}
		if html == "" {
			html = childHTML
		}
	}

	return text, html
}

// decodePartBody decodes Gmail's base64url part encoding, tolerating the
// occasional padded variant.
func decodePartBody(data string) string {
	decoded, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(data)
	if err != nil {
		decoded, err = base64.URLEncoding.DecodeString(data)
		if err != nil {
			return ""
		}
	}
	return string(decoded)
}

// parseFromHeader splits `Name <addr>` into its address and display name.
func parseFromHeader(value string) (addr, name string) {
	open := strings.LastIndex(value, "<")
	close := strings.LastIndex(value, ">")
	if open >= 0 && close > open {
		addr = strings.TrimSpace(value[open+1 : close])
		name = strings.Trim(strings.TrimSpace(value[:open]), `"`)
		return addr, name
	}
	return strings.TrimSpace(value), ""
}
