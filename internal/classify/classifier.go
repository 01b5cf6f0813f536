package classify

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/mikey/llm-anomaly-triage/internal/core"
	"github.com/mikey/llm-anomaly-triage/internal/normalize"
)

// Account ids appear either as a bare 12-digit run or grouped in threes with
// dashes or spaces.
var (
	groupedAccountIDPattern = regexp.MustCompile(`\b\d{3}[- ]?\d{3}[- ]?\d{3}[- ]?\d{3}\b`)
	plainAccountIDPattern   = regexp.MustCompile(`\b\d{12}\b`)
)

// ExtractAccountID finds the first account id in text, tolerating dash or
// space grouping. Returns "" when none is present.
func ExtractAccountID(text string) string {
	if text == "" {
		return ""
	}
	if m := groupedAccountIDPattern.FindString(text); m != "" {
		return strings.NewReplacer("-", "", " ", "").Replace(m)
	}
	return plainAccountIDPattern.FindString(text)
}

// Classifier routes emails by family and decides reseller/standard handling.
// Classification is a pure lookup and pattern match over the content, never
// an LLM call, so the splitter strategy is deterministic.
type Classifier struct {
	registry *Registry
	logger   *zap.Logger
}

// NewClassifier creates a classifier backed by the given registry.
func NewClassifier(registry *Registry, logger *zap.Logger) *Classifier {
	return &Classifier{registry: registry, logger: logger}
}

// Classify inspects subject, sender and normalized body text. Emails
// forwarded into the triage mailbox are classified by the metadata of the
// wrapped original when the wrapper itself matches nothing.
func (c *Classifier) Classify(content *core.NormalizedContent, subject, from string) core.AccountClassification {
	cls := core.AccountClassification{Family: classifyFamily(from, subject)}
	if cls.Family == core.FamilyUnknown {
		if meta, ok := normalize.ForwardedMetadata(content.Text); ok {
			cls.Family = classifyFamily(meta.FromAddress, meta.Subject)
			if cls.Family != core.FamilyUnknown {
				c.logger.Debug("Classified via forwarded metadata",
					zap.String("email_id", content.EmailID),
					zap.String("original_subject", meta.Subject))
			}
		}
	}
	if cls.Family == core.FamilyUnknown {
		return cls
	}

	accountID := ExtractAccountID(subject)
	if accountID == "" {
		accountID = ExtractAccountID(content.Text)
	}
	cls.AccountID = accountID
	if info, ok := c.registry.Lookup(accountID); ok {
		cls.AccountName = info.Name
	}

	if c.registry.IsResellerPayer(accountID) {
		// Conflicting reseller payer ids in the same email mean the
		// member-boundary strategy has no single payer to anchor on; fall
		// back to standard handling rather than guess.
		if other := c.conflictingPayer(content.Text, accountID); other != "" {
			c.logger.Warn("Falling back to standard handling",
				zap.String("email_id", content.EmailID),
				zap.String("payer_account_id", accountID),
				zap.String("conflicting_payer_id", other),
				zap.Error(core.ErrClassificationAmbiguous))
			return cls
		}
		cls.Reseller = true
		cls.PayerAccountID = accountID
		c.logger.Debug("Reseller payer account detected",
			zap.String("email_id", content.EmailID),
			zap.String("payer_account_id", accountID))
	}
	return cls
}

// conflictingPayer returns another known reseller payer id present in the
// text, or "" when the classification is unambiguous.
func (c *Classifier) conflictingPayer(text, payerID string) string {
	for _, m := range plainAccountIDPattern.FindAllString(text, -1) {
		if m != payerID && c.registry.IsResellerPayer(m) {
			return m
		}
	}
	return ""
}

// classifyFamily applies the subject rules first, then falls back to the
// provider sender addresses.
func classifyFamily(from, subject string) core.EmailFamily {
	s := strings.ToLower(subject)
	f := strings.ToLower(from)

	switch {
	case strings.Contains(s, "cost anomaly"):
		return core.FamilyCostAnomaly
	case strings.Contains(s, "aws budget"):
		if strings.Contains(s, "ri utilization") {
			return core.FamilyRIAlert
		}
		return core.FamilyBudget
	case strings.Contains(s, "aws free tier"):
		return core.FamilyFreeTier
	case strings.Contains(f, "budgets@costalerts.amazonaws.com"):
		if strings.Contains(s, "ri utilization") {
			return core.FamilyRIAlert
		}
		return core.FamilyBudget
	case strings.Contains(f, "freetier@costalerts.amazonaws.com"):
		return core.FamilyFreeTier
	}
	return core.FamilyUnknown
}
