package analyze

import (
	"fmt"
	"strings"

	"github.com/mikey/llm-anomaly-triage/internal/core"
)

// promptFormat is the deterministic extraction template. The model only
// extracts fields; every formatting decision (date ranges, pluralization,
// summaries) is applied afterwards in Go so output is reproducible across
// model versions.
const promptFormat = `You are a cost anomaly extraction system for AWS billing notification emails.
Extract the single anomaly described in the segment below and respond with a JSON object containing:
- account_id: string (12-digit AWS account id the anomaly belongs to)
- services: array of strings (distinct AWS service names involved)
- region: string (AWS region, e.g. us-east-1)
- usage_type: string (the usage type line, e.g. DataTransfer-Out-Bytes)
- currency: string (ISO currency code, USD if shown as $)
- total_impact: string (the most relevant cost figure, digits only, e.g. "301.55")
- start_date: string (YYYY-MM-DD)
- end_date: string (YYYY-MM-DD, equal to start_date for single-day anomalies)
- root_cause: string (brief cause if the email states one, otherwise empty)
- monitor_name: string (the reporting monitor's name if present)
- console_link: string (cost management console URL if present, otherwise empty)

Known context:
Is reseller member segment: %t
Member account id: %s
Member account name: %s

Segment:
%s

Respond only with the JSON object and nothing else.`

// BuildPrompt renders the extraction prompt for one segment. Identical
// segment and classifier facts always produce an identical prompt.
func BuildPrompt(seg core.Segment, cls core.AccountClassification) string {
	accountID := seg.AccountID
	if accountID == "" {
		accountID = cls.AccountID
	}
	accountName := seg.AccountName
	if accountName == "" {
		accountName = cls.AccountName
	}
	return fmt.Sprintf(promptFormat,
		cls.Reseller,
		strings.TrimSpace(accountID),
		strings.TrimSpace(accountName),
		seg.Text)
}
