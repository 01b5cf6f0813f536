package analyze

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/mikey/llm-anomaly-triage/internal/core"
)

// Deterministic rendering rules. These are applied in Go, never delegated to
// the model: a single-day anomaly is always rendered as one date, a range as
// two, and the service phrase agrees in number with the service count.

// Hebrew is the team's customer-facing locale alongside English.
var Hebrew = language.Hebrew

// FormatPeriod renders a date range: a single date when start equals end,
// an explicit range otherwise.
func FormatPeriod(start, end time.Time, tag language.Tag) string {
	if start.IsZero() {
		return ""
	}
	s := start.Format(dateLayout)
	e := end.Format(dateLayout)
	hebrew := tag == Hebrew
	if s == e {
		if hebrew {
			return "בתאריך " + s
		}
		return "On " + s
	}
	if hebrew {
		return "בין התאריכים " + s + " - " + e
	}
	return "Between " + s + " - " + e
}

// FormatServices renders the service phrase with singular/plural agreement.
func FormatServices(services []string, tag language.Tag) string {
	if len(services) == 0 {
		return ""
	}
	hebrew := tag == Hebrew
	if len(services) == 1 {
		if hebrew {
			return "בשירות: " + services[0]
		}
		return "in service: " + services[0]
	}
	joined := strings.Join(services, ", ")
	if hebrew {
		return "במספר שירותים: " + joined
	}
	return "in several services: " + joined
}

// FormatImpact renders the monetary impact with locale digit grouping.
func FormatImpact(amount float64, currency string, tag language.Tag) string {
	p := message.NewPrinter(tag)
	formatted := p.Sprint(number.Decimal(amount,
		number.MinFractionDigits(2), number.MaxFractionDigits(2)))
	if currency == "" || currency == "USD" {
		return "$" + formatted
	}
	return formatted + " " + currency
}

// RenderSummary produces the structured anomaly summary in the given locale
// from the record's validated fields only.
func RenderSummary(rec *core.AnomalyRecord, tag language.Tag) string {
	account := rec.AccountID
	if rec.AccountName != "" {
		account = fmt.Sprintf("%s (%s)", rec.AccountName, rec.AccountID)
	}

	var b strings.Builder
	if tag == Hebrew {
		fmt.Fprintf(&b, "חשבון: %s\n", account)
		fmt.Fprintf(&b, "תקופה: %s\n", FormatPeriod(rec.Start, rec.End, tag))
		fmt.Fprintf(&b, "סכום: %s\n", FormatImpact(rec.Impact, rec.Currency, tag))
		fmt.Fprintf(&b, "%s\n", FormatServices(rec.Services, tag))
		fmt.Fprintf(&b, "סוג שימוש: %s", rec.UsageType)
	} else {
		fmt.Fprintf(&b, "Account: %s\n", account)
		fmt.Fprintf(&b, "Period: %s\n", FormatPeriod(rec.Start, rec.End, tag))
		fmt.Fprintf(&b, "Amount: %s\n", FormatImpact(rec.Impact, rec.Currency, tag))
		fmt.Fprintf(&b, "Services: %s\n", FormatServices(rec.Services, tag))
		fmt.Fprintf(&b, "Usage type: %s", rec.UsageType)
	}
	return b.String()
}

// AssessUrgency buckets the impact deterministically.
func AssessUrgency(impact float64) core.Urgency {
	switch {
	case impact >= 1000:
		return core.UrgencyHigh
	case impact >= 100:
		return core.UrgencyMedium
	default:
		return core.UrgencyLow
	}
}
