package analyze

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"

	"github.com/mikey/llm-anomaly-triage/internal/core"
)

var (
	jan5 = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	jan7 = time.Date(2026, 1, 7, 0, 0, 0, 0, time.UTC)
)

func TestFormatPeriodSingleDay(t *testing.T) {
	assert.Equal(t, "On 2026-01-05", FormatPeriod(jan5, jan5, language.English))
	assert.Equal(t, "בתאריך 2026-01-05", FormatPeriod(jan5, jan5, Hebrew))
}

func TestFormatPeriodRange(t *testing.T) {
	assert.Equal(t, "Between 2026-01-05 - 2026-01-07", FormatPeriod(jan5, jan7, language.English))
	assert.Equal(t, "בין התאריכים 2026-01-05 - 2026-01-07", FormatPeriod(jan5, jan7, Hebrew))
}

func TestFormatPeriodZeroStart(t *testing.T) {
	assert.Empty(t, FormatPeriod(time.Time{}, time.Time{}, language.English))
}

func TestFormatServicesSingular(t *testing.T) {
	assert.Equal(t, "in service: Amazon EC2", FormatServices([]string{"Amazon EC2"}, language.English))
	assert.Equal(t, "בשירות: Amazon EC2", FormatServices([]string{"Amazon EC2"}, Hebrew))
}

func TestFormatServicesPlural(t *testing.T) {
	services := []string{"Amazon EC2", "Amazon S3"}
	assert.Equal(t, "in several services: Amazon EC2, Amazon S3", FormatServices(services, language.English))
	assert.Equal(t, "במספר שירותים: Amazon EC2, Amazon S3", FormatServices(services, Hebrew))
}

func TestFormatServicesEmpty(t *testing.T) {
	assert.Empty(t, FormatServices(nil, language.English))
}

func TestFormatImpact(t *testing.T) {
	assert.Equal(t, "$1,301.55", FormatImpact(1301.55, "USD", language.English))
	assert.Equal(t, "$42.00", FormatImpact(42, "", language.English))
	assert.Equal(t, "99.90 EUR", FormatImpact(99.9, "EUR", language.English))
}

func TestRenderSummaryEnglish(t *testing.T) {
	rec := &core.AnomalyRecord{
		AccountID:   "111111111111",
		AccountName: "Acme Prod",
		Services:    []string{"Amazon EC2"},
		UsageType:   "DataTransfer-Out-Bytes",
		Currency:    "USD",
		Impact:      301.55,
		Start:       jan5,
		End:         jan5,
	}

	summary := RenderSummary(rec, language.English)
	assert.Contains(t, summary, "Account: Acme Prod (111111111111)")
	assert.Contains(t, summary, "Period: On 2026-01-05")
	assert.Contains(t, summary, "Amount: $301.55")
	assert.Contains(t, summary, "in service: Amazon EC2")
	assert.Contains(t, summary, "Usage type: DataTransfer-Out-Bytes")
}

func TestRenderSummaryHebrew(t *testing.T) {
	rec := &core.AnomalyRecord{
		AccountID: "111111111111",
		Services:  []string{"Amazon EC2", "Amazon S3"},
		UsageType: "DataTransfer-Out-Bytes",
		Currency:  "USD",
		Impact:    301.55,
		Start:     jan5,
		End:       jan7,
	}

	summary := RenderSummary(rec, Hebrew)
	assert.Contains(t, summary, "חשבון: 111111111111")
	assert.Contains(t, summary, "בין התאריכים 2026-01-05 - 2026-01-07")
	assert.Contains(t, summary, "במספר שירותים: Amazon EC2, Amazon S3")
}

func TestAssessUrgency(t *testing.T) {
	assert.Equal(t, core.UrgencyLow, AssessUrgency(0))
	assert.Equal(t, core.UrgencyLow, AssessUrgency(99.99))
	assert.Equal(t, core.UrgencyMedium, AssessUrgency(100))
	assert.Equal(t, core.UrgencyMedium, AssessUrgency(999.99))
	assert.Equal(t, core.UrgencyHigh, AssessUrgency(1000))
}
