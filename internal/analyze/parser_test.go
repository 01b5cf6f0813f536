package analyze

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikey/llm-anomaly-triage/internal/core"
)

const goodResponse = `{
	"account_id": "111111111111",
	"services": ["Amazon EC2"],
	"region": "us-east-1",
	"usage_type": "DataTransfer-Out-Bytes",
	"currency": "usd",
	"total_impact": "$1,301.55",
	"start_date": "2026-01-05",
	"end_date": "2026-01-06",
	"root_cause": "unexpected cross-region replication",
	"monitor_name": "family-ec2-monitor",
	"console_link": "https://console.aws.amazon.com/cost-management/home#/anomaly-detection"
}`

func TestParseResponseValid(t *testing.T) {
	rec, err := ParseResponse(goodResponse)
	require.NoError(t, err)

	assert.Equal(t, "111111111111", rec.AccountID)
	assert.Equal(t, []string{"Amazon EC2"}, rec.Services)
	assert.Equal(t, "USD", rec.Currency)
	assert.Equal(t, 1301.55, rec.Impact)
	assert.Equal(t, time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), rec.Start)
	assert.Equal(t, time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC), rec.End)
	assert.Equal(t, core.ConfidenceHigh, rec.Confidence)
	assert.False(t, rec.NeedsReview)
}

func TestParseResponseStripsCodeFence(t *testing.T) {
	rec, err := ParseResponse("```json\n" + goodResponse + "\n```")
	require.NoError(t, err)
	assert.Equal(t, "111111111111", rec.AccountID)
}

func TestParseResponseExtractsEmbeddedObject(t *testing.T) {
	rec, err := ParseResponse("Here is the extraction you asked for:\n" + goodResponse + "\nLet me know if you need more.")
	require.NoError(t, err)
	assert.Equal(t, "111111111111", rec.AccountID)
	assert.Equal(t, core.ConfidenceHigh, rec.Confidence)
}

func TestParseResponseNoJSONIsError(t *testing.T) {
	_, err := ParseResponse("I could not find any anomaly in this text.")
	assert.Error(t, err)
}

func TestParseResponseMissingImpactDegradesToLow(t *testing.T) {
	rec, err := ParseResponse(`{
		"account_id": "111111111111",
		"services": ["Amazon EC2"],
		"region": "us-east-1",
		"usage_type": "DataTransfer-Out-Bytes",
		"start_date": "2026-01-05"
	}`)
	require.NoError(t, err, "an incomplete extraction is degraded, not dropped")

	assert.Equal(t, core.ConfidenceLow, rec.Confidence)
	assert.True(t, rec.NeedsReview)
	assert.False(t, rec.ExtractionFailed)
	assert.Equal(t, "111111111111", rec.AccountID)
}

func TestParseResponseInvalidDateRangeDegradesToLow(t *testing.T) {
	rec, err := ParseResponse(`{
		"account_id": "111111111111",
		"services": ["Amazon EC2"],
		"region": "us-east-1",
		"usage_type": "DataTransfer-Out-Bytes",
		"total_impact": "10.00",
		"start_date": "2026-01-07",
		"end_date": "2026-01-05"
	}`)
	require.NoError(t, err)
	assert.Equal(t, core.ConfidenceLow, rec.Confidence)
	assert.True(t, rec.NeedsReview)
}

func TestParseResponseMissingEndDateCollapses(t *testing.T) {
	rec, err := ParseResponse(`{
		"account_id": "111111111111",
		"services": ["Amazon EC2"],
		"region": "us-east-1",
		"usage_type": "DataTransfer-Out-Bytes",
		"total_impact": "10.00",
		"start_date": "2026-01-05"
	}`)
	require.NoError(t, err)
	assert.Equal(t, rec.Start, rec.End, "single-day anomalies collapse end to start")
	assert.Equal(t, core.ConfidenceHigh, rec.Confidence)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"301.55", 301.55, false},
		{"$301.55", 301.55, false},
		{"$1,301.55", 1301.55, false},
		{"0", 0, false},
		{"", 0, true},
		{"-5.00", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseAmount(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
