package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDedupToken(t *testing.T) {
	assert.Equal(t, "datatransfer-out-bytes", NormalizeDedupToken("  DataTransfer-Out-Bytes "))
	assert.Equal(t, "amazon elastic compute cloud", NormalizeDedupToken("Amazon  Elastic\tCompute   Cloud"))
	assert.Equal(t, "", NormalizeDedupToken("   "))
}

func TestRecordKey(t *testing.T) {
	rec := &AnomalyRecord{
		AccountID: "111111111111",
		Region:    "US-EAST-1",
		UsageType: "DataTransfer-Out-Bytes",
		Start:     time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		End:       time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC),
	}

	key := rec.Key()
	assert.Equal(t, "us-east-1", key.Region)
	assert.Equal(t, "2026-01-05/2026-01-06", key.DateRange)
	assert.Equal(t, "111111111111|us-east-1|datatransfer-out-bytes|2026-01-05/2026-01-06", key.String())
}

func TestRecordKeyZeroDates(t *testing.T) {
	rec := &AnomalyRecord{AccountID: "111111111111"}
	assert.Empty(t, rec.Key().DateRange)
}

func TestRecordKeyEqualityAfterNormalization(t *testing.T) {
	a := &AnomalyRecord{
		AccountID: "111111111111", Region: "us-east-1", UsageType: "BoxUsage:m5.large",
		Start: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
	}
	b := &AnomalyRecord{
		AccountID: " 111111111111 ", Region: "US-EAST-1", UsageType: "boxusage:m5.large",
		Start: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, a.Key(), b.Key())
}
