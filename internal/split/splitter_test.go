package split

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/llm-anomaly-triage/internal/core"
)

const resellerBody = `Cost anomaly summary for your consolidated billing family.

Start Date: 2026-01-05
Last Detected Date: 2026-01-06
Duration: 2 days
Max Daily Impact: $150.00
Total Impact: $301.55
AWS Service: Amazon EC2
Member Account: 111111111111 (Acme Prod)
Impact Contribution: $200.00
AWS Service: Amazon EC2
Member Account: 222222222222 (Acme Dev)
Impact Contribution: $101.55

Name: family-ec2-monitor
Type: DIMENSIONAL
Monitoring: SERVICE
`

func TestSplitResellerByMemberAccounts(t *testing.T) {
	s := NewSplitter(zap.NewNop())

	content := &core.NormalizedContent{EmailID: "msg-1", Text: resellerBody}
	segs := s.Split(content, core.AccountClassification{
		Family: core.FamilyCostAnomaly, Reseller: true, PayerAccountID: "262674733103",
	})

	require.Len(t, segs, 2)

	assert.Equal(t, "111111111111", segs[0].AccountID)
	assert.Equal(t, "Acme Prod", segs[0].AccountName)
	assert.Equal(t, 0, segs[0].Index)
	assert.Contains(t, segs[0].Text, "Total Impact: $301.55", "shared row context is attached to each member")
	assert.Contains(t, segs[0].Text, "Impact Contribution: $200.00")
	assert.NotContains(t, segs[0].Text, "Impact Contribution: $101.55")
	assert.Contains(t, segs[0].Text, "Monitoring: SERVICE")
	assert.Equal(t, "SERVICE", segs[0].MonitorType)

	assert.Equal(t, "222222222222", segs[1].AccountID)
	assert.Equal(t, "Acme Dev", segs[1].AccountName)
	assert.Contains(t, segs[1].Text, "Impact Contribution: $101.55")
}

func TestSplitDropsEmptyMemberBoundary(t *testing.T) {
	blocks, dropped := splitByMemberAccounts("Member Account: 333333333333 (Empty Marker)")
	assert.Empty(t, blocks)
	assert.Equal(t, []string{"333333333333"}, dropped)
}

func TestSplitResellerFallsBackWithoutBoundaries(t *testing.T) {
	s := NewSplitter(zap.NewNop())

	content := &core.NormalizedContent{
		EmailID: "msg-2",
		Text:    "A reseller-classified email whose layout has no member markers.",
	}
	segs := s.Split(content, core.AccountClassification{
		Family: core.FamilyCostAnomaly, Reseller: true, AccountID: "262674733103",
	})

	require.Len(t, segs, 1)
	assert.Equal(t, content.Text, segs[0].Text)
	assert.Equal(t, "262674733103", segs[0].AccountID)
}

func TestSplitStandardByDateGroups(t *testing.T) {
	s := NewSplitter(zap.NewNop())

	body := `Start Date: 2026-01-05
Total Impact: $120.00
Monitoring: SERVICE

Start Date: 2026-01-07
Total Impact: $88.00
Monitoring: LINKED_ACCOUNT
`
	content := &core.NormalizedContent{EmailID: "msg-3", Text: body}
	segs := s.Split(content, core.AccountClassification{
		Family: core.FamilyCostAnomaly, AccountID: "111111111111", AccountName: "Acme Prod",
	})

	require.Len(t, segs, 2)
	assert.Equal(t, "2026-01-05", segs[0].DateKey)
	assert.Equal(t, "2026-01-07", segs[1].DateKey)
	assert.Equal(t, "SERVICE", segs[0].MonitorType)
	assert.Equal(t, "LINKED_ACCOUNT", segs[1].MonitorType)
	assert.Contains(t, segs[0].Text, "$120.00")
	assert.NotContains(t, segs[0].Text, "$88.00")
	assert.Equal(t, "111111111111", segs[1].AccountID)
	assert.Equal(t, "Acme Prod", segs[1].AccountName)
}

func TestSplitStandardFailsOpen(t *testing.T) {
	s := NewSplitter(zap.NewNop())

	content := &core.NormalizedContent{
		EmailID: "msg-4",
		Text:    "An anomaly notification in a layout we have never seen.",
	}
	segs := s.Split(content, core.AccountClassification{Family: core.FamilyCostAnomaly})

	require.Len(t, segs, 1)
	assert.Equal(t, content.Text, segs[0].Text)
	assert.Equal(t, 0, segs[0].Index)
}

func TestMemberBoundariesFoundFlag(t *testing.T) {
	_, found := MemberBoundaries("no markers at all")
	assert.False(t, found)

	locs, found := MemberBoundaries(resellerBody)
	assert.True(t, found)
	assert.Len(t, locs, 2)
}
