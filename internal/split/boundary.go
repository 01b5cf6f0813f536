package split

import (
	"regexp"
	"strings"
)

// Pattern matchers for reseller emails. A reseller notification lists one
// row of anomaly context (dates, impacts) followed by per-member-account
// contribution blocks; each "Member Account: <id> (<name>)" marker opens one
// member's block.
var (
	memberBoundaryPattern = regexp.MustCompile(`Member Account:\s*(\d{12})\s*\(([^)]+)\)`)
	anomalyRowPattern     = regexp.MustCompile(`Start Date:[^\n]+\n(?:Last Detected Date:[^\n]+\n)?(?:Duration:[^\n]+\n)?(?:Max Daily Impact:[^\n]+\n)?(?:Total Impact:[^\n]+\n)?`)
	serviceLinePattern    = regexp.MustCompile(`AWS Service:\s*[^\n]+`)
	impactLinePattern     = regexp.MustCompile(`Impact Contribution:\s*\$[\d.,]+`)
	monitorDetailPattern  = regexp.MustCompile(`Name:\s*([^\n]+)\n\s*Type:\s*([^\n]+)\n\s*Monitoring:\s*([^\n]+)`)
)

const (
	serviceLookback  = 200
	impactLookahead  = 400
	fallbackBlockLen = 200
)

// memberBlock is one member-account boundary with its resolved context.
type memberBlock struct {
	accountID   string
	accountName string
	text        string
	monitorType string
}

// MemberBoundaries returns the positions of all member-account markers.
// The explicit false return distinguishes "not a reseller layout" from an
// empty result.
func MemberBoundaries(text string) ([][]int, bool) {
	locs := memberBoundaryPattern.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return nil, false
	}
	return locs, true
}

// splitByMemberAccounts partitions a reseller email body into one block per
// member account. Each block combines the shared row context (dates and
// impact totals), the member's own service/impact lines, and the monitor
// details for its row. Markers with no contribution content after them are
// skipped and reported in the second return value.
func splitByMemberAccounts(text string) (blocks []memberBlock, dropped []string) {
	markers, ok := MemberBoundaries(text)
	if !ok {
		return nil, nil
	}
	rows := anomalyRowPattern.FindAllStringIndex(text, -1)

	for _, marker := range markers {
		accountID := text[marker[2]:marker[3]]
		accountName := strings.TrimSpace(text[marker[4]:marker[5]])
		markerStart, markerEnd := marker[0], marker[1]

		// Latest anomaly row opening before this marker is its context.
		rowContext := ""
		rowStart := 0
		for _, row := range rows {
			if row[0] >= markerStart {
				break
			}
			rowContext = strings.TrimSpace(text[row[0]:row[1]])
			rowStart = row[0]
		}

		// The member's own block runs from the nearest preceding service
		// line to the impact contribution that closes it.
		blockStart := markerStart
		lookback := text[max(0, markerStart-serviceLookback):markerStart]
		if loc := serviceLinePattern.FindStringIndex(lookback); loc != nil {
			blockStart = max(0, markerStart-serviceLookback) + loc[0]
		}

		blockEnd := min(len(text), markerStart+fallbackBlockLen)
		hasImpact := false
		lookahead := text[markerStart:min(len(text), markerStart+impactLookahead)]
		if loc := impactLinePattern.FindStringIndex(lookahead); loc != nil {
			blockEnd = markerStart + loc[1]
			hasImpact = true
		}
		accountBlock := strings.TrimSpace(text[blockStart:blockEnd])

		// A marker with nothing but the marker itself carries no anomaly.
		tail := strings.TrimSpace(text[markerEnd:blockEnd])
		if !hasImpact && tail == "" && rowContext == "" {
			dropped = append(dropped, accountID)
			continue
		}

		// Monitor details live at row scope, shared by its members.
		rowEnd := len(text)
		for _, row := range rows {
			if row[0] > markerStart {
				rowEnd = row[0]
				break
			}
		}
		monitorInfo := ""
		monitorType := ""
		if m := monitorDetailPattern.FindStringSubmatch(text[rowStart:rowEnd]); m != nil {
			monitorType = strings.TrimSpace(m[3])
			monitorInfo = "\n\n--- MONITOR INFO ---\nName: " + strings.TrimSpace(m[1]) +
				"\nType: " + strings.TrimSpace(m[2]) +
				"\nMonitoring: " + monitorType
		}

		blocks = append(blocks, memberBlock{
			accountID:   accountID,
			accountName: accountName,
			text: "--- ANOMALY CONTEXT ---\n" + rowContext +
				"\n\n--- ACCOUNT DATA ---\n" + accountBlock + monitorInfo,
			monitorType: monitorType,
		})
	}
	return blocks, dropped
}
