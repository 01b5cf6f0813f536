package split

import (
	"regexp"
	"strings"
)

// Standard emails carry one or more anomaly reports, each opening with a
// date-stamped "Start Date:" sub-header.
var (
	dateHeaderPattern = regexp.MustCompile(`Start Date:\s*(\d{4}-\d{2}-\d{2})`)
	monitoringPattern = regexp.MustCompile(`Monitoring:\s*([^\n]+)`)
)

// dateBlock is one date-grouped anomaly report.
type dateBlock struct {
	dateKey     string
	text        string
	monitorType string
}

// DateHeaders returns the positions of all date-stamped report openings,
// with an explicit found flag.
func DateHeaders(text string) ([][]int, bool) {
	locs := dateHeaderPattern.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return nil, false
	}
	return locs, true
}

// splitByDates partitions a standard email body into one block per
// date-stamped report. Each block runs from its header to the next header
// or end of text, so no anomaly-bearing text is dropped.
func splitByDates(text string) []dateBlock {
	headers, ok := DateHeaders(text)
	if !ok {
		return nil
	}

	blocks := make([]dateBlock, 0, len(headers))
	for i, h := range headers {
		end := len(text)
		if i+1 < len(headers) {
			end = headers[i+1][0]
		}
		blockText := strings.TrimSpace(text[h[0]:end])

		monitorType := ""
		if m := monitoringPattern.FindStringSubmatch(blockText); m != nil {
			monitorType = strings.TrimSpace(m[1])
		}

		blocks = append(blocks, dateBlock{
			dateKey:     text[h[2]:h[3]],
			text:        blockText,
			monitorType: monitorType,
		})
	}
	return blocks
}
