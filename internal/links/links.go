// Package links recovers cost-management console deep-links from the HTML
// body an email retained through normalization. It is a pure fallback: it is
// only consulted for records the LLM left without a link.
package links

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/mikey/llm-anomaly-triage/internal/core"
)

var consoleLinkPattern = regexp.MustCompile(`console\.aws\.amazon\.com/(?:cost-management|costexplorer|cost-reports)`)

// anchor is one candidate link with the text that surrounds it.
type anchor struct {
	href    string
	context string
}

// Extractor scans retained HTML for console anchors.
type Extractor struct{}

// NewExtractor creates a new link extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Resolve returns the console link best matching the record's context: an
// anchor whose surrounding text mentions the record's account id, usage type
// or start date wins; otherwise the first console anchor. When the HTML has
// no console anchors at all, the link is reconstructed from the record's own
// fields, and ErrLinkNotFound is returned only if that is impossible too.
func (e *Extractor) Resolve(htmlBody string, rec *core.AnomalyRecord) (string, error) {
	anchors := consoleAnchors(htmlBody)
	if len(anchors) > 0 {
		for _, a := range anchors {
			ctx := strings.ToLower(a.context)
			if rec.AccountID != "" && strings.Contains(ctx, strings.ToLower(rec.AccountID)) {
				return a.href, nil
			}
			if rec.UsageType != "" && strings.Contains(ctx, strings.ToLower(rec.UsageType)) {
				return a.href, nil
			}
			if !rec.Start.IsZero() && strings.Contains(ctx, rec.Start.Format("2006-01-02")) {
				return a.href, nil
			}
		}
		return anchors[0].href, nil
	}

	if link := ReconstructLink(rec); link != "" {
		return link, nil
	}
	return "", core.ErrLinkNotFound
}

// consoleAnchors walks the HTML tree collecting console hrefs along with the
// text of their enclosing parent, which carries the positional context
// (account id, dates) the provider prints next to each link.
func consoleAnchors(src string) []anchor {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return nil
	}

	var out []anchor
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key != "href" || !consoleLinkPattern.MatchString(attr.Val) {
					continue
				}
				ctxNode := n
				if n.Parent != nil {
					ctxNode = n.Parent
				}
				out = append(out, anchor{href: attr.Val, context: nodeText(ctxNode)})
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// ReconstructLink rebuilds the anomaly-detection console URL from the
// record's account and date range. Returns "" when the record lacks the
// fields the URL needs.
func ReconstructLink(rec *core.AnomalyRecord) string {
	if rec.AccountID == "" || rec.Start.IsZero() {
		return ""
	}
	q := url.Values{}
	q.Set("account", rec.AccountID)
	q.Set("startDate", rec.Start.Format("2006-01-02"))
	q.Set("endDate", rec.End.Format("2006-01-02"))
	return fmt.Sprintf("https://console.aws.amazon.com/cost-management/home#/anomaly-detection/monitors?%s", q.Encode())
}
