package normalize

import (
	"regexp"
	"strings"
)

// ForwardedMeta holds the original metadata recovered from a forwarded
// message body.
type ForwardedMeta struct {
	FromName    string
	FromAddress string
	Subject     string
	Date        string
}

var (
	forwardedMarker  = regexp.MustCompile(`(?i)Forwarded message`)
	forwardedTo      = regexp.MustCompile(`(?m)^To:\s*(.+)$`)
	forwardedFrom    = regexp.MustCompile(`(?m)^From:\s*(.+)$`)
	forwardedDate    = regexp.MustCompile(`(?m)^(?:Date|Sent):\s*(.+)$`)
	forwardedSubject = regexp.MustCompile(`(?m)^Subject:\s*(.+)$`)
)

// ForwardedMetadata recovers the original sender, subject and date from a
// forwarded email body. Only the leading portion of the body is inspected;
// forwarding wrappers always sit at the top.
func ForwardedMetadata(text string) (*ForwardedMeta, bool) {
	head := text
	if len(head) > 2000 {
		head = head[:2000]
	}
	if !forwardedMarker.MatchString(head) && !strings.Contains(head, "From:") {
		return nil, false
	}

	meta := &ForwardedMeta{}

	// The To line of the wrapper names the mailbox that actually received the
	// provider notification, so it takes precedence over the wrapper's From.
	if m := forwardedTo.FindStringSubmatch(text); m != nil {
		meta.FromName, meta.FromAddress = splitAddress(m[1])
	} else if m := forwardedFrom.FindStringSubmatch(text); m != nil {
		meta.FromName, meta.FromAddress = splitAddress(m[1])
	}
	if m := forwardedDate.FindStringSubmatch(text); m != nil {
		meta.Date = strings.TrimSpace(m[1])
	}
	if m := forwardedSubject.FindStringSubmatch(text); m != nil {
		meta.Subject = strings.TrimSpace(m[1])
	}

	if meta.FromAddress == "" && meta.Subject == "" {
		return nil, false
	}
	return meta, true
}

func splitAddress(raw string) (name, address string) {
	raw = strings.TrimSpace(raw)
	if i := strings.IndexByte(raw, '<'); i >= 0 {
		name = strings.Trim(strings.TrimSpace(raw[:i]), `"`)
		address = strings.TrimSuffix(raw[i+1:], ">")
		return name, strings.TrimSpace(address)
	}
	return raw, raw
}
