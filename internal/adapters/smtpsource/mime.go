package smtpsource

import (
	"encoding/base64"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"
)

// Bodies holds the text and HTML alternatives of a parsed message.
type Bodies struct {
	Text string
	HTML string
}

// ExtractBodies pulls the text/plain and text/html parts out of a message,
// recursing into nested multipart containers and decoding the part transfer
// encoding.
func ExtractBodies(msg *mail.Message) (Bodies, error) {
	contentType := msg.Header.Get("Content-Type")
	encoding := msg.Header.Get("Content-Transfer-Encoding")

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		body, readErr := readDecoded(msg.Body, encoding)
		if readErr != nil {
			return Bodies{}, readErr
		}
		if strings.Contains(strings.ToLower(contentType), "text/html") {
			return Bodies{HTML: body}, nil
		}
		return Bodies{Text: body}, nil
	}

	boundary, ok := params["boundary"]
	if !ok {
		body, readErr := readDecoded(msg.Body, encoding)
		if readErr != nil {
			return Bodies{}, readErr
		}
		return Bodies{Text: body}, nil
	}

	var bodies Bodies
	collectParts(multipart.NewReader(msg.Body, boundary), &bodies)
	return bodies, nil
}

// collectParts walks a multipart reader, keeping the first text/plain and
// text/html bodies it encounters.
func collectParts(mr *multipart.Reader, bodies *Bodies) {
	for {
		part, err := mr.NextPart()
		if err != nil {
			return
		}

		partType := part.Header.Get("Content-Type")
		encoding := part.Header.Get("Content-Transfer-Encoding")
		lower := strings.ToLower(partType)

		switch {
		case strings.Contains(lower, "multipart/"):
			_, params, err := mime.ParseMediaType(partType)
			if err != nil {
				continue
			}
			if boundary, ok := params["boundary"]; ok {
				collectParts(multipart.NewReader(part, boundary), bodies)
			}
		case strings.Contains(lower, "text/plain"):
			if bodies.Text != "" {
				continue
			}
			if body, err := readDecoded(part, encoding); err == nil {
				bodies.Text = body
			}
		case strings.Contains(lower, "text/html"):
			if bodies.HTML != "" {
				continue
			}
			if body, err := readDecoded(part, encoding); err == nil {
				bodies.HTML = body
			}
		}
	}
}

// readDecoded reads a body applying its transfer encoding. Unknown encodings
// are read as-is.
func readDecoded(r io.Reader, encoding string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "quoted-printable":
		r = quotedprintable.NewReader(r)
	case "base64":
		r = base64.NewDecoder(base64.StdEncoding, r)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
