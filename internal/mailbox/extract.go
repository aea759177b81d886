package mailbox

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"regexp"
	"strings"

	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"github.com/cuongbtq/signup-harvester/internal/pipeline/domain"
)

// DefaultCodePattern matches the code paragraph of the waitlist verification mail
const DefaultCodePattern = `<p style="font-size:24px;.*?">(\w+)</p>`

// maxPartSize bounds how much of a single MIME part is scanned
const maxPartSize = 1 << 20

// CompilePattern compiles a code pattern. The pattern must have a capture group
// holding the code.
func CompilePattern(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		pattern = DefaultCodePattern
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid code pattern: %w", err)
	}
	if re.NumSubexp() < 1 {
		return nil, fmt.Errorf("code pattern %q has no capture group", pattern)
	}
	return re, nil
}

// ExtractCode walks the MIME parts of a raw message and returns the first
// capture of pattern found in a text/html part. It returns domain.ErrNoCode if
// no part matches.
func ExtractCode(raw io.Reader, pattern *regexp.Regexp) (string, error) {
	mr, err := mail.CreateReader(raw)
	if err != nil {
		return "", fmt.Errorf("failed to parse message: %w", err)
	}
	defer mr.Close()

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return "", domain.ErrNoCode
		}
		if err != nil {
			return "", fmt.Errorf("failed to read message part: %w", err)
		}

		if !isHTML(part.Header) {
			continue
		}

		body, err := io.ReadAll(io.LimitReader(part.Body, maxPartSize))
		if err != nil {
			return "", fmt.Errorf("failed to read html part: %w", err)
		}

		if m := pattern.FindSubmatch(body); m != nil && len(m[1]) > 0 {
			return string(m[1]), nil
		}
	}
}

func isHTML(h mail.PartHeader) bool {
	if _, ok := h.(*mail.AttachmentHeader); ok {
		return false
	}

	mediaType, _, err := mime.ParseMediaType(h.Get("Content-Type"))
	if err != nil {
		return false
	}
	return strings.EqualFold(mediaType, "text/html")
}
