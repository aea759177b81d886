// Package mailbox looks up verification codes delivered to a shared inbox.
package mailbox

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"regexp"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"github.com/cuongbtq/signup-harvester/internal/pipeline/domain"
)

// Config holds IMAP finder configuration
type Config struct {
	Server      string // host:port, implicit TLS
	Username    string
	Password    string
	Mailbox     string
	From        string
	Subject     string
	CodePattern string
	Timeout     time.Duration
}

// IMAPFinder searches the inbox for the latest verification mail sent to an
// address. Each lookup dials its own connection so the finder is safe for
// concurrent use.
type IMAPFinder struct {
	config  *Config
	pattern *regexp.Regexp
	logger  *slog.Logger
}

// NewIMAPFinder creates a new IMAPFinder instance
func NewIMAPFinder(config *Config, logger *slog.Logger) (*IMAPFinder, error) {
	if config.Server == "" {
		return nil, fmt.Errorf("imap server is required")
	}
	if _, _, err := net.SplitHostPort(config.Server); err != nil {
		return nil, fmt.Errorf("invalid imap server address: %w", err)
	}
	if config.Username == "" || config.Password == "" {
		return nil, fmt.Errorf("imap credentials are required")
	}

	pattern, err := CompilePattern(config.CodePattern)
	if err != nil {
		return nil, err
	}

	if config.Mailbox == "" {
		config.Mailbox = "INBOX"
	}

	return &IMAPFinder{
		config:  config,
		pattern: pattern,
		logger:  logger,
	}, nil
}

// FindCode returns the code from the newest matching message. No message or no
// code in it is a miss and returns an empty code with a nil error.
func (f *IMAPFinder) FindCode(ctx context.Context, address string) (string, error) {
	c, err := f.dial(ctx)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := c.Logout(); err != nil {
			f.logger.Debug("IMAP logout failed", slog.Any("error", err))
		}
	}()

	if err := c.Login(f.config.Username, f.config.Password); err != nil {
		return "", fmt.Errorf("imap login failed: %w", err)
	}

	if _, err := c.Select(f.config.Mailbox, true); err != nil {
		return "", fmt.Errorf("failed to select mailbox %s: %w", f.config.Mailbox, err)
	}

	ids, err := c.Search(f.criteria(address))
	if err != nil {
		return "", fmt.Errorf("imap search failed: %w", err)
	}
	if len(ids) == 0 {
		return "", nil
	}

	code, err := f.fetchCode(c, ids[len(ids)-1])
	if errors.Is(err, domain.ErrNoCode) {
		f.logger.Debug("Verification mail has no code",
			slog.String("address", address),
			slog.Int("matches", len(ids)),
		)
		return "", nil
	}
	return code, err
}

func (f *IMAPFinder) dial(ctx context.Context) (*client.Client, error) {
	dialer := &net.Dialer{Timeout: f.config.Timeout}
	if deadline, ok := ctx.Deadline(); ok {
		dialer.Deadline = deadline
	}

	host, _, _ := net.SplitHostPort(f.config.Server)
	c, err := client.DialWithDialerTLS(dialer, f.config.Server, &tls.Config{ServerName: host})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", f.config.Server, err)
	}
	c.Timeout = f.config.Timeout

	return c, nil
}

func (f *IMAPFinder) criteria(address string) *imap.SearchCriteria {
	criteria := imap.NewSearchCriteria()
	if f.config.From != "" {
		criteria.Header.Add("From", f.config.From)
	}
	if f.config.Subject != "" {
		criteria.Header.Add("Subject", f.config.Subject)
	}
	criteria.Header.Add("To", address)
	return criteria
}

// fetchCode downloads the full message seqNum and extracts the code from it
func (f *IMAPFinder) fetchCode(c *client.Client, seqNum uint32) (string, error) {
	seqSet := new(imap.SeqSet)
	seqSet.AddNum(seqNum)

	section := &imap.BodySectionName{Peek: true}
	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqSet, []imap.FetchItem{section.FetchItem()}, messages)
	}()

	var code string
	var extractErr error = domain.ErrNoCode
	for msg := range messages {
		body := msg.GetBody(section)
		if body == nil {
			continue
		}
		code, extractErr = ExtractCode(body, f.pattern)
	}

	if err := <-done; err != nil {
		return "", fmt.Errorf("imap fetch failed: %w", err)
	}
	return code, extractErr
}
