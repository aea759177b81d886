// Package identity generates throwaway signup addresses.
package identity

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/brianvoe/gofakeit/v7"
)

// MaxSuffix bounds the random number appended to each username
const MaxSuffix = 10000

var (
	unsafeLocalChars = regexp.MustCompile(`[^a-z0-9._-]`)
	repeatedDots     = regexp.MustCompile(`\.{2,}`)
)

// Generator builds addresses as <fake username><0..9999>@<domain>
type Generator struct {
	domain string

	mu    sync.Mutex
	faker *gofakeit.Faker
}

// NewGenerator creates a generator for addresses under domain. A zero seed
// uses a random source.
func NewGenerator(domain string, seed uint64) (*Generator, error) {
	domain = strings.TrimPrefix(strings.TrimSpace(domain), "@")
	if domain == "" || !strings.Contains(domain, ".") {
		return nil, fmt.Errorf("invalid email domain %q", domain)
	}

	return &Generator{
		domain: strings.ToLower(domain),
		faker:  gofakeit.New(seed),
	}, nil
}

// Generate returns a new address. Uniqueness is best-effort.
func (g *Generator) Generate() string {
	g.mu.Lock()
	username := g.faker.Username()
	suffix := g.faker.Number(0, MaxSuffix-1)
	g.mu.Unlock()

	local := unsafeLocalChars.ReplaceAllString(strings.ToLower(username), "")
	local = strings.Trim(repeatedDots.ReplaceAllString(local, "."), ".")
	if local == "" {
		local = "user"
	}

	return fmt.Sprintf("%s%d@%s", local, suffix, g.domain)
}
