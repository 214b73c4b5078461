package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/hexcast/pkg/domain"
	"github.com/aretw0/hexcast/pkg/ports"
)

// Mask replaces every redacted match.
const Mask = "***"

// DefaultRedactionPatterns match e-mail addresses and long digit runs
// (phone or document numbers) that users tend to type into intentions.
var DefaultRedactionPatterns = []string{
	`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`,
	`\+?\d[\d\s.\-]{7,}\d`,
}

type redactionMiddleware struct {
	next     ports.HistoryStore
	patterns []*regexp.Regexp
}

// NewRedactionMiddleware masks matches of the patterns in the intention and
// interpretation of every record before it reaches the history store.
// It panics on an invalid pattern, like regexp.MustCompile.
func NewRedactionMiddleware(patternStrings []string) HistoryMiddleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.HistoryStore) ports.HistoryStore {
		return &redactionMiddleware{next: next, patterns: patterns}
	}
}

func (m *redactionMiddleware) Create(ctx context.Context, record domain.HistoryRecord) (string, error) {
	// record is a copy; only the slice is shared and it is not touched.
	record.Intention = m.redact(record.Intention)
	record.Interpretation = m.redact(record.Interpretation)
	return m.next.Create(ctx, record)
}

func (m *redactionMiddleware) List(ctx context.Context, userID string) ([]domain.HistoryEntry, error) {
	return m.next.List(ctx, userID)
}

func (m *redactionMiddleware) redact(s string) string {
	for _, p := range m.patterns {
		s = p.ReplaceAllString(s, Mask)
	}
	return s
}
