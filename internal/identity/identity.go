// Package identity resolves invocation credentials into caller
// identities. The local host uses the static provider: a fixed
// token-to-identity table, enough to exercise authentication paths
// without an external issuer.
package identity

import (
	"context"
	"sort"
	"sync"

	"github.com/Makisuo/confect-plus/internal/platform"
)

// Provider resolves a bearer token to an identity. An unknown or empty
// token resolves to nil: unauthenticated is a state, not an error.
type Provider interface {
	Resolve(ctx context.Context, token string) (*platform.Identity, error)
}

// Static is a fixed token table. Safe for concurrent use.
type Static struct {
	mu     sync.RWMutex
	issuer string
	tokens map[string]platform.Identity
}

// NewStatic builds a provider with the given issuer name.
func NewStatic(issuer string) *Static {
	return &Static{
		issuer: issuer,
		tokens: make(map[string]platform.Identity),
	}
}

// AddToken maps a token to a subject with optional claims. Returns the
// provider for declaration-style chaining.
func (s *Static) AddToken(token, subject string, claims map[string]string) *Static {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = platform.Identity{
		Subject: subject,
		Issuer:  s.issuer,
		Claims:  claims,
	}
	return s
}

func (s *Static) Resolve(ctx context.Context, token string) (*platform.Identity, error) {
	if token == "" {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ident, ok := s.tokens[token]
	if !ok {
		return nil, nil
	}
	// Copy so callers cannot mutate the table through the claims map.
	out := ident
	if ident.Claims != nil {
		out.Claims = make(map[string]string, len(ident.Claims))
		for k, v := range ident.Claims {
			out.Claims[k] = v
		}
	}
	return &out, nil
}

// Subjects lists the known subjects, sorted, for CLI introspection.
func (s *Static) Subjects() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]bool, len(s.tokens))
	var subjects []string
	for _, ident := range s.tokens {
		if !seen[ident.Subject] {
			seen[ident.Subject] = true
			subjects = append(subjects, ident.Subject)
		}
	}
	sort.Strings(subjects)
	return subjects
}

var _ Provider = (*Static)(nil)
