package memory

import (
	"context"
	"net/http"
	"sync"

	"weekly-trivia/internal/domain"
)

// CredentialStore keeps session cookies per profile for the life of the process.
type CredentialStore struct {
	mu       sync.RWMutex
	profiles map[string][]*http.Cookie
}

func NewCredentialStore() *CredentialStore {
	return &CredentialStore{
		profiles: make(map[string][]*http.Cookie),
	}
}

func (s *CredentialStore) Load(_ context.Context, profile string) ([]*http.Cookie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cookies, ok := s.profiles[profile]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyCookies(cookies), nil
}

func (s *CredentialStore) Save(_ context.Context, profile string, cookies []*http.Cookie) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(cookies) == 0 {
		delete(s.profiles, profile)
		return nil
	}
	s.profiles[profile] = copyCookies(cookies)
	return nil
}

func (s *CredentialStore) Clear(_ context.Context, profile string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.profiles, profile)
	return nil
}

func copyCookies(cookies []*http.Cookie) []*http.Cookie {
	out := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		cp := *c
		out = append(out, &cp)
	}
	return out
}
