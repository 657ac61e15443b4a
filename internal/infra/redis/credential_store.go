package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"weekly-trivia/internal/domain"

	"github.com/redis/go-redis/v9"
)

// CredentialStore keeps session cookies in Redis so that every process using
// the same profile shares one login. Entries expire after ttl; the backend
// cookie lifetime is what actually bounds the session.
type CredentialStore struct {
	client *redis.Client
	ttl    time.Duration
}

type storedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func NewCredentialStore(client *redis.Client, ttl time.Duration) *CredentialStore {
	return &CredentialStore{client: client, ttl: ttl}
}

func (s *CredentialStore) Load(ctx context.Context, profile string) ([]*http.Cookie, error) {
	raw, err := s.client.Get(ctx, s.key(profile)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	var stored []storedCookie
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("decode credentials: %w", err)
	}
	cookies := make([]*http.Cookie, 0, len(stored))
	for _, c := range stored {
		cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value})
	}
	return cookies, nil
}

func (s *CredentialStore) Save(ctx context.Context, profile string, cookies []*http.Cookie) error {
	if len(cookies) == 0 {
		return s.Clear(ctx, profile)
	}
	stored := make([]storedCookie, 0, len(cookies))
	for _, c := range cookies {
		stored = append(stored, storedCookie{Name: c.Name, Value: c.Value})
	}
	raw, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	return s.client.Set(ctx, s.key(profile), raw, s.ttl).Err()
}

func (s *CredentialStore) Clear(ctx context.Context, profile string) error {
	return s.client.Del(ctx, s.key(profile)).Err()
}

func (s *CredentialStore) key(profile string) string {
	return "trivia:session:" + profile
}
