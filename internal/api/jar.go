package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"weekly-trivia/internal/domain"

	"github.com/rs/zerolog"
)

// CredentialStore persists the backend's session cookies per profile.
type CredentialStore interface {
	Load(ctx context.Context, profile string) ([]*http.Cookie, error)
	Save(ctx context.Context, profile string, cookies []*http.Cookie) error
	Clear(ctx context.Context, profile string) error
}

// persistentJar is a cookie jar that writes through to a CredentialStore.
// The client never looks inside the cookies; it only carries them.
type persistentJar struct {
	base    *url.URL
	store   CredentialStore
	profile string
	log     zerolog.Logger

	mu  sync.Mutex
	jar *cookiejar.Jar
}

func newPersistentJar(base *url.URL, store CredentialStore, profile string, log zerolog.Logger) *persistentJar {
	jar, _ := cookiejar.New(nil)
	return &persistentJar{base: base, store: store, profile: profile, log: log, jar: jar}
}

func (j *persistentJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	j.jar.SetCookies(u, cookies)
	current := j.jar.Cookies(j.base)
	j.mu.Unlock()

	if j.store == nil || len(cookies) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := j.store.Save(ctx, j.profile, current); err != nil {
		j.log.Warn().Err(err).Str("profile", j.profile).Msg("persist session cookies")
	}
}

func (j *persistentJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.jar.Cookies(u)
}

func (j *persistentJar) restore(ctx context.Context) (bool, error) {
	if j.store == nil {
		return false, nil
	}
	cookies, err := j.store.Load(ctx, j.profile)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	for _, c := range cookies {
		c.Path = "/"
	}
	j.mu.Lock()
	j.jar.SetCookies(j.base, cookies)
	j.mu.Unlock()
	return len(cookies) > 0, nil
}

func (j *persistentJar) reset(ctx context.Context) error {
	jar, _ := cookiejar.New(nil)
	j.mu.Lock()
	j.jar = jar
	j.mu.Unlock()
	if j.store == nil {
		return nil
	}
	return j.store.Clear(ctx, j.profile)
}
