package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"weekly-trivia/internal/domain"

	"github.com/redis/go-redis/v9"
)

// PanelCache stores the last-known panels as a hash per profile:
//
//	HSET trivia:panels:{profile} leaderboard {json} stats {json} updated_at {rfc3339}
type PanelCache struct {
	client *redis.Client
	ttl    time.Duration

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewPanelCache(client *redis.Client, ttl time.Duration) *PanelCache {
	return &PanelCache{
		client: client,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *PanelCache) LoadPanels(ctx context.Context, profile string) (domain.Panels, error) {
	fields, err := c.client.HGetAll(ctx, c.key(profile)).Result()
	if err != nil {
		return domain.Panels{}, fmt.Errorf("load panels: %w", err)
	}
	if len(fields) == 0 {
		return domain.Panels{}, domain.ErrNotFound
	}

	panels := domain.Panels{Leaderboard: []domain.LeaderboardEntry{}}
	if raw, ok := fields["leaderboard"]; ok {
		if err := json.Unmarshal([]byte(raw), &panels.Leaderboard); err != nil {
			return domain.Panels{}, fmt.Errorf("decode leaderboard: %w", err)
		}
	}
	if raw, ok := fields["stats"]; ok && raw != "" {
		var stats domain.Stats
		if err := json.Unmarshal([]byte(raw), &stats); err != nil {
			return domain.Panels{}, fmt.Errorf("decode stats: %w", err)
		}
		panels.Stats = &stats
	}
	if raw, ok := fields["updated_at"]; ok {
		panels.UpdatedAt, _ = time.Parse(time.RFC3339Nano, raw)
	}
	return panels, nil
}

func (c *PanelCache) SavePanels(ctx context.Context, profile string, panels domain.Panels) error {
	leaderboard, err := json.Marshal(panels.Leaderboard)
	if err != nil {
		return fmt.Errorf("encode leaderboard: %w", err)
	}
	stats := ""
	if panels.Stats != nil {
		raw, err := json.Marshal(panels.Stats)
		if err != nil {
			return fmt.Errorf("encode stats: %w", err)
		}
		stats = string(raw)
	}

	key := c.key(profile)
	pipe := c.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key,
		"leaderboard", string(leaderboard),
		"stats", stats,
		"updated_at", panels.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if ttl := c.ttlWithJitter(); ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save panels: %w", err)
	}
	return nil
}

func (c *PanelCache) key(profile string) string {
	return "trivia:panels:" + profile
}

func (c *PanelCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
