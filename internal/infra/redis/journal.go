package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"weekly-trivia/internal/domain"

	"github.com/redis/go-redis/v9"
)

// Journal keeps the newest results per profile in a capped list.
type Journal struct {
	client *redis.Client
	max    int64
}

// NewJournal keeps at most max entries per profile; max <= 0 means 100.
func NewJournal(client *redis.Client, max int) *Journal {
	if max <= 0 {
		max = 100
	}
	return &Journal{client: client, max: int64(max)}
}

func (j *Journal) Record(ctx context.Context, profile string, entry domain.JournalEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode journal entry: %w", err)
	}
	key := j.key(profile)
	pipe := j.client.TxPipeline()
	pipe.LPush(ctx, key, raw)
	pipe.LTrim(ctx, key, 0, j.max-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record result: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, profile string, limit int) ([]domain.JournalEntry, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	items, err := j.client.LRange(ctx, j.key(profile), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	entries := make([]domain.JournalEntry, 0, len(items))
	for _, item := range items {
		var entry domain.JournalEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			return nil, fmt.Errorf("decode journal entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (j *Journal) key(profile string) string {
	return "trivia:journal:" + profile
}
