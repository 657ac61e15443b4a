package memory

import (
	"context"
	"sync"

	"weekly-trivia/internal/domain"
)

// Journal is an in-process result history, newest last.
type Journal struct {
	mu      sync.RWMutex
	entries map[string][]domain.JournalEntry
}

func NewJournal() *Journal {
	return &Journal{entries: make(map[string][]domain.JournalEntry)}
}

func (j *Journal) Record(_ context.Context, profile string, entry domain.JournalEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	entry.Answers = append([]string(nil), entry.Answers...)
	j.entries[profile] = append(j.entries[profile], entry)
	return nil
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(_ context.Context, profile string, limit int) ([]domain.JournalEntry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	entries := j.entries[profile]
	if limit <= 0 || limit > len(entries) {
		limit = len(entries)
	}
	out := make([]domain.JournalEntry, 0, limit)
	for i := len(entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, entries[i])
	}
	return out, nil
}
