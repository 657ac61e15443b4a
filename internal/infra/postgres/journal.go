package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"weekly-trivia/internal/domain"

	"github.com/jackc/pgx/v4/pgxpool"
)

// Journal records finished rounds in the round_results table.
type Journal struct {
	pool *pgxpool.Pool
}

func NewJournal(pool *pgxpool.Pool) *Journal {
	return &Journal{pool: pool}
}

func (j *Journal) Record(ctx context.Context, profile string, entry domain.JournalEntry) error {
	answers := entry.Answers
	if answers == nil {
		answers = []string{}
	}
	raw, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	_, err = j.pool.Exec(ctx, `
		INSERT INTO round_results (profile, qid, question_type, correct, points, response_ms, answers, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8)`,
		profile, entry.QID, string(entry.QuestionType), entry.Correct, entry.Points, entry.ResponseMS, string(raw), entry.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("record result: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, profile string, limit int) ([]domain.JournalEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := j.pool.Query(ctx, `
		SELECT qid, question_type, correct, points, response_ms, answers, finished_at
		FROM round_results
		WHERE profile = $1
		ORDER BY finished_at DESC, id DESC
		LIMIT $2`, profile, limit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	var entries []domain.JournalEntry
	for rows.Next() {
		var (
			entry domain.JournalEntry
			qt    string
			raw   []byte
		)
		if err := rows.Scan(&entry.QID, &qt, &entry.Correct, &entry.Points, &entry.ResponseMS, &raw, &entry.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		entry.QuestionType = domain.QuestionType(qt)
		if err := json.Unmarshal(raw, &entry.Answers); err != nil {
			return nil, fmt.Errorf("decode answers: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
