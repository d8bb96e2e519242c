package storage

import (
	"context"
	"time"

	"github.com/samber/oops"
)

type Turn struct {
	ID            int64     `json:"id"`
	UserText      string    `json:"user_text"`
	AssistantText string    `json:"assistant_text"`
	Succeeded     bool      `json:"succeeded"`
	Timestamp     time.Time `json:"timestamp"`
}

func (s *Store) AppendTurnLog(ctx context.Context, user, assistant string, succeeded bool) error {
	_, err := s.exec(ctx,
		`INSERT INTO turns (user_text, assistant_text, succeeded, created_at) VALUES (?, ?, ?, ?)`,
		user, assistant, succeeded, toMillis(s.now()))
	if err != nil {
		return oops.Errorf("insert turn: %w", err)
	}

	return nil
}

// RecentTurns returns up to limit turns in chronological order.
func (s *Store) RecentTurns(ctx context.Context, limit int) ([]Turn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_text, assistant_text, succeeded, created_at FROM (
			SELECT * FROM turns ORDER BY created_at DESC, id DESC LIMIT ?
		) ORDER BY created_at ASC, id ASC`, limit)
	if err != nil {
		return nil, oops.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	var result []Turn
	for rows.Next() {
		var (
			t  Turn
			ts int64
		)
		if err = rows.Scan(&t.ID, &t.UserText, &t.AssistantText, &t.Succeeded, &ts); err != nil {
			return nil, oops.Errorf("scan turn: %w", err)
		}
		t.Timestamp = fromMillis(ts)
		result = append(result, t)
	}

	return result, rows.Err()
}

func (s *Store) CountTurns(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM turns`).Scan(&n); err != nil {
		return 0, oops.Errorf("count turns: %w", err)
	}

	return n, nil
}

func (s *Store) PruneTurns(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.exec(ctx, `DELETE FROM turns WHERE created_at < ?`, toMillis(before))
	if err != nil {
		return 0, oops.Errorf("prune turns: %w", err)
	}

	return res.RowsAffected()
}
