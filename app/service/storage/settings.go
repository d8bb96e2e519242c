package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/samber/oops"
)

func (s *Store) Setting(ctx context.Context, key string) (string, bool, error) {
	var value string

	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, oops.Errorf("read setting %s: %w", key, err)
	}

	return value, true, nil
}

func (s *Store) Settings(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, oops.Errorf("query settings: %w", err)
	}
	defer rows.Close()

	result := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err = rows.Scan(&key, &value); err != nil {
			return nil, oops.Errorf("scan setting: %w", err)
		}
		result[key] = value
	}

	return result, rows.Err()
}

func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.exec(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	if err != nil {
		return oops.Errorf("write setting %s: %w", key, err)
	}

	return nil
}

func (s *Store) DeleteSetting(ctx context.Context, key string) error {
	if _, err := s.exec(ctx, `DELETE FROM settings WHERE key = ?`, key); err != nil {
		return oops.Errorf("delete setting %s: %w", key, err)
	}

	return nil
}
