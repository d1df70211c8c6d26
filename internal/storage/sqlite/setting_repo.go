package sqlite

import (
	"context"
	"fmt"
	"time"
)

type settingRepo struct {
	db *DB
}

func NewSettingRepository(db *DB) *settingRepo {
	return &settingRepo{db: db}
}

func (r *settingRepo) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.Conn.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return "", mapError(err)
	}
	return value, nil
}

func (r *settingRepo) Set(ctx context.Context, key, value string) error {
	_, err := r.db.Conn.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().UTC().UnixMicro())
	if err != nil {
		return fmt.Errorf("setting repo: gravar %s: %w", key, err)
	}
	return nil
}

func (r *settingRepo) Delete(ctx context.Context, key string) error {
	_, err := r.db.Conn.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("setting repo: remover %s: %w", key, err)
	}
	return nil
}
