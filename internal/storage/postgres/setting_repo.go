package postgres

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
	err := r.db.Pool.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if err != nil {
		return "", mapError(err)
	}
	return value, nil
}

func (r *settingRepo) Set(ctx context.Context, key, value string) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO settings (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`, key, value, time.Now().UTC().UnixMicro())
	if err != nil {
		return fmt.Errorf("setting repo: gravar %s: %w", key, err)
	}
	return nil
}

func (r *settingRepo) Delete(ctx context.Context, key string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM settings WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("setting repo: remover %s: %w", key, err)
	}
	return nil
}
