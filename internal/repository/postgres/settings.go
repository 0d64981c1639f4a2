package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/resumefoundry/auth-core/internal/core/port"
	"github.com/resumefoundry/auth-core/internal/repository"
)

// SettingsRepository implements port.SettingsRepository over the key-value
// auth.settings table. The password policy and session config singletons each
// occupy one row, value stored as JSONB.
type SettingsRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewSettingsRepository wires a PostgreSQL-backed settings repository.
func NewSettingsRepository(exec pgExecutor) *SettingsRepository {
	return &SettingsRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Get returns the raw JSON value and version timestamp for the supplied key.
func (r *SettingsRepository) Get(ctx context.Context, key string) ([]byte, time.Time, error) {
	stmt, args, err := r.builder.
		Select("value", "updated_at").
		From("auth.settings").
		Where(squirrel.Eq{"key": key}).
		ToSql()
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("build select setting sql: %w", err)
	}

	var (
		value     []byte
		updatedAt time.Time
	)
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&value, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, time.Time{}, repository.ErrNotFound
		}
		return nil, time.Time{}, fmt.Errorf("scan setting: %w", err)
	}

	return value, updatedAt, nil
}

// Upsert writes the value for the supplied key, replacing any previous row.
func (r *SettingsRepository) Upsert(ctx context.Context, key string, value []byte, updatedAt time.Time) error {
	stmt, args, err := r.builder.Insert("auth.settings").
		Columns("key", "value", "updated_at").
		Values(key, value, updatedAt).
		Suffix("ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert setting sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("upsert setting: %w", err)
	}

	return nil
}

var _ port.SettingsRepository = (*SettingsRepository)(nil)
