package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/resumefoundry/auth-core/internal/repository"
)

func TestSettingsRepository_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewSettingsRepository(mock)

	updatedAt := time.Now().UTC()
	stored := []byte(`{"minLength":12}`)

	rows := pgxmock.NewRows([]string{"value", "updated_at"}).AddRow(stored, updatedAt)

	mock.ExpectQuery(`SELECT .*FROM auth\.settings`).WithArgs("password_policy").WillReturnRows(rows)

	value, at, err := repo.Get(context.Background(), "password_policy")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if string(value) != string(stored) {
		t.Fatalf("expected stored value, got %s", value)
	}
	if !at.Equal(updatedAt) {
		t.Fatalf("expected updated_at %v, got %v", updatedAt, at)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSettingsRepository_GetMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewSettingsRepository(mock)

	rows := pgxmock.NewRows([]string{"value", "updated_at"})

	mock.ExpectQuery(`SELECT .*FROM auth\.settings`).WithArgs("session_config").WillReturnRows(rows)

	if _, _, err := repo.Get(context.Background(), "session_config"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSettingsRepository_Upsert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewSettingsRepository(mock)

	updatedAt := time.Now().UTC()
	value := []byte(`{"idleTimeout":7200}`)

	mock.ExpectExec(`INSERT INTO auth\.settings`).
		WithArgs("session_config", value, updatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.Upsert(context.Background(), "session_config", value, updatedAt); err != nil {
		t.Fatalf("Upsert returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
