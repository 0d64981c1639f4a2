package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/resumefoundry/auth-core/internal/core/domain"
	"github.com/resumefoundry/auth-core/internal/repository"
)

func TestSessionRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewSessionRepository(mock)

	createdAt := time.Now().UTC()
	ip := "198.51.100.10"
	session := domain.Session{
		ID:        "session-123",
		UserID:    42,
		TokenHash: "a1b2c3",
		IP:        &ip,
		CreatedAt: createdAt,
		LastSeen:  createdAt,
		ExpiresAt: createdAt.Add(30 * 24 * time.Hour),
	}

	mock.ExpectExec(`INSERT INTO auth\.sessions`).
		WithArgs(
			session.ID,
			session.UserID,
			session.TokenHash,
			&ip,
			(*string)(nil),
			session.CreatedAt,
			session.LastSeen,
			session.ExpiresAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.Create(context.Background(), session); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSessionRepository_GetByTokenHash(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewSessionRepository(mock)

	createdAt := time.Now().UTC()
	expiresAt := createdAt.Add(30 * 24 * time.Hour)
	ip := "198.51.100.10"
	ua := "GoTest/1.0"

	rows := pgxmock.NewRows([]string{
		"id", "user_id", "token_hash", "ip", "user_agent", "created_at", "last_seen", "expires_at", "revoked_at", "revoke_reason",
	}).AddRow(
		"session-1", int64(42), "a1b2c3", &ip, &ua, createdAt, createdAt, expiresAt, nil, nil,
	)

	mock.ExpectQuery(`SELECT .*FROM auth\.sessions`).WithArgs("a1b2c3").WillReturnRows(rows)

	session, err := repo.GetByTokenHash(context.Background(), "a1b2c3")
	if err != nil {
		t.Fatalf("GetByTokenHash returned error: %v", err)
	}
	if session.ID != "session-1" {
		t.Fatalf("expected session id session-1, got %s", session.ID)
	}
	if session.UserID != 42 {
		t.Fatalf("expected user id 42, got %d", session.UserID)
	}
	if session.IP == nil || *session.IP != ip {
		t.Fatalf("expected ip metadata to match")
	}
	if session.RevokedAt != nil {
		t.Fatalf("expected active session")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSessionRepository_GetByTokenHashNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewSessionRepository(mock)

	rows := pgxmock.NewRows([]string{
		"id", "user_id", "token_hash", "ip", "user_agent", "created_at", "last_seen", "expires_at", "revoked_at", "revoke_reason",
	})

	mock.ExpectQuery(`SELECT .*FROM auth\.sessions`).WithArgs("missing").WillReturnRows(rows)

	if _, err := repo.GetByTokenHash(context.Background(), "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSessionRepository_Touch(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewSessionRepository(mock)

	at := time.Now().UTC()

	mock.ExpectExec(`UPDATE auth\.sessions`).
		WithArgs(at, "session-5").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := repo.Touch(context.Background(), "session-5", at); err != nil {
		t.Fatalf("Touch returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSessionRepository_Revoke(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewSessionRepository(mock)

	at := time.Now().UTC()

	mock.ExpectExec(`UPDATE auth\.sessions`).
		WithArgs(at, "logout", "session-7").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := repo.Revoke(context.Background(), "session-7", "logout", at); err != nil {
		t.Fatalf("Revoke returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSessionRepository_RevokeMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewSessionRepository(mock)

	at := time.Now().UTC()

	mock.ExpectExec(`UPDATE auth\.sessions`).
		WithArgs(at, "logout", "session-gone").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	if err := repo.Revoke(context.Background(), "session-gone", "logout", at); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSessionRepository_RevokeAllForUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewSessionRepository(mock)

	at := time.Now().UTC()

	mock.ExpectExec(`UPDATE auth\.sessions`).
		WithArgs(at, "password_changed", int64(42), "keep-me").
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))

	revoked, err := repo.RevokeAllForUser(context.Background(), 42, "keep-me", "password_changed", at)
	if err != nil {
		t.Fatalf("RevokeAllForUser returned error: %v", err)
	}
	if revoked != 3 {
		t.Fatalf("expected three revoked sessions, got %d", revoked)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
