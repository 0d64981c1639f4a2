package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/resumefoundry/auth-core/internal/core/domain"
	"github.com/resumefoundry/auth-core/internal/core/port"
	"github.com/resumefoundry/auth-core/internal/infra/security"
	"github.com/resumefoundry/auth-core/internal/repository"
)

type fakeUserRepo struct {
	mu      sync.Mutex
	users   map[int64]*domain.User
	history map[int64][]domain.PasswordHistoryEntry
	nextID  int64

	failedAttemptCalls int
	resetCalls         int
	recordErr          error
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	r := &fakeUserRepo{
		users:   make(map[int64]*domain.User),
		history: make(map[int64][]domain.PasswordHistoryEntry),
		nextID:  1,
	}
	for _, u := range users {
		r.users[u.ID] = u
		if u.ID >= r.nextID {
			r.nextID = u.ID + 1
		}
	}
	return r
}

func (r *fakeUserRepo) Create(_ context.Context, user domain.User) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return 0, repository.ErrConflict
		}
	}
	id := r.nextID
	r.nextID++
	user.ID = id
	r.users[id] = &user
	return id, nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *fakeUserRepo) GetByIdentifier(_ context.Context, identifier string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == identifier || u.Email == identifier {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) RecordFailedAttempt(ctx context.Context, id int64, attempts int, lockUntil *time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failedAttemptCalls++
	if r.recordErr != nil {
		return r.recordErr
	}
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.FailedAttempts = attempts
	u.LockoutUntil = lockUntil
	return nil
}

func (r *fakeUserRepo) ResetFailedAttempts(_ context.Context, id int64, lastLogin time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resetCalls++
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.FailedAttempts = 0
	u.LockoutUntil = nil
	u.LastLogin = &lastLogin
	return nil
}

func (r *fakeUserRepo) UpdatePassword(_ context.Context, id int64, hash string, changedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	u.LastPasswordChange = &changedAt
	return nil
}

func (r *fakeUserRepo) ListPasswordHistory(_ context.Context, userID int64, limit int) ([]domain.PasswordHistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries := r.history[userID]
	if len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]domain.PasswordHistoryEntry, len(entries))
	copy(out, entries)
	return out, nil
}

func (r *fakeUserRepo) AddPasswordHistory(_ context.Context, entry domain.PasswordHistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history[entry.UserID] = append([]domain.PasswordHistoryEntry{entry}, r.history[entry.UserID]...)
	return nil
}

func (r *fakeUserRepo) TrimPasswordHistory(_ context.Context, userID int64, maxEntries int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entries := r.history[userID]; len(entries) > maxEntries {
		r.history[userID] = entries[:maxEntries]
	}
	return nil
}

var _ port.UserRepository = (*fakeUserRepo)(nil)

type settingsRow struct {
	value     []byte
	updatedAt time.Time
}

type fakeSettingsRepo struct {
	mu     sync.Mutex
	rows   map[string]settingsRow
	getErr error

	getCalls int
}

func newFakeSettingsRepo() *fakeSettingsRepo {
	return &fakeSettingsRepo{rows: make(map[string]settingsRow)}
}

func (r *fakeSettingsRepo) Get(_ context.Context, key string) ([]byte, time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.getCalls++
	if r.getErr != nil {
		return nil, time.Time{}, r.getErr
	}
	row, ok := r.rows[key]
	if !ok {
		return nil, time.Time{}, repository.ErrNotFound
	}
	return row.value, row.updatedAt, nil
}

func (r *fakeSettingsRepo) Upsert(_ context.Context, key string, value []byte, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[key] = settingsRow{value: value, updatedAt: updatedAt}
	return nil
}

var _ port.SettingsRepository = (*fakeSettingsRepo)(nil)

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*domain.Session)}
}

func (r *fakeSessionRepo) Create(_ context.Context, session domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = &session
	return nil
}

func (r *fakeSessionRepo) GetByTokenHash(_ context.Context, tokenHash string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.TokenHash == tokenHash {
			copied := *s
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeSessionRepo) Touch(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return repository.ErrNotFound
	}
	s.LastSeen = at
	return nil
}

func (r *fakeSessionRepo) Revoke(_ context.Context, id, reason string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return repository.ErrNotFound
	}
	s.Revoke(at, reason)
	return nil
}

func (r *fakeSessionRepo) RevokeAllForUser(_ context.Context, userID int64, exceptID, reason string, at time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var revoked int
	for _, s := range r.sessions {
		if s.UserID != userID || s.ID == exceptID {
			continue
		}
		if s.Revoke(at, reason) {
			revoked++
		}
	}
	return revoked, nil
}

func (r *fakeSessionRepo) active(userID int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int
	for _, s := range r.sessions {
		if s.UserID == userID && s.RevokedAt == nil {
			n++
		}
	}
	return n
}

var _ port.SessionRepository = (*fakeSessionRepo)(nil)

type resetTokenRow struct {
	userID    int64
	expiresAt time.Time
	used      bool
}

type fakeResetTokenRepo struct {
	mu   sync.Mutex
	rows map[string]*resetTokenRow
}

func newFakeResetTokenRepo() *fakeResetTokenRepo {
	return &fakeResetTokenRepo{rows: make(map[string]*resetTokenRow)}
}

func (r *fakeResetTokenRepo) Create(_ context.Context, userID int64, tokenHash string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[tokenHash] = &resetTokenRow{userID: userID, expiresAt: expiresAt}
	return nil
}

func (r *fakeResetTokenRepo) Consume(_ context.Context, tokenHash string, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[tokenHash]
	if !ok {
		return 0, repository.ErrNotFound
	}
	if row.used {
		return 0, repository.ErrTokenUsed
	}
	if !row.expiresAt.After(at) {
		return 0, repository.ErrNotFound
	}
	row.used = true
	return row.userID, nil
}

var _ port.ResetTokenRepository = (*fakeResetTokenRepo)(nil)

type publishedEvents struct {
	mu             sync.Mutex
	registered     []domain.UserRegisteredEvent
	loginAlerts    []domain.LoginAlertEvent
	locked         []domain.AccountLockedEvent
	changed        []domain.PasswordChangedEvent
	resetRequested []domain.PasswordResetRequestedEvent
}

func (p *publishedEvents) PublishUserRegistered(_ context.Context, e domain.UserRegisteredEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.registered = append(p.registered, e)
	return nil
}

func (p *publishedEvents) PublishLoginAlert(_ context.Context, e domain.LoginAlertEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loginAlerts = append(p.loginAlerts, e)
	return nil
}

func (p *publishedEvents) PublishAccountLocked(_ context.Context, e domain.AccountLockedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.locked = append(p.locked, e)
	return nil
}

func (p *publishedEvents) PublishPasswordChanged(_ context.Context, e domain.PasswordChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changed = append(p.changed, e)
	return nil
}

func (p *publishedEvents) PublishPasswordResetRequested(_ context.Context, e domain.PasswordResetRequestedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetRequested = append(p.resetRequested, e)
	return nil
}

func (p *publishedEvents) lockedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.locked)
}

var _ port.EventPublisher = (*publishedEvents)(nil)

type fakeTwoFactor struct {
	required    bool
	requiredErr error
	validCode   string
	deviceToken string
}

func (f *fakeTwoFactor) Required(_ context.Context, _ domain.User, _ string) (bool, error) {
	return f.required, f.requiredErr
}

func (f *fakeTwoFactor) VerifyCode(_ context.Context, _ domain.User, code string) (string, error) {
	if code != f.validCode {
		return "", security.ErrInvalidTOTPCode
	}
	return f.deviceToken, nil
}

var _ port.TwoFactorEvaluator = (*fakeTwoFactor)(nil)

type fakeStore struct {
	mu      sync.Mutex
	counts  map[string]int
	err     error
	limitAt map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{counts: make(map[string]int), limitAt: make(map[string]bool)}
}

func (s *fakeStore) Consume(_ context.Context, key string, points, limit int, window time.Duration) (port.RateLimitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return port.RateLimitResult{}, s.err
	}
	s.counts[key] += points
	allowed := s.counts[key] <= limit
	if !allowed {
		s.limitAt[key] = true
	}
	return port.RateLimitResult{
		Allowed:   allowed,
		Remaining: max(0, limit-s.counts[key]),
		ResetAt:   time.Now().Add(window),
	}, nil
}

func (s *fakeStore) count(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[key]
}

var _ port.RateLimitStore = (*fakeStore)(nil)
