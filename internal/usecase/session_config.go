package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/resumefoundry/auth-core/internal/core/domain"
	"github.com/resumefoundry/auth-core/internal/core/port"
	"github.com/resumefoundry/auth-core/internal/infra/config"
)

const sessionConfigSettingsKey = "session_config"

// CookieProfile is the fully resolved cookie recipe derived from the active
// session configuration and environment overrides. Handlers use it verbatim
// when setting or clearing the session cookie.
type CookieProfile struct {
	Name     string
	Domain   string
	Path     string
	MaxAge   int
	Secure   bool
	HTTPOnly bool
	SameSite http.SameSite
}

// SessionConfigService is the single authority for session and cookie rules.
// It loads the durable configuration once at startup and keeps the active
// snapshot behind an atomic pointer so request-path reads take no lock; admin
// updates persist and then swap the snapshot wholesale.
type SessionConfigService struct {
	settings port.SettingsRepository
	env      config.SessionSettings
	prod     bool
	logger   *zap.Logger

	current atomic.Pointer[domain.SessionConfig]
}

// NewSessionConfigService constructs the authority. Call Load before serving
// requests.
func NewSessionConfigService(settings port.SettingsRepository, env config.SessionSettings, production bool, log *zap.Logger) *SessionConfigService {
	if log == nil {
		log = zap.NewNop()
	}
	s := &SessionConfigService{
		settings: settings,
		env:      env,
		prod:     production,
		logger:   log,
	}
	cfg := domain.DefaultSessionConfig()
	s.current.Store(&cfg)
	return s
}

// Load fetches the durable configuration and installs it as the active
// snapshot. A missing or unreadable settings row is not fatal: the service
// keeps the safe defaults and reports the problem for the startup log.
func (s *SessionConfigService) Load(ctx context.Context) error {
	value, _, err := s.settings.Get(ctx, sessionConfigSettingsKey)
	if err != nil {
		return fmt.Errorf("load session config: %w", err)
	}

	var cfg domain.SessionConfig
	if err := json.Unmarshal(value, &cfg); err != nil {
		return fmt.Errorf("decode session config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("stored session config invalid: %w", err)
	}

	s.install(cfg)
	return nil
}

// Current returns the active snapshot. Lock-free; safe from any goroutine.
func (s *SessionConfigService) Current() domain.SessionConfig {
	return *s.current.Load()
}

// Update validates, persists, and atomically swaps in the new configuration.
// Sessions issued before the swap keep their original lifetimes.
func (s *SessionConfigService) Update(ctx context.Context, cfg domain.SessionConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	value, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal session config: %w", err)
	}
	if err := s.settings.Upsert(ctx, sessionConfigSettingsKey, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("persist session config: %w", err)
	}

	s.install(cfg)
	return nil
}

// Cookie derives the cookie recipe from the active snapshot. Environment
// overrides win over the stored configuration, production forces Secure unless
// explicitly disabled, and SameSite=none always forces Secure regardless of
// any override because browsers reject the pair otherwise.
func (s *SessionConfigService) Cookie() CookieProfile {
	cfg := s.Current()

	sameSite := cfg.CookieSameSite
	if s.env.CookieSameSite != "" {
		sameSite = s.env.CookieSameSite
	}

	domainName := cfg.CookieDomain
	if s.env.CookieDomain != "" {
		domainName = s.env.CookieDomain
	}

	path := cfg.CookiePath
	if path == "" {
		path = "/"
	}

	secure := cfg.CookieSecure
	if s.prod {
		secure = true
	}
	if s.env.DisableSecure {
		secure = false
	}
	if strings.EqualFold(sameSite, "none") {
		secure = true
	}

	return CookieProfile{
		Name:     "authcore_session",
		Domain:   domainName,
		Path:     path,
		MaxAge:   int(cfg.MaxAge / time.Second),
		Secure:   secure,
		HTTPOnly: true,
		SameSite: parseSameSite(sameSite),
	}
}

func (s *SessionConfigService) install(cfg domain.SessionConfig) {
	s.current.Store(&cfg)
	if strings.EqualFold(cfg.CookieSameSite, "none") && !cfg.CookieSecure {
		s.logger.Warn("session config requests SameSite=none without secure cookies; secure will be forced")
	}
}

func parseSameSite(v string) http.SameSite {
	switch strings.ToLower(v) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	case "lax", "":
		return http.SameSiteLaxMode
	default:
		return http.SameSiteDefaultMode
	}
}
