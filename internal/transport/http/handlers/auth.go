package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/resumefoundry/auth-core/internal/transport/http/middleware"
	"github.com/resumefoundry/auth-core/internal/usecase"
)

const rememberedDeviceCookie = "authcore_device"

// CookieWriter supplies the resolved cookie recipe for session cookies.
type CookieWriter interface {
	Cookie() usecase.CookieProfile
}

// AuthHandler exposes the login, logout, and registration endpoints.
type AuthHandler struct {
	auth         *usecase.AuthService
	registration *usecase.RegistrationService
	cookies      CookieWriter
	metrics      *middleware.HTTPMetrics
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth *usecase.AuthService, registration *usecase.RegistrationService, cookies CookieWriter, metrics *middleware.HTTPMetrics) *AuthHandler {
	return &AuthHandler{
		auth:         auth,
		registration: registration,
		cookies:      cookies,
		metrics:      metrics,
	}
}

// RegisterRoutes binds authentication routes, applying optional middleware
// ahead of the registration handler.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, registerMiddlewares ...gin.HandlerFunc) {
	r.POST("/login", h.login)
	r.POST("/logout", h.logout)

	chain := append([]gin.HandlerFunc{}, registerMiddlewares...)
	chain = append(chain, h.register)
	r.POST("/register", chain...)
}

func (h *AuthHandler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid login payload"))
		return
	}

	reqCtx := middleware.GetRequestContext(c)
	input := usecase.LoginInput{
		Identifier: req.Identifier,
		Password:   req.Password,
		TOTPCode:   req.TOTPCode,
	}
	if reqCtx.IP != "" {
		input.IP = &reqCtx.IP
	}
	if reqCtx.UserAgent != "" {
		input.UserAgent = &reqCtx.UserAgent
	}
	if device, err := c.Cookie(rememberedDeviceCookie); err == nil {
		input.RememberedDevice = device
	}

	result, err := h.auth.Login(c.Request.Context(), input)
	if err != nil {
		h.respondLoginError(c, err)
		return
	}

	if result.RequiresTwoFactor {
		h.metrics.ObserveLogin("two_factor_required")
		c.JSON(http.StatusUnauthorized, TwoFactorResponse{
			Message:           "two-factor code required",
			RequiresTwoFactor: true,
		})
		return
	}

	profile := h.cookies.Cookie()
	h.setCookie(c, profile, profile.Name, result.Token, profile.MaxAge)
	if result.RememberedDevice != "" {
		// Device cookie outlives the session so the next login can skip the challenge.
		h.setCookie(c, profile, rememberedDeviceCookie, result.RememberedDevice, 30*24*3600)
	}

	h.metrics.ObserveLogin("success")
	c.JSON(http.StatusOK, LoginResponse{
		User: userSummary(result.User),
		Session: SessionSummary{
			ID:        result.Session.ID,
			CreatedAt: result.Session.CreatedAt,
			ExpiresAt: result.Session.ExpiresAt,
		},
		PasswordExpired: result.PasswordExpired,
	})
}

func (h *AuthHandler) respondLoginError(c *gin.Context, err error) {
	var exceeded *usecase.RateLimitExceededError
	if errors.As(err, &exceeded) {
		h.metrics.ObserveLogin("rate_limited")
		middleware.RespondRateLimited(c, exceeded.RetryAfter, exceeded.ResetAt)
		return
	}

	var locked *usecase.AccountLockedError
	if errors.As(err, &locked) {
		h.metrics.ObserveLogin("locked")
		c.Header("Retry-After", retryAfterSeconds(locked.RetryAfter))
		c.JSON(http.StatusForbidden, NewErrorResponse(c, "account temporarily locked"))
		return
	}

	if errors.Is(err, usecase.ErrInvalidCredentials) {
		h.metrics.ObserveLogin("invalid_credentials")
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid credentials"))
		return
	}

	h.metrics.ObserveLogin("error")
	c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "login failed"))
}

func (h *AuthHandler) logout(c *gin.Context) {
	token, _ := c.Cookie(middleware.SessionCookieName)
	if err := h.auth.Logout(c.Request.Context(), token); err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "logout failed"))
		return
	}

	profile := h.cookies.Cookie()
	h.setCookie(c, profile, profile.Name, "", -1)
	c.JSON(http.StatusOK, MessageResponse{Message: "logged out"})
}

func (h *AuthHandler) register(c *gin.Context) {
	var req RegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid registration payload"))
		return
	}

	user, err := h.registration.Register(c.Request.Context(), usecase.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAccountExists, Status: http.StatusConflict, Message: "username or email already in use"},
		}, http.StatusInternalServerError, "registration failed")
		return
	}

	c.JSON(http.StatusCreated, RegistrationResponse{User: userSummary(user)})
}

func (h *AuthHandler) setCookie(c *gin.Context, profile usecase.CookieProfile, name, value string, maxAge int) {
	c.SetSameSite(profile.SameSite)
	c.SetCookie(name, value, maxAge, profile.Path, profile.Domain, profile.Secure, profile.HTTPOnly)
}

func retryAfterSeconds(d time.Duration) string {
	seconds := int(math.Ceil(d.Seconds()))
	if seconds < 0 {
		seconds = 0
	}
	return strconv.Itoa(seconds)
}
