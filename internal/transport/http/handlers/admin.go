package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/resumefoundry/auth-core/internal/core/domain"
	"github.com/resumefoundry/auth-core/internal/usecase"
)

// AdminHandler exposes the policy and session configuration endpoints.
type AdminHandler struct {
	policy  *usecase.PolicyService
	sessCfg *usecase.SessionConfigService
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(policy *usecase.PolicyService, sessCfg *usecase.SessionConfigService) *AdminHandler {
	return &AdminHandler{policy: policy, sessCfg: sessCfg}
}

// RegisterRoutes binds the admin endpoints. The group is expected to carry
// authentication and admin-role middleware already.
func (h *AdminHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/password-policy", h.getPasswordPolicy)
	r.PUT("/password-policy", h.updatePasswordPolicy)
	r.GET("/session-config", h.getSessionConfig)
	r.PUT("/session-config", h.updateSessionConfig)
}

func (h *AdminHandler) getPasswordPolicy(c *gin.Context) {
	policy := h.policy.Get(c.Request.Context(), true)
	c.JSON(http.StatusOK, PasswordPolicyPayload{
		MinLength:              policy.MinLength,
		RequireUppercase:       policy.RequireUppercase,
		RequireLowercase:       policy.RequireLowercase,
		RequireNumbers:         policy.RequireNumbers,
		RequireSpecialChars:    policy.RequireSpecialChars,
		ExpiryDays:             policy.ExpiryDays,
		PreventReuseCount:      policy.PreventReuseCount,
		MaxFailedAttempts:      policy.MaxFailedAttempts,
		LockoutDurationMinutes: policy.LockoutDurationMinutes,
		UpdatedAt:              policy.UpdatedAt,
	})
}

func (h *AdminHandler) updatePasswordPolicy(c *gin.Context) {
	var req PasswordPolicyPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid policy payload"))
		return
	}

	policy := domain.PasswordPolicy{
		MinLength:              req.MinLength,
		RequireUppercase:       req.RequireUppercase,
		RequireLowercase:       req.RequireLowercase,
		RequireNumbers:         req.RequireNumbers,
		RequireSpecialChars:    req.RequireSpecialChars,
		ExpiryDays:             req.ExpiryDays,
		PreventReuseCount:      req.PreventReuseCount,
		MaxFailedAttempts:      req.MaxFailedAttempts,
		LockoutDurationMinutes: req.LockoutDurationMinutes,
	}

	if err := h.policy.Update(c.Request.Context(), policy); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: domain.ErrInvalidPolicy, Status: http.StatusUnprocessableEntity, Message: "policy values out of range"},
		}, http.StatusInternalServerError, "policy update failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "password policy updated"})
}

func (h *AdminHandler) getSessionConfig(c *gin.Context) {
	c.JSON(http.StatusOK, sessionConfigPayload(h.sessCfg.Current()))
}

func (h *AdminHandler) updateSessionConfig(c *gin.Context) {
	var req SessionConfigPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid session config payload"))
		return
	}

	cfg := sessionConfigFromPayload(req)
	if err := h.sessCfg.Update(c.Request.Context(), cfg); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: domain.ErrInvalidSessionConfig, Status: http.StatusUnprocessableEntity, Message: "session config values out of range"},
		}, http.StatusInternalServerError, "session config update failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "session config updated"})
}
