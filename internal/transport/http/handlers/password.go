package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/resumefoundry/auth-core/internal/transport/http/middleware"
	"github.com/resumefoundry/auth-core/internal/usecase"
)

// PasswordHandler exposes credential rotation endpoints.
type PasswordHandler struct {
	passwords *usecase.PasswordService
	isDev     bool
}

// NewPasswordHandler constructs PasswordHandler. isDev enables returning reset
// tokens in responses instead of relying on out-of-band delivery.
func NewPasswordHandler(passwords *usecase.PasswordService, isDev bool) *PasswordHandler {
	return &PasswordHandler{passwords: passwords, isDev: isDev}
}

// ChangePassword rotates the password of the authenticated user.
func (h *PasswordHandler) ChangePassword(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req PasswordChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid password change payload"))
		return
	}

	keepSessionID := ""
	if session, ok := middleware.CurrentSession(c); ok {
		keepSessionID = session.ID
	}

	err := h.passwords.Change(c.Request.Context(), user.ID, req.CurrentPassword, req.NewPassword, keepSessionID)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "current password is incorrect"},
			{Err: usecase.ErrPasswordReused, Status: http.StatusUnprocessableEntity, Message: "password was used recently"},
		}, http.StatusInternalServerError, "password change failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "password changed"})
}

// ForgotPassword starts the reset flow. The response is identical for known
// and unknown identifiers.
func (h *PasswordHandler) ForgotPassword(c *gin.Context) {
	var req PasswordForgotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid payload"))
		return
	}

	reqCtx := middleware.GetRequestContext(c)
	var ip *string
	if reqCtx.IP != "" {
		ip = &reqCtx.IP
	}

	token, err := h.passwords.Forgot(c.Request.Context(), req.Identifier, ip)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "reset request failed"))
		return
	}

	resp := PasswordForgotResponse{Message: "if the account exists, reset instructions have been sent"}
	if h.isDev && token != "" {
		resp.ResetToken = token
	}
	c.JSON(http.StatusAccepted, resp)
}

// ResetPassword consumes a reset token and installs the new password.
func (h *PasswordHandler) ResetPassword(c *gin.Context) {
	var req PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid payload"))
		return
	}

	err := h.passwords.Reset(c.Request.Context(), req.Token, req.NewPassword)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrResetTokenInvalid, Status: http.StatusBadRequest, Message: "reset token invalid or expired"},
			{Err: usecase.ErrPasswordReused, Status: http.StatusUnprocessableEntity, Message: "password was used recently"},
		}, http.StatusInternalServerError, "password reset failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "password reset"})
}
