package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/resumefoundry/auth-core/internal/transport/http/middleware"
	"github.com/resumefoundry/auth-core/internal/usecase"
)

// ErrorCase maps a sentinel error to an HTTP status code and response message.
type ErrorCase struct {
	Err     error
	Status  int
	Message string
}

// RespondWithMappedError resolves the provided error against known cases or
// falls back to a generic response. Policy violations get a structured payload
// carrying every failed rule.
func RespondWithMappedError(c *gin.Context, err error, cases []ErrorCase, fallbackStatus int, fallbackMessage string) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}

	var pv *usecase.PolicyViolationError
	if errors.As(err, &pv) {
		violations := make([]RuleViolation, 0, len(pv.Violations))
		for _, v := range pv.Violations {
			violations = append(violations, RuleViolation{Code: v.Code, Message: v.Message})
		}
		c.JSON(http.StatusUnprocessableEntity, ValidationErrorResponse{
			Error:      "password does not meet the policy",
			Violations: violations,
			TraceID:    middleware.GetTraceID(c),
		})
		return
	}

	for _, cs := range cases {
		if cs.Err == nil {
			continue
		}
		if errors.Is(err, cs.Err) {
			c.JSON(cs.Status, NewErrorResponse(c, cs.Message))
			return
		}
	}

	c.JSON(fallbackStatus, NewErrorResponse(c, fallbackMessage))
}
