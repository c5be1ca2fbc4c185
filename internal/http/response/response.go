package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/xai-decision-backend/internal/domain/aggregates"
	"github.com/yungbote/xai-decision-backend/internal/platform/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondDomainError maps a services error onto an HTTP status by its code.
// Internal errors never leak their message.
func RespondDomainError(c *gin.Context, err error) {
	var apiErr *apierr.Error
	if errors.As(err, &apiErr) {
		RespondError(c, apiErr.Status, apiErr.Code, apiErr)
		return
	}
	code := aggregates.CodeOf(err)
	status := StatusFor(code)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		c.JSON(status, ErrorEnvelope{Error: APIError{Message: "internal error", Code: string(aggregates.CodeInternal)}})
		return
	}
	c.JSON(status, ErrorEnvelope{Error: APIError{Message: aggregates.MessageOf(err), Code: string(code)}})
}

func StatusFor(code aggregates.ErrorCode) int {
	switch code {
	case aggregates.CodeValidation:
		return http.StatusUnprocessableEntity
	case aggregates.CodeNotFound:
		return http.StatusNotFound
	case aggregates.CodeInvalidState:
		return http.StatusConflict
	case aggregates.CodeModelUnavailable:
		return http.StatusServiceUnavailable
	case aggregates.CodeParseFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}
