package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/xuanlam2007/scholium/internal/service"
	"github.com/xuanlam2007/scholium/internal/timeslot"
)

// errorResponse тело ответа с ошибкой
type errorResponse struct {
	Error  string       `json:"error"`
	Code   string       `json:"code"`
	Fields []FieldError `json:"fields,omitempty"`
}

// StatusFor HTTP-статус для доменной ошибки
func StatusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrPermissionDenied),
		errors.Is(err, service.ErrNotMember),
		errors.Is(err, service.ErrHostCannotQuit),
		errors.Is(err, service.ErrCannotModifyHost):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case timeslot.IsValidationError(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrInvalidAccessID),
		errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ErrorMessage пользовательское сообщение для ошибки
func ErrorMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrPermissionDenied):
		return "you do not have permission to do this"
	case errors.Is(err, service.ErrNotMember):
		return "you are not a member of this scholium"
	case errors.Is(err, service.ErrNotFound):
		return "not found"
	case errors.Is(err, service.ErrInvalidAccessID):
		return "invalid access id"
	case StatusFor(err) == http.StatusInternalServerError:
		return "internal error"
	default:
		return err.Error()
	}
}

// fail отвечает ошибкой; 5xx пишется в лог
func (h *Handlers) fail(c *gin.Context, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, errorResponse{
		Error: ErrorMessage(err),
		Code:  service.ErrorCode(err),
	})
}

func badRequest(c *gin.Context, message string, fields ...FieldError) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{
		Error:  message,
		Code:   service.CodeInvalidInput,
		Fields: fields,
	})
}
