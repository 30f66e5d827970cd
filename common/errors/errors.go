package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/storefront/common/logger"
)

// Error represents an application error. Code is the HTTP status it maps to.
type Error struct {
	Code    int    `json:"-"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code, so the
// sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Status is the envelope status: "fail" for client errors, "error" otherwise.
func (e *Error) Status() string {
	if e.Code >= 400 && e.Code < 500 {
		return "fail"
	}
	return "error"
}

// JSON returns the error as a JSON string
func (e *Error) JSON() string {
	b, _ := json.Marshal(e)
	return string(b)
}

// New creates a new Error
func New(code int, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// BadRequest builds a 400 error with a formatted message.
func BadRequest(format string, args ...any) *Error {
	return New(http.StatusBadRequest, fmt.Sprintf(format, args...), nil)
}

// NotFound builds a 404 error with a formatted message.
func NotFound(format string, args ...any) *Error {
	return New(http.StatusNotFound, fmt.Sprintf(format, args...), nil)
}

func Unauthorized(message string) *Error {
	return New(http.StatusUnauthorized, message, nil)
}

func Forbidden(message string) *Error {
	return New(http.StatusForbidden, message, nil)
}

// Internal wraps an unexpected failure.
func Internal(err error) *Error {
	return New(http.StatusInternalServerError, "Something went wrong!", err)
}

// From returns err as an *Error, classifying anything unknown as internal.
func From(err error) *Error {
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

// Common error types
var (
	ErrBadRequest   = New(http.StatusBadRequest, "Bad request", nil)
	ErrUnauthorized = New(http.StatusUnauthorized, "Unauthorized", nil)
	ErrForbidden    = New(http.StatusForbidden, "Forbidden", nil)
	ErrNotFound     = New(http.StatusNotFound, "Not found", nil)
	ErrTooMany      = New(http.StatusTooManyRequests, "Too many requests, please try again later", nil)
	ErrInternal     = New(http.StatusInternalServerError, "Internal server error", nil)
)

// ErrorMiddleware is the single place failures become responses. Handlers
// report with c.Error and return.
func ErrorMiddleware(development bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		appErr := From(c.Errors.Last().Err)
		body := gin.H{
			"status":  appErr.Status(),
			"message": appErr.Message,
		}
		if appErr.Code >= http.StatusInternalServerError {
			logger.Error(c, "request failed", appErr.Err)
			if development && appErr.Err != nil {
				body["message"] = appErr.Err.Error()
			}
		}
		if development && appErr.Err != nil {
			body["error"] = appErr.Err.Error()
		}

		c.AbortWithStatusJSON(appErr.Code, body)
	}
}
