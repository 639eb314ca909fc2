package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/your-org/marketplace-api/internal/pkg/apperror"
	"github.com/your-org/marketplace-api/internal/pkg/validation"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

// ErrorHandler renders the last error recorded on the context
func ErrorHandler(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		appErr := Classify(c.Errors.Last().Err)
		if appErr.HTTPStatus() >= http.StatusInternalServerError && log != nil {
			log.WithFields(logrus.Fields{
				"request_id": c.GetString(requestIDKey),
				"method":     c.Request.Method,
				"path":       c.Request.URL.Path,
				"code":       appErr.Code(),
			}).WithError(appErr).Error("request failed")
		}
		WriteError(c, appErr)
	}
}

// Classify turns binding, context and untyped errors into typed errors
func Classify(err error) *apperror.Error {
	if typed := apperror.As(err); typed != nil {
		return typed
	}

	var verrs validator.ValidationErrors
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &verrs):
		return apperror.Validation("validation failed").WithDetails(validation.Details(verrs))
	case errors.As(err, &maxBytesErr):
		return apperror.Validation("request body too large")
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return apperror.Wrap(apperror.CodeValidation, err, "malformed JSON body")
	case errors.As(err, &typeErr):
		return apperror.Wrap(apperror.CodeValidation, err, "invalid value for "+typeErr.Field).
			WithDetails(map[string]string{typeErr.Field: "has the wrong type"})
	case errors.Is(err, io.EOF):
		return apperror.Validation("request body is required")
	case errors.Is(err, context.DeadlineExceeded):
		return apperror.Wrap(apperror.CodeDependency, err, "request timed out")
	case errors.Is(err, context.Canceled):
		return apperror.Wrap(apperror.CodeCanceled, err, "request canceled")
	}
	return apperror.From(err)
}

// WriteError aborts the request with the JSON error body
func WriteError(c *gin.Context, err *apperror.Error) {
	body := ErrorResponse{
		Error: err.PublicMessage(),
		Code:  string(err.Code()),
	}
	if apperror.MetadataFor(err.Code()).DetailsAllowed {
		body.Details = err.Details()
	}
	c.AbortWithStatusJSON(err.HTTPStatus(), body)
}

// NotFound renders unknown routes as JSON
func NotFound() gin.HandlerFunc {
	return func(c *gin.Context) {
		WriteError(c, apperror.NotFound("route not found"))
	}
}

// MethodNotAllowed renders a known path with the wrong method as JSON
func MethodNotAllowed() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusMethodNotAllowed, ErrorResponse{
			Error: "method not allowed",
			Code:  string(apperror.CodeInvalidState),
		})
	}
}
