package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	agentdomain "github.com/smallbiznis/realtyledger/internal/agent/domain"
	auditdomain "github.com/smallbiznis/realtyledger/internal/audit/domain"
	authdomain "github.com/smallbiznis/realtyledger/internal/auth/domain"
	"github.com/smallbiznis/realtyledger/internal/authorization"
	"github.com/smallbiznis/realtyledger/internal/commission"
	"github.com/smallbiznis/realtyledger/internal/reconcile"
	reportdomain "github.com/smallbiznis/realtyledger/internal/report/domain"
	saledomain "github.com/smallbiznis/realtyledger/internal/sale/domain"
	"github.com/smallbiznis/realtyledger/pkg/db/pagination"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrTooManyRequests    = errors.New("too_many_requests")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

// validationSentinels lists every domain error that is caused by caller
// input. The first match decides the error code reported to the client.
var validationSentinels = []error{
	ErrInvalidRequest,
	agentdomain.ErrInvalidName,
	agentdomain.ErrInvalidEmail,
	agentdomain.ErrInvalidPassword,
	agentdomain.ErrInvalidCommissionSplit,
	agentdomain.ErrInvalidLevel,
	agentdomain.ErrInvalidTotalSales,
	agentdomain.ErrInvalidID,
	commission.ErrInvalidPercentage,
	commission.ErrInvalidSplit,
	saledomain.ErrInvalidID,
	saledomain.ErrInvalidAgent,
	saledomain.ErrInvalidCustomerName,
	saledomain.ErrInvalidProductName,
	saledomain.ErrInvalidAmount,
	saledomain.ErrInvalidStatus,
	saledomain.ErrInvalidSort,
	saledomain.ErrInvalidTimeRange,
	saledomain.ErrInvalidPageToken,
	reportdomain.ErrInvalidAgent,
	reconcile.ErrInvalidID,
	auditdomain.ErrInvalidPageToken,
	auditdomain.ErrInvalidTimeRange,
	auditdomain.ErrInvalidAction,
	pagination.ErrInvalidPageToken,
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

// classifyErrorForLog reports the envelope type and code the request logger
// attaches to failed requests.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authdomain.ErrInvalidCredentials),
		errors.Is(err, authdomain.ErrInvalidToken),
		errors.Is(err, authdomain.ErrTokenExpired),
		errors.Is(err, agentdomain.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden),
		errors.Is(err, authorization.ErrInvalidActor):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, ErrConflict),
		errors.Is(err, agentdomain.ErrEmailExists):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictMessage(err),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: notFoundMessage(err),
		}
	case errors.Is(err, ErrTooManyRequests):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	return matchValidationSentinel(err) != nil
}

func matchValidationSentinel(err error) error {
	for _, sentinel := range validationSentinels {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}
	return nil
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, agentdomain.ErrNotFound),
		errors.Is(err, saledomain.ErrNotFound),
		errors.Is(err, saledomain.ErrAgentNotFound),
		errors.Is(err, reportdomain.ErrNotFound),
		errors.Is(err, reconcile.ErrNotFound),
		errors.Is(err, authdomain.ErrAdminLoginDisabled),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func notFoundMessage(err error) string {
	if errors.Is(err, saledomain.ErrAgentNotFound) {
		return "agent not found"
	}
	return "not found"
}

func conflictMessage(err error) string {
	if errors.Is(err, agentdomain.ErrEmailExists) {
		return "email already in use"
	}
	return "conflict"
}

func validationErrorCode(err error) string {
	if sentinel := matchValidationSentinel(err); sentinel != nil {
		return sentinel.Error()
	}
	return "invalid_request"
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "invalid_commission_split":
		return "agent and organization percentages must each be between 0 and 100 and sum to 100"
	case "invalid_amount":
		return "amount must not be negative"
	default:
		return "invalid value"
	}
}
