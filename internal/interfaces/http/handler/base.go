package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	appmetering "github.com/fieldline/backend/internal/application/metering"
	"github.com/fieldline/backend/internal/domain/shared"
	"github.com/fieldline/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// BaseHandler provides common functionality for all handlers
type BaseHandler struct {
	logger *zap.Logger
}

// NewBaseHandler creates a new base handler
func NewBaseHandler(logger *zap.Logger) BaseHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return BaseHandler{logger: logger}
}

// getRequestID extracts the request ID set by the RequestID middleware
func (h *BaseHandler) getRequestID(c *gin.Context) string {
	return c.GetString("request_id")
}

// Success writes a 200 response with the standard envelope
func (h *BaseHandler) Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta writes a 200 response with pagination metadata
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data interface{}, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created writes a 201 response with the standard envelope
func (h *BaseHandler) Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error writes an error response with an explicit status and code
func (h *BaseHandler) Error(c *gin.Context, status int, code, message string) {
	c.JSON(status, dto.NewErrorResponseWithRequestID(code, message, h.getRequestID(c)))
}

// BadRequest writes a 400 response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// BindingError writes a 400 response for a failed request binding. Field
// validation failures get per-field messages; anything else (malformed
// JSON, wrong types) falls back to the raw binding error.
func (h *BaseHandler) BindingError(c *gin.Context, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		messages := make([]string, 0, len(validationErrs))
		for _, fieldErr := range validationErrs {
			messages = append(messages, fmt.Sprintf(
				"field '%s' failed validation '%s'", fieldErr.Field(), fieldErr.Tag(),
			))
		}
		h.Error(c, http.StatusBadRequest, dto.ErrCodeValidation, strings.Join(messages, "; "))
		return
	}
	h.BadRequest(c, "Invalid request body: "+err.Error())
}

// NotFound writes a 404 response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// Unauthorized writes a 401 response
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
}

// InternalError writes a 500 response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// HandleError maps an application error to the appropriate HTTP response.
// Quota denials get the dedicated flat 429 body so API clients can read
// usage telemetry without unwrapping the envelope; domain errors map
// through the error code table; everything else is a 500.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	var quotaErr *appmetering.QuotaExceededError
	if errors.As(err, &quotaErr) {
		c.JSON(http.StatusTooManyRequests, dto.QuotaExceededResponse{
			Error:          "Usage limit exceeded",
			Message:        quotaErr.Message,
			CurrentUsage:   quotaErr.Decision.CurrentUsage,
			Limit:          quotaErr.Decision.Limit,
			PercentageUsed: quotaErr.Decision.PercentUsed,
		})
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		h.Error(c, dto.GetHTTPStatus(code), code, domainErr.Message)
		return
	}

	log := h.logger
	if log == nil {
		log = zap.NewNop()
	}
	log.Error("Unhandled error",
		zap.String("path", c.FullPath()),
		zap.String("request_id", h.getRequestID(c)),
		zap.Error(err))
	h.InternalError(c, "An internal error occurred")
}
