package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vsinha/fuelrecon/pkg/domain/entities"
	"github.com/vsinha/fuelrecon/pkg/infrastructure/logger"
)

// Error codes returned in ErrorInfo.Code
const (
	ErrCodeBadRequest = "BAD_REQUEST"
	ErrCodeValidation = "VALIDATION_ERROR"
	ErrCodeNotFound   = "NOT_FOUND"
	ErrCodeConflict   = "LOT_CONFLICT"
	ErrCodeRouting    = "ROUTING_NOT_FOUND"
	ErrCodeTimeout    = "TIMEOUT"
	ErrCodeInternal   = "INTERNAL_ERROR"
)

// Response is the envelope of every JSON answer
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

// ErrorInfo describes a failed request
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Response{Error: &ErrorInfo{Code: ErrCodeBadRequest, Message: message}})
}

// fail maps domain errors onto status codes. data is returned alongside the
// error when a batch partially succeeded.
func fail(c *gin.Context, err error, data interface{}) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		logger.FromGin(c).Error("request failed", zap.Error(err))
	}
	_ = c.Error(err)
	c.JSON(status, Response{Data: data, Error: &ErrorInfo{Code: code, Message: err.Error()}})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, entities.ErrValidation):
		return http.StatusBadRequest, ErrCodeValidation
	case errors.Is(err, entities.ErrNotFound):
		return http.StatusNotFound, ErrCodeNotFound
	case errors.Is(err, entities.ErrLotConflict):
		return http.StatusConflict, ErrCodeConflict
	case errors.Is(err, entities.ErrRoutingNotFound):
		return http.StatusUnprocessableEntity, ErrCodeRouting
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ErrCodeTimeout
	default:
		return http.StatusInternalServerError, ErrCodeInternal
	}
}
