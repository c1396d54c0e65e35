// Package response standardizes the JSON envelope of the HTTP API.
package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/alexms1504/trade-assistant/broker"
	"github.com/alexms1504/trade-assistant/orders"
	"github.com/alexms1504/trade-assistant/risk"
)

// Response is the standardized API envelope.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// Error carries a machine-readable code alongside the message.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes
const (
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeValidationFailed   = "VALIDATION_FAILED"
	ErrCodeGatewayUnavailable = "GATEWAY_UNAVAILABLE"
	ErrCodeOrderRejected      = "ORDER_REJECTED"
	ErrCodeInternalError      = "INTERNAL_ERROR"
)

// Handle maps domain errors to the appropriate response.
func Handle(c *gin.Context, data interface{}, err error) {
	if err == nil {
		Success(c, data)
		return
	}

	var (
		qualification *broker.QualificationError
		allocation    *risk.AllocationError
		rejected      *orders.RejectedError
	)
	switch {
	case errors.Is(err, orders.ErrOrderNotFound):
		NotFound(c, err.Error())
	case errors.Is(err, broker.ErrNotConnected):
		GatewayUnavailable(c, err.Error())
	case errors.As(err, &qualification), errors.As(err, &allocation):
		BadRequest(c, err.Error())
	case errors.As(err, &rejected):
		// The submission itself worked; the broker refused the orders.
		OrderRejected(c, err.Error())
	default:
		InternalError(c, err.Error())
	}
}

// Success sends a successful response.
func Success(c *gin.Context, data interface{}) {
	status := http.StatusOK
	if c.Request.Method == http.MethodPost {
		status = http.StatusCreated
	}

	c.JSON(status, Response{
		Success: true,
		Data:    data,
	})
}

// NotFound sends a 404 response.
func NotFound(c *gin.Context, message string) {
	c.JSON(http.StatusNotFound, Response{
		Success: false,
		Error:   &Error{Code: ErrCodeNotFound, Message: message},
	})
}

// BadRequest sends a 400 response.
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Response{
		Success: false,
		Error:   &Error{Code: ErrCodeBadRequest, Message: message},
	})
}

// ValidationFailed sends a 422 response for trades the rule pipeline
// refused.
func ValidationFailed(c *gin.Context, message string) {
	c.JSON(http.StatusUnprocessableEntity, Response{
		Success: false,
		Error:   &Error{Code: ErrCodeValidationFailed, Message: message},
	})
}

// OrderRejected sends a 422 response for orders the broker cancelled.
func OrderRejected(c *gin.Context, message string) {
	c.JSON(http.StatusUnprocessableEntity, Response{
		Success: false,
		Error:   &Error{Code: ErrCodeOrderRejected, Message: message},
	})
}

// GatewayUnavailable sends a 503 response.
func GatewayUnavailable(c *gin.Context, message string) {
	c.JSON(http.StatusServiceUnavailable, Response{
		Success: false,
		Error:   &Error{Code: ErrCodeGatewayUnavailable, Message: message},
	})
}

// InternalError sends a 500 response.
func InternalError(c *gin.Context, message string) {
	c.JSON(http.StatusInternalServerError, Response{
		Success: false,
		Error:   &Error{Code: ErrCodeInternalError, Message: message},
	})
}
