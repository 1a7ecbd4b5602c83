package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/boardbank/internal/model"
	"github.com/mcoot/boardbank/internal/protocol"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Error codes, one per error kind
const (
	CodeValidation        = string(model.KindValidation)
	CodeNotFound          = string(model.KindNotFound)
	CodeCapacityExceeded  = string(model.KindCapacityExceeded)
	CodeInsufficientFunds = string(model.KindInsufficientFunds)
	CodeSameParty         = string(model.KindSameParty)
	CodeInternalError     = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// Status returns the HTTP status WriteError would use for err
func Status(err error) int {
	return toHTTPError(err).status
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	message := protocol.PublicMessage(err)
	switch model.KindOf(err) {
	case model.KindValidation:
		return &httpError{http.StatusBadRequest, APIError{CodeValidation, message}}
	case model.KindNotFound:
		return &httpError{http.StatusNotFound, APIError{CodeNotFound, message}}
	case model.KindCapacityExceeded:
		return &httpError{http.StatusConflict, APIError{CodeCapacityExceeded, message}}
	case model.KindInsufficientFunds:
		return &httpError{http.StatusUnprocessableEntity, APIError{CodeInsufficientFunds, message}}
	case model.KindSameParty:
		return &httpError{http.StatusBadRequest, APIError{CodeSameParty, message}}
	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeValidation, message}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
