package api

import (
	"net/http"

	"github.com/ishan121028/RadiologyAI/internal/api/respond"
)

// The response and error helpers live in the respond subpackage so that
// handler subpackages can use them without importing this package (which
// would create an import cycle through the router). The aliases below
// preserve the original package api surface.

// Error represents an API error response.
type Error = respond.Error

// Response is a standard API response wrapper.
type Response = respond.Response

// Common error codes
const (
	ErrCodeNotFound         = respond.ErrCodeNotFound
	ErrCodeBadRequest       = respond.ErrCodeBadRequest
	ErrCodeConflict         = respond.ErrCodeConflict
	ErrCodeInternalError    = respond.ErrCodeInternalError
	ErrCodeValidationFailed = respond.ErrCodeValidationFailed
)

// Standard errors
var (
	ErrNotFound       = respond.ErrNotFound
	ErrInternalServer = respond.ErrInternalServer
)

// NewBadRequest creates a bad request error with custom message.
func NewBadRequest(message string) *Error { return respond.NewBadRequest(message) }

// NewValidationError creates a validation error with custom message.
func NewValidationError(message string) *Error { return respond.NewValidationError(message) }

// NewConflict creates a conflict error with custom message.
func NewConflict(message string) *Error { return respond.NewConflict(message) }

// NewNotFound creates a not found error with custom message.
func NewNotFound(message string) *Error { return respond.NewNotFound(message) }

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) { respond.JSON(w, status, data) }

// JSONError writes a JSON error response.
func JSONError(w http.ResponseWriter, err *Error) { respond.JSONError(w, err) }

// OK writes a 200 OK response.
func OK(w http.ResponseWriter, data any) { respond.OK(w, data) }
