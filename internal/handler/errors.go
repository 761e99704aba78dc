package handler

import (
	"fmt"
	"net/http"

	"github.com/mkfa/plannr-relay/internal/envelope"
	"github.com/mkfa/plannr-relay/internal/models"
	"github.com/pkg/errors"
)

// InvalidRequestError is returned when required caller input is missing. No upstream call is made.
type InvalidRequestError struct {
	Message string
}

func (e *InvalidRequestError) Error() string {
	return e.Message
}

// UnauthorizedError is returned when a bearer-protected route is called without a usable bearer token.
type UnauthorizedError struct {
	Message string
}

func (e *UnauthorizedError) Error() string {
	return e.Message
}

// UpstreamError carries an unsuccessful upstream status and the body that came with it.
type UpstreamError struct {
	StatusCode int
	Payload    envelope.Payload
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream call failed with status %d", e.StatusCode)
}

// InternalError wraps any unexpected failure. Prefix names the operation that failed.
type InternalError struct {
	Prefix string
	Cause  error
}

func (e *InternalError) Error() string {
	if e.Prefix == "" {
		return e.Cause.Error()
	}
	return fmt.Sprintf("%s: %v", e.Prefix, e.Cause)
}

func (e *InternalError) Unwrap() error {
	return e.Cause
}

// NewInternalError wraps cause with an operation prefix.
func NewInternalError(prefix string, cause error) error {
	return &InternalError{Prefix: prefix, Cause: cause}
}

var errUnauthorized = &UnauthorizedError{Message: "Missing or invalid Authorization header"}

// StatusCode maps err to the HTTP status reported to the caller.
func StatusCode(err error) int {
	var (
		invalid      *InvalidRequestError
		unauthorized *UnauthorizedError
		upstream     *UpstreamError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &invalid):
		return http.StatusBadRequest
	case errors.As(err, &unauthorized):
		return http.StatusUnauthorized
	case errors.As(err, &upstream):
		return upstream.StatusCode
	default:
		return http.StatusInternalServerError
	}
}

// renderError converts err into the JSON body returned to the caller.
func renderError(err error) models.Response {
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return jsonResponse(upstream.StatusCode, envelope.NewUpstreamFailure(upstream.StatusCode, upstream.Payload))
	}
	return jsonResponse(StatusCode(err), envelope.ErrorBody{Error: err.Error()})
}
