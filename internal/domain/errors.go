package domain

import (
	"fmt"
	"net/http"
)

// ErrorKind is a stable failure category surfaced to callers, decoupled
// from the HTTP status codes of any single upstream provider.
type ErrorKind string

const (
	KindUnauthenticated     ErrorKind = "unauthenticated"
	KindQuotaExceeded       ErrorKind = "quota_exceeded"
	KindConfigurationError  ErrorKind = "configuration_error"
	KindValidationError     ErrorKind = "validation_error"
	KindBadRequest          ErrorKind = "provider_bad_request"
	KindAuthFailed          ErrorKind = "provider_auth_failed"
	KindAccessDenied        ErrorKind = "provider_access_denied"
	KindModelNotFound       ErrorKind = "provider_model_not_found"
	KindEndpointDeprecated  ErrorKind = "provider_endpoint_deprecated"
	KindRateLimited         ErrorKind = "provider_rate_limited"
	KindModelLoading        ErrorKind = "provider_model_loading"
	KindServerError         ErrorKind = "provider_server_error"
	KindResponseFormatError ErrorKind = "provider_response_format_error"
	KindUpstreamError       ErrorKind = "upstream_error"
	KindStorageError        ErrorKind = "storage_error"
)

// Failure is a typed gateway error: a kind plus a human-readable message.
type Failure struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// HTTPStatus derives the response status code for a failure kind.
// The external HTTP layer uses this mapping; the kinds themselves stay
// provider-agnostic.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindUnauthenticated, KindAuthFailed:
		return http.StatusUnauthorized
	case KindQuotaExceeded, KindAccessDenied:
		return http.StatusForbidden
	case KindValidationError, KindBadRequest:
		return http.StatusBadRequest
	case KindModelNotFound:
		return http.StatusNotFound
	case KindEndpointDeprecated:
		return http.StatusGone
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindConfigurationError, KindStorageError:
		return http.StatusInternalServerError
	case KindModelLoading:
		return http.StatusServiceUnavailable
	default:
		// ServerError, ResponseFormatError, UpstreamError and anything unknown.
		return http.StatusBadGateway
	}
}

// Retryable reports whether the caller may reasonably retry the request
// later without changing it.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindRateLimited, KindModelLoading, KindServerError, KindStorageError, KindUpstreamError:
		return true
	}
	return false
}
