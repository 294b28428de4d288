package domain

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Identity tests ---

func TestIdentityIsNone(t *testing.T) {
	assert.True(t, None.IsNone())
	assert.True(t, Identity("").IsNone())
	assert.False(t, Identity("alice@example.com").IsNone())
	assert.False(t, Identity("session_abc").IsNone())
}

// --- UsageRecord tests ---

func TestUsageRecordRemaining(t *testing.T) {
	tests := []struct {
		name string
		rec  UsageRecord
		want int
	}{
		{"fresh", UsageRecord{PromptCount: 0, Cap: 5}, 5},
		{"partial", UsageRecord{PromptCount: 3, Cap: 5}, 2},
		{"full", UsageRecord{PromptCount: 5, Cap: 5}, 0},
		{"over cap clamps to zero", UsageRecord{PromptCount: 7, Cap: 5}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rec.Remaining())
		})
	}
}

// --- CompletionResult tests ---

func TestCompletionResultSuccess(t *testing.T) {
	res := Success("hello")
	assert.True(t, res.OK())
	assert.Equal(t, "hello", res.Text)
	assert.Nil(t, res.Err)
}

func TestCompletionResultFailed(t *testing.T) {
	res := Failed(KindQuotaExceeded, "limit reached")
	assert.False(t, res.OK())
	require.NotNil(t, res.Err)
	assert.Equal(t, KindQuotaExceeded, res.Err.Kind)
	assert.Equal(t, "quota_exceeded: limit reached", res.Err.Error())
}

// --- ErrorKind tests ---

func TestErrorKindHTTPStatus(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want int
	}{
		{KindUnauthenticated, http.StatusUnauthorized},
		{KindAuthFailed, http.StatusUnauthorized},
		{KindQuotaExceeded, http.StatusForbidden},
		{KindAccessDenied, http.StatusForbidden},
		{KindValidationError, http.StatusBadRequest},
		{KindBadRequest, http.StatusBadRequest},
		{KindModelNotFound, http.StatusNotFound},
		{KindEndpointDeprecated, http.StatusGone},
		{KindRateLimited, http.StatusTooManyRequests},
		{KindConfigurationError, http.StatusInternalServerError},
		{KindStorageError, http.StatusInternalServerError},
		{KindModelLoading, http.StatusServiceUnavailable},
		{KindServerError, http.StatusBadGateway},
		{KindResponseFormatError, http.StatusBadGateway},
		{KindUpstreamError, http.StatusBadGateway},
		{ErrorKind("something_new"), http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.HTTPStatus())
		})
	}
}

func TestErrorKindRetryable(t *testing.T) {
	assert.True(t, KindRateLimited.Retryable())
	assert.True(t, KindModelLoading.Retryable())
	assert.True(t, KindServerError.Retryable())
	assert.True(t, KindStorageError.Retryable())
	assert.False(t, KindQuotaExceeded.Retryable())
	assert.False(t, KindValidationError.Retryable())
	assert.False(t, KindUnauthenticated.Retryable())
}
