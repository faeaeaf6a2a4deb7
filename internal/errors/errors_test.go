package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DerivesCategoryAndSeverity(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		category Category
		severity Severity
	}{
		{"config", ErrCodeConfigInvalid, CategoryConfig, SeverityError},
		{"extraction is a warning", ErrCodeExtractionFailed, CategoryIO, SeverityWarning},
		{"store unavailable is fatal", ErrCodeStoreUnavailable, CategoryStore, SeverityFatal},
		{"invalid query", ErrCodeInvalidQuery, CategoryValidation, SeverityError},
		{"source timeout degrades", ErrCodeSourceTimeout, CategorySearch, SeverityWarning},
		{"both sources failed is fatal", ErrCodeBothSourcesFailed, CategorySearch, SeverityFatal},
		{"internal fallback", ErrCodeInternal, CategoryInternal, SeverityError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, "msg", nil)
			assert.Equal(t, tt.category, err.Category)
			assert.Equal(t, tt.severity, err.Severity)
		})
	}
}

func TestQuarryError_ErrorAndUnwrap(t *testing.T) {
	cause := fmt.Errorf("disk says no")
	err := New(ErrCodeStoreUnavailable, "cannot open index", cause)

	assert.Equal(t, "[ERR_301_STORE_UNAVAILABLE] cannot open index", err.Error())
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestQuarryError_IsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", IndexBusy("pass already running"))

	assert.True(t, errors.Is(err, New(ErrCodeIndexBusy, "", nil)))
	assert.False(t, errors.Is(err, New(ErrCodeIndexFailed, "", nil)))
	assert.True(t, IsCode(err, ErrCodeIndexBusy))
}

func TestWrap_NilReturnsNil(t *testing.T) {
	require.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(IndexBusy("busy")))
	assert.True(t, IsRetryable(New(ErrCodeSourceTimeout, "slow", nil)))
	assert.False(t, IsRetryable(New(ErrCodeStoreCorrupt, "bad", nil)))
	assert.False(t, IsRetryable(errors.New("plain")))
}

func TestBothSourcesFailed_RecordsPerSourceDetails(t *testing.T) {
	err := BothSourcesFailed(errors.New("fts down"), errors.New("rg missing"))

	require.NotNil(t, err.Details)
	assert.Equal(t, "fts down", err.Details["fts_error"])
	assert.Equal(t, "rg missing", err.Details["pattern_error"])
	assert.Equal(t, SeverityFatal, err.Severity)
}
