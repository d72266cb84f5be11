package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHygrepError_Unwrap_PreservesOriginalError(t *testing.T) {
	originalErr := errors.New("original error")

	hygErr := New(ErrCodeIOError, "file not found: test.txt", originalErr)

	require.NotNil(t, hygErr)
	assert.Equal(t, originalErr, errors.Unwrap(hygErr))
	assert.True(t, errors.Is(hygErr, originalErr))
}

func TestHygrepError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		message  string
		expected string
	}{
		{
			name:     "path error",
			code:     ErrCodePathNotExist,
			message:  "path does not exist",
			expected: "[ERR_201_PATH_NOT_EXIST] path does not exist",
		},
		{
			name:     "io error",
			code:     ErrCodeIOError,
			message:  "file.go not found",
			expected: "[ERR_501_IO_ERROR] file.go not found",
		},
		{
			name:     "model missing",
			code:     ErrCodeModelMissing,
			message:  "model.onnx not found",
			expected: "[ERR_301_MODEL_MISSING] model.onnx not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, nil)
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestHygrepError_Is_MatchesByCode(t *testing.T) {
	err1 := New(ErrCodeIOError, "file A not found", nil)
	err2 := New(ErrCodeIOError, "file B not found", nil)

	assert.True(t, errors.Is(err1, err2))
}

func TestHygrepError_Is_DoesNotMatchDifferentCodes(t *testing.T) {
	err1 := New(ErrCodeIOError, "file not found", nil)
	err2 := New(ErrCodePathNotExist, "path not found", nil)

	assert.False(t, errors.Is(err1, err2))
}

func TestHygrepError_WithDetails_AddsContext(t *testing.T) {
	err := New(ErrCodeIOError, "file not found", nil)

	err = err.WithDetail("path", "/foo/bar.go")
	err = err.WithDetail("size", "1024")

	assert.Equal(t, "/foo/bar.go", err.Details["path"])
	assert.Equal(t, "1024", err.Details["size"])
}

func TestHygrepError_WithSuggestion_AddsSuggestion(t *testing.T) {
	err := New(ErrCodeModelMissing, "model missing", nil)

	err = err.WithSuggestion("run 'hygrep model install'")

	assert.Equal(t, "run 'hygrep model install'", err.Suggestion)
}

func TestHygrepError_CategoryFromCode(t *testing.T) {
	tests := []struct {
		code         string
		wantCategory Category
	}{
		{ErrCodeArgumentMissing, CategoryArgument},
		{ErrCodeArgumentInvalid, CategoryArgument},
		{ErrCodePathNotExist, CategoryPath},
		{ErrCodePathNotADir, CategoryPath},
		{ErrCodeModelMissing, CategoryModel},
		{ErrCodeIndexIncompatible, CategoryIndex},
		{ErrCodeIndexBusy, CategoryIndex},
		{ErrCodeIOError, CategoryIO},
		{ErrCodeTokeniserError, CategoryTokeniser},
		{ErrCodeInferenceError, CategoryInference},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantCategory, err.Category)
		})
	}
}

func TestHygrepError_SeverityFromCode(t *testing.T) {
	tests := []struct {
		code         string
		wantSeverity Severity
	}{
		{ErrCodeIOError, SeverityWarning},
		{ErrCodeTokeniserError, SeverityWarning},
		{ErrCodeIndexBusy, SeverityError},
		{ErrCodeModelMissing, SeverityFatal},
		{ErrCodeInferenceError, SeverityFatal},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantSeverity, err.Severity)
		})
	}
}

func TestHygrepError_RetryableFromCode(t *testing.T) {
	tests := []struct {
		code          string
		wantRetryable bool
	}{
		{ErrCodeIndexBusy, true},
		{ErrCodeIOError, false},
		{ErrCodeModelMissing, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantRetryable, err.Retryable)
		})
	}
}

func TestWrap_CreatesHygrepErrorFromError(t *testing.T) {
	originalErr := errors.New("something went wrong")

	wrapped := Wrap(ErrCodeInferenceError, originalErr)

	require.NotNil(t, wrapped)
	assert.Equal(t, ErrCodeInferenceError, wrapped.Code)
	assert.Equal(t, "something went wrong", wrapped.Message)
	assert.Equal(t, originalErr, wrapped.Cause)
}

func TestWrap_NilErrorReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInferenceError, nil))
}

func TestPathError_CreatesPathCategoryError(t *testing.T) {
	err := PathError("path does not exist: /tmp/missing", nil)

	assert.Equal(t, CategoryPath, err.Category)
	assert.Contains(t, err.Code, "PATH")
}

func TestNewIOError_CreatesIOCategoryError(t *testing.T) {
	err := NewIOError("cannot read file", nil)

	assert.Equal(t, CategoryIO, err.Category)
}

func TestIndexBusyError_CreatesRetryableError(t *testing.T) {
	err := IndexBusyError("lock held by another build", nil)

	assert.Equal(t, CategoryIndex, err.Category)
	assert.True(t, err.Retryable)
}

func TestModelMissingError_HasInstallSuggestion(t *testing.T) {
	err := ModelMissingError("model.onnx not found", nil)

	assert.Equal(t, CategoryModel, err.Category)
	assert.Contains(t, err.Suggestion, "model install")
}

func TestIsRetryable_ChecksRetryableFlag(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "retryable HygrepError",
			err:      New(ErrCodeIndexBusy, "busy", nil),
			expected: true,
		},
		{
			name:     "non-retryable HygrepError",
			err:      New(ErrCodeIOError, "not found", nil),
			expected: false,
		},
		{
			name:     "wrapped retryable error",
			err:      Wrap(ErrCodeIndexBusy, errors.New("wrapped")),
			expected: true,
		},
		{
			name:     "standard error",
			err:      errors.New("standard error"),
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsRetryable(tt.err))
		})
	}
}

func TestIsFatal_ChecksFatalSeverity(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "fatal error",
			err:      New(ErrCodeInferenceError, "inference failed", nil),
			expected: true,
		},
		{
			name:     "model missing is fatal",
			err:      New(ErrCodeModelMissing, "no model", nil),
			expected: true,
		},
		{
			name:     "non-fatal error",
			err:      New(ErrCodeIOError, "not found", nil),
			expected: false,
		},
		{
			name:     "standard error",
			err:      errors.New("standard error"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsFatal(tt.err))
		})
	}
}

func TestExitCode_MatchesSpecContract(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"path error exits 2", PathError("missing", nil), 2},
		{"model missing exits 2", ModelMissingError("missing", nil), 2},
		{"index busy exits 2", IndexBusyError("busy", nil), 2},
		{"io error does not claim a process exit code", NewIOError("bad file", nil), 0},
		{"non-HygrepError defensively exits 2", errors.New("boom"), 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExitCode(tt.err))
		})
	}
}
