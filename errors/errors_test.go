package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	original := New("original")
	wrapped := Wrapf(original, "apply recipe %d", 42)

	assert.Contains(t, wrapped.Error(), "apply recipe 42")
	assert.Contains(t, wrapped.Error(), "original")
	assert.True(t, Is(wrapped, original))
}

func TestStackTrace(t *testing.T) {
	err := New("with stack")

	detailed := fmt.Sprintf("%+v", err)
	assert.Contains(t, detailed, "errors_test.go")
}

func TestNilHandling(t *testing.T) {
	assert.Nil(t, Wrap(nil, "context"))
	assert.Nil(t, Wrapf(nil, "context %d", 1))
	assert.Nil(t, WithHint(nil, "hint"))
}

func TestMarkMatchesBothSentinels(t *testing.T) {
	exhausted := New("retries exhausted")
	conflict := NewConflictError("recipe %d changed", 7)

	err := Wrap(Mark(conflict, exhausted), "giving up")

	assert.True(t, Is(err, ErrConflict))
	assert.True(t, Is(err, exhausted))
	assert.False(t, Is(err, ErrNotFound))
}

func TestSentinelHelpers(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		notFound   bool
		invalid    bool
		isConflict bool
	}{
		{"nil", nil, false, false, false},
		{"not found", NewNotFoundError("recipe %d", 3), true, false, false},
		{"invalid", NewInvalidRequestError("row %d", 1), false, true, false},
		{"conflict", NewConflictError("version %d", 2), false, false, true},
		{"wrapped conflict", Wrap(NewConflictError("x"), "apply"), false, false, true},
		{"plain", New("boom"), false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.notFound, IsNotFoundError(tt.err))
			assert.Equal(t, tt.invalid, IsInvalidRequestError(tt.err))
			assert.Equal(t, tt.isConflict, IsConflictError(tt.err))
		})
	}
}

func TestWithHint(t *testing.T) {
	err := WithHintf(New("no such table"), "run %q first", "recipebook db migrate")

	hints := GetAllHints(err)
	require.Len(t, hints, 1)
	assert.Equal(t, `run "recipebook db migrate" first`, hints[0])
}

func ExampleWrap() {
	baseErr := New("connection failed")
	err := Wrap(baseErr, "failed to open database")
	fmt.Println(err)
	// Output: failed to open database: connection failed
}
