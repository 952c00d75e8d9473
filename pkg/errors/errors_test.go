package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormatting(t *testing.T) {
	err := NewFetch("page 3", "unexpected status", fmt.Errorf("status 503"))
	assert.Equal(t, "[fetch] page 3: unexpected status - status 503", err.Error())

	cfg := NewConfig("rate limit 4 exceeds workers 2")
	assert.Equal(t, "[config] config: rate limit 4 exceeds workers 2", cfg.Error())
}

func TestTypeHelpersFollowWrapping(t *testing.T) {
	inner := NewStore("upsert", "insert listing", stderrors.New("connection reset"))
	wrapped := fmt.Errorf("run: %w", inner)

	assert.True(t, IsStore(wrapped))
	assert.False(t, IsFetch(wrapped))
	assert.Equal(t, TypeStore, TypeOf(wrapped))
	assert.Equal(t, ErrorType(""), TypeOf(stderrors.New("plain")))

	var typed *Error
	assert.True(t, stderrors.As(wrapped, &typed))
	assert.Equal(t, "upsert", typed.Op)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, NewFetch("detail", "timeout", nil).IsRetryable())
	assert.False(t, NewParse("page 1", "no results container", nil).IsRetryable())
	assert.False(t, NewConfig("bad").IsRetryable())
}
