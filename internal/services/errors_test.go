package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindAndCode(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", ErrJoinRequestExists)
	assert.ErrorIs(t, wrapped, ErrJoinRequestExists)
	assert.Equal(t, KindConflict, KindOf(wrapped))
	assert.Equal(t, "join_request_exists", CodeOf(wrapped))

	plain := errors.New("connection reset")
	assert.Equal(t, KindInternal, KindOf(plain))
	assert.Equal(t, "internal", CodeOf(plain))

	assert.NotErrorIs(t, ErrNotAMember, ErrMemberNotFound)
}
