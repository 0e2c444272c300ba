package exam

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	cause := errors.New("boom")
	err := fail("exam.Submit", ErrTimeExceeded, cause)

	assert.ErrorIs(t, err, ErrTimeExceeded)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrClosed)
	assert.Equal(t, "time_exceeded", Code(err))
	assert.Equal(t, "exam.Submit: time limit exceeded: boom", err.Error())

	wrapped := fmt.Errorf("handler: %w", fail("exam.Start", ErrForbidden, nil))
	assert.Equal(t, "forbidden", Code(wrapped))
	assert.Equal(t, "not_found", Code(ErrNotFound))
	assert.Equal(t, "", Code(errors.New("other")))
	assert.Equal(t, "", Code(nil))
}
