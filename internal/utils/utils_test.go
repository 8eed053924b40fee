package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRetry(t *testing.T) {
	calls := 0
	err := Retry(3, 0, func() error {
		calls++
		if calls < 2 {
			return errors.New("flaky")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, calls)

	fatal := errors.New("fatal")
	calls = 0
	err = Retry(3, 0, func() error {
		calls++
		return Stop(fatal)
	})
	assert.Equal(t, fatal, err)
	assert.Equal(t, 1, calls)

	calls = 0
	err = Retry(2, 0, func() error {
		calls++
		return fatal
	})
	assert.ErrorIs(t, err, fatal)
	assert.EqualError(t, err, "after 2 attempts, fatal")
	assert.Equal(t, 2, calls)
}

func TestVerify(t *testing.T) {
	// sha1("abc")
	assert.True(t, Verify("A9993E364706816ABA3E25717850C26C9CD0D89D", []byte("abc")))
	assert.False(t, Verify("a9993e364706816aba3e25717850c26c9cd0d89d", []byte("abd")))
}

func TestUnique(t *testing.T) {
	assert.Equal(t, []string{"b", "a"}, Unique([]string{"b", "", "a", "b"}))
	assert.Empty(t, Unique(nil))
}
