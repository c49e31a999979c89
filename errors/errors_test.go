package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesIdentity(t *testing.T) {
	original := New("store offline")
	wrapped := Wrapf(original, "read service %s", "svc1")

	assert.Contains(t, wrapped.Error(), "read service svc1")
	assert.Contains(t, wrapped.Error(), "store offline")
	assert.True(t, Is(wrapped, original))
}

type statusErr struct{ code int }

func (e *statusErr) Error() string { return fmt.Sprintf("status %d", e.code) }

func TestAsThroughWrap(t *testing.T) {
	wrapped := Wrap(&statusErr{code: 409}, "import pipeline")

	var target *statusErr
	require.True(t, As(wrapped, &target))
	assert.Equal(t, 409, target.code)
}

func TestHintsSurviveWrapping(t *testing.T) {
	err := WithHint(New("bad case convention"), "use snake_case, camel_case or lower_case")
	err = Wrap(err, "load config")

	assert.Contains(t, GetAllHints(err), "use snake_case, camel_case or lower_case")
}

func TestSentinelHelpers(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		err := NewNotFoundError("SERVICE %s", "svc1")
		assert.True(t, IsNotFoundError(err))
		assert.Contains(t, err.Error(), "SERVICE svc1")
		assert.False(t, IsNotFoundError(nil))
	})

	t.Run("invalid request", func(t *testing.T) {
		err := Wrap(NewInvalidRequestError("unknown scope %q", "galaxy"), "parse overrides")
		assert.True(t, IsInvalidRequestError(err))
		assert.False(t, IsNotFoundError(err))
	})

	t.Run("timeout", func(t *testing.T) {
		err := Wrap(ErrTimeout, "import service")
		assert.True(t, IsTimeoutError(err))
	})
}

func TestNilHandling(t *testing.T) {
	assert.Nil(t, Wrap(nil, "context"))
	assert.Nil(t, Wrapf(nil, "context %d", 1))
	assert.Nil(t, WithHint(nil, "hint"))
}

func TestStackTrace(t *testing.T) {
	err := New("with stack")
	assert.Contains(t, fmt.Sprintf("%+v", err), "errors_test.go")
}

func ExampleWrap() {
	err := Wrap(New("connection refused"), "import secret")
	fmt.Println(err)
	// Output: import secret: connection refused
}
