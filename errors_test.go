package autovalue

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNullPropertyError(t *testing.T) {
	err := &NullPropertyError{Type: "Person", Property: "name"}
	assert.Equal(t, `autovalue: nil value for non-nullable property "name" of Person`, err.Error())
	assert.True(t, errors.Is(err, ErrNullProperty))
	assert.True(t, errors.Is(fmt.Errorf("creating person: %w", err), ErrNullProperty))

	var target *NullPropertyError
	assert.True(t, errors.As(fmt.Errorf("wrapped: %w", err), &target))
	assert.Equal(t, "name", target.Property)

	anonymous := &NullPropertyError{Property: "name"}
	assert.Equal(t, `autovalue: nil value for non-nullable property "name"`, anonymous.Error())
	assert.False(t, errors.Is(errors.New("other"), ErrNullProperty))
}
