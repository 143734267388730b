package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_CollectsEveryFailure(t *testing.T) {
	v := NewValidator().
		Field("register_number", "  ", Required).
		Field("id", "not-a-uuid", Required, UUID).
		Field("dialect", "mysql", OneOf("postgres", "sqlite")).
		Field("name", "Ada", Required, MaxLength(64))

	err := v.Error()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
	require.Len(t, v.Failures(), 3)
	assert.Equal(t, "register_number", v.Failures()[0].Field)
	assert.Contains(t, err.Error(), "id must be a valid UUID")
	assert.Contains(t, err.Error(), "dialect must be one of postgres, sqlite")
}

func TestRules(t *testing.T) {
	assert.Empty(t, Required("x"))
	assert.NotEmpty(t, Required(nil))
	assert.NotEmpty(t, Required([]byte{}))
	assert.Empty(t, MaxLength(3)("héé"))
	assert.NotEmpty(t, MaxLength(2)("héé"))
	assert.Empty(t, OneOf("a")(""))
	assert.Empty(t, UUID("6f1c2a4e-8d3b-4b8e-9c1a-2f3e4d5c6b7a"))
	assert.Nil(t, NewValidator().Field("ok", "v", Required).Error())
}
