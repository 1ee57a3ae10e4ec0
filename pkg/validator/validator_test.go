package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type form struct {
	Name     string `json:"name" validate:"required,max=5"`
	Code     string `json:"code,omitempty" validate:"omitempty,len=3"`
	Volume   int    `json:"volume" validate:"gte=0,lte=100"`
	Player   string `json:"player" validate:"oneof=browser sim"`
	Homepage string `json:"homepage" validate:"omitempty,url"`
	Secret   string `json:"-" validate:"max=2"`
}

func TestValidate(t *testing.T) {
	v := NewValidator()

	errs, ok := v.Validate(&form{Name: "abc", Volume: 50, Player: "sim"})
	assert.True(t, ok)
	assert.Empty(t, errs)

	errs, ok = v.Validate(&form{Code: "toolong", Volume: 101, Player: "vlc", Homepage: "not a url"})
	require.False(t, ok)

	messages := map[string]string{}
	codes := map[string]string{}
	for _, e := range errs {
		messages[e.Field] = e.Message
		codes[e.Field] = e.Code
	}
	assert.Equal(t, "name is required", messages["name"])
	assert.Equal(t, "REQUIRED", codes["name"])
	assert.Equal(t, "code must be exactly 3 characters long", messages["code"])
	assert.Equal(t, "volume must be at most 100", messages["volume"])
	assert.Equal(t, "player must be one of: browser sim", messages["player"])
	assert.Equal(t, "homepage must be a valid url", messages["homepage"])
}

func TestValidateMax(t *testing.T) {
	errs, ok := NewValidator().Validate(&form{Name: "abcdefg", Player: "sim"})
	require.False(t, ok)
	require.Len(t, errs, 1)
	assert.Equal(t, "name must not exceed 5 characters", errs[0].Message)
	assert.Equal(t, "MAX", errs[0].Code)
}

func TestValidateNonStruct(t *testing.T) {
	errs, ok := NewValidator().Validate("just a string")
	assert.False(t, ok)
	require.Len(t, errs, 1)
	assert.Equal(t, "INVALID", errs[0].Code)
}
