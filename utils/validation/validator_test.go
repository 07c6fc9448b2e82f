package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type courseInput struct {
	Title    string `validate:"required,trimmed_min=3,trimmed_max=10"`
	Language string `validate:"required"`
}

func TestValidateStructTrimmedBounds(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.ValidateStruct(courseInput{Title: "Go 101", Language: "en"}))

	err := v.ValidateStruct(courseInput{Title: "  ab  ", Language: "en"})
	require.Error(t, err)
	assert.Contains(t, FormatValidationErrors(err)["title"], "at least 3")

	err = v.ValidateStruct(courseInput{Title: "a very long title", Language: ""})
	require.Error(t, err)
	msg := Message(err)
	assert.Contains(t, msg, "Language is required")
	assert.Contains(t, msg, "at most 10")
}

func TestValidatePassword(t *testing.T) {
	ok, errs := ValidatePassword("short")
	assert.False(t, ok)
	assert.Len(t, errs, 2)

	ok, _ = ValidatePassword("longenough1")
	assert.True(t, ok)
}

func TestValidateEmailAndSanitize(t *testing.T) {
	assert.True(t, ValidateEmail("ana@example.com"))
	assert.False(t, ValidateEmail("not-an-email"))
	assert.Equal(t, "hi", SanitizeString(" h\x00i "))
}
