package utils

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Username string `json:"username" validate:"required,username"`
	Slug     string `json:"slug" validate:"omitempty,slug"`
	Lines    []line `json:"ingredients" validate:"dive"`
}

type line struct {
	Amount int `json:"amount" validate:"min=1"`
}

func TestValidationMessages(t *testing.T) {
	InitValidator()

	assert.NoError(t, Validate.Struct(signup{Username: "chef.o+1@x", Slug: "dinner_2"}))

	err := Validate.Struct(signup{Username: "bad name", Slug: "no spaces", Lines: []line{{Amount: 0}}})
	var errs validator.ValidationErrors
	require.ErrorAs(t, err, &errs)

	assert.Equal(t, map[string]string{
		"username":              "may contain only letters, digits and @/./+/-/_",
		"slug":                  "may contain only letters, digits, hyphens and underscores",
		"ingredients[0].amount": "must be at least 1",
	}, ValidationMessages(errs))
}
