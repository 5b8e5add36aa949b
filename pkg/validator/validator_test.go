package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type createProductForm struct {
	Name     string  `validate:"required,min=1,max=500"`
	Price    float64 `validate:"gte=0"`
	Category string  `validate:"required,oneof=art clothing ceramics jewellery wooden clay decor"`
	Score    int     `validate:"omitempty,min=1,max=5"`
}

func TestValidate_Valid(t *testing.T) {
	err := Validate(createProductForm{Name: "Oak bowl", Price: 24.5, Category: "wooden", Score: 4})
	assert.NoError(t, err)
}

func TestValidate_FieldMessages(t *testing.T) {
	err := Validate(createProductForm{Name: "", Price: -1, Category: "gadgets"})
	require.Error(t, err)

	valErr, ok := err.(*ValidationError)
	require.True(t, ok)

	fields := valErr.Fields()
	assert.Equal(t, "is required", fields["Name"])
	assert.Equal(t, "must be greater than or equal to 0", fields["Price"])
	assert.Contains(t, fields["Category"], "must be one of:")
}

func TestValidate_ScoreRange(t *testing.T) {
	err := Validate(createProductForm{Name: "Vase", Price: 10, Category: "ceramics", Score: 6})
	require.Error(t, err)

	valErr, ok := err.(*ValidationError)
	require.True(t, ok)
	assert.Contains(t, valErr.Fields(), "Score")
}

func TestValidationError_Message(t *testing.T) {
	err := Validate(createProductForm{Category: "art"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field 'Name' is required")
}
