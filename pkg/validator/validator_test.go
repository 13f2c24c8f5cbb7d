package validator

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dropOffItem struct {
	ItemID    string  `json:"itemId" validate:"required,uuid"`
	Quantity  int     `json:"quantity" validate:"gte=1"`
	Condition string  `json:"condition" validate:"required,oneof=new used refurbished"`
	Value     float64 `json:"estimatedValue" validate:"gte=0"`
}

type registerBody struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	ZipCode  string `json:"zipCode" validate:"omitempty,zipcode"`
}

func TestValidate_Success(t *testing.T) {
	err := Validate(registerBody{Name: "Alice", Email: "alice@example.com", Password: "longenough", ZipCode: "94110"})
	assert.NoError(t, err)
}

func TestValidate_ReportsJSONFieldNames(t *testing.T) {
	err := Validate(registerBody{Email: "alice@example.com", Password: "longenough"})

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "is required", valErr.Fields()["name"])
}

func TestValidate_ShortPassword(t *testing.T) {
	err := Validate(registerBody{Name: "A", Email: "alice@example.com", Password: "short"})

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "must be at least 8 characters", valErr.Fields()["password"])
}

func TestValidate_InvalidEmail(t *testing.T) {
	err := Validate(registerBody{Name: "A", Email: "nope", Password: "longenough"})

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "must be a valid email address", valErr.Fields()["email"])
}

func TestValidate_ZipCode(t *testing.T) {
	for _, zip := range []string{"12345", "12345-6789"} {
		assert.NoError(t, Validate(registerBody{Name: "A", Email: "a@b.co", Password: "longenough", ZipCode: zip}), zip)
	}

	err := Validate(registerBody{Name: "A", Email: "a@b.co", Password: "longenough", ZipCode: "12ab5"})
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "must be a valid ZIP code", valErr.Fields()["zipCode"])
}

func TestValidate_ConditionOneOf(t *testing.T) {
	err := Validate(dropOffItem{ItemID: "6ba7b810-9dad-11d1-80b4-00c04fd430c8", Quantity: 1, Condition: "broken"})

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "must be one of: new used refurbished", valErr.Fields()["condition"])
}

func TestValidationError_ErrorString(t *testing.T) {
	err := Validate(dropOffItem{Quantity: 0, Condition: "new"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field 'itemId' is required")
	assert.Contains(t, err.Error(), "field 'quantity' must be greater than or equal to 1")
}

func TestDecodeAndValidate_MalformedJSON(t *testing.T) {
	r := httptest.NewRequest("POST", "/auth/register", strings.NewReader("{not json"))
	w := httptest.NewRecorder()

	var body registerBody
	err := DecodeAndValidate(w, r, &body)

	var decErr *DecodeError
	require.ErrorAs(t, err, &decErr)
}

func TestDecodeAndValidate_Valid(t *testing.T) {
	r := httptest.NewRequest("POST", "/auth/register",
		strings.NewReader(`{"name":"Ann","email":"ann@example.com","password":"password1"}`))
	w := httptest.NewRecorder()

	var body registerBody
	require.NoError(t, DecodeAndValidate(w, r, &body))
	assert.Equal(t, "Ann", body.Name)
}
