// Package validators wires go-playground/validator into Echo.
package validators

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// Validator adapts a validator.Validate instance to echo.Validator.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates the Echo validator.
func NewValidator() *Validator {
	return &Validator{validate: validator.New()}
}

// Validate checks struct tags and maps failures to a 400 response.
func (v *Validator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}
