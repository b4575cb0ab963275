package utils

import (
	"github.com/go-playground/validator/v10"
	"regexp"
)

var Validate *validator.Validate

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9.@+_-]+$`)

func InitValidator() {
	Validate = validator.New()
	_ = Validate.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernameRegex.MatchString(fl.Field().String())
	})
}
