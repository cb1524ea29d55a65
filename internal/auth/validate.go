package auth

import (
	"errors"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

type CredentialsRequest struct {
	Username string `json:"username" validate:"required,min=2,max=20"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// ValidateCredentials checks a register request and returns a
// user-facing error on failure.
func ValidateCredentials(req CredentialsRequest) error {
	if err := validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			switch fieldErrs[0].Field() {
			case "Username":
				return errors.New("username must be between 2 and 20 characters")
			case "Password":
				return errors.New("password must be at least 6 characters")
			}
		}
		return errors.New("username and password are required")
	}
	if !usernamePattern.MatchString(req.Username) {
		return errors.New("username may only contain letters, digits, dashes and underscores")
	}
	return nil
}
