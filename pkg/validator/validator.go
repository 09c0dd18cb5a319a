package validator

import (
	"fmt"
	"strings"

	playground "github.com/go-playground/validator/v10"
)

// Validator validates request payloads using `validate` struct tags.
type Validator struct {
	v *playground.Validate
}

func New() *Validator {
	return &Validator{v: playground.New(playground.WithRequiredStructEnabled())}
}

// Struct validates obj and returns a single user-presentable error
// describing the first failing field.
func (v *Validator) Struct(obj interface{}) error {
	err := v.v.Struct(obj)
	if err == nil {
		return nil
	}

	verrs, ok := err.(playground.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return err
	}

	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", field)
	case "uuid":
		return fmt.Errorf("%s must be a valid UUID", field)
	case "email":
		return fmt.Errorf("%s must be a valid email address", field)
	case "gt":
		return fmt.Errorf("%s must be greater than %s", field, fe.Param())
	case "max":
		return fmt.Errorf("%s must be at most %s characters", field, fe.Param())
	default:
		return fmt.Errorf("%s is invalid", field)
	}
}
