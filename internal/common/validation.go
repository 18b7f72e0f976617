package common

import (
	"errors"
	"strings"

	validator "github.com/go-playground/validator/v10"
)

// ValidationDetails converts validator errors into a field-to-constraint map
// suitable for the details slot of an error response.
func ValidationDetails(err error) any {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if idx := strings.Index(field, "."); idx >= 0 {
			field = field[idx+1:]
		}
		details[field] = fe.Tag()
	}
	return details
}
