package weather

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateReading checks the struct constraints of r and that every field named in
// required carries a value. Failures are returned as *ValidationError.
func ValidateReading(r Reading, required ...string) error {
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &ValidationError{
				Field:  toSnake(fe.Field()),
				Reason: fmt.Sprintf("failed %q constraint", fe.Tag()),
			}
		}
		return &ValidationError{Reason: err.Error()}
	}

	for _, field := range required {
		var missing bool
		switch field {
		case FieldTemperature:
			missing = r.Temperature == nil
		case FieldHumidity:
			missing = r.Humidity == nil
		case FieldWindSpeed:
			missing = r.WindSpeed == nil
		case FieldRainProbability:
			missing = r.RainProbability == nil
		default:
			return &ValidationError{Field: field, Reason: "unknown required field"}
		}
		if missing {
			return &ValidationError{Field: field, Reason: "required value is missing"}
		}
	}
	return nil
}

// toSnake converts a Go field name such as RainProbability into rain_probability.
func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
