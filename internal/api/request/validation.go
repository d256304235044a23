package request

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/edvin/budget/internal/platform"
)

var validate = validator.New()

func init() {
	validate.RegisterValidation("subscription_id", func(fl validator.FieldLevel) bool {
		_, err := platform.ParseSubscriptionID(fl.Field().String())
		return err == nil
	})
}

func Decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	return nil
}

func RequireID(s string) (string, error) {
	if s == "" {
		return "", fmt.Errorf("missing required ID")
	}
	return s, nil
}

// RequireSubscriptionID checks a path parameter holds a subscription id and
// returns it in canonical form.
func RequireSubscriptionID(s string) (string, error) {
	if _, err := RequireID(s); err != nil {
		return "", err
	}
	return platform.ParseSubscriptionID(s)
}

// ParseDate parses a YYYY-MM-DD date as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}
