package request

import (
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Resources and actions an API key scope may name, besides the * wildcard.
var (
	scopeResources = []string{"subscriptions", "budget", "summary", "emails", "api_keys"}
	scopeActions   = []string{"read", "write", "send"}
)

func init() {
	validate.RegisterValidation("scope", func(fl validator.FieldLevel) bool {
		return ValidScope(fl.Field().String())
	})
}

// ValidScope reports whether s is a resource:action scope the API grants.
func ValidScope(s string) bool {
	resource, action, ok := strings.Cut(s, ":")
	if !ok {
		return false
	}
	return (resource == "*" || slices.Contains(scopeResources, resource)) &&
		(action == "*" || slices.Contains(scopeActions, action))
}

// CreateAPIKey holds the request body for creating an API key.
type CreateAPIKey struct {
	Name   string   `json:"name" validate:"required,min=1,max=255"`
	Scopes []string `json:"scopes" validate:"omitempty,min=1,dive,scope"`
}
