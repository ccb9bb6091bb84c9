// Package validate holds the input validators shared by all lumoctl commands.
package validate

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	v = validator.New()

	idPattern                     = regexp.MustCompile(`^[A-Za-z0-9_-]{20}$`)
	externalSubscriptionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{2,50}$`)
)

// IsEmail reports whether s is a syntactically valid email address.
func IsEmail(s string) bool {
	return v.Var(s, "required,email") == nil
}

// IsID reports whether s looks like a platform resource id (20 url-safe
// base64 characters).
func IsID(s string) bool {
	return idPattern.MatchString(s)
}

// IsExternalSubscriptionID reports whether s is acceptable as a legacy
// billing-system subscription identifier.
func IsExternalSubscriptionID(s string) bool {
	return externalSubscriptionIDPattern.MatchString(s)
}
