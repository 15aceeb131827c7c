package video

import (
	"net/url"
	"strings"
)

// ValidateURL checks that raw is an absolute URL with a scheme and a host.
// It returns the trimmed URL or a *ValidationError.
func ValidateURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", NewValidationError("url", "is required")
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", NewValidationError("url", "is not a valid URL")
	}
	if u.Scheme == "" || u.Host == "" {
		return "", NewValidationError("url", "must be an absolute URL")
	}
	return trimmed, nil
}

// IsValidURL is the boolean form of ValidateURL.
func IsValidURL(raw string) bool {
	_, err := ValidateURL(raw)
	return err == nil
}
