package validation

import (
	"net/url"
	"strings"

	apperrors "go-redflag-detector/internal/errors"
)

// MaxURLLength bounds screenshot URLs accepted from clients
const MaxURLLength = 2048

// URLValidator decides which screenshot URLs the service will fetch
type URLValidator struct {
	allowedSchemes map[string]bool
	// allowedHosts holds exact hosts or "*.suffix" patterns; empty allows all
	allowedHosts []string
}

// NewURLValidator accepts any http(s) host
func NewURLValidator() *URLValidator {
	return NewURLValidatorWithOptions([]string{"http", "https"}, nil)
}

func NewURLValidatorWithOptions(schemes []string, hosts []string) *URLValidator {
	allowed := make(map[string]bool, len(schemes))
	for _, s := range schemes {
		allowed[strings.ToLower(s)] = true
	}
	return &URLValidator{allowedSchemes: allowed, allowedHosts: hosts}
}

// ValidateImageURL returns a validation AppError describing the first problem found
func (v *URLValidator) ValidateImageURL(imageURL string) error {
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		return apperrors.NewValidationError("URL cannot be empty", nil)
	}
	if len(imageURL) > MaxURLLength {
		return apperrors.NewValidationError("URL is too long", nil)
	}

	parsedURL, err := url.Parse(imageURL)
	if err != nil {
		return apperrors.NewValidationError("Invalid URL format", err)
	}
	if !v.allowedSchemes[strings.ToLower(parsedURL.Scheme)] {
		return apperrors.NewValidationError("URL scheme not allowed", nil)
	}
	if parsedURL.Hostname() == "" {
		return apperrors.NewValidationError("URL must have a valid host", nil)
	}
	if parsedURL.User != nil {
		return apperrors.NewValidationError("URL must not embed credentials", nil)
	}
	if !v.isHostAllowed(parsedURL.Hostname()) {
		return apperrors.NewValidationError("URL host not allowed", nil)
	}
	return nil
}

func (v *URLValidator) isHostAllowed(host string) bool {
	if len(v.allowedHosts) == 0 {
		return true
	}
	host = strings.ToLower(host)
	for _, allowed := range v.allowedHosts {
		allowed = strings.ToLower(allowed)
		if suffix, ok := strings.CutPrefix(allowed, "*"); ok {
			if strings.HasSuffix(host, suffix) && host != strings.TrimPrefix(suffix, ".") {
				return true
			}
			continue
		}
		if host == allowed {
			return true
		}
	}
	return false
}
