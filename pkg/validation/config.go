package validation

import (
	"fmt"
	"net/url"

	"github.com/iwvelando/topgirl-optimizer/pkg/constants"
)

// ValidateBaseURL checks that the backend location is an absolute http(s) URL.
func ValidateBaseURL(baseURL string) error {
	if baseURL == "" {
		return fmt.Errorf("backend base URL is not set; set api.baseURL or %s", constants.EnvAPIURL)
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid backend base URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("backend base URL %q must use http or https", baseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("backend base URL %q has no host", baseURL)
	}
	return nil
}

// ValidateSessionBackend checks the session backend name and that redis has
// a URL to connect to.
func ValidateSessionBackend(backend, redisURL string) error {
	switch backend {
	case constants.SessionBackendFile, constants.SessionBackendMemory:
		return nil
	case constants.SessionBackendRedis:
		if redisURL == "" {
			return fmt.Errorf("session backend %s requires session.redisURL", backend)
		}
		return nil
	default:
		return fmt.Errorf("expected session backend of %s, %s or %s, got %s",
			constants.SessionBackendFile, constants.SessionBackendRedis, constants.SessionBackendMemory, backend)
	}
}
