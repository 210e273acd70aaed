package providers

import (
	"fmt"
	"net/url"
	"strings"
)

// EndpointURL joins a configured base URL with a vendor path suffix.
// Users may paste either the bare server address or the full API path;
// the suffix is only appended when it is not already there.
func EndpointURL(base, suffix string) (string, error) {
	base = strings.TrimSpace(base)
	if base == "" {
		return "", fmt.Errorf("%w: api endpoint is empty", ErrNotConfigured)
	}
	if strings.HasSuffix(strings.TrimSuffix(base, "/"), suffix) {
		return strings.TrimSuffix(base, "/"), nil
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse api endpoint: %w", err)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + suffix
	return u.String(), nil
}
