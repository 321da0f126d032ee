package validation

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

const maxURLLength = 2048

// NormalizeServerURL validates the base URL of an editor server and
// returns it without a trailing slash. A missing scheme defaults to http,
// since the server usually runs on the local machine.
func NormalizeServerURL(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("URL cannot be empty")
	}
	if len(input) > maxURLLength {
		return "", fmt.Errorf("URL too long (max %d characters)", maxURLLength)
	}
	if strings.ContainsAny(input, "<>\"'` ") {
		return "", fmt.Errorf("URL contains invalid characters")
	}

	if !strings.Contains(input, "://") {
		input = "http://" + input
	}

	parsedURL, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("invalid URL format: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return "", fmt.Errorf("URL must use http or https protocol")
	}
	if parsedURL.Host == "" {
		return "", fmt.Errorf("URL must have a valid hostname")
	}
	if err := validateHost(parsedURL.Host); err != nil {
		return "", err
	}
	if strings.Contains(parsedURL.Path, "..") {
		return "", fmt.Errorf("directory traversal patterns not allowed in URL path")
	}
	if parsedURL.RawQuery != "" || parsedURL.Fragment != "" {
		return "", fmt.Errorf("base URL must not carry a query or fragment")
	}

	parsedURL.Path = strings.TrimRight(parsedURL.Path, "/")
	return parsedURL.String(), nil
}

func validateHost(host string) error {
	hostname := host
	if strings.Contains(host, ":") && !strings.HasSuffix(host, "]") {
		var err error
		hostname, _, err = net.SplitHostPort(host)
		if err != nil {
			return fmt.Errorf("invalid host format: %w", err)
		}
	}
	if hostname == "" {
		return fmt.Errorf("URL must have a valid hostname")
	}
	if hostname == "0.0.0.0" || hostname == "255.255.255.255" {
		return fmt.Errorf("%s is not a routable server address", hostname)
	}
	return nil
}
