package cli

import (
	"fmt"
	"strings"
)

// ValidateOutputFormat validates the output format flag
func ValidateOutputFormat(format string) error {
	for _, valid := range []string{"text", "json", "yaml"} {
		if format == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid output format: %s (must be: text, json, or yaml)", format)
}

// NormalizeFacetToken turns "author:Knuth" into ":facet:author:Knuth".
// Tokens that already start with a colon are kept.
func NormalizeFacetToken(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", fmt.Errorf("facet token cannot be empty")
	}
	if strings.HasPrefix(token, ":") {
		return token, nil
	}
	name, value, ok := strings.Cut(token, ":")
	if !ok || name == "" || value == "" {
		return "", fmt.Errorf("invalid facet token %q (expected name:value)", token)
	}
	return ":facet:" + strings.ToLower(name) + ":" + strings.ReplaceAll(value, " ", "_"), nil
}

// ValidatePage checks the 1-based page flag
func ValidatePage(page int) error {
	if page < 1 {
		return fmt.Errorf("page must be at least 1, got %d", page)
	}
	return nil
}
