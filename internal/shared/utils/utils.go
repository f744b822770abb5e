package utils

import (
	"os"
	"regexp"
	"strings"
)

var (
	slugInvalidChars = regexp.MustCompile("[^a-z0-9-]+")
	slugDashRuns     = regexp.MustCompile("-+")
)

// GetEnvVariable reads an environment variable with a fallback default.
func GetEnvVariable(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// GenerateSlug turns a display name into a URL-safe slug.
func GenerateSlug(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = slugInvalidChars.ReplaceAllString(slug, "")
	slug = slugDashRuns.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}
