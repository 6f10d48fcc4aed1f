package common

import (
	"fmt"
	"slices"
	"strings"

	"skillmatch/internal/errors"
)

// ValidateOutputFormat validates format against configured supported formats
func ValidateOutputFormat(format string, supportedFormats []string) error {
	if len(supportedFormats) == 0 {
		return nil // No restrictions configured
	}

	if slices.Contains(supportedFormats, format) {
		return nil
	}

	return errors.NewValidationError(errors.ErrCodeInvalidFormat,
		fmt.Sprintf("unsupported output format '%s'. Supported formats: %v", format, supportedFormats), nil)
}

// ResolveOutputFormat picks the flag value or falls back to the configured default
func ResolveOutputFormat(flagValue, defaultFormat string, supportedFormats []string) (string, error) {
	format := strings.TrimSpace(flagValue)
	if format == "" {
		format = defaultFormat
	}
	if err := ValidateOutputFormat(format, supportedFormats); err != nil {
		return "", err
	}
	return format, nil
}

// GetSupportedFormats returns the list of supported formats for shell completion
func GetSupportedFormats(supportedFormats []string) []string {
	return supportedFormats
}
