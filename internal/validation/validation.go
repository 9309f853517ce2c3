// Package validation checks identifiers that end up in Supervisor API URLs.
package validation

import (
	"fmt"
	"regexp"
)

// addonSlugRegex matches Home Assistant add-on slugs like "core_mosquitto"
// or "a0d7b954_vscode".
var addonSlugRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// ValidateAddonSlug checks that an add-on slug is safe to interpolate into
// an API path.
func ValidateAddonSlug(slug string) error {
	if slug == "" {
		return fmt.Errorf("add-on slug cannot be empty")
	}
	if len(slug) > 64 {
		return fmt.Errorf("add-on slug too long: %d characters", len(slug))
	}
	if !addonSlugRegex.MatchString(slug) {
		return fmt.Errorf("invalid add-on slug: %s", slug)
	}
	return nil
}
