// Package device turns raw User-Agent strings into human-readable device
// names for session notifications.
package device

import (
	"fmt"

	"github.com/mssola/useragent"
)

// ParseUserAgent builds a display name like "Chrome on Mac OS X". Unknown or
// empty agents degrade to generic labels rather than failing.
func ParseUserAgent(rawUA string) string {
	if rawUA == "" {
		return "Unknown Device"
	}

	ua := useragent.New(rawUA)
	browser, _ := ua.Browser()
	os := ua.OS()

	if browser == "" {
		browser = "Unknown Browser"
	}
	if os == "" {
		os = "Unknown OS"
	}
	return fmt.Sprintf("%s on %s", browser, os)
}
