package inputvalidation

import (
	"fmt"
	"strings"
)

// systemSchemes are browser-internal pages that cannot be scripted.
var systemSchemes = []string{"chrome://", "chrome-extension://", "edge://", "devtools://", "about:", "view-source:"}

// ValidateTarget rejects addresses of browser-internal pages.
// An empty address is accepted; fixtures loaded from memory have none.
func ValidateTarget(rawURL string) error {
	lower := strings.ToLower(strings.TrimSpace(rawURL))
	for _, scheme := range systemSchemes {
		if strings.HasPrefix(lower, scheme) {
			// about:blank is where a fresh browser tab starts
			if lower == "about:blank" {
				return nil
			}
			return fmt.Errorf("%w: %s", ErrSystemPage, rawURL)
		}
	}
	return nil
}
