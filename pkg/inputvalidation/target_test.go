package inputvalidation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateTarget(t *testing.T) {
	for _, u := range []string{"chrome://extensions", "CHROME-EXTENSION://abc/popup.html", "edge://settings", "devtools://devtools/bundled", "about:config", "view-source:https://x"} {
		assert.ErrorIs(t, ValidateTarget(u), ErrSystemPage, u)
	}
	for _, u := range []string{"", "https://example.com", "http://localhost:8080/login", "file:///tmp/form.html", "about:blank"} {
		assert.NoError(t, ValidateTarget(u), u)
	}
}
