//go:build !windows

package writers

import "io"

// unicodeSupported reports whether box-drawing runes render on w.
// Unix terminals are assumed to be UTF-8.
func unicodeSupported(_ io.Writer) bool {
	return true
}
