//go:build windows

package writers

import (
	"io"
	"os"

	"golang.org/x/sys/windows"
	"golang.org/x/term"
)

// cpUTF8 is the Windows code page identifier for UTF-8.
const cpUTF8 = 65001

// unicodeSupported reports whether box-drawing runes render on w.
// Piped output is re-encoded by PowerShell with the OEM code page, so
// only a terminal whose output code page is UTF-8 qualifies.
func unicodeSupported(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return true
	}
	if !term.IsTerminal(int(f.Fd())) {
		return false
	}
	cp, err := windows.GetConsoleOutputCP()
	return err == nil && cp == cpUTF8
}
