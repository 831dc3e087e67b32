//go:build windows

package main

import (
	"golang.org/x/sys/windows"
)

func init() {
	// UTF-8 code page so payloads such as "§±£" and the box drawing of the
	// table print unmangled in cmd.exe and PowerShell.
	const cpUTF8 = 65001
	_ = windows.SetConsoleOutputCP(cpUTF8)
	_ = windows.SetConsoleCP(cpUTF8)

	// ANSI escapes for colors and the live progress line on Windows 10+.
	for _, stdHandle := range []uint32{windows.STD_ERROR_HANDLE, windows.STD_OUTPUT_HANDLE} {
		if h, err := windows.GetStdHandle(stdHandle); err == nil {
			var mode uint32
			if windows.GetConsoleMode(h, &mode) == nil {
				_ = windows.SetConsoleMode(h, mode|windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING)
			}
		}
	}
}
