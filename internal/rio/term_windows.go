//go:build windows

package rio

import (
	"os"

	"github.com/mattn/go-isatty"
	"golang.org/x/sys/windows"
)

// IsConsoleTerminal is term_unix.go's Windows counterpart.
func IsConsoleTerminal(name string) bool {
	f := stdFile(name)
	if f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func stdFile(name string) *os.File {
	switch name {
	case "stdin":
		return os.Stdin
	case "stdout":
		return os.Stdout
	case "stderr":
		return os.Stderr
	default:
		return nil
	}
}

// ConsoleSize is term_unix.go's Windows counterpart, via
// golang.org/x/sys/windows's GetConsoleScreenBufferInfo.
func ConsoleSize() (cols, rows int) {
	handle := windows.Handle(os.Stdout.Fd())
	var info windows.ConsoleScreenBufferInfo
	if err := windows.GetConsoleScreenBufferInfo(handle, &info); err != nil {
		return 80, 24
	}
	cols = int(info.Window.Right - info.Window.Left + 1)
	rows = int(info.Window.Bottom - info.Window.Top + 1)
	if cols <= 0 || rows <= 0 {
		return 80, 24
	}
	return cols, rows
}
