//go:build !windows

package rio

import (
	"os"

	"github.com/mattn/go-isatty"
	"golang.org/x/sys/unix"
)

// IsConsoleTerminal reports whether the named standard stream (one of
// "stdin", "stdout", "stderr") is attached to an interactive terminal.
// Table.Open does not call it; Console streams open like any other
// stream type.
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

// ConsoleSize reports the terminal's column and row count, falling
// back to 80x24 when the ioctl fails (e.g. output redirected to a
// file).
func ConsoleSize() (cols, rows int) {
	ws, err := unix.IoctlGetWinsize(int(os.Stdout.Fd()), unix.TIOCGWINSZ)
	if err != nil || ws.Col == 0 {
		return 80, 24
	}
	return int(ws.Col), int(ws.Row)
}
