package ui

// Spinner holds spinner animation frames. Frames advance once per redraw.
type Spinner struct {
	Frames []string
}

var (
	dotsSpinner = Spinner{Frames: []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}}
	lineSpinner = Spinner{Frames: []string{"-", "\\", "|", "/"}}
)

// DefaultSpinner returns braille dots on Unicode terminals and an ASCII
// line spinner otherwise.
func DefaultSpinner() Spinner {
	if UnicodeTerminal() {
		return dotsSpinner
	}
	return lineSpinner
}

// Frame returns the frame for tick i.
func (s Spinner) Frame(i int) string {
	return s.Frames[i%len(s.Frames)]
}
