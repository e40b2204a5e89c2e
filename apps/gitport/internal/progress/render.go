package progress

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	activeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
)

// Renderer writes one line per status transition. Pending transitions are
// only shown when Verbose is set.
type Renderer struct {
	mu      sync.Mutex
	w       io.Writer
	color   bool
	Verbose bool
}

// NewRenderer returns a Renderer writing to w. Colour is enabled when w is a
// terminal.
func NewRenderer(w io.Writer) *Renderer {
	return &Renderer{w: w, color: isTerminal(w)}
}

// Report implements Reporter.
func (r *Renderer) Report(e Event) {
	var line string
	switch e.Status {
	case StatusPending:
		if !r.Verbose {
			return
		}
		line = r.style(pendingStyle, "·") + " Queued file: " + e.Path
	case StatusInProgress:
		line = r.style(activeStyle, "…") + " Importing file: " + e.Path
	case StatusSucceeded:
		line = r.style(okStyle, "✔") + " Imported file: " + e.Path
	case StatusFailed:
		line = r.style(failStyle, "✖") + " Error downloading file: " + e.Path
		if e.Err != nil {
			line += fmt.Sprintf(" (%v)", e.Err)
		}
	case StatusSkipped:
		line = r.style(pendingStyle, "-") + " Skipped file: " + e.Path
		if e.Err != nil {
			line += fmt.Sprintf(" (%v)", e.Err)
		}
	default:
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = fmt.Fprintln(r.w, line)
}

// Success prints a highlighted completion message.
func (r *Renderer) Success(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = fmt.Fprintln(r.w, r.style(okStyle.Bold(true), msg))
}

// Warn prints a highlighted warning.
func (r *Renderer) Warn(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = fmt.Fprintln(r.w, r.style(lipgloss.NewStyle().Foreground(lipgloss.Color("3")), msg))
}

func (r *Renderer) style(s lipgloss.Style, text string) string {
	if !r.color {
		return text
	}
	return s.Render(text)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
