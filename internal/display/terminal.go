package display

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/rewired-gh/hubbub/internal/models"
)

// Terminal draws the matrix as colored cells on a terminal
type Terminal struct {
	mu     sync.Mutex
	out    io.Writer
	buf    buffer
	drawn  bool
	inline bool
}

// NewTerminal creates a terminal driver writing to w (stdout when nil).
// Successive frames redraw in place.
func NewTerminal(w io.Writer) *Terminal {
	if w == nil {
		w = os.Stdout
	}
	return &Terminal{out: w, buf: newBuffer(), inline: true}
}

func (t *Terminal) SetPixel(x, y int, c models.RGB) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf.set(x, y, c)
}

func (t *Terminal) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf.clear()
}

func (t *Terminal) SetBrightness(v float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf.setBrightness(v)
}

func (t *Terminal) SetRotation(deg int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf.setRotation(deg)
}

func (t *Terminal) Show() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var sb strings.Builder
	if t.inline && t.drawn {
		// cursor up over the previous frame
		fmt.Fprintf(&sb, "\x1b[%dA", models.Rows)
	}
	sb.WriteString(renderFrame(t.buf.output()))
	t.drawn = true

	_, err := io.WriteString(t.out, sb.String())
	return err
}

func (t *Terminal) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf.clear()
	return nil
}

// renderFrame returns one line per row, two spaces per pixel
func renderFrame(f models.Frame) string {
	var sb strings.Builder
	for y := 0; y < models.Rows; y++ {
		for x := 0; x < models.Cols; x++ {
			cell := lipgloss.NewStyle().Background(lipgloss.Color(f.At(x, y).Hex()))
			sb.WriteString(cell.Render("  "))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
