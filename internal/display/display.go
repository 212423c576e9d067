// Package display provides the pixel matrix drivers that rendered frames are pushed to.
//
// A driver buffers SetPixel calls and only makes them visible on Show, so a
// partially written frame is never displayed.
package display

import (
	"fmt"
	"math"

	"github.com/rewired-gh/hubbub/internal/models"
)

// Driver is a fixed-size pixel matrix
type Driver interface {
	SetPixel(x, y int, c models.RGB)
	Clear()
	Show() error
	SetBrightness(v float64)
	SetRotation(deg int)
	Close() error
}

// New builds the driver named by kind: "terminal", "memory" or "unicornhat"
func New(kind string) (Driver, error) {
	switch kind {
	case "terminal", "":
		return NewTerminal(nil), nil
	case "memory":
		return NewMemory(), nil
	case "unicornhat":
		return NewUnicornHAT()
	default:
		return nil, fmt.Errorf("unknown display driver %q", kind)
	}
}

// buffer is the shared back buffer with brightness and rotation handling
type buffer struct {
	pending    models.Frame
	brightness float64
	rotation   int
}

func newBuffer() buffer {
	return buffer{brightness: 1.0}
}

func (b *buffer) set(x, y int, c models.RGB) {
	b.pending.Set(x, y, c)
}

func (b *buffer) clear() {
	b.pending = models.Frame{}
}

func (b *buffer) setBrightness(v float64) {
	b.brightness = math.Max(0, math.Min(1, v))
}

// setRotation accepts multiples of 90 degrees, anything else is snapped down
func (b *buffer) setRotation(deg int) {
	deg = ((deg % 360) + 360) % 360
	b.rotation = deg - deg%90
}

// output returns the pending frame with rotation and brightness applied
func (b *buffer) output() models.Frame {
	var out models.Frame
	for y := 0; y < models.Rows; y++ {
		for x := 0; x < models.Cols; x++ {
			rx, ry := rotate(x, y, b.rotation)
			out.Set(rx, ry, scale(b.pending.At(x, y), b.brightness))
		}
	}
	return out
}

// rotate maps logical coordinates to physical ones for a square matrix
func rotate(x, y, deg int) (int, int) {
	const last = models.Cols - 1
	switch deg {
	case 90:
		return last - y, x
	case 180:
		return last - x, last - y
	case 270:
		return y, last - x
	default:
		return x, y
	}
}

func scale(c models.RGB, f float64) models.RGB {
	if f >= 1 {
		return c
	}
	ch := func(v uint8) uint8 { return uint8(math.Round(float64(v) * f)) }
	return models.RGB{R: ch(c.R), G: ch(c.G), B: ch(c.B)}
}
