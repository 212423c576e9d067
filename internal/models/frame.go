package models

import "fmt"

// Matrix dimensions of the display
const (
	Rows = 8
	Cols = 8
)

// RGB is a color with each channel in [0, 255]
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Black is the fallback color for unmatched rules
var Black = RGB{}

// Hex returns the color as #rrggbb
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Frame is a full grid of pixels, indexed [y][x] with (0,0) at the top-left
type Frame [Rows][Cols]RGB

// Set writes the pixel at column x, row y. Out of range coordinates are ignored.
func (f *Frame) Set(x, y int, c RGB) {
	if x < 0 || x >= Cols || y < 0 || y >= Rows {
		return
	}
	f[y][x] = c
}

// At returns the pixel at column x, row y
func (f *Frame) At(x, y int) RGB {
	return f[y][x]
}
