package colors

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/colornames"

	"github.com/rewired-gh/hubbub/internal/models"
)

// ParseColor parses a CSS color string into an RGB triple. Supported forms are
// CSS keywords ("red", "rebeccapurple"), hex ("#f00", "#ff0000"), rgb()/rgba()
// with integer or percentage channels, and hsl()/hsla(). Alpha is ignored.
func ParseColor(s string) (models.RGB, error) {
	str := strings.ToLower(strings.TrimSpace(s))
	if str == "" {
		return models.Black, fmt.Errorf("empty color")
	}

	switch {
	case strings.HasPrefix(str, "#"):
		c, err := colorful.Hex(str)
		if err != nil {
			return models.Black, fmt.Errorf("invalid hex color %q: %w", s, err)
		}
		return fromColorful(c), nil
	case strings.HasPrefix(str, "rgb"):
		return parseRGBFunc(str)
	case strings.HasPrefix(str, "hsl"):
		return parseHSLFunc(str)
	case str == "transparent":
		return models.Black, nil
	}

	if c, ok := colornames.Map[str]; ok {
		return models.RGB{R: c.R, G: c.G, B: c.B}, nil
	}
	return models.Black, fmt.Errorf("unknown color %q", s)
}

// FromHSL converts hue in degrees, saturation and lightness in [0,1] to RGB,
// rounding each channel to the nearest integer.
func FromHSL(h, s, l float64) models.RGB {
	return fromColorful(colorful.Hsl(h, s, l).Clamped())
}

func fromColorful(c colorful.Color) models.RGB {
	r, g, b := c.Clamped().RGB255()
	return models.RGB{R: r, G: g, B: b}
}

// funcArgs splits "name(a, b, c)" into its arguments
func funcArgs(str string) ([]string, error) {
	open := strings.IndexByte(str, '(')
	if open < 0 || !strings.HasSuffix(str, ")") {
		return nil, fmt.Errorf("malformed color function %q", str)
	}
	inner := str[open+1 : len(str)-1]
	inner = strings.ReplaceAll(inner, "/", " ")
	parts := strings.FieldsFunc(inner, func(r rune) bool { return r == ',' || r == ' ' })
	if len(parts) != 3 && len(parts) != 4 {
		return nil, fmt.Errorf("color function %q needs 3 or 4 arguments", str)
	}
	return parts[:3], nil
}

func parseRGBFunc(str string) (models.RGB, error) {
	args, err := funcArgs(str)
	if err != nil {
		return models.Black, err
	}
	var ch [3]uint8
	for i, a := range args {
		v, err := parseChannel(a)
		if err != nil {
			return models.Black, fmt.Errorf("%s: %w", str, err)
		}
		ch[i] = v
	}
	return models.RGB{R: ch[0], G: ch[1], B: ch[2]}, nil
}

// parseChannel accepts "0".."255" or "0%".."100%"
func parseChannel(a string) (uint8, error) {
	frac := 1.0 / 255
	if strings.HasSuffix(a, "%") {
		a = strings.TrimSuffix(a, "%")
		frac = 0.01
	}
	f, err := strconv.ParseFloat(a, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid channel %q", a)
	}
	f = math.Max(0, math.Min(1, f*frac))
	return uint8(math.Round(f * 255)), nil
}

func parseHSLFunc(str string) (models.RGB, error) {
	args, err := funcArgs(str)
	if err != nil {
		return models.Black, err
	}
	h, err := strconv.ParseFloat(strings.TrimSuffix(args[0], "deg"), 64)
	if err != nil {
		return models.Black, fmt.Errorf("%s: invalid hue", str)
	}
	var sl [2]float64
	for i, a := range args[1:] {
		if !strings.HasSuffix(a, "%") {
			return models.Black, fmt.Errorf("%s: saturation and lightness must be percentages", str)
		}
		v, err := strconv.ParseFloat(strings.TrimSuffix(a, "%"), 64)
		if err != nil {
			return models.Black, fmt.Errorf("%s: invalid percentage %q", str, a)
		}
		sl[i] = math.Max(0, math.Min(1, v/100))
	}
	h = math.Mod(math.Mod(h, 360)+360, 360)
	return FromHSL(h, sl[0], sl[1]), nil
}
