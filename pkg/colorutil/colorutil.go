// Package colorutil provides the exact-match color type used to read mask palettes.
package colorutil

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// RGB is an 8-bit color triple in R,G,B order.
//
// Palette keys are written "R,G,B". Go's image decoders produce RGB, so no
// swap is needed when matching decoded images. OpenCV matrices store BGR;
// use BGR to get the swapped triple for that path.
type RGB struct {
	R, G, B uint8
}

// ParseRGB parses a palette key of the form "r,g,b".
func ParseRGB(s string) (RGB, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return RGB{}, fmt.Errorf("color %q: want 3 channels, got %d", s, len(parts))
	}

	var ch [3]uint8
	for i, part := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(part), 10, 8)
		if err != nil {
			return RGB{}, fmt.Errorf("color %q: channel %d: %w", s, i, err)
		}
		ch[i] = uint8(v)
	}
	return RGB{R: ch[0], G: ch[1], B: ch[2]}, nil
}

// Equal reports whether all three channels match exactly.
func (c RGB) Equal(other RGB) bool {
	return c.R == other.R && c.G == other.G && c.B == other.B
}

// String formats the color as "r,g,b".
func (c RGB) String() string {
	return fmt.Sprintf("%d,%d,%d", c.R, c.G, c.B)
}

// BGR returns the triple in OpenCV storage order.
func (c RGB) BGR() [3]uint8 {
	return [3]uint8{c.B, c.G, c.R}
}

// RGBA returns the opaque color.RGBA for drawing.
func (c RGB) RGBA() color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}
}

// FromColor converts any color to an RGB triple, dropping alpha.
// Channels are taken non-premultiplied so opaque and translucent pixels of
// the same paint compare equal.
func FromColor(c color.Color) RGB {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return RGB{R: n.R, G: n.G, B: n.B}
}

// Contrasting returns black or white, whichever reads better on c.
func Contrasting(c RGB) RGB {
	// Rec. 601 luma
	luma := 299*int(c.R) + 587*int(c.G) + 114*int(c.B)
	if luma > 128*1000 {
		return RGB{}
	}
	return RGB{R: 255, G: 255, B: 255}
}
