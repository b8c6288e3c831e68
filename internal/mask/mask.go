// Package mask turns decoded mask images into per-color occupancy grids.
package mask

import (
	"image"

	"mask2coco/pkg/colorutil"
)

// Raster is a decoded image flattened to packed 8-bit RGB, row-major,
// with its origin moved to (0,0).
type Raster struct {
	Width  int
	Height int
	Pix    []uint8 // 3 bytes per pixel
}

// NewRaster flattens img once so that matching several colors against the
// same image does not go through the color.Color interface each time.
func NewRaster(img image.Image) *Raster {
	b := img.Bounds()
	r := &Raster{
		Width:  b.Dx(),
		Height: b.Dy(),
		Pix:    make([]uint8, b.Dx()*b.Dy()*3),
	}

	switch src := img.(type) {
	case *image.NRGBA:
		for y := 0; y < r.Height; y++ {
			row := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):]
			for x := 0; x < r.Width; x++ {
				o := (y*r.Width + x) * 3
				r.Pix[o], r.Pix[o+1], r.Pix[o+2] = row[x*4], row[x*4+1], row[x*4+2]
			}
		}
	case *image.RGBA:
		for y := 0; y < r.Height; y++ {
			row := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):]
			for x := 0; x < r.Width; x++ {
				a := row[x*4+3]
				if a != 255 {
					c := colorutil.FromColor(src.At(b.Min.X+x, b.Min.Y+y))
					r.set(x, y, c)
					continue
				}
				o := (y*r.Width + x) * 3
				r.Pix[o], r.Pix[o+1], r.Pix[o+2] = row[x*4], row[x*4+1], row[x*4+2]
			}
		}
	default:
		for y := 0; y < r.Height; y++ {
			for x := 0; x < r.Width; x++ {
				r.set(x, y, colorutil.FromColor(img.At(b.Min.X+x, b.Min.Y+y)))
			}
		}
	}

	return r
}

func (r *Raster) set(x, y int, c colorutil.RGB) {
	o := (y*r.Width + x) * 3
	r.Pix[o], r.Pix[o+1], r.Pix[o+2] = c.R, c.G, c.B
}

// At returns the color at (x, y).
func (r *Raster) At(x, y int) colorutil.RGB {
	o := (y*r.Width + x) * 3
	return colorutil.RGB{R: r.Pix[o], G: r.Pix[o+1], B: r.Pix[o+2]}
}

// Grid is a binary occupancy field.
type Grid struct {
	Width  int
	Height int
	Cells  []bool // row-major
}

// NewGrid returns an empty grid.
func NewGrid(width, height int) *Grid {
	return &Grid{Width: width, Height: height, Cells: make([]bool, width*height)}
}

// At reports whether (x, y) is set. Out-of-range coordinates are unset.
func (g *Grid) At(x, y int) bool {
	if x < 0 || y < 0 || x >= g.Width || y >= g.Height {
		return false
	}
	return g.Cells[y*g.Width+x]
}

// Set marks (x, y).
func (g *Grid) Set(x, y int, v bool) {
	g.Cells[y*g.Width+x] = v
}

// Count returns the number of set cells.
func (g *Grid) Count() int {
	n := 0
	for _, c := range g.Cells {
		if c {
			n++
		}
	}
	return n
}

// Build marks every pixel of r that equals target exactly.
func Build(r *Raster, target colorutil.RGB) *Grid {
	g := NewGrid(r.Width, r.Height)
	for i := range g.Cells {
		o := i * 3
		g.Cells[i] = r.Pix[o] == target.R && r.Pix[o+1] == target.G && r.Pix[o+2] == target.B
	}
	return g
}
