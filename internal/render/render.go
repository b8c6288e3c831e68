// Package render draws annotation polygons, either as outlines over the mask
// they were traced from or filled into a fresh grid.
package render

import (
	"image"
	"image/color"
	"image/draw"

	"mask2coco/internal/coco"
	"mask2coco/internal/mask"
	"mask2coco/internal/palette"
	"mask2coco/pkg/colorutil"
	"mask2coco/pkg/geometry"

	"github.com/llgcode/draw2d/draw2dimg"
)

// Style controls how Overlay draws.
type Style struct {
	LineWidth float64
	// Fill shades each polygon with its category color at FillAlpha.
	Fill      bool
	FillAlpha uint8
}

// DefaultStyle draws 1px outlines without fill.
var DefaultStyle = Style{LineWidth: 1, FillAlpha: 96}

var fallback = color.RGBA{R: 255, G: 0, B: 255, A: 255}

// CategoryColors maps every category to the first palette color carrying
// its label.
func CategoryColors(pal *palette.Palette) map[int]colorutil.RGB {
	out := make(map[int]colorutil.RGB)
	for _, e := range pal.Entries() {
		if _, ok := out[e.CategoryID]; !ok {
			out[e.CategoryID] = e.Color
		}
	}
	return out
}

// Overlay draws the records over base. Outlines use a color contrasting
// with the category color so they stay visible on the mask itself. A nil
// base draws on a black canvas of the given size.
func Overlay(base image.Image, size geometry.Size, records []coco.Record, colors map[int]colorutil.RGB, style Style) *image.RGBA {
	var dst *image.RGBA
	if base != nil {
		b := base.Bounds()
		dst = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(dst, dst.Bounds(), base, b.Min, draw.Src)
	} else {
		dst = image.NewRGBA(image.Rect(0, 0, size.Width, size.Height))
		draw.Draw(dst, dst.Bounds(), image.NewUniform(color.RGBA{A: 255}), image.Point{}, draw.Src)
	}

	if style.LineWidth <= 0 {
		style.LineWidth = 1
	}

	gc := draw2dimg.NewGraphicContext(dst)
	gc.SetLineWidth(style.LineWidth)

	for _, r := range records {
		polys, err := r.Polygons()
		if err != nil {
			continue
		}

		fill, stroke := fallback, fallback
		if c, ok := colors[r.CategoryID]; ok {
			fill = c.RGBA()
			stroke = colorutil.Contrasting(c).RGBA()
		}
		fill.A = style.FillAlpha

		for _, p := range polys {
			if len(p) < 2 {
				continue
			}
			tracePath(gc, p, 0.5)
			gc.SetStrokeColor(stroke)
			if style.Fill {
				gc.SetFillColor(premultiply(fill))
				gc.FillStroke()
			} else {
				gc.Stroke()
			}
		}
	}

	return dst
}

// Rasterize fills poly into a width×height grid. Vertices are pixel
// coordinates, so the pixels the outline passes through are set along with
// the interior and tracing the result yields the same bounding box.
func Rasterize(poly geometry.Polygon, width, height int) *mask.Grid {
	g := mask.NewGrid(width, height)
	if len(poly) < 3 || width <= 0 || height <= 0 {
		return g
	}

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	gc := draw2dimg.NewGraphicContext(canvas)
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	gc.SetFillColor(white)
	gc.SetStrokeColor(white)
	gc.SetLineWidth(1)

	tracePath(gc, poly, 0.5)
	gc.FillStroke()

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if canvas.RGBAAt(x, y).A >= 128 {
				g.Set(x, y, true)
			}
		}
	}
	return g
}

// tracePath builds a closed path through the vertices, shifted by offset so
// that integer pixel coordinates land on pixel centres.
func tracePath(gc *draw2dimg.GraphicContext, p geometry.Polygon, offset float64) {
	gc.BeginPath()
	last := p[len(p)-1]
	gc.MoveTo(float64(last.X)+offset, float64(last.Y)+offset)
	for _, pt := range p {
		gc.LineTo(float64(pt.X)+offset, float64(pt.Y)+offset)
	}
	gc.Close()
}

func premultiply(c color.RGBA) color.RGBA {
	a := uint16(c.A)
	return color.RGBA{
		R: uint8(uint16(c.R) * a / 255),
		G: uint8(uint16(c.G) * a / 255),
		B: uint8(uint16(c.B) * a / 255),
		A: c.A,
	}
}
