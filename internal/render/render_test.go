package render

import (
	"image"
	"image/color"
	"testing"

	"mask2coco/internal/coco"
	"mask2coco/internal/contour"
	"mask2coco/internal/palette"
	"mask2coco/pkg/colorutil"
	"mask2coco/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var rect = geometry.Polygon{{X: 2, Y: 3}, {X: 2, Y: 9}, {X: 10, Y: 9}, {X: 10, Y: 3}}

func TestRasterizeRoundTrip(t *testing.T) {
	g := Rasterize(rect, 16, 12)
	assert.Equal(t, 9*7, g.Count())
	assert.False(t, g.At(1, 5))
	assert.False(t, g.At(11, 5))

	polys := contour.Native{}.Trace(g)
	require.Len(t, polys, 1)
	assert.Equal(t, rect.Bounds(), polys[0].Bounds())
}

func TestRasterizeDegenerate(t *testing.T) {
	assert.Zero(t, Rasterize(geometry.Polygon{{X: 1, Y: 1}, {X: 4, Y: 4}}, 8, 8).Count())
	assert.Zero(t, Rasterize(rect, 0, 0).Count())
}

func TestCategoryColorsFirstColorWins(t *testing.T) {
	pal := palette.MustNew([]palette.Spec{
		{Color: "1,2,3", Label: "car"},
		{Color: "4,5,6", Label: "road"},
		{Color: "7,8,9", Label: "car"},
	})
	colors := CategoryColors(pal)
	assert.Equal(t, colorutil.RGB{R: 1, G: 2, B: 3}, colors[1])
	assert.Equal(t, colorutil.RGB{R: 4, G: 5, B: 6}, colors[2])
	assert.Len(t, colors, 2)
}

func record(catID int) coco.Record {
	a := coco.NewAnnotation(rect, catID, 1)
	a.ID = 1
	return coco.NewRecord(a)
}

func TestOverlayOutline(t *testing.T) {
	dark := colorutil.RGB{R: 32, G: 64, B: 128}
	colors := map[int]colorutil.RGB{1: dark}

	img := Overlay(nil, geometry.Size{Width: 16, Height: 12}, []coco.Record{record(1)}, colors, DefaultStyle)
	assert.Equal(t, image.Rect(0, 0, 16, 12), img.Bounds())

	edge := img.RGBAAt(2, 6)
	assert.Greater(t, edge.R, uint8(200), "outline drawn in white on a dark category")
	assert.Equal(t, color.RGBA{A: 255}, img.RGBAAt(6, 6), "interior untouched without fill")
	assert.Equal(t, color.RGBA{A: 255}, img.RGBAAt(0, 0))
}

func TestOverlayFill(t *testing.T) {
	colors := map[int]colorutil.RGB{1: {R: 0, G: 0, B: 255}}
	style := DefaultStyle
	style.Fill = true

	img := Overlay(nil, geometry.Size{Width: 16, Height: 12}, []coco.Record{record(1)}, colors, style)
	inside := img.RGBAAt(6, 6)
	assert.Greater(t, inside.B, uint8(0))
	assert.Zero(t, inside.R)
}

func TestOverlayKeepsBase(t *testing.T) {
	base := image.NewNRGBA(image.Rect(5, 5, 25, 20))
	for y := 5; y < 20; y++ {
		for x := 5; x < 25; x++ {
			base.SetNRGBA(x, y, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
		}
	}

	img := Overlay(base, geometry.Size{}, nil, nil, DefaultStyle)
	assert.Equal(t, image.Rect(0, 0, 20, 15), img.Bounds())
	assert.Equal(t, color.RGBA{R: 10, G: 20, B: 30, A: 255}, img.RGBAAt(0, 0))
}

func TestOverlayUnknownCategoryUsesFallback(t *testing.T) {
	img := Overlay(nil, geometry.Size{Width: 16, Height: 12}, []coco.Record{record(9)}, nil, DefaultStyle)
	edge := img.RGBAAt(2, 6)
	assert.Greater(t, edge.R, uint8(200))
	assert.Greater(t, edge.B, uint8(200))
}
