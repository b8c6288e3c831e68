package mask

import (
	"image"
	"image/color"
	"testing"

	"mask2coco/pkg/colorutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildExactMatch(t *testing.T) {
	target := colorutil.RGB{R: 100, G: 150, B: 200}

	img := image.NewNRGBA(image.Rect(0, 0, 4, 2))
	fill := []color.NRGBA{
		{R: 100, G: 150, B: 200, A: 255},
		{R: 101, G: 150, B: 200, A: 255},
		{R: 100, G: 149, B: 200, A: 255},
		{R: 100, G: 150, B: 201, A: 255},
		{R: 99, G: 150, B: 200, A: 255},
		{R: 100, G: 151, B: 200, A: 255},
		{R: 100, G: 150, B: 199, A: 255},
		{R: 100, G: 150, B: 200, A: 255},
	}
	for i, c := range fill {
		img.SetNRGBA(i%4, i/4, c)
	}

	g := Build(NewRaster(img), target)
	require.Equal(t, 4, g.Width)
	require.Equal(t, 2, g.Height)

	assert.True(t, g.At(0, 0))
	assert.True(t, g.At(3, 1))
	assert.Equal(t, 2, g.Count(), "off-by-one channels must not match")
}

func TestBuildAllImageTypes(t *testing.T) {
	target := colorutil.RGB{R: 10, G: 20, B: 30}
	c := color.RGBA{R: 10, G: 20, B: 30, A: 255}

	rgba := image.NewRGBA(image.Rect(0, 0, 3, 3))
	rgba.SetRGBA(1, 1, c)

	pal := image.NewPaletted(image.Rect(0, 0, 3, 3), color.Palette{color.Black, c})
	pal.SetColorIndex(1, 1, 1)

	for name, img := range map[string]image.Image{"rgba": rgba, "paletted": pal} {
		g := Build(NewRaster(img), target)
		assert.Equal(t, 1, g.Count(), name)
		assert.True(t, g.At(1, 1), name)
	}
}

func TestRasterRebasesOrigin(t *testing.T) {
	img := image.NewNRGBA(image.Rect(5, 7, 8, 9))
	img.SetNRGBA(5, 7, color.NRGBA{R: 1, G: 2, B: 3, A: 255})

	r := NewRaster(img)
	assert.Equal(t, 3, r.Width)
	assert.Equal(t, 2, r.Height)
	assert.Equal(t, colorutil.RGB{R: 1, G: 2, B: 3}, r.At(0, 0))
}

func TestGridOutOfRange(t *testing.T) {
	g := NewGrid(2, 2)
	g.Set(1, 1, true)
	assert.True(t, g.At(1, 1))
	assert.False(t, g.At(-1, 0))
	assert.False(t, g.At(2, 0))
	assert.False(t, g.At(0, 2))
}
