package pipeline

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"mask2coco/internal/cache"
	"mask2coco/internal/coco"
	"mask2coco/internal/contour"
	"mask2coco/internal/mask"
	"mask2coco/internal/metrics"
	"mask2coco/internal/palette"
	"mask2coco/pkg/geometry"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	carColor  = color.NRGBA{R: 113, G: 174, B: 206, A: 255}
	roadColor = color.NRGBA{R: 250, G: 125, B: 187, A: 255}
	busColor  = color.NRGBA{R: 32, G: 64, B: 128, A: 255}
	white     = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
)

func testPalette() *palette.Palette {
	return palette.MustNew([]palette.Spec{
		{Color: "250,125,187", Label: "road"},
		{Color: "113,174,206", Label: "car"},
		{Color: "32,64,128", Label: "vehicle"},
		{Color: "1,1,1", Label: "car"},
	})
}

func newMask(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	fillRect(img, 0, 0, w-1, h-1, white)
	return img
}

func fillRect(img *image.NRGBA, x0, y0, x1, y1 int, c color.NRGBA) {
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
}

func writePNG(t *testing.T, dir, name string, img image.Image) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func TestProcessImageSingleRectangle(t *testing.T) {
	img := newMask(20, 15)
	fillRect(img, 2, 3, 10, 9, carColor)

	anns := ProcessImage(img, 5, testPalette(), contour.Native{})
	require.Len(t, anns, 1)
	assert.Equal(t, 5, anns[0].ImageID)
	assert.Equal(t, 2, anns[0].CategoryID)
	assert.Equal(t, geometry.RectInt{X: 2, Y: 3, Width: 8, Height: 6}, anns[0].BBox)
	assert.Equal(t, 48, anns[0].Area)
}

func TestProcessImageColorsInPaletteOrder(t *testing.T) {
	img := newMask(30, 10)
	fillRect(img, 1, 1, 4, 4, carColor)
	fillRect(img, 10, 1, 14, 4, roadColor)
	fillRect(img, 20, 1, 24, 4, busColor)
	fillRect(img, 26, 6, 28, 8, carColor)
	img.SetNRGBA(0, 9, color.NRGBA{R: 1, G: 1, B: 1, A: 255})

	anns := ProcessImage(img, 1, testPalette(), contour.Native{})
	require.Len(t, anns, 4)

	var cats []int
	for _, a := range anns {
		cats = append(cats, a.CategoryID)
	}
	// road (palette entry 0), two cars in raster order, then vehicle; the
	// lone 1,1,1 pixel is degenerate
	assert.Equal(t, []int{1, 2, 2, 3}, cats)
	assert.Equal(t, 1, anns[1].BBox.X)
	assert.Equal(t, 26, anns[2].BBox.X)
}

func TestProcessImageSeveralBlobs(t *testing.T) {
	img := newMask(40, 40)
	for i := 0; i < 5; i++ {
		fillRect(img, i*8, i*8, i*8+1, i*8+1, busColor)
	}

	anns := ProcessImage(img, 1, testPalette(), contour.Native{})
	assert.Len(t, anns, 5)
	for _, a := range anns {
		assert.GreaterOrEqual(t, len(a.Polygon), 3)
	}
}

func TestProcessImageNoMatch(t *testing.T) {
	assert.Empty(t, ProcessImage(newMask(8, 8), 1, testPalette(), contour.Native{}))
}

func writeDataset(t *testing.T) (string, []string) {
	t.Helper()
	dir := t.TempDir()

	a := newMask(20, 20)
	fillRect(a, 1, 1, 5, 5, carColor)
	fillRect(a, 10, 10, 15, 18, roadColor)

	b := newMask(20, 20)
	fillRect(b, 3, 3, 8, 4, busColor)

	c := newMask(20, 20)
	fillRect(c, 0, 0, 19, 2, roadColor)
	fillRect(c, 4, 10, 6, 12, carColor)
	fillRect(c, 12, 10, 16, 12, carColor)

	return dir, []string{
		writePNG(t, dir, "A.png", a),
		writePNG(t, dir, "B.png", b),
		writePNG(t, dir, "C.png", c),
	}
}

func TestImageIDsFollowInputPosition(t *testing.T) {
	_, paths := writeDataset(t)

	batch := New(testPalette(), Options{Workers: 2}).Run(context.Background(), paths)
	assert.Equal(t, []coco.ImageRef{
		{ID: 1, FileName: "A.png"},
		{ID: 2, FileName: "B.png"},
		{ID: 3, FileName: "C.png"},
	}, batch.Images)

	byImage := make(map[int][]int)
	for _, a := range batch.Annotations {
		byImage[a.ImageID] = append(byImage[a.ImageID], a.CategoryID)
	}
	assert.Equal(t, []int{1, 2}, byImage[1])
	assert.Equal(t, []int{3}, byImage[2])
	assert.Equal(t, []int{1, 2, 2}, byImage[3])
}

func TestMergeOrderAndIDs(t *testing.T) {
	_, paths := writeDataset(t)

	batch := New(testPalette(), Options{Workers: 2}).Run(context.Background(), paths)
	require.Len(t, batch.Annotations, 6)

	// worker 0 had A and C, worker 1 had B
	var order []int
	for i, a := range batch.Annotations {
		assert.Equal(t, i+1, a.ID)
		order = append(order, a.ImageID)
	}
	assert.Equal(t, []int{1, 1, 3, 3, 3, 2}, order)
}

func TestRunIsDeterministic(t *testing.T) {
	_, paths := writeDataset(t)
	c := New(testPalette(), Options{Workers: 3})

	first := c.Run(context.Background(), paths)
	for i := 0; i < 3; i++ {
		assert.Equal(t, first, c.Run(context.Background(), paths))
	}
}

func TestWorkerCountDoesNotChangeImageIDs(t *testing.T) {
	_, paths := writeDataset(t)

	for _, n := range []int{0, 1, 2, 3, 8} {
		batch := New(testPalette(), Options{Workers: n}).Run(context.Background(), paths)
		require.Len(t, batch.Images, 3, "workers=%d", n)
		assert.Equal(t, "C.png", batch.Images[2].FileName, "workers=%d", n)

		perImage := make(map[int]int)
		for _, a := range batch.Annotations {
			perImage[a.ImageID]++
		}
		assert.Equal(t, map[int]int{1: 2, 2: 1, 3: 3}, perImage, "workers=%d", n)
	}
}

func TestMissingImageKeepsItsEntry(t *testing.T) {
	dir, paths := writeDataset(t)
	paths = []string{paths[0], filepath.Join(dir, "missing.png"), paths[2]}
	garbage := filepath.Join(dir, "garbage.png")
	require.NoError(t, os.WriteFile(garbage, []byte("not a png"), 0o644))
	paths = append(paths, garbage)

	m := metrics.New()
	batch := New(testPalette(), Options{Workers: 2, Metrics: m}).Run(context.Background(), paths)

	require.Len(t, batch.Images, 4)
	assert.Equal(t, "missing.png", batch.Images[1].FileName)
	assert.Equal(t, 2, batch.Failed)

	perImage := make(map[int]int)
	for _, a := range batch.Annotations {
		perImage[a.ImageID]++
	}
	assert.Equal(t, map[int]int{1: 2, 3: 3}, perImage)

	assert.Equal(t, 4.0, testutil.ToFloat64(m.ImagesTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ImageFailuresTotal))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.AnnotationsTotal.WithLabelValues("car")))
}

func TestEmptyInput(t *testing.T) {
	batch := New(testPalette(), Options{}).Run(context.Background(), nil)
	assert.Empty(t, batch.Images)
	assert.Empty(t, batch.Annotations)
}

type mapCache struct {
	mu      sync.Mutex
	entries map[string][]cache.Region
	getErr  error
	gets    int
	sets    int
}

func (m *mapCache) GetRegions(_ context.Context, key string) ([]cache.Region, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	r, ok := m.entries[key]
	return r, ok, nil
}

func (m *mapCache) SetRegions(_ context.Context, key string, regions []cache.Region) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	m.entries[key] = regions
	return nil
}

func TestCachedRunMatchesUncached(t *testing.T) {
	_, paths := writeDataset(t)
	want := New(testPalette(), Options{Workers: 2}).Run(context.Background(), paths)

	mc := &mapCache{entries: make(map[string][]cache.Region)}
	m := metrics.New()
	c := New(testPalette(), Options{Workers: 2, Cache: mc, Metrics: m})

	cold := c.Run(context.Background(), paths)
	assert.Equal(t, want, cold)
	assert.Equal(t, 3, mc.sets)

	warm := c.Run(context.Background(), paths)
	assert.Equal(t, want, warm)
	assert.Equal(t, 3, mc.sets, "warm run must not re-trace")
	assert.Equal(t, 3.0, testutil.ToFloat64(m.CacheHitsTotal))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.CacheMissesTotal))
}

func TestCacheErrorIsAMiss(t *testing.T) {
	_, paths := writeDataset(t)
	want := New(testPalette(), Options{Workers: 2}).Run(context.Background(), paths)

	mc := &mapCache{entries: make(map[string][]cache.Region), getErr: errors.New("connection refused")}
	got := New(testPalette(), Options{Workers: 2, Cache: mc}).Run(context.Background(), paths)
	assert.Equal(t, want, got)
}

type panickyTracer struct{}

func (panickyTracer) Name() string { return "panicky" }

func (panickyTracer) Trace(g *mask.Grid) []geometry.Polygon {
	if g.Width == 20 && g.Count() > 0 {
		panic("boom")
	}
	return nil
}

func TestPanicDoesNotAbortBatch(t *testing.T) {
	_, paths := writeDataset(t)
	batch := New(testPalette(), Options{Workers: 2, Tracer: panickyTracer{}}).Run(context.Background(), paths)
	assert.Len(t, batch.Images, 3)
	assert.Empty(t, batch.Annotations)
	assert.Equal(t, 3, batch.Failed)
}
