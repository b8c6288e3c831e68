// Package pipeline turns mask images into annotations: per image through
// every palette color, and per batch across a fixed set of workers.
package pipeline

import (
	"image"

	"mask2coco/internal/cache"
	"mask2coco/internal/coco"
	"mask2coco/internal/contour"
	"mask2coco/internal/mask"
	"mask2coco/internal/palette"
)

// ProcessImage runs every palette color of img through mask building,
// tracing and annotation, in palette order.
func ProcessImage(img image.Image, imageID int, pal *palette.Palette, tracer contour.Tracer) []coco.Annotation {
	regions, _ := TraceRegions(img, pal, tracer)
	return Annotate(regions, imageID)
}

// TraceRegions returns the regions of every palette color, colors in
// palette order and regions of one color in raster order. dropped counts
// colors that were present in the image but traced to no region.
func TraceRegions(img image.Image, pal *palette.Palette, tracer contour.Tracer) (regions []cache.Region, dropped int) {
	raster := mask.NewRaster(img)

	for _, e := range pal.Entries() {
		grid := mask.Build(raster, e.Color)
		polys := tracer.Trace(grid)
		if len(polys) == 0 {
			if grid.Count() > 0 {
				dropped++
			}
			continue
		}
		for _, p := range polys {
			regions = append(regions, cache.Region{CategoryID: e.CategoryID, Polygon: p})
		}
	}

	return regions, dropped
}

// Annotate builds one annotation per region.
func Annotate(regions []cache.Region, imageID int) []coco.Annotation {
	if len(regions) == 0 {
		return nil
	}
	anns := make([]coco.Annotation, 0, len(regions))
	for _, r := range regions {
		anns = append(anns, coco.NewAnnotation(r.Polygon, r.CategoryID, imageID))
	}
	return anns
}
