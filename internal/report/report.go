// Package report summarises a dataset per category.
package report

import (
	"fmt"
	"io"
	"math"
	"sort"

	"mask2coco/internal/coco"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// CategoryStats describes the annotations of one category. Box areas are
// the recorded areas; polygon areas are the enclosed shoelace areas.
type CategoryStats struct {
	ID          int
	Name        string
	Annotations int
	Images      int
	BoxMean     float64
	BoxStdDev   float64
	BoxMin      float64
	BoxMax      float64
	PolyMean    float64
	// Fill is the summed polygon area over the summed box area.
	Fill float64
}

// Summary is the whole-dataset view.
type Summary struct {
	Images          int
	ImagesAnnotated int
	Annotations     int
	Categories      []CategoryStats
	MeanPerImage    float64
	MaxPerImage     int
	InvalidPolygons int
}

// Summarize computes per-category statistics. Categories appear in the
// order of ds.Categories, including those without annotations.
func Summarize(ds *coco.Dataset) Summary {
	boxes := make(map[int][]float64)
	polys := make(map[int][]float64)
	images := make(map[int]map[int]struct{})
	perImage := make(map[int]int)
	invalid := 0

	for _, a := range ds.Annotations {
		boxes[a.CategoryID] = append(boxes[a.CategoryID], a.Area)
		if images[a.CategoryID] == nil {
			images[a.CategoryID] = make(map[int]struct{})
		}
		images[a.CategoryID][a.ImageID] = struct{}{}
		perImage[a.ImageID]++

		pp, err := a.Polygons()
		if err != nil {
			invalid++
			continue
		}
		area := 0.0
		for _, p := range pp {
			area += p.ShoelaceArea()
		}
		polys[a.CategoryID] = append(polys[a.CategoryID], area)
	}

	s := Summary{
		Images:          len(ds.Images),
		ImagesAnnotated: len(perImage),
		Annotations:     len(ds.Annotations),
		InvalidPolygons: invalid,
	}

	counts := make([]float64, 0, len(ds.Images))
	for _, img := range ds.Images {
		counts = append(counts, float64(perImage[img.ID]))
	}
	if len(counts) > 0 {
		s.MeanPerImage = stat.Mean(counts, nil)
		s.MaxPerImage = int(floats.Max(counts))
	}

	for _, c := range ds.Categories {
		cs := CategoryStats{ID: c.ID, Name: c.Name, Images: len(images[c.ID])}
		b := boxes[c.ID]
		cs.Annotations = len(b)
		if len(b) > 0 {
			cs.BoxMean, cs.BoxStdDev = stat.MeanStdDev(b, nil)
			if len(b) == 1 {
				cs.BoxStdDev = 0
			}
			cs.BoxMin = floats.Min(b)
			cs.BoxMax = floats.Max(b)
		}
		if p := polys[c.ID]; len(p) > 0 {
			cs.PolyMean = stat.Mean(p, nil)
			if sum := floats.Sum(b); sum > 0 {
				cs.Fill = floats.Sum(p) / sum
			}
		}
		s.Categories = append(s.Categories, cs)
	}

	return s
}

// Busiest returns the categories with annotations, most annotations first
// and ties by id.
func (s Summary) Busiest() []CategoryStats {
	out := make([]CategoryStats, 0, len(s.Categories))
	for _, c := range s.Categories {
		if c.Annotations > 0 {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Annotations != out[j].Annotations {
			return out[i].Annotations > out[j].Annotations
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Print writes the summary as a fixed-width table.
func (s Summary) Print(w io.Writer) {
	fmt.Fprintf(w, "Images: %d (%d with annotations)\n", s.Images, s.ImagesAnnotated)
	fmt.Fprintf(w, "Annotations: %d (%.2f per image, max %d)\n", s.Annotations, s.MeanPerImage, s.MaxPerImage)
	if s.InvalidPolygons > 0 {
		fmt.Fprintf(w, "Invalid segmentations: %d\n", s.InvalidPolygons)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%4s  %-16s %7s %7s %10s %10s %8s %9s %10s %5s\n",
		"ID", "Category", "Count", "Images", "BoxMean", "BoxStd", "BoxMin", "BoxMax", "PolyMean", "Fill")
	for _, c := range s.Categories {
		fmt.Fprintf(w, "%4d  %-16s %7d %7d %10.1f %10.1f %8.0f %9.0f %10.1f %5s\n",
			c.ID, c.Name, c.Annotations, c.Images,
			c.BoxMean, c.BoxStdDev, c.BoxMin, c.BoxMax, c.PolyMean, percent(c.Fill))
	}
}

func percent(f float64) string {
	if f == 0 || math.IsNaN(f) {
		return "-"
	}
	return fmt.Sprintf("%.0f%%", f*100)
}
