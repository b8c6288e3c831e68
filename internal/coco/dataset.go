package coco

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"mask2coco/internal/palette"
	"mask2coco/pkg/geometry"
)

// Supercategory is written on every category.
const Supercategory = "none"

// Image is the wire form of an image entry.
type Image struct {
	ID       int    `json:"id"`
	FileName string `json:"file_name"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// Record is the wire form of an annotation. Coordinates are numbers so
// that files produced elsewhere, with fractional polygons, load too.
type Record struct {
	ID           int         `json:"id"`
	ImageID      int         `json:"image_id"`
	CategoryID   int         `json:"category_id"`
	IsCrowd      int         `json:"iscrowd"`
	Segmentation [][]float64 `json:"segmentation"`
	BBox         []float64   `json:"bbox"`
	Area         float64     `json:"area"`
}

// Category is the wire form of a category entry.
type Category struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Supercategory string `json:"supercategory"`
}

// Dataset is a COCO document with its three top-level collections.
type Dataset struct {
	Images      []Image    `json:"images"`
	Annotations []Record   `json:"annotations"`
	Categories  []Category `json:"categories"`
}

// Assemble builds the document. Every image gets an entry of the declared
// size whether or not it produced annotations.
func Assemble(images []ImageRef, anns []Annotation, cats []palette.Category, size geometry.Size) *Dataset {
	ds := &Dataset{
		Images:      make([]Image, 0, len(images)),
		Annotations: make([]Record, 0, len(anns)),
		Categories:  make([]Category, 0, len(cats)),
	}

	for _, img := range images {
		ds.Images = append(ds.Images, Image{
			ID:       img.ID,
			FileName: img.FileName,
			Width:    size.Width,
			Height:   size.Height,
		})
	}

	for _, a := range anns {
		ds.Annotations = append(ds.Annotations, NewRecord(a))
	}

	for _, c := range cats {
		ds.Categories = append(ds.Categories, Category{
			ID:            c.ID,
			Name:          c.Name,
			Supercategory: Supercategory,
		})
	}

	return ds
}

// NewRecord converts an annotation to its wire form.
func NewRecord(a Annotation) Record {
	b := a.BBox
	return Record{
		ID:           a.ID,
		ImageID:      a.ImageID,
		CategoryID:   a.CategoryID,
		IsCrowd:      0,
		Segmentation: [][]float64{a.Polygon.Flatten()},
		BBox:         []float64{float64(b.X), float64(b.Y), float64(b.Width), float64(b.Height)},
		Area:         float64(a.Area),
	}
}

// Polygons decodes the record's segmentation.
func (r Record) Polygons() ([]geometry.Polygon, error) {
	polys := make([]geometry.Polygon, 0, len(r.Segmentation))
	for i, flat := range r.Segmentation {
		p, err := geometry.PolygonFromFlat(flat)
		if err != nil {
			return nil, fmt.Errorf("annotation %d segmentation %d: %w", r.ID, i, err)
		}
		polys = append(polys, p)
	}
	return polys, nil
}

// Write saves the dataset as indented JSON, creating parent directories.
func (ds *Dataset) Write(path string) error {
	data, err := json.MarshalIndent(ds, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode dataset: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write dataset: %w", err)
	}
	return nil
}

// Load reads a COCO annotation file.
func Load(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var ds Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return &ds, nil
}

// BuildFileNameIndex maps image id to file name.
func BuildFileNameIndex(imgs []Image) map[int]string {
	ret := make(map[int]string, len(imgs))
	for _, img := range imgs {
		ret[img.ID] = img.FileName
	}
	return ret
}

// AnnotationsByImage groups annotation records by image id, keeping order.
func (ds *Dataset) AnnotationsByImage() map[int][]Record {
	ret := make(map[int][]Record)
	for _, a := range ds.Annotations {
		ret[a.ImageID] = append(ret[a.ImageID], a)
	}
	return ret
}

// CategoryNames maps category id to name.
func (ds *Dataset) CategoryNames() map[int]string {
	ret := make(map[int]string, len(ds.Categories))
	for _, c := range ds.Categories {
		ret[c.ID] = c.Name
	}
	return ret
}
