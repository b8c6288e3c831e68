// Package coco builds COCO-style annotation records and datasets.
package coco

import (
	"mask2coco/pkg/geometry"
)

// Annotation is one traced region. ID is zero until the batch merge
// assigns it.
type Annotation struct {
	ID         int
	ImageID    int
	CategoryID int
	Polygon    geometry.Polygon
	BBox       geometry.RectInt
	Area       int
}

// NewAnnotation derives the bounding box and area of poly. The box spans
// the extreme vertex coordinates (no +1) and the area is the box area, not
// the polygon's enclosed area.
func NewAnnotation(poly geometry.Polygon, categoryID, imageID int) Annotation {
	bbox := poly.Bounds()
	return Annotation{
		ImageID:    imageID,
		CategoryID: categoryID,
		Polygon:    poly,
		BBox:       bbox,
		Area:       bbox.Area(),
	}
}

// ImageRef pairs an image id with the file it was read from.
type ImageRef struct {
	ID       int
	FileName string
}
