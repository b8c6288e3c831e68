package contour

import (
	"runtime"

	"mask2coco/internal/mask"
	"mask2coco/pkg/geometry"

	"gocv.io/x/gocv"
)

// OpenCV traces outlines with cv::findContours in external mode with simple
// chain approximation. OpenCV returns contours in its own order; they are
// re-sorted into raster order of their first point.
type OpenCV struct{}

// Name implements Tracer.
func (OpenCV) Name() string { return "opencv" }

// Trace implements Tracer.
func (OpenCV) Trace(g *mask.Grid) []geometry.Polygon {
	if g.Width == 0 || g.Height == 0 {
		return nil
	}

	data := make([]byte, len(g.Cells))
	for i, set := range g.Cells {
		if set {
			data[i] = 255
		}
	}

	m, err := gocv.NewMatFromBytes(g.Height, g.Width, gocv.MatTypeCV8U, data)
	if err != nil {
		return nil
	}
	defer m.Close()

	contours := gocv.FindContours(m, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()
	runtime.KeepAlive(data)

	polys := make([]geometry.Polygon, 0, contours.Size())
	for i := 0; i < contours.Size(); i++ {
		pts := contours.At(i).ToPoints()
		poly := make(geometry.Polygon, len(pts))
		for j, p := range pts {
			poly[j] = geometry.FromImagePoint(p)
		}
		polys = append(polys, poly)
	}

	return keepRegions(polys)
}
