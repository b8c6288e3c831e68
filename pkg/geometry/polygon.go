package geometry

import "fmt"

// Polygon is an ordered, open ring of integer vertices: the first vertex is
// not repeated at the end.
type Polygon []PointInt

// Bounds returns the bounding rectangle of the polygon's vertices.
func (p Polygon) Bounds() RectInt {
	return BoundingRect(p)
}

// Flatten returns the vertices as an alternating x,y sequence.
func (p Polygon) Flatten() []float64 {
	flat := make([]float64, 0, len(p)*2)
	for _, pt := range p {
		flat = append(flat, float64(pt.X), float64(pt.Y))
	}
	return flat
}

// PolygonFromFlat rebuilds a polygon from an alternating x,y sequence.
// Fractional coordinates are truncated.
func PolygonFromFlat(flat []float64) (Polygon, error) {
	if len(flat)%2 != 0 {
		return nil, fmt.Errorf("odd coordinate count %d", len(flat))
	}
	poly := make(Polygon, 0, len(flat)/2)
	for i := 0; i < len(flat); i += 2 {
		poly = append(poly, PointInt{X: int(flat[i]), Y: int(flat[i+1])})
	}
	return poly, nil
}

// ShoelaceArea returns the absolute enclosed area of the polygon's vertex
// ring. Returns 0 for fewer than 3 vertices.
func (p Polygon) ShoelaceArea() float64 {
	n := len(p)
	if n < 3 {
		return 0
	}

	var sum int
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += p[i].X*p[j].Y - p[j].X*p[i].Y
	}
	if sum < 0 {
		sum = -sum
	}
	return float64(sum) / 2
}

// Contains tests if a point is inside the polygon using ray casting.
func (p Polygon) Contains(pt Point2D) bool {
	if len(p) < 3 {
		return false
	}

	inside := false
	n := len(p)

	for i := 0; i < n; i++ {
		j := (i + 1) % n
		pi, pj := p[i].ToFloat(), p[j].ToFloat()

		// Check if ray from pt going right intersects edge pi-pj
		if ((pi.Y > pt.Y) != (pj.Y > pt.Y)) &&
			(pt.X < (pj.X-pi.X)*(pt.Y-pi.Y)/(pj.Y-pi.Y)+pi.X) {
			inside = !inside
		}
	}

	return inside
}

// Scaled returns the vertices as floating-point points multiplied by factor.
func (p Polygon) Scaled(factor float64) []Point2D {
	out := make([]Point2D, len(p))
	for i, pt := range p {
		out[i] = Point2D{X: float64(pt.X) * factor, Y: float64(pt.Y) * factor}
	}
	return out
}
