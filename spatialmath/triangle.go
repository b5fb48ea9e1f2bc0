package spatialmath

import (
	"github.com/golang/geo/r2"
)

// Triangle2D is an immutable triangle in the field plane.
type Triangle2D struct {
	p0, p1, p2 r2.Point
	// barycentric denominator; zero when the triangle is degenerate
	det float64
}

// NewTriangle2D returns the triangle with the given vertices.
func NewTriangle2D(p0, p1, p2 r2.Point) Triangle2D {
	return Triangle2D{
		p0:  p0,
		p1:  p1,
		p2:  p2,
		det: (p1.Y-p2.Y)*(p0.X-p2.X) + (p2.X-p1.X)*(p0.Y-p2.Y),
	}
}

// Points returns the vertices in construction order.
func (t Triangle2D) Points() [3]r2.Point {
	return [3]r2.Point{t.p0, t.p1, t.p2}
}

// Degenerate reports whether the vertices are collinear.
func (t Triangle2D) Degenerate() bool {
	return t.det == 0
}

// Barycentric returns the weights (u, v, w) of pt against (p0, p1, p2). ok is false and every
// weight is zero when the triangle is degenerate.
func (t Triangle2D) Barycentric(pt r2.Point) (u, v, w float64, ok bool) {
	if t.det == 0 {
		return 0, 0, 0, false
	}
	u = ((t.p1.Y-t.p2.Y)*(pt.X-t.p2.X) + (t.p2.X-t.p1.X)*(pt.Y-t.p2.Y)) / t.det
	v = ((t.p2.Y-t.p0.Y)*(pt.X-t.p2.X) + (t.p0.X-t.p2.X)*(pt.Y-t.p2.Y)) / t.det
	w = 1 - u - v
	return u, v, w, true
}

// Contains reports whether pt lies inside the triangle or on its boundary. A degenerate
// triangle contains nothing.
func (t Triangle2D) Contains(pt r2.Point) bool {
	u, v, w, ok := t.Barycentric(pt)
	return ok && u >= 0 && v >= 0 && w >= 0
}

// ClosestPoint returns the point of the triangle nearest to pt. Points inside are returned as is.
func (t Triangle2D) ClosestPoint(pt r2.Point) r2.Point {
	if t.Contains(pt) {
		return pt
	}

	closest := closestPointSegmentPoint(t.p0, t.p1, pt)
	bestDist := pt.Sub(closest).Norm()

	if cand := closestPointSegmentPoint(t.p1, t.p2, pt); pt.Sub(cand).Norm() < bestDist {
		closest = cand
		bestDist = pt.Sub(cand).Norm()
	}
	if cand := closestPointSegmentPoint(t.p2, t.p0, pt); pt.Sub(cand).Norm() < bestDist {
		closest = cand
	}
	return closest
}

// DistanceTo returns how far pt is from the triangle; zero for points inside.
func (t Triangle2D) DistanceTo(pt r2.Point) float64 {
	return pt.Sub(t.ClosestPoint(pt)).Norm()
}

// closestPointSegmentPoint takes a line segment and a point, and returns the point on the segment
// closest to pt.
func closestPointSegmentPoint(segStart, segEnd, pt r2.Point) r2.Point {
	seg := segEnd.Sub(segStart)
	lenSq := seg.Dot(seg)
	if lenSq == 0 {
		return segStart
	}
	s := pt.Sub(segStart).Dot(seg) / lenSq
	switch {
	case s <= 0:
		return segStart
	case s >= 1:
		return segEnd
	default:
		return segStart.Add(seg.Mul(s))
	}
}
