package glottoguess

import (
	"math"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

// earthRadiusKm converts kilometer buffer distances to angles on the unit
// sphere. Great-circle distances stay metrically faithful at every latitude,
// unlike buffering in raw geographic degrees.
const earthRadiusKm = 6371.0

func kmToAngle(km float64) s1.Angle {
	return s1.Angle(km / earthRadiusKm)
}

// GeometryInput is the closed set of spatial inputs accepted by BuildRegion:
// Point, Polygon, MultiPolygon, or a Collection of those. Each variant knows
// how to add itself to a Region, so normalization never inspects runtime
// types.
type GeometryInput interface {
	addTo(r *Region) error
}

// Point is a geographic coordinate pair in degrees.
type Point struct {
	Lon float64
	Lat float64
}

// Ring is a closed sequence of vertices in geographic coordinates. The
// closing vertex may be repeated or omitted.
type Ring []Point

// Polygon is a single region bounded by an outer ring with optional holes.
type Polygon struct {
	Outer Ring
	Holes []Ring
}

// MultiPolygon is a set of polygons treated as one (possibly disconnected)
// region.
type MultiPolygon []Polygon

// Collection is a heterogeneous group of geometries. Members are merged into
// one unified region before any buffering, never buffered piecewise.
type Collection []GeometryInput

// Region is the unified query geometry produced by BuildRegion: the union of
// all input members on the unit sphere. It is ephemeral and carries no
// cross-call state.
type Region struct {
	points []s2.Point
	polys  []*s2.Polygon
}

// BuildRegion normalizes a spatial input into a single unified Region.
// It returns *InvalidGeometryError when the input is nil, empty, or contains
// invalid coordinates.
func BuildRegion(in GeometryInput) (*Region, error) {
	if in == nil {
		return nil, &InvalidGeometryError{Reason: "nil input"}
	}
	r := &Region{}
	if err := in.addTo(r); err != nil {
		return nil, err
	}
	if r.empty() {
		return nil, &InvalidGeometryError{Reason: "input contains no geometry"}
	}
	return r, nil
}

func (r *Region) empty() bool {
	return len(r.points) == 0 && len(r.polys) == 0
}

func validCoord(lon, lat float64) bool {
	if math.IsNaN(lon) || math.IsNaN(lat) || math.IsInf(lon, 0) || math.IsInf(lat, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

func (p Point) addTo(r *Region) error {
	if !validCoord(p.Lon, p.Lat) {
		return &InvalidGeometryError{Reason: "coordinate out of range"}
	}
	r.points = append(r.points, s2.PointFromLatLng(s2.LatLngFromDegrees(p.Lat, p.Lon)))
	return nil
}

// loopFromRing converts a ring into an S2 loop, dropping a repeated closing
// vertex and normalizing orientation so the loop encloses the smaller area.
func loopFromRing(ring Ring) (*s2.Loop, error) {
	if len(ring) > 1 && ring[0] == ring[len(ring)-1] {
		ring = ring[:len(ring)-1]
	}
	if len(ring) < 3 {
		return nil, &InvalidGeometryError{Reason: "ring has fewer than 3 distinct vertices"}
	}
	pts := make([]s2.Point, 0, len(ring))
	for _, v := range ring {
		if !validCoord(v.Lon, v.Lat) {
			return nil, &InvalidGeometryError{Reason: "ring vertex out of range"}
		}
		pts = append(pts, s2.PointFromLatLng(s2.LatLngFromDegrees(v.Lat, v.Lon)))
	}
	loop := s2.LoopFromPoints(pts)
	loop.Normalize()
	return loop, nil
}

func (p Polygon) addTo(r *Region) error {
	outer, err := loopFromRing(p.Outer)
	if err != nil {
		return err
	}
	loops := []*s2.Loop{outer}
	for _, h := range p.Holes {
		hole, err := loopFromRing(h)
		if err != nil {
			return err
		}
		loops = append(loops, hole)
	}
	r.polys = append(r.polys, s2.PolygonFromLoops(loops))
	return nil
}

func (mp MultiPolygon) addTo(r *Region) error {
	if len(mp) == 0 {
		return &InvalidGeometryError{Reason: "empty multipolygon"}
	}
	for _, p := range mp {
		if err := p.addTo(r); err != nil {
			return err
		}
	}
	return nil
}

func (c Collection) addTo(r *Region) error {
	if len(c) == 0 {
		return &InvalidGeometryError{Reason: "empty collection"}
	}
	for _, m := range c {
		if m == nil {
			return &InvalidGeometryError{Reason: "nil collection member"}
		}
		if err := m.addTo(r); err != nil {
			return err
		}
	}
	return nil
}

// bufferedRegion is a Region expanded outward by a fixed geodesic distance.
// Intersection tests are boundary-inclusive: touching counts as intersecting.
type bufferedRegion struct {
	region *Region
	radius s1.Angle
	bounds []s2.Cap // per-member quick-reject bounds, expanded by radius
}

// buffered expands the region outward by bufferKm kilometers. A zero buffer
// degenerates to intersection with the unbuffered region.
func (r *Region) buffered(bufferKm float64) *bufferedRegion {
	radius := kmToAngle(bufferKm)
	b := &bufferedRegion{region: r, radius: radius}
	for _, p := range r.points {
		b.bounds = append(b.bounds, s2.CapFromCenterAngle(p, radius))
	}
	for _, poly := range r.polys {
		b.bounds = append(b.bounds, poly.CapBound().Expanded(radius))
	}
	return b
}

// intersects reports whether a point lies within the buffered region. For a
// point catalog entry this is equivalent to testing inclusion in the buffer
// polygon around the unified region.
func (b *bufferedRegion) intersects(p s2.Point) bool {
	hit := false
	for _, c := range b.bounds {
		if c.ContainsPoint(p) {
			hit = true
			break
		}
	}
	if !hit {
		return false
	}

	for _, q := range b.region.points {
		if p.Distance(q) <= b.radius {
			return true
		}
	}
	for _, poly := range b.region.polys {
		if poly.ContainsPoint(p) {
			return true
		}
		if boundaryDistance(p, poly) <= b.radius {
			return true
		}
	}
	return false
}

// boundaryDistance returns the minimum geodesic distance from p to the
// polygon's boundary edges.
func boundaryDistance(p s2.Point, poly *s2.Polygon) s1.Angle {
	min := s1.Angle(math.Inf(1))
	for i := 0; i < poly.NumLoops(); i++ {
		loop := poly.Loop(i)
		n := loop.NumVertices()
		for j := 0; j < n; j++ {
			d := s2.DistanceFromSegment(p, loop.Vertex(j), loop.Vertex((j+1)%n))
			if d < min {
				min = d
			}
		}
	}
	return min
}
