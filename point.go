package shapefile

import (
	"math"

	"github.com/paulmach/orb"
)

// Wire values at or below noDataThreshold mean "no value" for Z and M.
const noDataThreshold = -1.0e38

// absent is the in-memory value of a missing Z or M ordinate.
var absent = math.NaN()

// A Point is a coordinate with optional Z and M ordinates. A missing Z or M
// is NaN; use HasZ and HasM rather than inspecting the values.
type Point struct {
	X, Y, Z, M float64
}

// EmptyPoint is the point with no ordinates at all. It is the value of a
// Point record with a null payload.
var EmptyPoint = Point{X: absent, Y: absent, Z: absent, M: absent}

// NewPoint returns a 2D point.
func NewPoint(x, y float64) Point {
	return Point{X: x, Y: y, Z: absent, M: absent}
}

// NewPointZ returns a point with an elevation.
func NewPointZ(x, y, z float64) Point {
	return Point{X: x, Y: y, Z: z, M: absent}
}

// NewPointM returns a point with a measure.
func NewPointM(x, y, m float64) Point {
	return Point{X: x, Y: y, Z: absent, M: m}
}

// NewPointZM returns a point with both an elevation and a measure.
func NewPointZM(x, y, z, m float64) Point {
	return Point{X: x, Y: y, Z: z, M: m}
}

// HasZ reports whether p carries an elevation.
func (p Point) HasZ() bool { return !math.IsNaN(p.Z) }

// HasM reports whether p carries a measure.
func (p Point) HasM() bool { return !math.IsNaN(p.M) }

// IsEmpty reports whether p has no X/Y position.
func (p Point) IsEmpty() bool { return math.IsNaN(p.X) || math.IsNaN(p.Y) }

// Equal compares two points ordinate by ordinate. Two absent ordinates are
// equal.
func (p Point) Equal(o Point) bool {
	return sameOrdinate(p.X, o.X) && sameOrdinate(p.Y, o.Y) &&
		sameOrdinate(p.Z, o.Z) && sameOrdinate(p.M, o.M)
}

// Orb returns the 2D projection of p.
func (p Point) Orb() orb.Point {
	return orb.Point{p.X, p.Y}
}

func sameOrdinate(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	return a == b
}

// fromWire maps the wire "no data" encoding onto the in-memory one.
func fromWire(v float64) float64 {
	if v <= noDataThreshold {
		return absent
	}
	return v
}

// A BoundingBox is an axis-aligned envelope over X, Y, Z and M.
type BoundingBox struct {
	Min, Max Point
}

// EmptyBoundingBox is the box of a geometry without points.
var EmptyBoundingBox = BoundingBox{Min: EmptyPoint, Max: EmptyPoint}

// HasZ reports whether both corners carry an elevation.
func (b BoundingBox) HasZ() bool { return b.Min.HasZ() && b.Max.HasZ() }

// HasM reports whether both corners carry a measure.
func (b BoundingBox) HasM() bool { return b.Min.HasM() && b.Max.HasM() }

// IsEmpty reports whether the box covers no position.
func (b BoundingBox) IsEmpty() bool { return b.Min.IsEmpty() || b.Max.IsEmpty() }

// Orb returns the 2D projection of b. An empty box maps to the zero bound.
func (b BoundingBox) Orb() orb.Bound {
	if b.IsEmpty() {
		return orb.Bound{}
	}
	return orb.Bound{Min: b.Min.Orb(), Max: b.Max.Orb()}
}

// Extend returns the smallest box that covers both b and o.
func (b BoundingBox) Extend(o BoundingBox) BoundingBox {
	return BoundingBoxFromPoints([]Point{b.Min, b.Max, o.Min, o.Max})
}

// BoundingBoxFromPoints folds the points into their envelope. Absent
// ordinates are skipped; an axis no point carries stays absent on both
// corners. No points yields EmptyBoundingBox.
func BoundingBoxFromPoints(points []Point) BoundingBox {
	var acc boxAccumulator
	acc.reset()
	for _, p := range points {
		acc.add(p)
	}
	return acc.box()
}

type boxAccumulator struct {
	min, max [4]float64
}

func (a *boxAccumulator) reset() {
	for i := range a.min {
		a.min[i] = math.Inf(1)
		a.max[i] = math.Inf(-1)
	}
}

func (a *boxAccumulator) add(p Point) {
	for i, v := range [4]float64{p.X, p.Y, p.Z, p.M} {
		if math.IsNaN(v) {
			continue
		}
		if v < a.min[i] {
			a.min[i] = v
		}
		if v > a.max[i] {
			a.max[i] = v
		}
	}
}

func (a *boxAccumulator) box() BoundingBox {
	var lo, hi [4]float64
	for i := range lo {
		if a.min[i] > a.max[i] {
			lo[i], hi[i] = absent, absent
			continue
		}
		lo[i], hi[i] = a.min[i], a.max[i]
	}
	return BoundingBox{
		Min: Point{X: lo[0], Y: lo[1], Z: lo[2], M: lo[3]},
		Max: Point{X: hi[0], Y: hi[1], Z: hi[2], M: hi[3]},
	}
}
