package shapefile

// Geometry is a decoded shape: one of Null, Point, PolyLine, Polygon,
// MultiPoint or MultiPatch. The set is closed; switch on the concrete type.
type Geometry interface {
	// Family returns the record layout family the geometry was decoded from.
	Family() Family
	// BoundingBox computes the envelope of every point in the geometry.
	BoundingBox() BoundingBox

	geometry()
}

// Null is the geometry of a record without a shape.
type Null struct{}

func (Null) Family() Family           { return FamilyNull }
func (Null) BoundingBox() BoundingBox { return EmptyBoundingBox }
func (Null) geometry()                {}

func (Point) Family() Family { return FamilyPoint }

// BoundingBox returns the degenerate box at p.
func (p Point) BoundingBox() BoundingBox {
	if p.IsEmpty() {
		return EmptyBoundingBox
	}
	return BoundingBox{Min: p, Max: p}
}

func (Point) geometry() {}

// A LineString is one part of a PolyLine.
type LineString []Point

// Equal compares two line strings point by point.
func (ls LineString) Equal(o LineString) bool {
	return pointsEqual(ls, o)
}

// A LinearRing is one ring of a Polygon. Closure and orientation are not
// checked.
type LinearRing []Point

// Equal compares two rings point by point.
func (r LinearRing) Equal(o LinearRing) bool {
	return pointsEqual(r, o)
}

// A Surface is one part of a MultiPatch.
type Surface struct {
	Type   SurfaceType
	Points []Point
}

// Equal compares the surface type and every point.
func (s Surface) Equal(o Surface) bool {
	return s.Type == o.Type && pointsEqual(s.Points, o.Points)
}

// PolyLine is an ordered set of line strings.
type PolyLine struct {
	Lines []LineString
}

func (PolyLine) Family() Family { return FamilyPolyLine }

func (pl PolyLine) BoundingBox() BoundingBox {
	var acc boxAccumulator
	acc.reset()
	for _, ls := range pl.Lines {
		for _, p := range ls {
			acc.add(p)
		}
	}
	return acc.box()
}

// NumPoints returns the number of points across all parts.
func (pl PolyLine) NumPoints() int {
	n := 0
	for _, ls := range pl.Lines {
		n += len(ls)
	}
	return n
}

// Equal compares two polylines part by part.
func (pl PolyLine) Equal(o PolyLine) bool {
	if len(pl.Lines) != len(o.Lines) {
		return false
	}
	for i := range pl.Lines {
		if !pl.Lines[i].Equal(o.Lines[i]) {
			return false
		}
	}
	return true
}

func (PolyLine) geometry() {}

// Polygon is an ordered set of rings. Rings are kept in file order; outer
// rings and holes are not told apart.
type Polygon struct {
	Rings []LinearRing
}

func (Polygon) Family() Family { return FamilyPolygon }

func (pg Polygon) BoundingBox() BoundingBox {
	var acc boxAccumulator
	acc.reset()
	for _, r := range pg.Rings {
		for _, p := range r {
			acc.add(p)
		}
	}
	return acc.box()
}

// ExteriorRing returns the first ring, or nil for an empty polygon.
func (pg Polygon) ExteriorRing() LinearRing {
	if len(pg.Rings) == 0 {
		return nil
	}
	return pg.Rings[0]
}

// NumPoints returns the number of points across all rings.
func (pg Polygon) NumPoints() int {
	n := 0
	for _, r := range pg.Rings {
		n += len(r)
	}
	return n
}

// Equal compares two polygons ring by ring.
func (pg Polygon) Equal(o Polygon) bool {
	if len(pg.Rings) != len(o.Rings) {
		return false
	}
	for i := range pg.Rings {
		if !pg.Rings[i].Equal(o.Rings[i]) {
			return false
		}
	}
	return true
}

func (Polygon) geometry() {}

// MultiPoint is an unordered set of points.
type MultiPoint struct {
	Points []Point
}

func (MultiPoint) Family() Family { return FamilyMultiPoint }

func (mp MultiPoint) BoundingBox() BoundingBox {
	return BoundingBoxFromPoints(mp.Points)
}

// Equal compares two multipoints point by point.
func (mp MultiPoint) Equal(o MultiPoint) bool {
	return pointsEqual(mp.Points, o.Points)
}

func (MultiPoint) geometry() {}

// MultiPatch is a set of surface patches.
type MultiPatch struct {
	Surfaces []Surface
}

func (MultiPatch) Family() Family { return FamilyMultiPatch }

func (mp MultiPatch) BoundingBox() BoundingBox {
	var acc boxAccumulator
	acc.reset()
	for _, s := range mp.Surfaces {
		for _, p := range s.Points {
			acc.add(p)
		}
	}
	return acc.box()
}

// Equal compares two multipatches surface by surface.
func (mp MultiPatch) Equal(o MultiPatch) bool {
	if len(mp.Surfaces) != len(o.Surfaces) {
		return false
	}
	for i := range mp.Surfaces {
		if !mp.Surfaces[i].Equal(o.Surfaces[i]) {
			return false
		}
	}
	return true
}

func (MultiPatch) geometry() {}

// Polygons flattens the patches into polygons. Triangle strips and fans
// become one closed triangle per polygon; an outer or first ring starts a new
// polygon that following inner and plain rings attach to as holes.
func (mp MultiPatch) Polygons() [][]LinearRing {
	polys := make([][]LinearRing, 0, len(mp.Surfaces))
	var current []LinearRing
	flush := func() {
		if len(current) > 0 {
			polys = append(polys, current)
			current = nil
		}
	}

	for _, s := range mp.Surfaces {
		pts := s.Points
		switch s.Type {
		case SurfaceTriangleStrip:
			flush()
			for i := 2; i < len(pts); i++ {
				polys = append(polys, []LinearRing{{pts[i-2], pts[i-1], pts[i], pts[i-2]}})
			}
		case SurfaceTriangleFan:
			flush()
			for i := 2; i < len(pts); i++ {
				polys = append(polys, []LinearRing{{pts[0], pts[i-1], pts[i], pts[0]}})
			}
		case SurfaceInnerRing, SurfaceRing:
			current = append(current, LinearRing(pts))
		default:
			flush()
			current = []LinearRing{LinearRing(pts)}
		}
	}
	flush()
	return polys
}

// emptyGeometry returns the value a null payload takes when read as family f.
func emptyGeometry(f Family) Geometry {
	switch f {
	case FamilyPoint:
		return EmptyPoint
	case FamilyPolyLine:
		return PolyLine{}
	case FamilyPolygon:
		return Polygon{}
	case FamilyMultiPoint:
		return MultiPoint{}
	case FamilyMultiPatch:
		return MultiPatch{}
	default:
		return Null{}
	}
}

func pointsEqual(a, b []Point) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
