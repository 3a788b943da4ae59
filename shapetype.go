package shapefile

import "strconv"

// A ShapeType is the shape type tag that leads every record and is declared
// in the file header.
type ShapeType int32

// Shape types.
const (
	ShapeTypeNull        ShapeType = 0
	ShapeTypePoint       ShapeType = 1
	ShapeTypePolyLine    ShapeType = 3
	ShapeTypePolygon     ShapeType = 5
	ShapeTypeMultiPoint  ShapeType = 8
	ShapeTypePointZ      ShapeType = 11
	ShapeTypePolyLineZ   ShapeType = 13
	ShapeTypePolygonZ    ShapeType = 15
	ShapeTypeMultiPointZ ShapeType = 18
	ShapeTypePointM      ShapeType = 21
	ShapeTypePolyLineM   ShapeType = 23
	ShapeTypePolygonM    ShapeType = 25
	ShapeTypeMultiPointM ShapeType = 28
	ShapeTypeMultiPatch  ShapeType = 31
)

var shapeTypeNames = map[ShapeType]string{
	ShapeTypeNull:        "Null",
	ShapeTypePoint:       "Point",
	ShapeTypePolyLine:    "PolyLine",
	ShapeTypePolygon:     "Polygon",
	ShapeTypeMultiPoint:  "MultiPoint",
	ShapeTypePointZ:      "PointZ",
	ShapeTypePolyLineZ:   "PolyLineZ",
	ShapeTypePolygonZ:    "PolygonZ",
	ShapeTypeMultiPointZ: "MultiPointZ",
	ShapeTypePointM:      "PointM",
	ShapeTypePolyLineM:   "PolyLineM",
	ShapeTypePolygonM:    "PolygonM",
	ShapeTypeMultiPointM: "MultiPointM",
	ShapeTypeMultiPatch:  "MultiPatch",
}

func (t ShapeType) String() string {
	if name, ok := shapeTypeNames[t]; ok {
		return name
	}
	return "ShapeType(" + strconv.Itoa(int(t)) + ")"
}

// Valid reports whether t is one of the known shape types.
func (t ShapeType) Valid() bool {
	_, ok := shapeTypeNames[t]
	return ok
}

// A Family groups the shape types that share one record layout.
type Family int

// Shape families.
const (
	FamilyNull Family = iota
	FamilyPoint
	FamilyPolyLine
	FamilyPolygon
	FamilyMultiPoint
	FamilyMultiPatch
)

func (f Family) String() string {
	switch f {
	case FamilyNull:
		return "Null"
	case FamilyPoint:
		return "Point"
	case FamilyPolyLine:
		return "PolyLine"
	case FamilyPolygon:
		return "Polygon"
	case FamilyMultiPoint:
		return "MultiPoint"
	case FamilyMultiPatch:
		return "MultiPatch"
	default:
		return "Family(" + strconv.Itoa(int(f)) + ")"
	}
}

// Family returns the record layout family of t. Unknown types map to
// FamilyNull; check Valid first.
func (t ShapeType) Family() Family {
	switch t {
	case ShapeTypePoint, ShapeTypePointZ, ShapeTypePointM:
		return FamilyPoint
	case ShapeTypePolyLine, ShapeTypePolyLineZ, ShapeTypePolyLineM:
		return FamilyPolyLine
	case ShapeTypePolygon, ShapeTypePolygonZ, ShapeTypePolygonM:
		return FamilyPolygon
	case ShapeTypeMultiPoint, ShapeTypeMultiPointZ, ShapeTypeMultiPointM:
		return FamilyMultiPoint
	case ShapeTypeMultiPatch:
		return FamilyMultiPatch
	default:
		return FamilyNull
	}
}

// HasZ reports whether records of type t carry a Z block.
func (t ShapeType) HasZ() bool {
	switch t {
	case ShapeTypePointZ, ShapeTypePolyLineZ, ShapeTypePolygonZ, ShapeTypeMultiPointZ, ShapeTypeMultiPatch:
		return true
	default:
		return false
	}
}

// HasM reports whether records of type t may carry an M block. For the Z
// types the M block is optional.
func (t ShapeType) HasM() bool {
	switch t {
	case ShapeTypePointM, ShapeTypePolyLineM, ShapeTypePolygonM, ShapeTypeMultiPointM:
		return true
	default:
		return t.HasZ()
	}
}

// requiresM reports whether the M block is mandatory for t.
func (t ShapeType) requiresM() bool {
	return t.HasM() && !t.HasZ()
}

// A SurfaceType describes how the points of one MultiPatch part are joined.
type SurfaceType int32

// Surface types.
const (
	SurfaceTriangleStrip SurfaceType = 0
	SurfaceTriangleFan   SurfaceType = 1
	SurfaceOuterRing     SurfaceType = 2
	SurfaceInnerRing     SurfaceType = 3
	SurfaceFirstRing     SurfaceType = 4
	SurfaceRing          SurfaceType = 5
)

func (t SurfaceType) String() string {
	switch t {
	case SurfaceTriangleStrip:
		return "TriangleStrip"
	case SurfaceTriangleFan:
		return "TriangleFan"
	case SurfaceOuterRing:
		return "OuterRing"
	case SurfaceInnerRing:
		return "InnerRing"
	case SurfaceFirstRing:
		return "FirstRing"
	case SurfaceRing:
		return "Ring"
	default:
		return "SurfaceType(" + strconv.Itoa(int(t)) + ")"
	}
}
