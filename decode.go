package shapefile

import (
	"encoding/binary"
	"math"

	"github.com/cockroachdb/errors"
)

// Record content offsets shared by the multi-point families.
const (
	tagSize         = 4
	boxSize         = 32
	rangeSize       = 16
	countsOffset    = tagSize + boxSize // first count after tag and bounding box
	multiPartHeader = countsOffset + 8  // numParts + numPoints
)

type decodeFunc func(t ShapeType, data []byte) (Geometry, error)

// decoders maps each layout family to its decode routine.
var decoders = map[Family]decodeFunc{
	FamilyPoint: func(t ShapeType, data []byte) (Geometry, error) {
		return decodePoint(t, data)
	},
	FamilyPolyLine: func(t ShapeType, data []byte) (Geometry, error) {
		lines, err := decodeParts(t, data)
		if err != nil {
			return nil, err
		}
		pl := PolyLine{Lines: make([]LineString, len(lines))}
		for i, pts := range lines {
			pl.Lines[i] = LineString(pts)
		}
		return pl, nil
	},
	FamilyPolygon: func(t ShapeType, data []byte) (Geometry, error) {
		rings, err := decodeParts(t, data)
		if err != nil {
			return nil, err
		}
		pg := Polygon{Rings: make([]LinearRing, len(rings))}
		for i, pts := range rings {
			pg.Rings[i] = LinearRing(pts)
		}
		return pg, nil
	},
	FamilyMultiPoint: func(t ShapeType, data []byte) (Geometry, error) {
		return decodeMultiPoint(t, data)
	},
	FamilyMultiPatch: func(t ShapeType, data []byte) (Geometry, error) {
		return decodeMultiPatch(t, data)
	},
}

// Decode decodes one record's content, dispatching on its own shape type
// tag. A null record decodes to Null.
func Decode(data []byte) (Geometry, error) {
	t, err := readShapeType(data)
	if err != nil {
		return nil, err
	}
	if t == ShapeTypeNull {
		return Null{}, nil
	}
	return decoders[t.Family()](t, data)
}

// DecodeAs decodes one record's content that must be of shape type expected.
// A null record decodes to the empty value of expected's family; any other
// tag that differs from expected is a format error.
func DecodeAs(data []byte, expected ShapeType) (Geometry, error) {
	if !expected.Valid() {
		return nil, errors.Wrapf(ErrUnsupportedShape, "expected shape type %d", int32(expected))
	}
	t, err := readShapeType(data)
	if err != nil {
		return nil, err
	}
	if t == ShapeTypeNull {
		return emptyGeometry(expected.Family()), nil
	}
	if t != expected {
		return nil, errors.Wrapf(ErrFormat, "shape type mismatch: expected %s, got %s", expected, t)
	}
	return decoders[t.Family()](t, data)
}

// DecodePoint decodes a Point, PointZ or PointM record.
func DecodePoint(data []byte) (Point, error) {
	g, err := decodeFamily(data, FamilyPoint)
	if err != nil {
		return EmptyPoint, err
	}
	return g.(Point), nil
}

// DecodePolyLine decodes a PolyLine, PolyLineZ or PolyLineM record.
func DecodePolyLine(data []byte) (PolyLine, error) {
	g, err := decodeFamily(data, FamilyPolyLine)
	if err != nil {
		return PolyLine{}, err
	}
	return g.(PolyLine), nil
}

// DecodePolygon decodes a Polygon, PolygonZ or PolygonM record.
func DecodePolygon(data []byte) (Polygon, error) {
	g, err := decodeFamily(data, FamilyPolygon)
	if err != nil {
		return Polygon{}, err
	}
	return g.(Polygon), nil
}

// DecodeMultiPoint decodes a MultiPoint, MultiPointZ or MultiPointM record.
func DecodeMultiPoint(data []byte) (MultiPoint, error) {
	g, err := decodeFamily(data, FamilyMultiPoint)
	if err != nil {
		return MultiPoint{}, err
	}
	return g.(MultiPoint), nil
}

// DecodeMultiPatch decodes a MultiPatch record.
func DecodeMultiPatch(data []byte) (MultiPatch, error) {
	g, err := decodeFamily(data, FamilyMultiPatch)
	if err != nil {
		return MultiPatch{}, err
	}
	return g.(MultiPatch), nil
}

func decodeFamily(data []byte, f Family) (Geometry, error) {
	t, err := readShapeType(data)
	if err != nil {
		return nil, err
	}
	if t == ShapeTypeNull {
		return emptyGeometry(f), nil
	}
	if t.Family() != f {
		return nil, errors.Wrapf(ErrFormat, "shape type mismatch: %s record read as %s", t, f)
	}
	return decoders[f](t, data)
}

func readShapeType(data []byte) (ShapeType, error) {
	if len(data) < tagSize {
		return ShapeTypeNull, errors.Wrapf(ErrTruncated, "record: need %d bytes, have %d", tagSize, len(data))
	}
	t := ShapeType(readInt32(data, 0))
	if !t.Valid() {
		return t, errors.Wrapf(ErrUnsupportedShape, "shape type %d", int32(t))
	}
	return t, nil
}

func decodePoint(t ShapeType, data []byte) (Point, error) {
	const (
		xOff = tagSize
		yOff = xOff + 8
		zOff = yOff + 8 // M for PointM
		mOff = zOff + 8
	)
	switch t {
	case ShapeTypePoint:
		if err := need(data, zOff, t); err != nil {
			return EmptyPoint, err
		}
		return NewPoint(readFloat64(data, xOff), readFloat64(data, yOff)), nil
	case ShapeTypePointZ:
		if err := need(data, mOff, t); err != nil {
			return EmptyPoint, err
		}
		p := NewPointZ(readFloat64(data, xOff), readFloat64(data, yOff), fromWire(readFloat64(data, zOff)))
		if len(data) >= mOff+8 {
			p.M = fromWire(readFloat64(data, mOff))
		}
		return p, nil
	case ShapeTypePointM:
		if err := need(data, mOff, t); err != nil {
			return EmptyPoint, err
		}
		return NewPointM(readFloat64(data, xOff), readFloat64(data, yOff), fromWire(readFloat64(data, zOff))), nil
	default:
		return EmptyPoint, errors.Wrapf(ErrUnsupportedShape, "%s is not a point type", t)
	}
}

// decodeParts decodes the PolyLine/Polygon layout into one point slice per
// part.
func decodeParts(t ShapeType, data []byte) ([][]Point, error) {
	if err := need(data, multiPartHeader, t); err != nil {
		return nil, err
	}
	numParts := readInt32(data, countsOffset)
	numPoints := readInt32(data, countsOffset+4)
	if err := checkCounts(t, numParts, numPoints); err != nil {
		return nil, err
	}

	partsOff := multiPartHeader
	xyOff := partsOff + 4*numParts
	l, err := coordLayoutFor(t, data, xyOff, numPoints)
	if err != nil {
		return nil, err
	}
	starts, err := readPartStarts(t, data, partsOff, numParts, numPoints)
	if err != nil {
		return nil, err
	}
	return splitParts(readPoints(data, l, numPoints), starts), nil
}

func decodeMultiPoint(t ShapeType, data []byte) (MultiPoint, error) {
	if err := need(data, countsOffset+4, t); err != nil {
		return MultiPoint{}, err
	}
	numPoints := readInt32(data, countsOffset)
	if numPoints < 0 {
		return MultiPoint{}, errors.Wrapf(ErrFormat, "%s record: negative point count %d", t, numPoints)
	}
	l, err := coordLayoutFor(t, data, countsOffset+4, numPoints)
	if err != nil {
		return MultiPoint{}, err
	}
	return MultiPoint{Points: readPoints(data, l, numPoints)}, nil
}

func decodeMultiPatch(t ShapeType, data []byte) (MultiPatch, error) {
	if err := need(data, multiPartHeader, t); err != nil {
		return MultiPatch{}, err
	}
	numParts := readInt32(data, countsOffset)
	numPoints := readInt32(data, countsOffset+4)
	if err := checkCounts(t, numParts, numPoints); err != nil {
		return MultiPatch{}, err
	}

	partsOff := multiPartHeader
	typesOff := partsOff + 4*numParts
	xyOff := typesOff + 4*numParts
	l, err := coordLayoutFor(t, data, xyOff, numPoints)
	if err != nil {
		return MultiPatch{}, err
	}
	starts, err := readPartStarts(t, data, partsOff, numParts, numPoints)
	if err != nil {
		return MultiPatch{}, err
	}

	parts := splitParts(readPoints(data, l, numPoints), starts)
	mp := MultiPatch{Surfaces: make([]Surface, numParts)}
	for i, pts := range parts {
		mp.Surfaces[i] = Surface{
			Type:   SurfaceType(readInt32(data, typesOff+4*i)),
			Points: pts,
		}
	}
	return mp, nil
}

func checkCounts(t ShapeType, numParts, numPoints int) error {
	switch {
	case numParts < 0 || numPoints < 0:
		return errors.Wrapf(ErrFormat, "%s record: negative counts (%d parts, %d points)", t, numParts, numPoints)
	case numParts == 0 && numPoints > 0:
		return errors.Wrapf(ErrFormat, "%s record: %d points in no parts", t, numPoints)
	}
	return nil
}

// coordLayout holds the byte offsets of the coordinate blocks in a record;
// a negative offset marks a block that is not present.
type coordLayout struct {
	xy, z, m int
}

func coordLayoutFor(t ShapeType, data []byte, xyOff, numPoints int) (coordLayout, error) {
	l := coordLayout{xy: xyOff, z: -1, m: -1}
	end := xyOff + 16*numPoints
	if err := need(data, end, t); err != nil {
		return l, err
	}
	if t.HasZ() {
		zEnd := end + rangeSize + 8*numPoints
		if err := need(data, zEnd, t); err != nil {
			return l, err
		}
		l.z = end + rangeSize
		end = zEnd
	}
	if t.HasM() {
		mEnd := end + rangeSize + 8*numPoints
		switch {
		case len(data) >= mEnd:
			l.m = end + rangeSize
		case t.requiresM():
			return l, need(data, mEnd, t)
		}
	}
	return l, nil
}

func readPoints(data []byte, l coordLayout, n int) []Point {
	pts := make([]Point, n)
	for i := range pts {
		p := NewPoint(readFloat64(data, l.xy+16*i), readFloat64(data, l.xy+16*i+8))
		if l.z >= 0 {
			p.Z = fromWire(readFloat64(data, l.z+8*i))
		}
		if l.m >= 0 {
			p.M = fromWire(readFloat64(data, l.m+8*i))
		}
		pts[i] = p
	}
	return pts
}

// readPartStarts reads and validates the part start indices: they begin at
// zero and never decrease or pass numPoints, so the parts partition the point
// array.
func readPartStarts(t ShapeType, data []byte, off, numParts, numPoints int) ([]int, error) {
	starts := make([]int, numParts)
	prev := 0
	for i := range starts {
		s := readInt32(data, off+4*i)
		switch {
		case i == 0 && s != 0:
			return nil, errors.Wrapf(ErrFormat, "%s record: first part starts at %d", t, s)
		case s < prev || s > numPoints:
			return nil, errors.Wrapf(ErrFormat, "%s record: part %d starts at %d (previous %d, %d points)", t, i, s, prev, numPoints)
		}
		starts[i] = s
		prev = s
	}
	return starts, nil
}

// splitParts cuts pts at the part starts. The last part runs to the end.
func splitParts(pts []Point, starts []int) [][]Point {
	parts := make([][]Point, len(starts))
	for i, start := range starts {
		end := len(pts)
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		parts[i] = pts[start:end:end]
	}
	return parts
}

func need(data []byte, n int, t ShapeType) error {
	if len(data) < n {
		return errors.Wrapf(ErrTruncated, "%s record: need %d bytes, have %d", t, n, len(data))
	}
	return nil
}

func readInt32(data []byte, off int) int {
	return int(int32(binary.LittleEndian.Uint32(data[off:])))
}

func readFloat64(data []byte, off int) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(data[off:]))
}
