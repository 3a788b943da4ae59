package shapefile

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
	"github.com/twpayne/go-geom/encoding/wkbcommon"
	"github.com/twpayne/go-geom/encoding/wkt"
)

// ToGeom converts a decoded shape to a go-geom geometry, keeping Z and M.
// The layout follows the channels the shape's bounding box carries; a point
// missing an ordinate its layout carries gets NaN.
//
//	Null       -> empty *geom.GeometryCollection
//	Point      -> *geom.Point
//	MultiPoint -> *geom.MultiPoint
//	PolyLine   -> *geom.MultiLineString
//	Polygon    -> *geom.Polygon
//	MultiPatch -> *geom.GeometryCollection of *geom.Polygon
func ToGeom(g Geometry) (geom.T, error) {
	switch v := g.(type) {
	case nil, Null:
		return geom.NewGeometryCollection(), nil
	case Point:
		if v.IsEmpty() {
			return geom.NewPointEmpty(geom.XY), nil
		}
		layout := layoutOf(v.BoundingBox())
		return geom.NewPointFlat(layout, appendFlat(nil, layout, v)), nil
	case MultiPoint:
		layout := layoutOf(v.BoundingBox())
		var flat []float64
		for _, p := range v.Points {
			flat = appendFlat(flat, layout, p)
		}
		return geom.NewMultiPointFlat(layout, flat), nil
	case PolyLine:
		layout := layoutOf(v.BoundingBox())
		parts := make([][]Point, len(v.Lines))
		for i, ls := range v.Lines {
			parts[i] = ls
		}
		flat, ends := flatParts(layout, parts)
		return geom.NewMultiLineStringFlat(layout, flat, ends), nil
	case Polygon:
		layout := layoutOf(v.BoundingBox())
		return polygonToGeom(layout, v.Rings), nil
	case MultiPatch:
		layout := layoutOf(v.BoundingBox())
		gc := geom.NewGeometryCollection()
		for _, rings := range v.Polygons() {
			if err := gc.Push(polygonToGeom(layout, rings)); err != nil {
				return nil, errors.Wrap(err, "multipatch")
			}
		}
		return gc, nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedShape, "geometry %T", g)
	}
}

// MarshalWKT returns the Well-Known Text of g.
func MarshalWKT(g Geometry) (string, error) {
	t, err := ToGeom(g)
	if err != nil {
		return "", err
	}
	return wkt.Marshal(t)
}

// MarshalWKB returns the Well-Known Binary of g. Empty points are written
// with NaN coordinates.
func MarshalWKB(g Geometry, byteOrder binary.ByteOrder) ([]byte, error) {
	t, err := ToGeom(g)
	if err != nil {
		return nil, err
	}
	return wkb.Marshal(t, byteOrder, wkbcommon.WKBOptionEmptyPointHandling(wkbcommon.EmptyPointHandlingNaN))
}

func layoutOf(b BoundingBox) geom.Layout {
	switch {
	case b.HasZ() && b.HasM():
		return geom.XYZM
	case b.HasZ():
		return geom.XYZ
	case b.HasM():
		return geom.XYM
	default:
		return geom.XY
	}
}

func appendFlat(flat []float64, layout geom.Layout, p Point) []float64 {
	flat = append(flat, p.X, p.Y)
	if layout.ZIndex() != -1 {
		flat = append(flat, p.Z)
	}
	if layout.MIndex() != -1 {
		flat = append(flat, p.M)
	}
	return flat
}

// flatParts lays the parts out end to end; ends are indices into flat.
func flatParts(layout geom.Layout, parts [][]Point) ([]float64, []int) {
	var flat []float64
	ends := make([]int, 0, len(parts))
	for _, part := range parts {
		for _, p := range part {
			flat = appendFlat(flat, layout, p)
		}
		ends = append(ends, len(flat))
	}
	return flat, ends
}

func polygonToGeom(layout geom.Layout, rings []LinearRing) *geom.Polygon {
	parts := make([][]Point, len(rings))
	for i, r := range rings {
		parts[i] = r
	}
	flat, ends := flatParts(layout, parts)
	return geom.NewPolygonFlat(layout, flat, ends)
}
