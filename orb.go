package shapefile

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ToOrb converts a decoded shape to its 2D orb equivalent. Z and M are
// dropped. Null and empty shapes convert to nil.
//
//	Point      -> orb.Point
//	MultiPoint -> orb.MultiPoint
//	PolyLine   -> orb.MultiLineString
//	Polygon    -> orb.Polygon, rings in file order
//	MultiPatch -> orb.Collection of orb.Polygon
func ToOrb(g Geometry) orb.Geometry {
	switch v := g.(type) {
	case nil, Null:
		return nil
	case Point:
		if v.IsEmpty() {
			return nil
		}
		return v.Orb()
	case MultiPoint:
		if len(v.Points) == 0 {
			return nil
		}
		return orb.MultiPoint(pointsToOrb(v.Points))
	case PolyLine:
		if len(v.Lines) == 0 {
			return nil
		}
		mls := make(orb.MultiLineString, 0, len(v.Lines))
		for _, ls := range v.Lines {
			mls = append(mls, orb.LineString(pointsToOrb(ls)))
		}
		return mls
	case Polygon:
		if len(v.Rings) == 0 {
			return nil
		}
		return ringsToOrb(v.Rings)
	case MultiPatch:
		if len(v.Surfaces) == 0 {
			return nil
		}
		return multiPatchToOrb(v)
	default:
		return nil
	}
}

func pointsToOrb(pts []Point) []orb.Point {
	out := make([]orb.Point, len(pts))
	for i, p := range pts {
		out[i] = p.Orb()
	}
	return out
}

func multiPatchToOrb(mp MultiPatch) orb.Collection {
	polys := mp.Polygons()
	coll := make(orb.Collection, 0, len(polys))
	for _, rings := range polys {
		coll = append(coll, ringsToOrb(rings))
	}
	return coll
}

func ringsToOrb(rings []LinearRing) orb.Polygon {
	poly := make(orb.Polygon, 0, len(rings))
	for _, r := range rings {
		poly = append(poly, orb.Ring(pointsToOrb(r)))
	}
	return poly
}

// Feature returns the record as a GeoJSON feature whose ID is the record
// number.
func (r Record) Feature() *geojson.Feature {
	f := geojson.NewFeature(ToOrb(r.Geometry))
	f.ID = r.Number
	if r.Attributes != nil {
		f.Properties = r.Attributes
	}
	return f
}

// FeatureCollection decodes every record into a GeoJSON feature collection
// whose bbox is the envelope of the decoded shapes. It stops at the first
// record that fails.
func (s *Shapefile) FeatureCollection() (*geojson.FeatureCollection, error) {
	if s == nil {
		return nil, ErrNilShapefile
	}
	fc := geojson.NewFeatureCollection()
	bounds := EmptyBoundingBox
	for rec, err := range s.Records() {
		if err != nil {
			return nil, err
		}
		bounds = bounds.Extend(rec.Geometry.BoundingBox())
		fc.Append(rec.Feature())
	}
	if !bounds.IsEmpty() {
		fc.BBox = geojson.NewBBox(bounds.Orb())
	}
	return fc, nil
}
