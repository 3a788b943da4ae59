package shapefile

import (
	"io"

	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/flatgeobuf/flatgeobuf/src/go/writer"
	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// CRS represents a coordinate reference system.
type CRS struct {
	Code        int    // EPSG code (e.g., 4326 for WGS84)
	Name        string // CRS name
	Description string // CRS description
	WKT         string // Well-Known Text, e.g. the contents of a .prj file
}

// WGS84 returns the standard WGS84 CRS (EPSG:4326).
func WGS84() *CRS {
	return &CRS{
		Code: 4326,
		Name: "WGS 84",
	}
}

// ExportOptions configures FlatGeobuf export.
type ExportOptions struct {
	Name         string // Layer name
	Description  string // Layer description
	IncludeIndex bool   // Include spatial index (default: true)
	CRS          *CRS   // Coordinate reference system (optional)
}

// DefaultExportOptions returns default options for writing FlatGeobuf files.
func DefaultExportOptions() *ExportOptions {
	return &ExportOptions{
		IncludeIndex: true,
	}
}

// WriteFlatGeobuf decodes every record of s and writes them, with their
// attributes, to w as FlatGeobuf. Null shapes are skipped.
func WriteFlatGeobuf(w io.Writer, s *Shapefile, opts *ExportOptions) error {
	if s == nil {
		return ErrNilShapefile
	}
	if opts == nil {
		opts = DefaultExportOptions()
	}

	fc, err := s.FeatureCollection()
	if err != nil {
		return err
	}
	features := make([]*geojson.Feature, 0, len(fc.Features))
	for _, f := range fc.Features {
		if f.Geometry != nil {
			features = append(features, f)
		}
	}
	if len(features) == 0 {
		return ErrNoFeatures
	}

	builder := flatbuffers.NewBuilder(4096)
	header := writer.NewHeader(builder)
	header.SetGeometryType(fgbGeometryType(s.ShapeType()))
	if opts.Name != "" {
		header.SetName(opts.Name)
	}
	if opts.Description != "" {
		header.SetDescription(opts.Description)
	}
	if opts.CRS != nil {
		header.SetCrs(fgbCRS(builder, opts.CRS))
	}

	schema := inferSchema(features)
	if len(schema.names) > 0 {
		header.SetColumns(schema.columns(builder))
	}

	gen := &featureGenerator{features: features, schema: schema}
	_, err = writer.NewWriter(header, opts.IncludeIndex, gen, nil).Write(w)
	return err
}

func fgbCRS(builder *flatbuffers.Builder, c *CRS) *writer.Crs {
	crs := writer.NewCrs(builder)
	crs.SetOrg("EPSG")
	if c.Code > 0 {
		crs.SetCode(int32(c.Code))
	}
	if c.Name != "" {
		crs.SetName(c.Name)
	}
	switch {
	case c.Description != "":
		crs.SetDescription(c.Description)
	case c.WKT != "":
		crs.SetDescription(c.WKT)
	}
	return crs
}

// fgbGeometryType maps a shapefile type to the FlatGeobuf type its records
// convert to through ToOrb.
func fgbGeometryType(t ShapeType) flattypes.GeometryType {
	switch t.Family() {
	case FamilyPoint:
		return flattypes.GeometryTypePoint
	case FamilyMultiPoint:
		return flattypes.GeometryTypeMultiPoint
	case FamilyPolyLine:
		return flattypes.GeometryTypeMultiLineString
	case FamilyPolygon:
		return flattypes.GeometryTypePolygon
	case FamilyMultiPatch:
		return flattypes.GeometryTypeGeometryCollection
	default:
		return flattypes.GeometryTypeUnknown
	}
}

// featureGenerator feeds decoded features to the FlatGeobuf writer.
type featureGenerator struct {
	features []*geojson.Feature
	schema   *columnSchema
	index    int
}

func (g *featureGenerator) Generate() *writer.Feature {
	for g.index < len(g.features) {
		f := g.features[g.index]
		g.index++

		builder := flatbuffers.NewBuilder(1024)
		fgbGeom := fgbGeometry(f.Geometry, builder)
		if fgbGeom == nil {
			continue
		}
		feature := writer.NewFeature(builder)
		feature.SetGeometry(fgbGeom)
		if props := g.schema.encode(f.Properties); len(props) > 0 {
			feature.SetProperties(props)
		}
		return feature
	}
	return nil
}

// fgbGeometry converts the orb geometries ToOrb produces.
func fgbGeometry(geom orb.Geometry, builder *flatbuffers.Builder) *writer.Geometry {
	g := writer.NewGeometry(builder)

	switch v := geom.(type) {
	case orb.Point:
		g.SetType(flattypes.GeometryTypePoint)
		g.SetXY([]float64{v[0], v[1]})

	case orb.MultiPoint:
		g.SetType(flattypes.GeometryTypeMultiPoint)
		xy, _ := flatXY([][]orb.Point{v})
		g.SetXY(xy)

	case orb.MultiLineString:
		g.SetType(flattypes.GeometryTypeMultiLineString)
		parts := make([][]orb.Point, len(v))
		for i, ls := range v {
			parts[i] = ls
		}
		xy, ends := flatXY(parts)
		g.SetXY(xy)
		g.SetEnds(ends)

	case orb.Polygon:
		g.SetType(flattypes.GeometryTypePolygon)
		xy, ends := flatXY(ringParts(v))
		g.SetXY(xy)
		g.SetEnds(ends)

	case orb.Collection:
		g.SetType(flattypes.GeometryTypeGeometryCollection)
		parts := make([]writer.Geometry, 0, len(v))
		for _, child := range v {
			if pg := fgbGeometry(child, builder); pg != nil {
				parts = append(parts, *pg)
			}
		}
		g.SetParts(parts)

	default:
		return nil
	}

	return g
}

func ringParts(poly orb.Polygon) [][]orb.Point {
	parts := make([][]orb.Point, len(poly))
	for i, r := range poly {
		parts[i] = r
	}
	return parts
}

// flatXY interleaves the parts' coordinates; ends are cumulative point
// counts.
func flatXY(parts [][]orb.Point) ([]float64, []uint32) {
	total := 0
	for _, p := range parts {
		total += len(p)
	}
	xy := make([]float64, 0, total*2)
	ends := make([]uint32, 0, len(parts))
	for _, part := range parts {
		for _, p := range part {
			xy = append(xy, p[0], p[1])
		}
		ends = append(ends, uint32(len(xy)/2))
	}
	return xy, ends
}
