package shapefile

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	flatgeobuf "github.com/flatgeobuf/flatgeobuf/src/go"
	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/paulmach/orb"
)

var fgbMagic = []byte{0x66, 0x67, 0x62, 0x03, 0x66, 0x67, 0x62, 0x00}

func checkMagic(t *testing.T, data []byte) {
	t.Helper()
	if len(data) < len(fgbMagic) {
		t.Fatal("output too short")
	}
	for i, b := range fgbMagic {
		if data[i] != b {
			t.Errorf("magic byte %d: expected 0x%02x, got 0x%02x", i, b, data[i])
		}
	}
}

func openPolygons(t *testing.T) *Shapefile {
	t.Helper()
	rings := [][]Point{square(0, 0, 10), square(20, 20, 10)}
	shp, shx := buildShapefile(ShapeTypePolygon, BoundingBoxFromPoints(append(rings[0], rings[1]...)),
		partsRecord(ShapeTypePolygon, rings[:1], false),
		nullRecord(),
		partsRecord(ShapeTypePolygon, rings[1:], false),
	)
	base := writeShapefile(t, "polygons", shp, shx)

	attrs := PropertiesStore{
		{"name": "square1", "value": 1},
		{"name": "missing", "value": 2},
		{"name": "square2", "value": 3.5},
	}
	s, err := Open(base, attrs, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestWriteFlatGeobuf_Polygons(t *testing.T) {
	s := openPolygons(t)

	var buf bytes.Buffer
	opts := &ExportOptions{Name: "test_polygons", IncludeIndex: true, CRS: WGS84()}
	if err := WriteFlatGeobuf(&buf, s, opts); err != nil {
		t.Fatalf("WriteFlatGeobuf failed: %v", err)
	}
	checkMagic(t, buf.Bytes())

	fgb, err := flatgeobuf.NewWithData(buf.Bytes())
	if err != nil {
		t.Fatalf("reading back failed: %v", err)
	}
	h := fgb.Header()
	if got := string(h.Name()); got != "test_polygons" {
		t.Errorf("expected name 'test_polygons', got %q", got)
	}
	if h.GeometryType() != flattypes.GeometryTypePolygon {
		t.Errorf("expected Polygon, got %v", flattypes.EnumNamesGeometryType[h.GeometryType()])
	}
	if h.IndexNodeSize() == 0 {
		t.Error("expected a spatial index")
	}

	columns := make(map[string]flattypes.ColumnType)
	for i := 0; i < h.ColumnsLength(); i++ {
		var col flattypes.Column
		if h.Columns(&col, i) {
			columns[string(col.Name())] = col.Type()
		}
	}
	if columns["name"] != flattypes.ColumnTypeString {
		t.Errorf("expected name column to be String, got %v", flattypes.EnumNamesColumnType[columns["name"]])
	}
	if columns["value"] != flattypes.ColumnTypeDouble {
		t.Errorf("expected value column to be Double, got %v", flattypes.EnumNamesColumnType[columns["value"]])
	}

	var crs flattypes.Crs
	if h.Crs(&crs) == nil || crs.Code() != 4326 {
		t.Error("expected EPSG:4326")
	}
}

func TestWriteFlatGeobuf_File(t *testing.T) {
	s := openPolygons(t)

	path := filepath.Join(t.TempDir(), "out.fgb")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	err = WriteFlatGeobuf(f, s, nil)
	_ = f.Close()
	if err != nil {
		t.Fatalf("WriteFlatGeobuf failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	checkMagic(t, data)
}

func TestWriteFlatGeobuf_NoIndex(t *testing.T) {
	s := openPolygons(t)

	var withIndex, withoutIndex bytes.Buffer
	if err := WriteFlatGeobuf(&withIndex, s, DefaultExportOptions()); err != nil {
		t.Fatalf("WriteFlatGeobuf failed: %v", err)
	}
	opts := DefaultExportOptions()
	opts.IncludeIndex = false
	if err := WriteFlatGeobuf(&withoutIndex, s, opts); err != nil {
		t.Fatalf("WriteFlatGeobuf failed: %v", err)
	}
	if withoutIndex.Len() >= withIndex.Len() {
		t.Errorf("expected output without index (%d bytes) to be smaller than with (%d bytes)",
			withoutIndex.Len(), withIndex.Len())
	}
}

func TestWriteFlatGeobuf_OnlyNulls(t *testing.T) {
	shp, shx := buildShapefile(ShapeTypePoint, EmptyBoundingBox, nullRecord(), nullRecord())
	base := writeShapefile(t, "nulls", shp, shx)
	s, err := Open(base, nil, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer func() { _ = s.Close() }()

	if err := WriteFlatGeobuf(&bytes.Buffer{}, s, nil); err != ErrNoFeatures {
		t.Errorf("expected ErrNoFeatures, got %v", err)
	}
	if err := WriteFlatGeobuf(&bytes.Buffer{}, nil, nil); err != ErrNilShapefile {
		t.Errorf("expected ErrNilShapefile, got %v", err)
	}
}

func TestFgbGeometryType(t *testing.T) {
	tests := []struct {
		t        ShapeType
		expected flattypes.GeometryType
	}{
		{ShapeTypePoint, flattypes.GeometryTypePoint},
		{ShapeTypePointZ, flattypes.GeometryTypePoint},
		{ShapeTypeMultiPointM, flattypes.GeometryTypeMultiPoint},
		{ShapeTypePolyLine, flattypes.GeometryTypeMultiLineString},
		{ShapeTypePolygonZ, flattypes.GeometryTypePolygon},
		{ShapeTypeMultiPatch, flattypes.GeometryTypeGeometryCollection},
		{ShapeTypeNull, flattypes.GeometryTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.t.String(), func(t *testing.T) {
			if got := fgbGeometryType(tt.t); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestFlatXY(t *testing.T) {
	xy, ends := flatXY([][]orb.Point{
		{{0, 0}, {1, 1}, {2, 2}},
		{{5, 5}, {6, 6}},
	})

	expectedXY := []float64{0, 0, 1, 1, 2, 2, 5, 5, 6, 6}
	if len(xy) != len(expectedXY) {
		t.Fatalf("expected %d coordinates, got %d", len(expectedXY), len(xy))
	}
	for i, v := range expectedXY {
		if xy[i] != v {
			t.Errorf("xy[%d]: expected %v, got %v", i, v, xy[i])
		}
	}
	if len(ends) != 2 || ends[0] != 3 || ends[1] != 5 {
		t.Errorf("expected ends [3 5], got %v", ends)
	}
}
