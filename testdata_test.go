package shapefile

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// =============================================================================
// Test Data Builders
// =============================================================================

func appendInt32(b []byte, v int) []byte {
	return binary.LittleEndian.AppendUint32(b, uint32(int32(v)))
}

func appendFloat64(b []byte, v float64) []byte {
	return binary.LittleEndian.AppendUint64(b, math.Float64bits(v))
}

// noDataValue is the no-data marker legacy writers emit.
const noDataValue = -10e38

// toWire writes absent ordinates the way legacy writers do.
func toWire(v float64) float64 {
	if math.IsNaN(v) {
		return noDataValue
	}
	return v
}

func appendBox(b []byte, box BoundingBox) []byte {
	for _, v := range []float64{box.Min.X, box.Min.Y, box.Max.X, box.Max.Y} {
		b = appendFloat64(b, toWire(v))
	}
	return b
}

// appendOrdinates writes a range followed by one value per point.
func appendOrdinates(b []byte, pts []Point, get func(Point) float64) []byte {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, p := range pts {
		v := get(p)
		if math.IsNaN(v) {
			continue
		}
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	if lo > hi {
		lo, hi = 0, 0
	}
	b = appendFloat64(b, lo)
	b = appendFloat64(b, hi)
	for _, p := range pts {
		b = appendFloat64(b, toWire(get(p)))
	}
	return b
}

func getZ(p Point) float64 { return p.Z }
func getM(p Point) float64 { return p.M }

// appendCoords writes the XY block and, as t and withM ask for, the Z and M
// blocks.
func appendCoords(b []byte, t ShapeType, pts []Point, withM bool) []byte {
	for _, p := range pts {
		b = appendFloat64(b, p.X)
		b = appendFloat64(b, p.Y)
	}
	if t.HasZ() {
		b = appendOrdinates(b, pts, getZ)
	}
	if t.requiresM() || (t.HasM() && withM) {
		b = appendOrdinates(b, pts, getM)
	}
	return b
}

func nullRecord() []byte {
	return appendInt32(nil, int(ShapeTypeNull))
}

func pointRecord(t ShapeType, p Point) []byte {
	b := appendInt32(nil, int(t))
	b = appendFloat64(b, p.X)
	b = appendFloat64(b, p.Y)
	switch t {
	case ShapeTypePointZ:
		b = appendFloat64(b, toWire(p.Z))
		b = appendFloat64(b, toWire(p.M))
	case ShapeTypePointM:
		b = appendFloat64(b, toWire(p.M))
	}
	return b
}

func multiPointRecord(t ShapeType, pts []Point, withM bool) []byte {
	b := appendInt32(nil, int(t))
	b = appendBox(b, BoundingBoxFromPoints(pts))
	b = appendInt32(b, len(pts))
	return appendCoords(b, t, pts, withM)
}

// partsRecord builds a PolyLine or Polygon record with one part per slice.
func partsRecord(t ShapeType, parts [][]Point, withM bool) []byte {
	var pts []Point
	starts := make([]int, len(parts))
	for i, part := range parts {
		starts[i] = len(pts)
		pts = append(pts, part...)
	}
	b := appendInt32(nil, int(t))
	b = appendBox(b, BoundingBoxFromPoints(pts))
	b = appendInt32(b, len(parts))
	b = appendInt32(b, len(pts))
	for _, s := range starts {
		b = appendInt32(b, s)
	}
	return appendCoords(b, t, pts, withM)
}

func multiPatchRecord(surfaces []Surface, withM bool) []byte {
	var pts []Point
	starts := make([]int, len(surfaces))
	for i, s := range surfaces {
		starts[i] = len(pts)
		pts = append(pts, s.Points...)
	}
	b := appendInt32(nil, int(ShapeTypeMultiPatch))
	b = appendBox(b, BoundingBoxFromPoints(pts))
	b = appendInt32(b, len(surfaces))
	b = appendInt32(b, len(pts))
	for _, s := range starts {
		b = appendInt32(b, s)
	}
	for _, s := range surfaces {
		b = appendInt32(b, int(s.Type))
	}
	return appendCoords(b, ShapeTypeMultiPatch, pts, withM)
}

// fileHeader builds the 100-byte header shared by .shp and .shx.
func fileHeader(t ShapeType, size int, box BoundingBox) []byte {
	b := make([]byte, headerSize)
	binary.BigEndian.PutUint32(b[fileCodeOffset:], fileCode)
	binary.BigEndian.PutUint32(b[fileLengthOffset:], uint32(size/2))
	binary.LittleEndian.PutUint32(b[versionOffset:], fileVersion)
	binary.LittleEndian.PutUint32(b[shapeTypeOffset:], uint32(t))
	vals := []float64{
		box.Min.X, box.Min.Y, box.Max.X, box.Max.Y,
		box.Min.Z, box.Max.Z, box.Min.M, box.Max.M,
	}
	for i, v := range vals {
		if math.IsNaN(v) {
			v = 0
		}
		binary.LittleEndian.PutUint64(b[boundsOffset+8*i:], math.Float64bits(v))
	}
	return b
}

// buildShapefile frames the record contents and returns matching .shp and
// .shx bytes.
func buildShapefile(t ShapeType, box BoundingBox, records ...[]byte) (shp, shx []byte) {
	var body, entries []byte
	offset := headerSize
	for i, content := range records {
		body = binary.BigEndian.AppendUint32(body, uint32(i+1))
		body = binary.BigEndian.AppendUint32(body, uint32(len(content)/2))
		body = append(body, content...)

		entries = binary.BigEndian.AppendUint32(entries, uint32(offset/2))
		entries = binary.BigEndian.AppendUint32(entries, uint32(len(content)/2))
		offset += recordHeaderSize + len(content)
	}
	shp = append(fileHeader(t, headerSize+len(body), box), body...)
	shx = append(fileHeader(t, headerSize+len(entries), box), entries...)
	return shp, shx
}

// writeShapefile writes the pair under a temp dir and returns the base path.
func writeShapefile(t *testing.T, name string, shp, shx []byte) string {
	t.Helper()
	base := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(base+".shp", shp, 0o644); err != nil {
		t.Fatalf("write shp: %v", err)
	}
	if err := os.WriteFile(base+".shx", shx, 0o644); err != nil {
		t.Fatalf("write shx: %v", err)
	}
	return base
}

func square(x, y, size float64) []Point {
	return []Point{
		NewPoint(x, y),
		NewPoint(x, y+size),
		NewPoint(x+size, y+size),
		NewPoint(x+size, y),
		NewPoint(x, y),
	}
}
