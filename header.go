package shapefile

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/cockroachdb/errors"
)

// readFileHeader reads and validates the 100-byte header shared by .shp and
// .shx files. It returns the raw header and the stream length.
func readFileHeader(r io.ReadSeeker, name string) ([]byte, int64, error) {
	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "%s: seek end", name)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, 0, errors.Wrapf(err, "%s: seek header", name)
	}
	buf := make([]byte, headerSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, 0, errors.Wrapf(ErrFormat, "%s: header shorter than %d bytes", name, headerSize)
		}
		return nil, 0, errors.Wrapf(err, "%s: read header", name)
	}
	if code := int32(binary.BigEndian.Uint32(buf[fileCodeOffset:])); code != fileCode {
		return nil, 0, errors.Wrapf(ErrFormat, "%s: bad file code %d", name, code)
	}
	if v := int32(binary.LittleEndian.Uint32(buf[versionOffset:])); v != fileVersion {
		return nil, 0, errors.Wrapf(ErrFormat, "%s: bad version %d, expected %d", name, v, fileVersion)
	}
	return buf, size, nil
}

// declaredLength returns the header's file length field in bytes.
func declaredLength(buf []byte) int64 {
	return 2 * int64(binary.BigEndian.Uint32(buf[fileLengthOffset:]))
}

// writeFileLength rewrites the header's file length field, stored in 16-bit
// words.
func writeFileLength(w io.WriteSeeker, size int64, name string) error {
	if _, err := w.Seek(fileLengthOffset, io.SeekStart); err != nil {
		return errors.Wrapf(err, "%s: seek file length", name)
	}
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(size/2))
	if _, err := w.Write(b[:]); err != nil {
		return errors.Wrapf(err, "%s: write file length", name)
	}
	return nil
}

// parseBounds reads the header envelope. Z and M ranges are kept only when t
// carries them.
func parseBounds(buf []byte, t ShapeType) BoundingBox {
	f := func(i int) float64 {
		return math.Float64frombits(binary.LittleEndian.Uint64(buf[boundsOffset+8*i:]))
	}
	b := BoundingBox{
		Min: NewPoint(f(0), f(1)),
		Max: NewPoint(f(2), f(3)),
	}
	if t.HasZ() {
		b.Min.Z, b.Max.Z = fromWire(f(4)), fromWire(f(5))
	}
	if t.HasM() {
		b.Min.M, b.Max.M = fromWire(f(6)), fromWire(f(7))
	}
	return b
}

type syncer interface {
	Sync() error
}

type flusher interface {
	Flush() error
}

// syncStream pushes buffered writes of s down, if s knows how.
func syncStream(s interface{}) error {
	switch v := s.(type) {
	case flusher:
		return v.Flush()
	case syncer:
		return v.Sync()
	}
	return nil
}
