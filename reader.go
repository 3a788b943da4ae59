package shapefile

import (
	"encoding/binary"
	"io"
	"iter"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/paulmach/orb/geojson"
)

// A Record is one decoded shape paired with its attribute row.
type Record struct {
	Number     int // 1-based record number, ordinal + 1
	Geometry   Geometry
	Attributes geojson.Properties
}

// Shapefile provides random access to the records of a .shp stream through
// its .shx index.
type Shapefile struct {
	mu     sync.Mutex // guards the shp cursor
	shp    io.ReadSeeker
	size   int64
	header Header
	index  *Index
	attrs  AttributeStore
	opts   *Options
}

// Open opens <base>.shp and <base>.shx. base may carry the .shp extension.
// attrs may be nil, in which case records carry no attributes.
func Open(base string, attrs AttributeStore, opts *Options) (*Shapefile, error) {
	if ext := filepath.Ext(base); strings.EqualFold(ext, ".shp") {
		base = strings.TrimSuffix(base, ext)
	}

	shp, err := openFile(base + ".shp")
	if err != nil {
		return nil, err
	}
	shx, err := openFile(base + ".shx")
	if err != nil {
		_ = shp.Close()
		return nil, err
	}

	s, err := NewShapefile(shp, shx, attrs, opts)
	if err != nil {
		_ = shp.Close()
		_ = shx.Close()
		return nil, errors.Wrapf(err, "open %s", base)
	}
	return s, nil
}

// NewShapefile reads the .shp header from shp, opens the index over shx and
// returns a Shapefile that owns both streams.
func NewShapefile(shp, shx io.ReadSeeker, attrs AttributeStore, opts *Options) (*Shapefile, error) {
	if shp == nil {
		return nil, errors.New("shapefile: nil shp stream")
	}
	if opts == nil {
		opts = DefaultOptions()
	}

	buf, size, err := readFileHeader(shp, "shp")
	if err != nil {
		return nil, err
	}
	t := ShapeType(int32(binary.LittleEndian.Uint32(buf[shapeTypeOffset:])))
	if !t.Valid() {
		return nil, errors.Wrapf(ErrUnsupportedShape, "shp: declared shape type %d", int32(t))
	}
	header := Header{
		ShapeType:  t,
		FileLength: declaredLength(buf),
		Bounds:     parseBounds(buf, t),
	}
	if header.FileLength != size {
		opts.warn("shp file length mismatch", "declared", header.FileLength, "actual", size)
	}

	index, err := OpenIndex(shx)
	if err != nil {
		return nil, err
	}

	if attrs == nil {
		attrs = noAttributes{}
	} else if n, m := attrs.RecordCount(), index.RecordCount(); n != m {
		opts.warn("attribute row count mismatch", "attributes", n, "shapes", m)
	}

	return &Shapefile{
		shp:    shp,
		size:   size,
		header: header,
		index:  index,
		attrs:  attrs,
		opts:   opts,
	}, nil
}

// Header returns the metadata read from the .shp header.
func (s *Shapefile) Header() Header {
	return s.header
}

// ShapeType returns the declared shape type.
func (s *Shapefile) ShapeType() ShapeType {
	return s.header.ShapeType
}

// RecordCount returns the number of records in the index.
func (s *Shapefile) RecordCount() int {
	return s.index.RecordCount()
}

// Index returns the index the Shapefile reads through.
func (s *Shapefile) Index() *Index {
	return s.index
}

// GetRecord decodes record i and pairs it with attribute row i. A failed
// record leaves the Shapefile usable for other ordinals.
func (s *Shapefile) GetRecord(i int) (Record, error) {
	rec, err := s.index.GetRecord(i)
	if err != nil {
		return Record{}, err
	}
	data, err := s.readContent(i, rec)
	if err != nil {
		return Record{}, err
	}
	g, err := DecodeAs(data, s.header.ShapeType)
	if err != nil {
		return Record{}, errors.Wrapf(err, "record %d", i+1)
	}
	attrs, err := s.attrs.GetRecord(i)
	if err != nil {
		return Record{}, errors.Wrapf(err, "record %d attributes", i+1)
	}
	return Record{Number: i + 1, Geometry: g, Attributes: attrs}, nil
}

// GetGeometry decodes record i without touching the attribute store.
func (s *Shapefile) GetGeometry(i int) (Geometry, error) {
	rec, err := s.index.GetRecord(i)
	if err != nil {
		return nil, err
	}
	data, err := s.readContent(i, rec)
	if err != nil {
		return nil, err
	}
	g, err := DecodeAs(data, s.header.ShapeType)
	return g, errors.Wrapf(err, "record %d", i+1)
}

// readContent reads the content bytes of record i, located by rec.
func (s *Shapefile) readContent(i int, rec IndexRecord) ([]byte, error) {
	if rec.Offset < headerSize || rec.Offset+recordHeaderSize+rec.Length > s.size {
		return nil, errors.Wrapf(ErrTruncated, "record %d: offset %d length %d beyond stream of %d bytes", i+1, rec.Offset, rec.Length, s.size)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := rec.Offset + recordHeaderSize
	if s.opts.VerifyRecordHeaders {
		start = rec.Offset
	}
	if _, err := s.shp.Seek(start, io.SeekStart); err != nil {
		return nil, errors.Wrapf(err, "shp: seek record %d", i+1)
	}
	if s.opts.VerifyRecordHeaders {
		var hdr [recordHeaderSize]byte
		if _, err := io.ReadFull(s.shp, hdr[:]); err != nil {
			return nil, errors.Wrapf(err, "shp: read record %d header", i+1)
		}
		number := int64(binary.BigEndian.Uint32(hdr[0:4]))
		words := int64(binary.BigEndian.Uint32(hdr[4:8]))
		if number != int64(i+1) {
			return nil, errors.Wrapf(ErrFormat, "record %d: header carries record number %d", i+1, number)
		}
		if words != rec.Length/2 {
			return nil, errors.Wrapf(ErrFormat, "record %d: header content length %d words, index says %d", i+1, words, rec.Length/2)
		}
	}

	data := make([]byte, rec.Length)
	if _, err := io.ReadFull(s.shp, data); err != nil {
		return nil, errors.Wrapf(err, "shp: read record %d", i+1)
	}
	return data, nil
}

// Records iterates over every record in order. Each call starts a new pass.
// A record that fails to decode is yielded with its error and the pass moves
// on; break out of the loop to stop early.
func (s *Shapefile) Records() iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		n := s.RecordCount()
		for i := 0; i < n; i++ {
			if !yield(s.GetRecord(i)) {
				return
			}
		}
	}
}

// Flush pushes pending writes of the .shp stream, the index and the
// attribute store down, in that order.
func (s *Shapefile) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flush()
}

func (s *Shapefile) flush() error {
	var err error
	if f, ok := s.shp.(flusher); ok {
		err = errors.Wrap(f.Flush(), "shp: flush")
	}
	err = errors.CombineErrors(err, s.index.Flush())
	if f, ok := s.attrs.(flusher); ok {
		err = errors.CombineErrors(err, errors.Wrap(f.Flush(), "attributes: flush"))
	}
	return err
}

// Close flushes and then closes the .shp stream, the index and the attribute
// store, in that order. Every step runs even if an earlier one fails.
func (s *Shapefile) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.flush()
	if c, ok := s.shp.(io.Closer); ok {
		err = errors.CombineErrors(err, errors.Wrap(c.Close(), "shp: close"))
	}
	err = errors.CombineErrors(err, s.index.Close())
	if c, ok := s.attrs.(io.Closer); ok {
		err = errors.CombineErrors(err, errors.Wrap(c.Close(), "attributes: close"))
	}
	return err
}
