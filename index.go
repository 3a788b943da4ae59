package shapefile

import (
	"encoding/binary"
	"io"
	"iter"
	"os"
	"sync"

	"github.com/cockroachdb/errors"
)

// indexRecordSize is the on-disk stride of one .shx entry.
const indexRecordSize = 8

// An IndexRecord locates one record in the .shp stream. Offset points at the
// record header; Length is the content length, excluding that header. Both
// are in bytes.
type IndexRecord struct {
	Offset int64
	Length int64
}

// Index provides random access to a .shx file. Every method serializes on
// the stream cursor, so one Index may be shared between goroutines.
type Index struct {
	mu    sync.Mutex
	r     io.ReadSeeker
	size  int64
	dirty bool
}

// OpenIndex validates the header of a .shx stream and returns an Index over
// it. The Index takes ownership of r: Close closes it if it is an io.Closer.
func OpenIndex(r io.ReadSeeker) (*Index, error) {
	if r == nil {
		return nil, errors.New("shapefile: nil index stream")
	}
	_, size, err := readFileHeader(r, "shx")
	if err != nil {
		return nil, err
	}
	return &Index{r: r, size: size}, nil
}

// OpenIndexFile opens the .shx file at path, read-write when permitted.
func OpenIndexFile(path string) (*Index, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, err
	}
	idx, err := OpenIndex(f)
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrapf(err, "open %s", path)
	}
	return idx, nil
}

// openFile opens path for reading and writing, falling back to read-only.
func openFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if errors.Is(err, os.ErrPermission) {
		f, err = os.Open(path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	return f, nil
}

// RecordCount returns the number of entries, derived from the stream length.
func (x *Index) RecordCount() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.count()
}

func (x *Index) count() int {
	return int((x.size - headerSize) / indexRecordSize)
}

// GetRecord returns entry i.
func (x *Index) GetRecord(i int) (IndexRecord, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if n := x.count(); i < 0 || i >= n {
		return IndexRecord{}, errors.Wrapf(ErrOutOfBounds, "shx: record %d of %d", i, n)
	}
	if _, err := x.r.Seek(headerSize+int64(i)*indexRecordSize, io.SeekStart); err != nil {
		return IndexRecord{}, errors.Wrapf(err, "shx: seek record %d", i)
	}
	var buf [indexRecordSize]byte
	if _, err := io.ReadFull(x.r, buf[:]); err != nil {
		return IndexRecord{}, errors.Wrapf(err, "shx: read record %d", i)
	}
	return IndexRecord{
		Offset: 2 * int64(binary.BigEndian.Uint32(buf[0:4])),
		Length: 2 * int64(binary.BigEndian.Uint32(buf[4:8])),
	}, nil
}

// Add appends an entry at the end of the index. The header is brought up to
// date by Flush or Close.
func (x *Index) Add(rec IndexRecord) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	w, ok := x.r.(io.WriteSeeker)
	if !ok {
		return errors.Wrap(ErrReadOnly, "shx")
	}
	if rec.Offset < 0 || rec.Length < 0 || rec.Offset%2 != 0 || rec.Length%2 != 0 {
		return errors.Wrapf(ErrFormat, "shx: offset %d and length %d must be even and non-negative", rec.Offset, rec.Length)
	}
	var buf [indexRecordSize]byte
	binary.BigEndian.PutUint32(buf[0:4], uint32(rec.Offset/2))
	binary.BigEndian.PutUint32(buf[4:8], uint32(rec.Length/2))

	end := headerSize + int64(x.count())*indexRecordSize
	if _, err := w.Seek(end, io.SeekStart); err != nil {
		return errors.Wrap(err, "shx: seek end")
	}
	if _, err := w.Write(buf[:]); err != nil {
		return errors.Wrap(err, "shx: append record")
	}
	x.size = end + indexRecordSize
	x.dirty = true
	return nil
}

// Flush rewrites the header file length if entries were added, then syncs
// the stream.
func (x *Index) Flush() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.flush()
}

func (x *Index) flush() error {
	if x.dirty {
		w, ok := x.r.(io.WriteSeeker)
		if !ok {
			return errors.Wrap(ErrReadOnly, "shx")
		}
		if err := writeFileLength(w, x.size, "shx"); err != nil {
			return err
		}
		x.dirty = false
	}
	return errors.Wrap(syncStream(x.r), "shx: sync")
}

// Records iterates over every entry in order. Each call starts a new pass.
func (x *Index) Records() iter.Seq2[IndexRecord, error] {
	return func(yield func(IndexRecord, error) bool) {
		n := x.RecordCount()
		for i := 0; i < n; i++ {
			rec, err := x.GetRecord(i)
			if !yield(rec, err) || err != nil {
				return
			}
		}
	}
}

// Close flushes pending header updates and closes the stream.
func (x *Index) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()

	err := x.flush()
	if c, ok := x.r.(io.Closer); ok {
		err = errors.CombineErrors(err, c.Close())
	}
	return err
}
