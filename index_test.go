package shapefile

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenIndex(t *testing.T) {
	_, shx := buildShapefile(ShapeTypePoint, EmptyBoundingBox,
		pointRecord(ShapeTypePoint, NewPoint(1, 2)),
		pointRecord(ShapeTypePoint, NewPoint(3, 4)),
	)

	idx, err := OpenIndex(bytes.NewReader(shx))
	require.NoError(t, err)
	assert.Equal(t, 2, idx.RecordCount())

	rec, err := idx.GetRecord(0)
	require.NoError(t, err)
	assert.Equal(t, IndexRecord{Offset: 100, Length: 20}, rec)

	rec, err = idx.GetRecord(1)
	require.NoError(t, err)
	assert.Equal(t, IndexRecord{Offset: 128, Length: 20}, rec)
}

func TestOpenIndex_Invalid(t *testing.T) {
	_, shx := buildShapefile(ShapeTypePoint, EmptyBoundingBox)

	badCode := append([]byte(nil), shx...)
	binary.BigEndian.PutUint32(badCode[fileCodeOffset:], 9995)

	badVersion := append([]byte(nil), shx...)
	binary.LittleEndian.PutUint32(badVersion[versionOffset:], 999)

	tests := map[string][]byte{
		"empty":       nil,
		"short":       shx[:50],
		"bad code":    badCode,
		"bad version": badVersion,
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := OpenIndex(bytes.NewReader(data))
			assert.True(t, errors.Is(err, ErrFormat), "got %v", err)
		})
	}
}

func TestIndex_OutOfBounds(t *testing.T) {
	_, shx := buildShapefile(ShapeTypePoint, EmptyBoundingBox, pointRecord(ShapeTypePoint, NewPoint(1, 2)))
	idx, err := OpenIndex(bytes.NewReader(shx))
	require.NoError(t, err)

	for _, i := range []int{-1, idx.RecordCount(), 100} {
		_, err := idx.GetRecord(i)
		assert.True(t, errors.Is(err, ErrOutOfBounds), "record %d: got %v", i, err)
	}
}

func TestIndex_Records(t *testing.T) {
	records := make([][]byte, 5)
	for i := range records {
		records[i] = pointRecord(ShapeTypePoint, NewPoint(float64(i), 0))
	}
	_, shx := buildShapefile(ShapeTypePoint, EmptyBoundingBox, records...)
	idx, err := OpenIndex(bytes.NewReader(shx))
	require.NoError(t, err)

	// Each pass starts over.
	for pass := 0; pass < 2; pass++ {
		var got []IndexRecord
		for rec, err := range idx.Records() {
			require.NoError(t, err)
			got = append(got, rec)
		}
		require.Len(t, got, 5)
		for i, rec := range got {
			assert.Equal(t, int64(100+28*i), rec.Offset)
		}
	}

	// Stopping early is fine.
	n := 0
	for range idx.Records() {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestIndex_AddFlush(t *testing.T) {
	_, shx := buildShapefile(ShapeTypePolygon, EmptyBoundingBox)
	path := filepath.Join(t.TempDir(), "index.shx")
	require.NoError(t, os.WriteFile(path, shx, 0o644))

	idx, err := OpenIndexFile(path)
	require.NoError(t, err)
	assert.Equal(t, 0, idx.RecordCount())

	require.NoError(t, idx.Add(IndexRecord{Offset: 100, Length: 128}))
	require.NoError(t, idx.Add(IndexRecord{Offset: 236, Length: 64}))
	assert.Equal(t, 2, idx.RecordCount())
	require.NoError(t, idx.Flush())
	require.NoError(t, idx.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, data, 116)
	assert.Equal(t, int64(116), declaredLength(data))

	idx, err = OpenIndexFile(path)
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()

	rec, err := idx.GetRecord(1)
	require.NoError(t, err)
	assert.Equal(t, IndexRecord{Offset: 236, Length: 64}, rec)
}

func TestIndex_CloseFlushes(t *testing.T) {
	_, shx := buildShapefile(ShapeTypePoint, EmptyBoundingBox)
	path := filepath.Join(t.TempDir(), "index.shx")
	require.NoError(t, os.WriteFile(path, shx, 0o644))

	idx, err := OpenIndexFile(path)
	require.NoError(t, err)
	require.NoError(t, idx.Add(IndexRecord{Offset: 100, Length: 20}))
	require.NoError(t, idx.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), declaredLength(data))
}

func TestIndex_AddInvalid(t *testing.T) {
	_, shx := buildShapefile(ShapeTypePoint, EmptyBoundingBox)
	path := filepath.Join(t.TempDir(), "index.shx")
	require.NoError(t, os.WriteFile(path, shx, 0o644))

	idx, err := OpenIndexFile(path)
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()

	for _, rec := range []IndexRecord{
		{Offset: 101, Length: 20},
		{Offset: 100, Length: 21},
		{Offset: -2, Length: 20},
	} {
		err := idx.Add(rec)
		assert.True(t, errors.Is(err, ErrFormat), "%+v: got %v", rec, err)
	}
	assert.Equal(t, 0, idx.RecordCount())
}

func TestIndex_AddReadOnly(t *testing.T) {
	_, shx := buildShapefile(ShapeTypePoint, EmptyBoundingBox)
	idx, err := OpenIndex(bytes.NewReader(shx))
	require.NoError(t, err)

	err = idx.Add(IndexRecord{Offset: 100, Length: 20})
	assert.True(t, errors.Is(err, ErrReadOnly), "got %v", err)
	assert.NoError(t, idx.Flush())
	assert.NoError(t, idx.Close())
}

func TestOpenIndexFile_NonExistent(t *testing.T) {
	_, err := OpenIndexFile(filepath.Join(t.TempDir(), "missing.shx"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

type flushCountingStream struct {
	*bytes.Reader
	flushes int
}

func (s *flushCountingStream) Flush() error {
	s.flushes++
	return nil
}

func TestIndex_FlushWithoutChanges(t *testing.T) {
	_, shx := buildShapefile(ShapeTypePoint, EmptyBoundingBox,
		pointRecord(ShapeTypePoint, NewPoint(1, 2)),
	)
	stream := &flushCountingStream{Reader: bytes.NewReader(shx)}
	idx, err := OpenIndex(stream)
	require.NoError(t, err)

	require.NoError(t, idx.Flush())
	assert.Equal(t, 1, stream.flushes)
	require.NoError(t, idx.Close())
	assert.Equal(t, 2, stream.flushes)
}
