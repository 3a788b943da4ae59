// Package shapefile decodes ESRI Shapefiles into orb and go-geom geometries.
// It reads the .shp geometry stream with random access through the .shx
// index and pairs every decoded shape with its attribute row by ordinal.
package shapefile

import (
	"log/slog"

	"github.com/cockroachdb/errors"
)

// Common errors returned by this package. Errors carry context and wrap one
// of these, so test with errors.Is.
var (
	ErrFormat           = errors.New("shapefile: invalid format")
	ErrUnsupportedShape = errors.New("shapefile: unsupported shape type")
	ErrTruncated        = errors.New("shapefile: truncated record")
	ErrOutOfBounds      = errors.New("shapefile: record index out of bounds")
	ErrReadOnly         = errors.New("shapefile: stream is not writable")
	ErrNilShapefile     = errors.New("shapefile: nil shapefile")
	ErrNoFeatures       = errors.New("shapefile: no features to export")
)

const (
	headerSize       = 100
	fileCode         = 9994
	fileVersion      = 1000
	recordHeaderSize = 8

	fileCodeOffset   = 0
	fileLengthOffset = 24
	versionOffset    = 28
	shapeTypeOffset  = 32
	boundsOffset     = 36
)

// Options configures how a Shapefile is read.
type Options struct {
	// VerifyRecordHeaders re-reads the 8-byte header in front of every
	// record and checks its record number and content length against the
	// index.
	VerifyRecordHeaders bool

	// Logger receives non-fatal integrity findings as warnings. Nil keeps
	// the reader silent.
	Logger *slog.Logger
}

// DefaultOptions returns default options for reading shapefiles.
func DefaultOptions() *Options {
	return &Options{}
}

func (o *Options) warn(msg string, args ...any) {
	if o == nil || o.Logger == nil {
		return
	}
	o.Logger.Warn(msg, args...)
}

// Header contains the metadata stored at the start of a .shp file.
type Header struct {
	ShapeType  ShapeType   // Declared shape type of every non-null record
	FileLength int64       // File length in bytes, as declared in the header
	Bounds     BoundingBox // Envelope of all shapes; Z and M only when the type carries them
}
