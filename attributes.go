package shapefile

import (
	"github.com/cockroachdb/errors"
	"github.com/paulmach/orb/geojson"
)

// AttributeStore supplies the attribute row that belongs to each shape,
// addressed by the same zero-based ordinal as the index. A store that also
// implements Flush() error or Close() error is flushed and closed with the
// Shapefile that owns it.
type AttributeStore interface {
	RecordCount() int
	GetRecord(i int) (geojson.Properties, error)
}

// PropertiesStore is an AttributeStore held in memory.
type PropertiesStore []geojson.Properties

// RecordCount returns the number of rows.
func (s PropertiesStore) RecordCount() int { return len(s) }

// GetRecord returns row i. The row is shared, not copied.
func (s PropertiesStore) GetRecord(i int) (geojson.Properties, error) {
	if i < 0 || i >= len(s) {
		return nil, errors.Wrapf(ErrOutOfBounds, "attributes: record %d of %d", i, len(s))
	}
	return s[i], nil
}

// noAttributes pairs every shape with a nil row.
type noAttributes struct{}

func (noAttributes) RecordCount() int                          { return -1 }
func (noAttributes) GetRecord(int) (geojson.Properties, error) { return nil, nil }
