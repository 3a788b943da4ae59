package shapefile

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"sort"
	"time"

	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/flatgeobuf/flatgeobuf/src/go/writer"
	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/paulmach/orb/geojson"
)

// columnSchema is the FlatGeobuf column layout inferred from attribute rows.
type columnSchema struct {
	names []string
	types []flattypes.ColumnType
	index map[string]int
}

// inferSchema collects every attribute name across the features, sorted
// for a stable layout, and picks the most general type seen for each.
func inferSchema(features []*geojson.Feature) *columnSchema {
	types := make(map[string]flattypes.ColumnType)
	seen := make(map[string]bool)
	for _, f := range features {
		for name, value := range f.Properties {
			if value == nil {
				if _, ok := seen[name]; !ok {
					seen[name] = false
				}
				continue
			}
			t := inferColumnType(value)
			if seen[name] {
				t = promoteColumnType(types[name], t)
			}
			types[name] = t
			seen[name] = true
		}
	}
	// Columns that only ever held nulls default to String.
	for name, typed := range seen {
		if !typed {
			types[name] = flattypes.ColumnTypeString
		}
	}

	s := &columnSchema{
		names: make([]string, 0, len(types)),
		index: make(map[string]int, len(types)),
	}
	for name := range types {
		s.names = append(s.names, name)
	}
	sort.Strings(s.names)
	s.types = make([]flattypes.ColumnType, len(s.names))
	for i, name := range s.names {
		s.types[i] = types[name]
		s.index[name] = i
	}
	return s
}

func (s *columnSchema) columns(builder *flatbuffers.Builder) []*writer.Column {
	cols := make([]*writer.Column, len(s.names))
	for i, name := range s.names {
		col := writer.NewColumn(builder)
		col.SetName(name)
		col.SetTitle(name)
		col.SetType(s.types[i])
		col.SetNullable(true)
		cols[i] = col
	}
	return cols
}

// encode writes props in FlatGeobuf property layout: per non-null value a
// little-endian uint16 column index followed by the value. Values that do
// not fit their column are left out.
func (s *columnSchema) encode(props geojson.Properties) []byte {
	if len(props) == 0 || len(s.names) == 0 {
		return nil
	}
	var buf []byte
	for i, name := range s.names {
		value, ok := props[name]
		if !ok || value == nil {
			continue
		}
		b, ok := encodeValue(value, s.types[i])
		if !ok {
			continue
		}
		buf = binary.LittleEndian.AppendUint16(buf, uint16(i))
		buf = append(buf, b...)
	}
	return buf
}

// inferColumnType determines the FlatGeobuf column type for a Go value.
func inferColumnType(value interface{}) flattypes.ColumnType {
	switch v := value.(type) {
	case bool:
		return flattypes.ColumnTypeBool
	case int:
		if v >= math.MinInt32 && v <= math.MaxInt32 {
			return flattypes.ColumnTypeInt
		}
		return flattypes.ColumnTypeLong
	case int8, int16, int32:
		return flattypes.ColumnTypeInt
	case int64:
		return flattypes.ColumnTypeLong
	case uint, uint8, uint16, uint32:
		return flattypes.ColumnTypeUInt
	case uint64:
		return flattypes.ColumnTypeULong
	case float32:
		return flattypes.ColumnTypeFloat
	case float64:
		return flattypes.ColumnTypeDouble
	case string:
		return flattypes.ColumnTypeString
	case time.Time:
		return flattypes.ColumnTypeDateTime
	case []byte:
		return flattypes.ColumnTypeBinary
	case json.Number:
		if _, err := v.Int64(); err == nil {
			return flattypes.ColumnTypeLong
		}
		return flattypes.ColumnTypeDouble
	default:
		return flattypes.ColumnTypeJson
	}
}

var numericRank = map[flattypes.ColumnType]int{
	flattypes.ColumnTypeBool:   0,
	flattypes.ColumnTypeInt:    1,
	flattypes.ColumnTypeUInt:   2,
	flattypes.ColumnTypeLong:   3,
	flattypes.ColumnTypeULong:  4,
	flattypes.ColumnTypeFloat:  5,
	flattypes.ColumnTypeDouble: 6,
}

// promoteColumnType returns the more general type when two rows disagree.
func promoteColumnType(a, b flattypes.ColumnType) flattypes.ColumnType {
	if a == b {
		return a
	}
	if a == flattypes.ColumnTypeJson || b == flattypes.ColumnTypeJson {
		return flattypes.ColumnTypeJson
	}
	rankA, okA := numericRank[a]
	rankB, okB := numericRank[b]
	if okA && okB {
		if rankA > rankB {
			return a
		}
		return b
	}
	return flattypes.ColumnTypeString
}

// encodeValue encodes value as column type t. Variable-length types carry a
// uint32 byte length prefix.
func encodeValue(value interface{}, t flattypes.ColumnType) ([]byte, bool) {
	le := binary.LittleEndian
	switch t {
	case flattypes.ColumnTypeBool:
		v, ok := value.(bool)
		if !ok {
			return nil, false
		}
		if v {
			return []byte{1}, true
		}
		return []byte{0}, true
	case flattypes.ColumnTypeInt:
		v, ok := toInt64(value)
		return le.AppendUint32(nil, uint32(int32(v))), ok
	case flattypes.ColumnTypeUInt:
		v, ok := toInt64(value)
		return le.AppendUint32(nil, uint32(v)), ok && v >= 0
	case flattypes.ColumnTypeLong:
		v, ok := toInt64(value)
		return le.AppendUint64(nil, uint64(v)), ok
	case flattypes.ColumnTypeULong:
		v, ok := toUint64(value)
		return le.AppendUint64(nil, v), ok
	case flattypes.ColumnTypeFloat:
		v, ok := toFloat64(value)
		return le.AppendUint32(nil, math.Float32bits(float32(v))), ok
	case flattypes.ColumnTypeDouble:
		v, ok := toFloat64(value)
		return le.AppendUint64(nil, math.Float64bits(v)), ok
	case flattypes.ColumnTypeString:
		return lengthPrefixed([]byte(toString(value))), true
	case flattypes.ColumnTypeDateTime:
		if v, ok := value.(time.Time); ok {
			return lengthPrefixed([]byte(v.Format(time.RFC3339))), true
		}
		return lengthPrefixed([]byte(toString(value))), true
	case flattypes.ColumnTypeBinary:
		v, ok := value.([]byte)
		return lengthPrefixed(v), ok
	case flattypes.ColumnTypeJson:
		b, err := json.Marshal(value)
		return lengthPrefixed(b), err == nil
	default:
		return nil, false
	}
}

func lengthPrefixed(b []byte) []byte {
	out := binary.LittleEndian.AppendUint32(make([]byte, 0, 4+len(b)), uint32(len(b)))
	return append(out, b...)
}

// Type conversion helpers

func toInt64(v interface{}) (int64, bool) {
	switch val := v.(type) {
	case bool:
		if val {
			return 1, true
		}
		return 0, true
	case int:
		return int64(val), true
	case int8:
		return int64(val), true
	case int16:
		return int64(val), true
	case int32:
		return int64(val), true
	case int64:
		return val, true
	case uint:
		return int64(val), true
	case uint8:
		return int64(val), true
	case uint16:
		return int64(val), true
	case uint32:
		return int64(val), true
	case uint64:
		return int64(val), true
	case json.Number:
		i, err := val.Int64()
		return i, err == nil
	}
	return 0, false
}

func toUint64(v interface{}) (uint64, bool) {
	if u, ok := v.(uint64); ok {
		return u, true
	}
	i, ok := toInt64(v)
	return uint64(i), ok && i >= 0
}

func toFloat64(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float32:
		return float64(val), true
	case float64:
		return val, true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	}
	i, ok := toInt64(v)
	return float64(i), ok
}

func toString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
