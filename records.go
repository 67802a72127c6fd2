package orm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// DBRecord is one result row: the column names in the order the statement
// declared them, and a value per column.
type DBRecord struct {
	TableName string
	Columns   []string
	Data      map[string]interface{}
}

type DBRecords []DBRecord

// NewDBRecord builds a record from parallel column/value slices.
func NewDBRecord(table string, columns []string, values []interface{}) DBRecord {
	rec := DBRecord{
		TableName: table,
		Columns:   make([]string, 0, len(columns)),
		Data:      make(map[string]interface{}, len(columns)),
	}
	for i, col := range columns {
		var v interface{}
		if i < len(values) {
			v = values[i]
		}
		rec.Set(col, v)
	}
	return rec
}

// Set assigns a column value, appending the column if it is new.
func (d *DBRecord) Set(column string, value interface{}) {
	if d.Data == nil {
		d.Data = make(map[string]interface{})
	}
	if _, ok := d.Data[column]; !ok {
		d.Columns = append(d.Columns, column)
	}
	d.Data[column] = value
}

// Get returns the raw value of column.
func (d DBRecord) Get(column string) (interface{}, bool) {
	v, ok := d.Data[column]
	return v, ok
}

// Int64 returns column as int64, accepting the integer and string shapes
// the driver produces.
func (d DBRecord) Int64(column string) (int64, error) {
	switch v := d.Data[column].(type) {
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	case int:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	case []byte:
		return strconv.ParseInt(string(v), 10, 64)
	case nil:
		return 0, fmt.Errorf("column %q is null", column)
	default:
		return 0, fmt.Errorf("column %q: unexpected type %T", column, v)
	}
}

// String returns column formatted as a string, "" for NULL.
func (d DBRecord) String(column string) string {
	switch v := d.Data[column].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}

// MarshalJSON writes the record as an object whose keys follow Columns.
func (d DBRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range d.Columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(col)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(d.Data[col])
		if err != nil {
			return nil, fmt.Errorf("failed to marshal column %s: %w", col, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalJSON keeps an empty result as [] instead of null.
func (d DBRecords) MarshalJSON() ([]byte, error) {
	if d == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]DBRecord(d))
}
