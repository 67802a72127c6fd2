package postgres

import (
	"database/sql"
	"fmt"

	orm "github.com/medatechnology/tenantorm"
)

// scanRowToDBRecord converts the current row of rows to a DBRecord
func scanRowToDBRecord(rows *sql.Rows, columns []string, tableName string) (orm.DBRecord, error) {
	// Create slice to hold column values
	values := make([]interface{}, len(columns))
	valuePtrs := make([]interface{}, len(columns))

	for i := range columns {
		valuePtrs[i] = &values[i]
	}

	if err := rows.Scan(valuePtrs...); err != nil {
		return orm.DBRecord{}, fmt.Errorf("failed to scan row: %w", err)
	}

	for i := range values {
		values[i] = convertPostgreSQLValue(values[i])
	}

	return orm.NewDBRecord(tableName, columns, values), nil
}

// scanRowsToDBRecords drains rows into DBRecords. No rows is an empty, non-nil slice.
func scanRowsToDBRecords(rows *sql.Rows, tableName string) (orm.DBRecords, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	records := orm.DBRecords{}
	for rows.Next() {
		record, err := scanRowToDBRecord(rows, columns, tableName)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return records, nil
}

// convertPostgreSQLValue converts driver values to plain Go values.
// lib/pq already decodes integers, booleans and timestamps; text and NUMERIC
// arrive as []byte and become strings so money keeps its exact digits.
func convertPostgreSQLValue(value interface{}) interface{} {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		return string(v)
	default:
		return v
	}
}
