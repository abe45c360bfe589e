package database

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSON stores any JSON-serialisable value in a text column. It behaves the
// same on PostgreSQL, MySQL and SQLite.
type JSON[T any] struct {
	Data T
}

// NewJSON wraps v for storage.
func NewJSON[T any](v T) JSON[T] {
	return JSON[T]{Data: v}
}

// Scan implements the sql.Scanner interface for reading from the database.
func (j *JSON[T]) Scan(value interface{}) error {
	var zero T
	switch v := value.(type) {
	case nil:
		j.Data = zero
		return nil
	case []byte:
		if len(v) == 0 {
			j.Data = zero
			return nil
		}
		return json.Unmarshal(v, &j.Data)
	case string:
		if v == "" {
			j.Data = zero
			return nil
		}
		return json.Unmarshal([]byte(v), &j.Data)
	default:
		return fmt.Errorf("database.JSON: unsupported scan type %T", value)
	}
}

// Value implements the driver.Valuer interface for writing to the database.
func (j JSON[T]) Value() (driver.Value, error) {
	data, err := json.Marshal(j.Data)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// GormDataType returns the GORM data type hint.
func (JSON[T]) GormDataType() string {
	return "text"
}
