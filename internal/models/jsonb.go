package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// marshalJSONB encodes v for a JSONB column, writing nil slices as [].
func marshalJSONB(v interface{}, empty string) (driver.Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(data) == "null" {
		return []byte(empty), nil
	}
	return data, nil
}

// scanJSONB decodes a JSONB column value into dest.
func scanJSONB(value interface{}, dest interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for jsonb column", value)
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dest)
}
