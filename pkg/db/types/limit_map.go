package dbtypes

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// LimitMap stores named numeric caps for a package as a jsonb object.
type LimitMap map[string]int64

func (m *LimitMap) Scan(src any) error {
	if src == nil {
		*m = LimitMap{}
		return nil
	}

	switch v := src.(type) {
	case []byte:
		return m.parseFromBytes(v)
	case string:
		return m.parseFromBytes([]byte(v))
	default:
		return fmt.Errorf("LimitMap: unsupported Scan type %T", src)
	}
}

func (m LimitMap) Value() (driver.Value, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("LimitMap: marshal: %w", err)
	}
	return string(raw), nil
}

func (m *LimitMap) parseFromBytes(raw []byte) error {
	if len(raw) == 0 {
		*m = LimitMap{}
		return nil
	}
	out := map[string]int64{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("LimitMap: parse: %w", err)
	}
	*m = LimitMap(out)
	return nil
}
