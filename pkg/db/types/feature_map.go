package dbtypes

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// FeatureMap stores package feature toggles as a jsonb object of
// feature-key to enabled flag.
type FeatureMap map[string]bool

func (m *FeatureMap) Scan(src any) error {
	if src == nil {
		*m = FeatureMap{}
		return nil
	}

	switch v := src.(type) {
	case []byte:
		return m.parseFromBytes(v)
	case string:
		return m.parseFromBytes([]byte(v))
	default:
		return fmt.Errorf("FeatureMap: unsupported Scan type %T", src)
	}
}

func (m FeatureMap) Value() (driver.Value, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("FeatureMap: marshal: %w", err)
	}
	return string(raw), nil
}

func (m *FeatureMap) parseFromBytes(raw []byte) error {
	if len(raw) == 0 {
		*m = FeatureMap{}
		return nil
	}
	out := map[string]bool{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("FeatureMap: parse: %w", err)
	}
	*m = FeatureMap(out)
	return nil
}

// Enabled reports whether the named feature is switched on.
func (m FeatureMap) Enabled(key string) bool {
	return m[key]
}
