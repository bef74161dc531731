package roles

import (
	"encoding/json"
	"fmt"
	"os"
)

// ParsePriorityList builds a PriorityList from a JSON array of
// {"id": ..., "label": ...} objects, highest priority first.
func ParsePriorityList(data []byte) (*PriorityList, error) {
	var entries []Role
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse priority roles: %w", err)
	}
	return NewPriorityList(entries)
}

// LoadPriorityList reads a priority role list from a JSON file.
func LoadPriorityList(path string) (*PriorityList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read priority roles file: %w", err)
	}
	return ParsePriorityList(data)
}
