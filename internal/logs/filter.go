package logs

import (
	"encoding/json"
	"fmt"
)

// Filter keeps JSON records whose key field equals value. Lines that are not
// JSON objects are dropped. An empty key keeps every line.
func Filter(lines []string, key, value string) []string {
	if key == "" {
		return lines
	}
	kept := lines[:0:0]
	for _, line := range lines {
		var record map[string]any
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			continue
		}
		field, ok := record[key]
		if !ok {
			continue
		}
		if fmt.Sprint(field) == value {
			kept = append(kept, line)
		}
	}
	return kept
}
