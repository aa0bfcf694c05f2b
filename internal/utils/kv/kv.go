// Package kv parses `key=value` specs given on the command line.
package kv

import (
	"fmt"
	"regexp"
	"strings"
)

var keyRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.-]*$`)

// ParseSpecs parses `key=value` specs into a map. Later specs override earlier ones.
// Values may be empty, keys may not.
func ParseSpecs(specs []string) (map[string]string, error) {
	kvs := make(map[string]string, len(specs))

	for _, spec := range specs {
		if spec == "" {
			return nil, fmt.Errorf("key=value spec cannot be empty")
		}

		key, value, ok := strings.Cut(spec, "=")
		if !ok {
			return nil, fmt.Errorf("spec %q must be in key=value format", spec)
		}
		if !keyRegexp.MatchString(key) {
			return nil, fmt.Errorf("invalid key %q", key)
		}

		kvs[key] = value
	}

	return kvs, nil
}

// MergeMaps returns a new map with the base entries overridden by the override ones.
// It returns nil when both are empty.
func MergeMaps(base map[string]string, override map[string]string) map[string]string {
	if len(base) == 0 && len(override) == 0 {
		return nil
	}

	merged := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range override {
		merged[k] = v
	}

	return merged
}
