// Package configmerge turns blocks of structured text into configuration
// values for the external engine. Blocks may be JSON or YAML; successive
// blocks deep-merge into a single mapping that is handed to the engine as
// a config file at run time.
package configmerge

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Parse decodes a configuration block. A block whose first non-space byte
// is '{' or '[' is treated as JSON; anything else as YAML. JSON is also
// valid YAML, so the split only affects which decoder reports the error.
func Parse(text string) (map[string]interface{}, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, fmt.Errorf("empty configuration block")
	}

	var out map[string]interface{}
	if trimmed[0] == '{' || trimmed[0] == '[' {
		if err := json.Unmarshal([]byte(trimmed), &out); err != nil {
			return nil, fmt.Errorf("invalid JSON configuration: %w", err)
		}
		return out, nil
	}
	if err := yaml.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("invalid YAML configuration: %w", err)
	}
	if out == nil {
		return nil, fmt.Errorf("configuration block is not a mapping")
	}
	return out, nil
}

// Merge deep-merges src into dst and returns dst. Nested mappings merge
// recursively; scalars and lists in src overwrite dst. dst may be nil.
func Merge(dst, src map[string]interface{}) map[string]interface{} {
	if dst == nil {
		dst = make(map[string]interface{}, len(src))
	}
	for k, v := range src {
		if sub, ok := v.(map[string]interface{}); ok {
			if cur, ok := dst[k].(map[string]interface{}); ok {
				dst[k] = Merge(cur, sub)
				continue
			}
		}
		dst[k] = v
	}
	return dst
}

// WriteYAML renders a configuration mapping as YAML, the format the
// engine accepts for its config files.
func WriteYAML(cfg map[string]interface{}) ([]byte, error) {
	var buf strings.Builder
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return []byte(buf.String()), nil
}
