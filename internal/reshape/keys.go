package reshape

import (
	"encoding/json"
	"fmt"
)

// MapKeysDeep renames object keys found in keyMap throughout v. Arrays are
// mapped element-wise and other values are returned as is.
func MapKeysDeep(v any, keyMap map[string]string) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			if nk, ok := keyMap[k]; ok {
				k = nk
			}
			out[k] = MapKeysDeep(child, keyMap)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, child := range t {
			out[i] = MapKeysDeep(child, keyMap)
		}
		return out
	}
	return v
}

// ParseKeyMap accepts a key map given as an object or as a JSON encoded
// object string.
func ParseKeyMap(v any) (map[string]string, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		var m map[string]any
		if err := json.Unmarshal([]byte(t), &m); err != nil {
			return nil, fmt.Errorf("key map is not a JSON object: %w", err)
		}
		return ParseKeyMap(m)
	case map[string]any:
		out := make(map[string]string, len(t))
		for k, nv := range t {
			s, ok := nv.(string)
			if !ok {
				return nil, fmt.Errorf("key map entry %q must be a string", k)
			}
			out[k] = s
		}
		return out, nil
	}
	return nil, fmt.Errorf("key map must be an object or a JSON string, got %T", v)
}

// ParseRoots accepts a single root path or a list of them.
func ParseRoots(v any) ([]string, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		if t == "" {
			return nil, nil
		}
		return []string{t}, nil
	case []string:
		return t, nil
	case []any:
		out := make([]string, 0, len(t))
		for i, r := range t {
			s, ok := r.(string)
			if !ok {
				return nil, fmt.Errorf("result root %d must be a string, got %T", i, r)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("result root must be a string or a list of strings, got %T", v)
}

// ParseSetters reads a list of {field, path} objects.
func ParseSetters(v any) ([]Setter, error) {
	if v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("setters must be a list, got %T", v)
	}
	out := make([]Setter, 0, len(list))
	for i, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("setter %d must be an object, got %T", i, item)
		}
		path, ok := m["path"].(string)
		if !ok {
			return nil, fmt.Errorf("setter %d: path is required", i)
		}
		field, _ := m["field"].(string)
		out = append(out, Setter{Field: field, Path: path})
	}
	return out, nil
}
