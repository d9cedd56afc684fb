// Package reshape turns raw downstream response bodies into the value a
// schema field expects: result root extraction, setters and key remapping.
package reshape

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ErrInvalidJSON is returned when a body cannot be parsed as JSON.
var ErrInvalidJSON = errors.New("invalid JSON payload")

// Setter copies the value at Path of the raw body into Field of the result.
// An empty Field merges the source object into the result itself.
type Setter struct {
	Field string
	Path  string
}

// Plan is the compiled reshape configuration of one field.
type Plan struct {
	roots   []string
	setters []compiledSetter
	keyMap  map[string]string
}

type compiledSetter struct {
	field string // sjson path, empty for merge
	path  string // gjson path, empty for whole body
}

// NewPlan validates and compiles the given roots, setters and key map.
func NewPlan(roots []string, setters []Setter, keyMap map[string]string) (*Plan, error) {
	p := &Plan{keyMap: keyMap}
	for _, r := range roots {
		jp, err := JSONPath(r)
		if err != nil {
			return nil, fmt.Errorf("result root: %w", err)
		}
		if jp == "" {
			return nil, fmt.Errorf("result root: empty path")
		}
		p.roots = append(p.roots, jp)
	}
	for i, s := range setters {
		field, err := JSONPath(s.Field)
		if err != nil {
			return nil, fmt.Errorf("setter %d field: %w", i, err)
		}
		path, err := JSONPath(s.Path)
		if err != nil {
			return nil, fmt.Errorf("setter %d path: %w", i, err)
		}
		p.setters = append(p.setters, compiledSetter{field: field, path: path})
	}
	return p, nil
}

// Apply reshapes raw. An empty body yields nil and a JSON string yields
// the string itself. Setters always read from raw, not from the extracted
// root.
func (p *Plan) Apply(raw []byte) (any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}
	if !gjson.ValidBytes(raw) {
		return nil, ErrInvalidJSON
	}
	whole := gjson.ParseBytes(raw)
	if whole.Type == gjson.String {
		return whole.String(), nil
	}

	data, err := p.extract(raw)
	if err != nil {
		return nil, err
	}
	if len(p.setters) > 0 {
		if data, err = p.set(data, whole); err != nil {
			return nil, err
		}
	}

	v, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if len(p.keyMap) > 0 {
		v = MapKeysDeep(v, p.keyMap)
	}
	return v, nil
}

func (p *Plan) extract(raw []byte) ([]byte, error) {
	switch len(p.roots) {
	case 0:
		return raw, nil
	case 1:
		res := gjson.GetBytes(raw, p.roots[0])
		if !res.Exists() {
			return []byte("{}"), nil
		}
		return []byte(res.Raw), nil
	}
	acc := []byte("{}")
	for _, root := range p.roots {
		res := gjson.GetBytes(raw, root)
		if !res.IsObject() {
			continue
		}
		var err error
		if acc, err = mergeObject(acc, res); err != nil {
			return nil, err
		}
	}
	return acc, nil
}

func (p *Plan) set(data []byte, whole gjson.Result) ([]byte, error) {
	res := gjson.ParseBytes(data)
	if res.IsObject() {
		return p.setObject(data, whole)
	}
	if !res.IsArray() {
		return data, nil
	}
	out := []byte("[]")
	var err error
	res.ForEach(func(_, elem gjson.Result) bool {
		obj := []byte("{}")
		if elem.IsObject() {
			obj = []byte(elem.Raw)
		}
		if obj, err = p.setObject(obj, whole); err != nil {
			return false
		}
		out, err = sjson.SetRawBytes(out, "-1", obj)
		return err == nil
	})
	return out, err
}

func (p *Plan) setObject(obj []byte, whole gjson.Result) ([]byte, error) {
	var err error
	for _, s := range p.setters {
		src := whole
		if s.path != "" {
			src = whole.Get(s.path)
		}
		switch {
		case s.field == "":
			if src.IsObject() {
				obj, err = mergeObject(obj, src)
			}
		case !src.Exists():
			if gjson.GetBytes(obj, s.field).Exists() {
				obj, err = sjson.DeleteBytes(obj, s.field)
			}
		default:
			obj, err = sjson.SetRawBytes(obj, s.field, []byte(src.Raw))
		}
		if err != nil {
			return nil, fmt.Errorf("apply setter %q: %w", s.field, err)
		}
	}
	return obj, nil
}

func mergeObject(dst []byte, src gjson.Result) ([]byte, error) {
	var err error
	src.ForEach(func(key, value gjson.Result) bool {
		dst, err = sjson.SetRawBytes(dst, gjson.Escape(key.String()), []byte(value.Raw))
		return err == nil
	})
	return dst, err
}

// Decode parses a JSON document into generic values, keeping numbers as
// json.Number.
func Decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return v, nil
}
