package docstyle

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotObject is returned when a persisted descriptor is valid JSON but not an object.
var ErrNotObject = errors.New("docstyle: descriptor must be a JSON object")

// Merge overlays override onto base and returns a new tree. The shape of base decides
// what is accepted: keys unknown to base are ignored, null keeps the base value, nested
// objects merge recursively and any other value replaces the base only when both have
// the same JSON kind. Arrays are replaced wholesale when every element matches the
// element kind of the base array, or of arrayElements for arrays that are empty in base.
func Merge(base, override map[string]any) map[string]any {
	return mergeAt("", base, override)
}

// arrayElements gives the element kind of arrays whose default is empty, keyed by path.
var arrayElements = map[string]jsonKind{
	"header.companyInfo": kindString,
}

func mergeAt(path string, base, override map[string]any) map[string]any {
	out := make(map[string]any, len(base))
	for key, value := range base {
		out[key] = value
	}
	for key, value := range override {
		current, known := base[key]
		if !known || value == nil {
			continue
		}
		at := key
		if path != "" {
			at = path + "." + key
		}
		baseObj, baseIsObj := current.(map[string]any)
		overObj, overIsObj := value.(map[string]any)
		switch {
		case baseIsObj && overIsObj:
			out[key] = mergeAt(at, baseObj, overObj)
		case baseIsObj || overIsObj:
			continue
		case kindOf(current) == kindArray && kindOf(value) == kindArray:
			if elementsMatch(at, current.([]any), value.([]any)) {
				out[key] = value
			}
		case kindOf(current) == kindOf(value):
			out[key] = value
		}
	}
	return out
}

type jsonKind int

const (
	kindNull jsonKind = iota
	kindBool
	kindNumber
	kindString
	kindArray
	kindObject
)

func kindOf(v any) jsonKind {
	switch v.(type) {
	case bool:
		return kindBool
	case float64, json.Number:
		return kindNumber
	case string:
		return kindString
	case []any:
		return kindArray
	case map[string]any:
		return kindObject
	}
	return kindNull
}

// elementsMatch accepts an override array when every element shares the kind of the
// base array's first element. An empty base array takes its kind from arrayElements and
// accepts only an empty override when the path is not listed.
func elementsMatch(path string, base, override []any) bool {
	want, ok := arrayElements[path]
	if len(base) > 0 {
		want, ok = kindOf(base[0]), true
	}
	if !ok {
		return len(override) == 0
	}
	for _, v := range override {
		if kindOf(v) != want {
			return false
		}
	}
	return true
}

// Resolve merges a persisted partial descriptor over Defaults and normalizes the result.
// Empty input or JSON null yields the defaults. On any error the defaults are returned
// alongside it.
func Resolve(persisted []byte) (Config, error) {
	defaults := Defaults()
	trimmed := bytes.TrimSpace(persisted)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return defaults, nil
	}

	override, err := decodeObject(trimmed)
	if err != nil {
		return defaults, err
	}
	base, err := toTree(defaults)
	if err != nil {
		return defaults, err
	}
	merged, err := json.Marshal(Merge(base, override))
	if err != nil {
		return defaults, fmt.Errorf("docstyle: encode merged tree: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(merged, &cfg); err != nil {
		return defaults, fmt.Errorf("docstyle: decode merged tree: %w", err)
	}
	cfg.normalize(defaults)
	return cfg, nil
}

// Validate reports whether raw is an acceptable persisted descriptor.
func Validate(raw []byte) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return ErrNotObject
	}
	_, err := decodeObject(trimmed)
	return err
}

func decodeObject(raw []byte) (map[string]any, error) {
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("docstyle: decode descriptor: %w", err)
	}
	obj, ok := decoded.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	return obj, nil
}

func toTree(cfg Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("docstyle: encode defaults: %w", err)
	}
	var tree map[string]any
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("docstyle: decode defaults: %w", err)
	}
	return tree, nil
}
