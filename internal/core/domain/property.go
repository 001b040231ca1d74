package domain

import (
	"fmt"
	"path/filepath"
	"strconv"

	"go.trai.ch/zerr"
)

// PropType describes the semantic type of a property: its default value,
// how raw values are coerced into it and how values collected across an
// inheritance walk are joined into one.
type PropType interface {
	Name() string

	// Default returns the value an unset property reads as.
	Default() any

	// Coerce converts a raw value into the canonical representation of
	// the type. It returns an error when the value does not fit.
	Coerce(value any) (any, error)

	// Join combines the values collected during an inheritance walk, in
	// walk order, into a single value. Scalar types take the first value,
	// list types concatenate and deduplicate preserving first occurrence.
	Join(values []any) any
}

// StringType is a scalar string property.
type StringType struct{}

func (StringType) Name() string { return "string" }

func (StringType) Default() any { return "" }

func (StringType) Coerce(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	}
	return nil, coercionError("string", value)
}

func (StringType) Join(values []any) any {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// BoolType is a scalar boolean property.
type BoolType struct{}

func (BoolType) Name() string { return "bool" }

func (BoolType) Default() any { return false }

func (BoolType) Coerce(value any) (any, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, coercionError("bool", value)
		}
		return b, nil
	}
	return nil, coercionError("bool", value)
}

func (BoolType) Join(values []any) any {
	if len(values) == 0 {
		return false
	}
	return values[0]
}

// StringListType is an ordered list of strings.
type StringListType struct{}

func (StringListType) Name() string { return "stringList" }

func (StringListType) Default() any { return []string(nil) }

func (StringListType) Coerce(value any) (any, error) {
	return coerceStringSlice("stringList", value)
}

func (StringListType) Join(values []any) any {
	return joinStringLists(values)
}

// PathListType is an ordered list of file system paths. Values are
// cleaned on coercion so equivalent spellings deduplicate.
type PathListType struct{}

func (PathListType) Name() string { return "pathList" }

func (PathListType) Default() any { return []string(nil) }

func (PathListType) Coerce(value any) (any, error) {
	list, err := coerceStringSlice("pathList", value)
	if err != nil {
		return nil, err
	}
	cleaned := make([]string, len(list))
	for i, p := range list {
		cleaned[i] = filepath.Clean(p)
	}
	return cleaned, nil
}

func (PathListType) Join(values []any) any {
	return joinStringLists(values)
}

func coerceStringSlice(typeName string, value any) ([]string, error) {
	switch v := value.(type) {
	case []string:
		return v, nil
	case string:
		return []string{v}, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, coercionError(typeName, item)
			}
			out = append(out, s)
		}
		return out, nil
	case nil:
		return nil, nil
	}
	return nil, coercionError(typeName, value)
}

// joinStringLists concatenates in walk order, deduplicating by value and
// preserving the first occurrence.
func joinStringLists(values []any) any {
	var out []string
	seen := make(map[string]struct{})
	for _, v := range values {
		list, ok := v.([]string)
		if !ok {
			continue
		}
		for _, s := range list {
			if _, dup := seen[s]; dup {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

func coercionError(typeName string, value any) error {
	return zerr.With(zerr.With(ErrPropertyType, "expected", typeName),
		"got", fmt.Sprintf("%T", value))
}
