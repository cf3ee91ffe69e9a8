package jsonrpc

import (
	"bytes"
	"encoding/json"
	"maps"
	"math"
	"reflect"
	"slices"
	"strconv"
)

// IsStringOrNumber reports whether v is a string or a finite number.
// json.Number values are parsed; ones that overflow to infinity are rejected.
func IsStringOrNumber(v any) bool {
	switch n := v.(type) {
	case string:
		return true
	case json.Number:
		f, err := strconv.ParseFloat(string(n), 64)
		return err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
	case float64:
		return !math.IsNaN(n) && !math.IsInf(n, 0)
	case float32:
		f := float64(n)
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}

// IsNil reports whether v is absent: a nil interface, a nil pointer, map,
// slice, func or channel, or a raw JSON null.
func IsNil(v any) bool {
	if v == nil {
		return true
	}
	if raw, ok := v.(json.RawMessage); ok {
		return isNullJSON(raw)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// protocolMembers are the capability contract's own methods. They are never
// reported as operations.
var protocolMembers = []string{
	"AreParamsValid",
	"Methods",
	"Register",
}

// ListCallableMembers returns the names of every callable member of obj:
// exported methods (including ones promoted from embedded types), non-nil
// exported func fields of a struct, func values of a map keyed by string, and
// the decimal indices of func elements of a slice or array. The capability
// contract's own methods are excluded. The result is sorted and has no
// duplicates.
func ListCallableMembers(obj any) []string {
	return slices.Sorted(maps.Keys(callableMembers(obj)))
}

// callableMembers maps every callable member name of obj to its bound func
// value.
func callableMembers(obj any) map[string]reflect.Value {
	out := make(map[string]reflect.Value)
	if obj == nil {
		return out
	}
	v := reflect.ValueOf(obj)

	t := v.Type()
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		if !m.IsExported() || slices.Contains(protocolMembers, m.Name) {
			continue
		}
		out[m.Name] = v.Method(i)
	}

	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return out
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			sf := t.Field(i)
			if !sf.IsExported() || sf.Anonymous {
				continue
			}
			addFunc(out, sf.Name, v.Field(i))
		}
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return out
		}
		iter := v.MapRange()
		for iter.Next() {
			addFunc(out, iter.Key().String(), iter.Value())
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			addFunc(out, strconv.Itoa(i), v.Index(i))
		}
	}
	return out
}

func addFunc(out map[string]reflect.Value, name string, fv reflect.Value) {
	for fv.Kind() == reflect.Interface {
		if fv.IsNil() {
			return
		}
		fv = fv.Elem()
	}
	if fv.Kind() != reflect.Func || fv.IsNil() {
		return
	}
	if slices.Contains(protocolMembers, name) {
		return
	}
	if _, exists := out[name]; exists {
		return
	}
	out[name] = fv
}

func isNullJSON(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || string(raw) == "null"
}
