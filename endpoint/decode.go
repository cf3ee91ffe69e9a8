package endpoint

import (
	"encoding"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
)

// defaultFieldLimit is the maximum byte length of a decoded value when the
// field has no maxLength tag.
var defaultFieldLimit = 16 * 1024

// Unmarshal populates dst, a non-nil pointer to a struct (or to a pointer to
// a struct), from r.
//
// Supported struct tags:
//   - `header:"name"`: request header, canonicalized
//   - `query:"name"`: URL query value
//   - `body:"name"`: the whole request body; the name is informational
//   - `maxLength:"n"`: maximum byte length of the value; 16KB when absent,
//     unlimited when empty or "0"
//
// An empty name defaults to the lower-cased field name. A "-" name skips the
// field. Untagged struct fields are decoded recursively. Fields with no data
// are left unchanged.
//
// Field types may be string, []byte, bool, integers, floats, types
// implementing encoding.TextUnmarshaler, pointers to those, and slices of
// those for sources with repeated values.
//
// A body that exceeds an http.MaxBytesReader limit fails with 413.
func Unmarshal(r *http.Request, dst any) error {
	if r == nil {
		return Error(http.StatusInternalServerError, "", errors.New("endpoint: decode: nil request"))
	}
	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return Error(http.StatusInternalServerError, "", errors.New("endpoint: decode: dst must be a non-nil pointer"))
	}

	root := v.Elem()
	if root.Kind() == reflect.Pointer {
		if root.IsNil() {
			root.Set(reflect.New(root.Type().Elem()))
		}
		root = root.Elem()
	}
	if root.Kind() != reflect.Struct {
		return Error(http.StatusInternalServerError, "", errors.New("endpoint: decode: dst must point to a struct (or pointer to struct)"))
	}

	d := &decoder{r: r}
	return d.decodeStruct(root)
}

type decoder struct {
	r        *http.Request
	bodyRead bool
}

// source fetches the raw values of a named parameter. ok is false when the
// request carries no such parameter.
type source func(name string) (values [][]byte, ok bool, err error)

var sourceTags = []string{"header", "query", "body"}

func (d *decoder) source(tag string) source {
	switch tag {
	case "header":
		return d.header
	case "query":
		return d.query
	default:
		return d.body
	}
}

func (d *decoder) header(name string) ([][]byte, bool, error) {
	// Direct map access distinguishes present-but-empty from missing.
	return toBytes(d.r.Header[http.CanonicalHeaderKey(name)])
}

func (d *decoder) query(name string) ([][]byte, bool, error) {
	if d.r.URL == nil {
		return nil, false, nil
	}
	return toBytes(d.r.URL.Query()[name])
}

func (d *decoder) body(string) ([][]byte, bool, error) {
	if d.r.Body == nil || d.r.Body == http.NoBody {
		return nil, false, nil
	}
	if d.bodyRead {
		return nil, false, Error(http.StatusInternalServerError, "", errors.New("endpoint: decode: multiple body fields"))
	}
	d.bodyRead = true

	b, err := io.ReadAll(d.r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, false, Error(http.StatusRequestEntityTooLarge, "", err)
		}
		return nil, false, Error(http.StatusBadRequest, "", fmt.Errorf("endpoint: decode: body: %w", err))
	}
	return [][]byte{b}, true, nil
}

func toBytes(values []string) ([][]byte, bool, error) {
	if len(values) == 0 {
		return nil, false, nil
	}
	out := make([][]byte, len(values))
	for i, s := range values {
		out[i] = []byte(s)
	}
	return out, true, nil
}

var textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()

func isTextUnmarshaler(t reflect.Type) bool {
	return t.Implements(textUnmarshalerType) || reflect.PointerTo(t).Implements(textUnmarshalerType)
}

func (d *decoder) decodeStruct(structVal reflect.Value) error {
	t := structVal.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		fv := structVal.Field(i)

		tag, name, tagged := fieldSource(sf)
		if name == "-" {
			continue
		}
		if !tagged {
			ft := sf.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() != reflect.Struct || isTextUnmarshaler(ft) {
				continue
			}
			if fv.Kind() == reflect.Pointer {
				if fv.IsNil() {
					fv.Set(reflect.New(ft))
				}
				fv = fv.Elem()
			}
			if err := d.decodeStruct(fv); err != nil {
				return err
			}
			continue
		}

		limit, err := fieldLengthLimit(sf)
		if err != nil {
			return Error(http.StatusInternalServerError, "", fmt.Errorf("endpoint: decode: field %s: %w", sf.Name, err))
		}

		values, ok, err := d.source(tag)(name)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		for _, val := range values {
			if limit > 0 && len(val) > limit {
				return Error(http.StatusBadRequest, "", fmt.Errorf("endpoint: decode: %s %q -> %s: value exceeds max length %d", tag, name, sf.Name, limit))
			}
		}
		if err := setField(fv, values); err != nil {
			return Error(http.StatusBadRequest, "", fmt.Errorf("endpoint: decode: %s %q -> %s: %w", tag, name, sf.Name, err))
		}
	}
	return nil
}

// fieldSource returns the first source tag present on sf and the parameter
// name it names.
func fieldSource(sf reflect.StructField) (tag, name string, ok bool) {
	for _, tag := range sourceTags {
		val, has := sf.Tag.Lookup(tag)
		if !has {
			continue
		}
		name, _, _ = strings.Cut(val, ",")
		name = strings.TrimSpace(name)
		if name == "" {
			name = strings.ToLower(sf.Name)
		}
		return tag, name, true
	}
	return "", "", false
}

func fieldLengthLimit(sf reflect.StructField) (int, error) {
	val, has := sf.Tag.Lookup("maxLength")
	if !has {
		return defaultFieldLimit, nil
	}
	val = strings.TrimSpace(val)
	if val == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("maxLength: invalid integer %q", val)
	}
	if n < 0 {
		return 0, errors.New("maxLength: must be >= 0")
	}
	return n, nil
}

// setField stores values into v. Slices other than []byte receive every
// value; anything else receives the first.
func setField(v reflect.Value, values [][]byte) error {
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			v.Set(reflect.New(v.Type().Elem()))
		}
		v = v.Elem()
	}

	isBytes := v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8
	if v.Kind() == reflect.Slice && !isBytes && !isTextUnmarshaler(v.Type()) {
		slice := reflect.MakeSlice(v.Type(), 0, len(values))
		for _, val := range values {
			elem := reflect.New(v.Type().Elem()).Elem()
			if err := setField(elem, [][]byte{val}); err != nil {
				return err
			}
			slice = reflect.Append(slice, elem)
		}
		v.Set(slice)
		return nil
	}
	return setScalar(v, values[0])
}

func setScalar(v reflect.Value, b []byte) error {
	if v.CanAddr() {
		if u, ok := v.Addr().Interface().(encoding.TextUnmarshaler); ok {
			return u.UnmarshalText(b)
		}
	}

	s := string(b)
	switch v.Kind() {
	case reflect.String:
		v.SetString(s)
	case reflect.Slice:
		v.SetBytes(b)
	case reflect.Bool:
		bb, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		v.SetBool(bb)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetFloat(f)
	default:
		return fmt.Errorf("unsupported kind %s", v.Kind())
	}
	return nil
}
