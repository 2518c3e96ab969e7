package sink

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"time"
)

// TimeLayout is the cell format of timestamps: RFC 3339 in UTC, second precision.
const TimeLayout = "2006-01-02T15:04:05Z"

// ErrSchemaMismatch is returned when a record type cannot be rendered as a row.
var ErrSchemaMismatch = errors.New("record type does not map to a csv schema")

var timeType = reflect.TypeOf(time.Time{})

type column struct {
	name  string
	index []int
}

type schema struct {
	typ     reflect.Type
	columns []column
}

// Header returns the column names of record type R in declaration order.
func Header[R any]() ([]string, error) {
	s, err := schemaOf(reflect.TypeOf((*R)(nil)).Elem())
	if err != nil {
		return nil, err
	}
	return s.header(), nil
}

func schemaOf(t reflect.Type) (*schema, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s is not a struct", ErrSchemaMismatch, t)
	}
	s := &schema{typ: t}
	if err := s.collect(t, nil); err != nil {
		return nil, err
	}
	if len(s.columns) == 0 {
		return nil, fmt.Errorf("%w: %s has no columns", ErrSchemaMismatch, t)
	}

	seen := make(map[string]struct{}, len(s.columns))
	for _, c := range s.columns {
		if _, dup := seen[c.name]; dup {
			return nil, fmt.Errorf("%w: duplicate column %q in %s", ErrSchemaMismatch, c.name, t)
		}
		seen[c.name] = struct{}{}
	}
	return s, nil
}

// collect appends the columns of t, flattening anonymous embedded structs in place.
func (s *schema) collect(t reflect.Type, prefix []int) error {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		index := append(append([]int(nil), prefix...), i)

		if f.Anonymous && f.Type.Kind() == reflect.Struct && f.Type != timeType {
			if err := s.collect(f.Type, index); err != nil {
				return err
			}
			continue
		}
		if !f.IsExported() {
			continue
		}

		name := f.Tag.Get("csv")
		if name == "-" {
			continue
		}
		if name == "" {
			name = f.Name
		}
		if !supported(f.Type) {
			return fmt.Errorf("%w: field %s.%s has unsupported type %s", ErrSchemaMismatch, t.Name(), f.Name, f.Type)
		}
		s.columns = append(s.columns, column{name: name, index: index})
	}
	return nil
}

func (s *schema) header() []string {
	out := make([]string, len(s.columns))
	for i, c := range s.columns {
		out[i] = c.name
	}
	return out
}

func supported(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == timeType {
		return true
	}
	switch t.Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

// cell renders one supported value. Nil pointers and zero times are empty.
func cell(v reflect.Value) string {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return ""
		}
		v = v.Elem()
	}
	if v.Type() == timeType {
		t := v.Interface().(time.Time)
		if t.IsZero() {
			return ""
		}
		return t.UTC().Format(TimeLayout)
	}

	switch v.Kind() {
	case reflect.String:
		return v.String()
	case reflect.Bool:
		return strconv.FormatBool(v.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10)
	case reflect.Float32:
		return strconv.FormatFloat(v.Float(), 'f', -1, 32)
	default:
		return strconv.FormatFloat(v.Float(), 'f', -1, 64)
	}
}
