package client

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ErrNotStruct is returned by Decode when T is not a struct type.
var ErrNotStruct = errors.New("decode target must be a struct")

// Decode maps re-aliased rows onto structs. Keys match the db tag, the
// field name or the field name ignoring case; nested maps fill nested
// struct or struct pointer fields. Unknown keys are ignored.
func Decode[T any](rows []map[string]any) ([]T, error) {
	out := make([]T, 0, len(rows))
	for i, row := range rows {
		var result T
		val := reflect.ValueOf(&result).Elem()
		if val.Kind() != reflect.Struct {
			return nil, fmt.Errorf("%w: %s", ErrNotStruct, val.Type())
		}
		if err := decodeStruct(val, row); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out = append(out, result)
	}
	return out, nil
}

// DecodeOne decodes the first row. It returns nil for no rows.
func DecodeOne[T any](rows []map[string]any) (*T, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	res, err := Decode[T](rows[:1])
	if err != nil {
		return nil, err
	}
	return &res[0], nil
}

func decodeStruct(val reflect.Value, row map[string]any) error {
	typ := val.Type()
	for key, raw := range row {
		field, ok := findFieldByName(typ, key)
		if !ok {
			continue
		}
		if err := assign(val.FieldByIndex(field.Index), raw); err != nil {
			return fmt.Errorf("field %s: %w", field.Name, err)
		}
	}
	return nil
}

func assign(dst reflect.Value, raw any) error {
	if raw == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}

	if nested, ok := raw.(map[string]any); ok {
		switch {
		case dst.Kind() == reflect.Struct:
			return decodeStruct(dst, nested)
		case dst.Kind() == reflect.Ptr && dst.Type().Elem().Kind() == reflect.Struct:
			ptr := reflect.New(dst.Type().Elem())
			if err := decodeStruct(ptr.Elem(), nested); err != nil {
				return err
			}
			dst.Set(ptr)
			return nil
		}
	}

	src := reflect.ValueOf(raw)
	if dst.Kind() == reflect.Ptr {
		ptr := reflect.New(dst.Type().Elem())
		if err := assign(ptr.Elem(), raw); err != nil {
			return err
		}
		dst.Set(ptr)
		return nil
	}

	switch {
	case src.Type().AssignableTo(dst.Type()):
		dst.Set(src)
	case isNumber(src.Kind()) && isNumber(dst.Kind()):
		dst.Set(src.Convert(dst.Type()))
	case src.Kind() == reflect.String && dst.Kind() == reflect.String:
		dst.SetString(src.String())
	case dst.Kind() == reflect.Bool && isNumber(src.Kind()):
		dst.SetBool(!src.IsZero())
	default:
		return fmt.Errorf("cannot assign %s to %s", src.Type(), dst.Type())
	}
	return nil
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// findFieldByName finds a struct field by column name (db tag or field name)
func findFieldByName(typ reflect.Type, colName string) (reflect.StructField, bool) {
	var fold reflect.StructField
	found := false
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		if tag := field.Tag.Get("db"); tag != "" {
			name, _, _ := strings.Cut(tag, ",")
			if name == "-" {
				continue
			}
			if name == colName {
				return field, true
			}
		}
		if field.Name == colName {
			return field, true
		}
		if !found && strings.EqualFold(field.Name, colName) {
			fold, found = field, true
		}
	}
	return fold, found
}
