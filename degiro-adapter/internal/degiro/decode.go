package degiro

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// Fields tagged `degiro:"required"` must be present and non-null in the payload.
// Everything else is optional and unknown keys are ignored.
const requiredTag = "required"

const optionalPkgPath = "github.com/moznion/go-optional"

var unmarshalerType = reflect.TypeOf((*json.Unmarshaler)(nil)).Elem()

// decode maps body onto out, reporting contract violations as *SchemaError.
func decode(body []byte, out any) error {
	var raw any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return &SchemaError{Path: "$", Cause: err}
	}

	t := reflect.TypeOf(out)
	if t == nil || t.Kind() != reflect.Pointer {
		return &SchemaError{Path: "$", Cause: fmt.Errorf("decode target must be a pointer, got %v", t)}
	}
	if err := checkRequired(t.Elem(), raw, "$"); err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return &SchemaError{Path: "$." + typeErr.Field, Cause: err}
		}
		return &SchemaError{Path: "$", Cause: err}
	}
	return nil
}

// checkRequired walks t alongside the generic JSON value v. Presence of
// required fields is checked here, and values with their own UnmarshalJSON are
// decoded in place so their errors carry a path. Other type mismatches are
// left to json.Unmarshal.
func checkRequired(t reflect.Type, v any, path string) error {
	nullable := false
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
		nullable = true
	}

	if isOption(t) {
		if v == nil {
			return nil
		}
		return checkRequired(t.Elem(), v, path)
	}
	if v == nil {
		if !nullable && hasRequired(t) {
			return &SchemaError{Path: path, Cause: errMissingField}
		}
		return nil
	}
	if reflect.PointerTo(t).Implements(unmarshalerType) {
		return decodeAt(t, v, path)
	}

	switch t.Kind() {
	case reflect.Struct:
		obj, ok := v.(map[string]any)
		if !ok {
			return nil
		}
		return checkStruct(t, obj, path)
	case reflect.Slice, reflect.Array:
		arr, ok := v.([]any)
		if !ok {
			return nil
		}
		for i, elem := range arr {
			if err := checkRequired(t.Elem(), elem, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	case reflect.Map:
		obj, ok := v.(map[string]any)
		if !ok {
			return nil
		}
		for k, elem := range obj {
			if err := checkRequired(t.Elem(), elem, path+"."+k); err != nil {
				return err
			}
		}
	}
	return nil
}

// decodeAt runs t's own UnmarshalJSON over v.
func decodeAt(t reflect.Type, v any, path string) error {
	data, err := json.Marshal(v)
	if err != nil {
		return &SchemaError{Path: path, Cause: err}
	}
	target := reflect.New(t).Interface().(json.Unmarshaler)
	if err := target.UnmarshalJSON(data); err != nil {
		return &SchemaError{Path: path, Cause: err}
	}
	return nil
}

// hasRequired reports whether a null in place of t would drop a required field.
func hasRequired(t reflect.Type) bool {
	if t.Kind() != reflect.Struct || isOption(t) || reflect.PointerTo(t).Implements(unmarshalerType) {
		return false
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		if _, skip := jsonName(f); skip {
			continue
		}
		if f.Tag.Get("degiro") == requiredTag || hasRequired(f.Type) {
			return true
		}
	}
	return false
}

func checkStruct(t reflect.Type, obj map[string]any, path string) error {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, skip := jsonName(f)
		if skip {
			continue
		}
		if f.Anonymous && name == "" {
			ft := f.Type
			for ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				if err := checkStruct(ft, obj, path); err != nil {
					return err
				}
				continue
			}
		}
		if name == "" {
			name = f.Name
		}

		val, present := obj[name]
		if f.Tag.Get("degiro") == requiredTag && (!present || val == nil) {
			return &SchemaError{Path: path + "." + name, Cause: errMissingField}
		}
		if present {
			if err := checkRequired(f.Type, val, path+"."+name); err != nil {
				return err
			}
		}
	}
	return nil
}

// jsonName returns the key from the json tag, or "" when the tag names none.
func jsonName(f reflect.StructField) (string, bool) {
	tag := f.Tag.Get("json")
	if tag == "-" {
		return "", true
	}
	name, _, _ := strings.Cut(tag, ",")
	return name, false
}

func isOption(t reflect.Type) bool {
	return t.Kind() == reflect.Slice && t.PkgPath() == optionalPkgPath
}
