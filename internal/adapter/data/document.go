// Package data contains the default [domain.Document] implementation and the
// document factory.
package data

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"maps"
	"reflect"
	"slices"
	"strings"
	"time"

	goreflect "github.com/goccy/go-reflect"

	"github.com/vinicius-lino-figueiredo/kvdb/domain"
)

// TagName is the struct tag read when converting structs to documents.
const TagName = "kvdb"

var timeTyp = goreflect.TypeOf(*new(time.Time))

// M implements domain.Document by using a hashed map. Duplicates replace old
// values.
type M map[string]any

// NewDocument returns a new instance of [domain.Document]. Maps, structs and
// other documents are converted deeply: nested maps and structs become [M],
// slices become []any and numbers are widened to int64, uint64 or float64, so
// the result never shares mutable state with the input.
func NewDocument(in any) (domain.Document, error) {
	if in == nil {
		return M{}, nil
	}
	if doc, ok := in.(domain.Document); ok {
		return cloneDoc(doc)
	}

	r := goreflect.ValueNoEscapeOf(in)
	k := r.Kind()
	for k == goreflect.Interface || k == reflect.Pointer {
		if r.IsNil() {
			return M{}, nil
		}
		r = r.Elem()
		k = r.Kind()
	}
	if (k != goreflect.Struct || r.Type() == timeTyp) && k != goreflect.Map {
		return nil, domain.ErrDocumentType{Reason: fmt.Sprintf("expected map or struct, got %s", r.Type().String())}
	}
	v, err := parseReflect(r)
	if err != nil {
		return nil, err
	}
	doc, ok := v.(domain.Document)
	if !ok {
		return M{}, nil
	}
	return doc, nil
}

// Clone returns a deep copy of v. Documents are copied as [M].
func Clone(v any) any {
	switch t := v.(type) {
	case domain.Document:
		res := make(M, t.Len())
		for k, v := range t.Iter() {
			res[k] = Clone(v)
		}
		return res
	case []any:
		res := make([]any, len(t))
		for n, v := range t {
			res[n] = Clone(v)
		}
		return res
	default:
		return v
	}
}

func cloneDoc(doc domain.Document) (domain.Document, error) {
	res := make(M, doc.Len())
	for k, v := range doc.Iter() {
		val, err := convert(v)
		if err != nil {
			return nil, err
		}
		res[k] = val
	}
	return res, nil
}

func convert(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string, bool, time.Time, int64, uint64, float64:
		return t, nil
	case int:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case float32:
		return float64(t), nil
	case domain.Document:
		return cloneDoc(t)
	case []any:
		res := make([]any, len(t))
		for n, itm := range t {
			val, err := convert(itm)
			if err != nil {
				return nil, err
			}
			res[n] = val
		}
		return res, nil
	default:
		return parseReflect(goreflect.ValueNoEscapeOf(v))
	}
}

func parseReflect(r goreflect.Value) (any, error) {
	for r.Kind() == reflect.Pointer || r.Kind() == goreflect.Interface {
		if r.IsNil() {
			return nil, nil
		}
		r = r.Elem()
	}
	switch r.Kind() {
	case goreflect.Invalid:
		return nil, nil
	case goreflect.Slice:
		if r.IsNil() {
			return nil, nil
		}
		fallthrough
	case goreflect.Array:
		return parseList(r)
	case goreflect.Struct:
		if r.Type() == timeTyp {
			return r.Interface(), nil
		}
		return parseStruct(r)
	case goreflect.Map:
		if r.IsNil() {
			return nil, nil
		}
		return parseMap(r)
	case reflect.String:
		return r.String(), nil
	case reflect.Bool:
		return r.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return r.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return r.Uint(), nil
	case reflect.Float32, reflect.Float64:
		return r.Float(), nil
	default:
		return nil, domain.ErrDocumentType{Reason: fmt.Sprintf("unsupported value of kind %s", r.Kind())}
	}
}

func parseStruct(r goreflect.Value) (domain.Document, error) {
	typ := r.Type()
	numField := r.NumField()

	res := make(M, numField)

	for n := range numField {
		field := typ.Field(n)
		if field.PkgPath != "" {
			continue
		}
		name, skip := fieldName(r.Field(n), field)
		if skip {
			continue
		}
		value, err := parseReflect(r.Field(n))
		if err != nil {
			return nil, err
		}
		res[name] = value
	}
	return res, nil
}

func fieldName(r goreflect.Value, field goreflect.StructField) (string, bool) {
	name := field.Name
	tag, ok := field.Tag.Lookup(TagName)
	if !ok {
		return name, false
	}
	if tag == "-" {
		return "", true
	}
	segments := strings.Split(tag, ",")
	if segments[0] != "" {
		name = segments[0]
	}
	options := segments[1:]
	if slices.Contains(options, "omitempty") && isNullable(field.Type) && r.IsNil() {
		return "", true
	}
	if slices.Contains(options, "omitzero") && r.IsZero() {
		return "", true
	}
	return name, false
}

func parseMap(r goreflect.Value) (domain.Document, error) {
	res := make(M, r.Len())
	for _, k := range r.MapKeys() {
		if k.Kind() != reflect.String {
			return nil, domain.ErrDocumentType{Reason: fmt.Sprintf("map keys must be strings, got %s", k.Kind())}
		}
		value, err := parseReflect(r.MapIndex(k))
		if err != nil {
			return nil, err
		}
		res[k.String()] = value
	}
	return res, nil
}

func parseList(r goreflect.Value) ([]any, error) {
	length := r.Len()
	res := make([]any, length)
	for i := range length {
		value, err := parseReflect(r.Index(i))
		if err != nil {
			return nil, err
		}
		res[i] = value
	}
	return res, nil
}

func isNullable(t goreflect.Type) bool {
	k := t.Kind()
	return k == reflect.Pointer ||
		k == reflect.Slice ||
		k == reflect.Map ||
		k == reflect.Interface
}

// Parse decodes JSON into documents. Objects become [M], arrays []any,
// integral numbers int64 and every other number float64.
func Parse(b []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after JSON")
	}
	return fromJSON(v), nil
}

func fromJSON(v any) any {
	switch t := v.(type) {
	case map[string]any:
		res := make(M, len(t))
		for k, v := range t {
			res[k] = fromJSON(v)
		}
		return res
	case []any:
		for n, v := range t {
			t[n] = fromJSON(v)
		}
		return t
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	default:
		return v
	}
}

// ID implements domain.Document
func (d M) ID() any {
	return d[domain.IDField]
}

// Get implements domain.Document
func (d M) Get(key string) any {
	return d[key]
}

// Set implements domain.Document
func (d M) Set(key string, value any) {
	d[key] = value
}

// Unset implements domain.Document
func (d M) Unset(key string) {
	delete(d, key)
}

// D implements domain.Document
func (d M) D(key string) domain.Document {
	if doc, ok := d[key].(domain.Document); ok {
		return doc
	}
	return nil
}

// Iter implements domain.Document.
func (d M) Iter() iter.Seq2[string, any] {
	return maps.All(d)
}

// Keys implements domain.Document.
func (d M) Keys() iter.Seq[string] {
	return maps.Keys(d)
}

// Len implements domain.Document.
func (d M) Len() int {
	return len(d)
}

// Values implements domain.Document.
func (d M) Values() iter.Seq[any] {
	return maps.Values(d)
}

// Has implements domain.Document.
func (d M) Has(key string) bool {
	_, has := d[key]
	return has
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *M) UnmarshalJSON(input []byte) error {
	v, err := Parse(input)
	if err != nil {
		return err
	}
	obj, ok := v.(M)
	if !ok {
		return fmt.Errorf("expected Document, received %T", v)
	}
	*d = obj
	return nil
}
