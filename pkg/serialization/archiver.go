package serialization

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"

	"github.com/mitchellh/mapstructure"
)

// Wire keys of an archived object. Every object is encoded as
// {"type": <tag>, "properties": {<name>: <value>, ...}} regardless of codec.
const (
	wireTypeKey  = "type"
	wirePropsKey = "properties"
)

// Archiver is the property scope of one archived object: a type tag plus a
// bag of named properties. Property values are scalars, sequences of scalars,
// nested objects or sequences of nested objects. Nested objects get their own
// Archiver, so sibling property names never collide.
//
// Reads are keyed by name and independent of write order. Properties the
// reader does not ask for are ignored, which lets an older reader consume an
// archive written by a newer schema.
type Archiver struct {
	typeTag string
	props   map[string]any
}

// NewArchiver creates an empty, untyped object scope.
func NewArchiver() *Archiver {
	return &Archiver{props: make(map[string]any)}
}

// SetType records the concrete type tag used for factory dispatch on load.
func (a *Archiver) SetType(tag string) {
	a.typeTag = tag
}

// Type returns the recorded type tag.
func (a *Archiver) Type() string {
	return a.typeTag
}

// Set writes a scalar or a sequence of scalars under name.
func (a *Archiver) Set(name string, value any) error {
	if !isScalarOrSequence(value) {
		return fmt.Errorf("%w: property %q has type %T", ErrUnsupportedValue, name, value)
	}
	a.props[name] = value
	return nil
}

// Object creates a nested object scope under name.
func (a *Archiver) Object(name string) *Archiver {
	child := NewArchiver()
	a.props[name] = child
	return child
}

// SetObjects creates a sequence of n nested object scopes under name.
// A zero n still records an empty sequence.
func (a *Archiver) SetObjects(name string, n int) []*Archiver {
	children := make([]*Archiver, n)
	for i := range children {
		children[i] = NewArchiver()
	}
	a.props[name] = children
	return children
}

// AppendObject adds one nested object scope to the sequence under name.
func (a *Archiver) AppendObject(name string) *Archiver {
	child := NewArchiver()
	list, _ := a.props[name].([]*Archiver)
	a.props[name] = append(list, child)
	return child
}

// Has reports whether a property called name is present.
func (a *Archiver) Has(name string) bool {
	_, ok := a.props[name]
	return ok
}

// Names returns the property names in sorted order.
func (a *Archiver) Names() []string {
	names := make([]string, 0, len(a.props))
	for name := range a.props {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get reads the required property name into target, which must be a pointer
// to a scalar or slice. Numeric widths are converted as needed, since codecs
// do not agree on how numbers come back.
func (a *Archiver) Get(name string, target any) error {
	raw, ok := a.props[name]
	if !ok {
		return &MissingPropertyError{Object: a.typeTag, Property: name}
	}
	if err := decodeValue(raw, target); err != nil {
		return fmt.Errorf("property %q on %s: %w", name, a.typeTag, err)
	}
	return nil
}

// Lookup reads an optional property. It returns false when name is absent.
func (a *Archiver) Lookup(name string, target any) (bool, error) {
	if !a.Has(name) {
		return false, nil
	}
	return true, a.Get(name, target)
}

// SubObject returns the nested object scope stored under name.
func (a *Archiver) SubObject(name string) (*Archiver, error) {
	raw, ok := a.props[name]
	if !ok {
		return nil, &MissingPropertyError{Object: a.typeTag, Property: name}
	}
	if child, ok := raw.(*Archiver); ok {
		return child, nil
	}
	child, err := fromWire(raw, false)
	if err != nil {
		return nil, fmt.Errorf("property %q on %s: %w", name, a.typeTag, err)
	}
	a.props[name] = child
	return child, nil
}

// Objects returns the sequence of nested object scopes stored under name.
func (a *Archiver) Objects(name string) ([]*Archiver, error) {
	raw, ok := a.props[name]
	if !ok {
		return nil, &MissingPropertyError{Object: a.typeTag, Property: name}
	}
	switch list := raw.(type) {
	case []*Archiver:
		return list, nil
	case nil:
		return nil, nil
	case []any:
		children := make([]*Archiver, len(list))
		for i, item := range list {
			child, err := fromWire(item, false)
			if err != nil {
				return nil, fmt.Errorf("property %q[%d] on %s: %w", name, i, a.typeTag, err)
			}
			children[i] = child
		}
		a.props[name] = children
		return children, nil
	default:
		return nil, fmt.Errorf("%w: property %q on %s is %T, not an object sequence",
			ErrMalformedObject, name, a.typeTag, raw)
	}
}

// wire converts the scope into the codec-neutral map form.
func (a *Archiver) wire() map[string]any {
	props := make(map[string]any, len(a.props))
	for name, value := range a.props {
		switch v := value.(type) {
		case *Archiver:
			props[name] = v.wire()
		case []*Archiver:
			list := make([]any, len(v))
			for i, child := range v {
				list[i] = child.wire()
			}
			props[name] = list
		default:
			props[name] = v
		}
	}
	return map[string]any{
		wireTypeKey:  a.typeTag,
		wirePropsKey: props,
	}
}

// fromWire rebuilds a scope from a decoded map. Nested values stay in wire
// form until SubObject or Objects asks for them. Only top-level archive
// objects must carry a type tag; nested scopes may be untyped.
func fromWire(v any, typed bool) (*Archiver, error) {
	m, ok := asStringMap(v)
	if !ok {
		return nil, fmt.Errorf("%w: expected object, got %T", ErrMalformedObject, v)
	}
	tag, _ := m[wireTypeKey].(string)
	if typed && tag == "" {
		return nil, fmt.Errorf("%w: object has no type tag", ErrMalformedObject)
	}

	a := &Archiver{typeTag: tag, props: make(map[string]any)}
	rawProps, present := m[wirePropsKey]
	if !present || rawProps == nil {
		return a, nil
	}
	props, ok := asStringMap(rawProps)
	if !ok {
		return nil, fmt.Errorf("%w: properties of %s are %T", ErrMalformedObject, tag, rawProps)
	}
	for name, value := range props {
		a.props[name] = normalizeNumbers(value)
	}
	return a, nil
}

// normalizeNumbers replaces json.Number values with int64, or float64 when
// the number is not integral, so re-encoding with another codec writes
// numbers rather than strings.
func normalizeNumbers(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case map[string]any:
		for k, item := range val {
			val[k] = normalizeNumbers(item)
		}
		return val
	case map[any]any:
		for k, item := range val {
			val[k] = normalizeNumbers(item)
		}
		return val
	case []any:
		for i, item := range val {
			val[i] = normalizeNumbers(item)
		}
		return val
	default:
		return v
	}
}

// asStringMap accepts both decoded map shapes (yaml and msgpack may produce
// interface-keyed maps).
func asStringMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			key, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[key] = val
		}
		return out, true
	default:
		return nil, false
	}
}

func decodeValue(raw, target any) error {
	switch raw.(type) {
	case *Archiver, []*Archiver:
		return fmt.Errorf("%w: object read as a scalar", ErrUnsupportedValue)
	}
	var rangeErr error
	hook := func(from, to reflect.Type, data any) (any, error) {
		out, err := exactIntegerHook(from, to, data)
		if err != nil && rangeErr == nil {
			rangeErr = err
		}
		return out, err
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:     target,
		TagName:    "archive",
		DecodeHook: hook,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(raw); err != nil {
		// mapstructure flattens hook errors to text
		if rangeErr != nil {
			return rangeErr
		}
		return err
	}
	return nil
}

// exactIntegerHook refuses numbers that would be truncated or wrapped when
// decoded into an integer target.
func exactIntegerHook(from, to reflect.Type, data any) (any, error) {
	if !isIntegerKind(to.Kind()) {
		return data, nil
	}
	v := reflect.ValueOf(data)
	target := reflect.New(to).Elem()
	switch from.Kind() {
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
			return nil, fmt.Errorf("%w: %v is not an integer", ErrNumberRange, f)
		}
		if isUnsignedKind(to.Kind()) {
			if f < 0 || f >= 1<<64 || target.OverflowUint(uint64(f)) {
				return nil, fmt.Errorf("%w: %v overflows %s", ErrNumberRange, f, to)
			}
		} else if f < math.MinInt64 || f >= 1<<63 || target.OverflowInt(int64(f)) {
			return nil, fmt.Errorf("%w: %v overflows %s", ErrNumberRange, f, to)
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i := v.Int()
		if isUnsignedKind(to.Kind()) {
			if i < 0 || target.OverflowUint(uint64(i)) {
				return nil, fmt.Errorf("%w: %d overflows %s", ErrNumberRange, i, to)
			}
		} else if target.OverflowInt(i) {
			return nil, fmt.Errorf("%w: %d overflows %s", ErrNumberRange, i, to)
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := v.Uint()
		if isUnsignedKind(to.Kind()) {
			if target.OverflowUint(u) {
				return nil, fmt.Errorf("%w: %d overflows %s", ErrNumberRange, u, to)
			}
		} else if u > math.MaxInt64 || target.OverflowInt(int64(u)) {
			return nil, fmt.Errorf("%w: %d overflows %s", ErrNumberRange, u, to)
		}
	}
	return data, nil
}

func isIntegerKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return isUnsignedKind(k)
}

func isUnsignedKind(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func isScalarOrSequence(value any) bool {
	if value == nil {
		return false
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		// []byte would be base64-encoded by JSON and not read back as bytes
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return false
		}
		return isScalarKind(v.Type().Elem().Kind())
	default:
		return isScalarKind(v.Kind())
	}
}

func isScalarKind(k reflect.Kind) bool {
	switch k {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}
