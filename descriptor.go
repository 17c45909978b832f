package ancestor

import (
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/stoewer/go-strcase"
)

// TagName is the struct tag consulted when describing attributes.
const TagName = "ancestor"

// Kind classifies the storage type of an attribute.
type Kind uint8

const (
	// KindUnknown covers structs, arrays, complex numbers, channels and unsafe
	// pointers. Such attributes are described but can never be inherited.
	KindUnknown Kind = iota
	KindBool
	KindInt
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUint
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindFloat32
	KindFloat64
	KindString
	// KindFunc is a callable attribute.
	KindFunc
	// KindReference is a pointer, interface, map or slice attribute. Only these
	// participate in inheritance; nil is their unset value.
	KindReference
)

var kindNames = [...]string{
	KindUnknown:   "unknown",
	KindBool:      "bool",
	KindInt:       "int",
	KindInt8:      "int8",
	KindInt16:     "int16",
	KindInt32:     "int32",
	KindInt64:     "int64",
	KindUint:      "uint",
	KindUint8:     "uint8",
	KindUint16:    "uint16",
	KindUint32:    "uint32",
	KindUint64:    "uint64",
	KindFloat32:   "float32",
	KindFloat64:   "float64",
	KindString:    "string",
	KindFunc:      "func",
	KindReference: "reference",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// IsReference reports whether attributes of this kind can be inherited.
func (k Kind) IsReference() bool {
	return k == KindReference
}

// IsScalar reports whether the kind holds a plain value.
func (k Kind) IsScalar() bool {
	return k >= KindBool && k <= KindString
}

func kindOf(t reflect.Type) Kind {
	if t == nil {
		return KindUnknown
	}
	switch t.Kind() {
	case reflect.Bool:
		return KindBool
	case reflect.Int:
		return KindInt
	case reflect.Int8:
		return KindInt8
	case reflect.Int16:
		return KindInt16
	case reflect.Int32:
		return KindInt32
	case reflect.Int64:
		return KindInt64
	case reflect.Uint, reflect.Uintptr:
		return KindUint
	case reflect.Uint8:
		return KindUint8
	case reflect.Uint16:
		return KindUint16
	case reflect.Uint32:
		return KindUint32
	case reflect.Uint64:
		return KindUint64
	case reflect.Float32:
		return KindFloat32
	case reflect.Float64:
		return KindFloat64
	case reflect.String:
		return KindString
	case reflect.Func:
		return KindFunc
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return KindReference
	default:
		return KindUnknown
	}
}

// PropertyDescriptor is the immutable description of one declared attribute.
type PropertyDescriptor struct {
	name      string
	field     string
	typ       reflect.Type
	kind      Kind
	readonly  bool
	copy      bool
	weak      bool
	owned     bool
	dynamic   bool
	inherit   bool
	noinherit bool
	getter    string
	setter    string
}

// DescribeField builds a descriptor from a struct field and its ancestor tag.
// It returns false for unexported fields and fields tagged "-".
func DescribeField(field reflect.StructField) (PropertyDescriptor, bool) {
	if !field.IsExported() {
		return PropertyDescriptor{}, false
	}
	raw, hasTag := field.Tag.Lookup(TagName)
	if hasTag && strings.TrimSpace(raw) == "-" {
		return PropertyDescriptor{}, false
	}
	name, opts := parseTag(raw)
	if name == "" {
		name = strcase.LowerCamelCase(field.Name)
	}
	desc := PropertyDescriptor{
		name:      name,
		field:     field.Name,
		typ:       field.Type,
		kind:      kindOf(field.Type),
		readonly:  opts.has("readonly"),
		copy:      opts.has("copy"),
		weak:      opts.has("weak"),
		owned:     opts.has("owned"),
		dynamic:   opts.has("dynamic"),
		inherit:   opts.has("inherit"),
		noinherit: opts.has("noinherit"),
		getter:    opts.value("getter"),
		setter:    opts.value("setter"),
	}
	if desc.getter == "" {
		desc.getter = upperFirst(name)
	}
	if desc.setter == "" {
		desc.setter = "Set" + upperFirst(name)
	}
	return desc, true
}

// Name returns the property name used by every lookup API.
func (d PropertyDescriptor) Name() string { return d.name }

// FieldName returns the Go struct field backing the attribute.
func (d PropertyDescriptor) FieldName() string { return d.field }

// Kind returns the attribute classification.
func (d PropertyDescriptor) Kind() Kind { return d.kind }

// Type returns the declared Go type of the attribute.
func (d PropertyDescriptor) Type() reflect.Type { return d.typ }

// ReferenceType returns the statically known referenced type: the element of a
// pointer, the map or slice type itself, or a named interface. It returns nil
// for the empty interface and for non-reference kinds.
func (d PropertyDescriptor) ReferenceType() reflect.Type {
	if d.kind != KindReference || d.typ == nil {
		return nil
	}
	switch d.typ.Kind() {
	case reflect.Pointer:
		return d.typ.Elem()
	case reflect.Interface:
		if d.typ.NumMethod() == 0 {
			return nil
		}
		return d.typ
	default:
		return d.typ
	}
}

func (d PropertyDescriptor) Readonly() bool { return d.readonly }

// Copy reports whether Set stores a shallow copy of the assigned value.
func (d PropertyDescriptor) Copy() bool { return d.copy }

// Shared reports a strong reference that may be shared with other holders.
func (d PropertyDescriptor) Shared() bool {
	return d.kind == KindReference && !d.weak && !d.owned
}

// Exclusive reports a reference owned by the holder alone.
func (d PropertyDescriptor) Exclusive() bool { return d.owned }

func (d PropertyDescriptor) Weak() bool { return d.weak }

// Dynamic reports an attribute whose accessors are supplied by methods rather
// than plain field access.
func (d PropertyDescriptor) Dynamic() bool { return d.dynamic }

// Getter returns the getter method identifier.
func (d PropertyDescriptor) Getter() string { return d.getter }

// Setter returns the setter method identifier.
func (d PropertyDescriptor) Setter() string { return d.setter }

// Attributes returns the canonical attribute signature, e.g.
// "T*string,C,&,GFirstName,SSetFirstName".
func (d PropertyDescriptor) Attributes() string {
	parts := make([]string, 0, 8)
	typeName := "?"
	if d.typ != nil {
		typeName = d.typ.String()
	}
	parts = append(parts, "T"+typeName)
	if d.readonly {
		parts = append(parts, "R")
	}
	if d.copy {
		parts = append(parts, "C")
	}
	if d.Shared() {
		parts = append(parts, "&")
	}
	if d.owned {
		parts = append(parts, "O")
	}
	if d.weak {
		parts = append(parts, "W")
	}
	if d.dynamic {
		parts = append(parts, "D")
	}
	parts = append(parts, "G"+d.getter, "S"+d.setter)
	return strings.Join(parts, ",")
}

// Equal compares name and attribute signature.
func (d PropertyDescriptor) Equal(other PropertyDescriptor) bool {
	return d.name == other.name && d.Attributes() == other.Attributes()
}

func (d PropertyDescriptor) String() string {
	return d.name + " " + d.Attributes()
}

type tagOptions []string

func parseTag(raw string) (string, tagOptions) {
	if raw == "" {
		return "", nil
	}
	parts := strings.Split(raw, ",")
	opts := make(tagOptions, 0, len(parts)-1)
	for _, part := range parts[1:] {
		part = strings.TrimSpace(part)
		if part != "" {
			opts = append(opts, part)
		}
	}
	return strings.TrimSpace(parts[0]), opts
}

func (o tagOptions) has(flag string) bool {
	for _, opt := range o {
		if opt == flag {
			return true
		}
	}
	return false
}

func (o tagOptions) value(key string) string {
	prefix := key + "="
	for _, opt := range o {
		if strings.HasPrefix(opt, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(opt, prefix))
		}
	}
	return ""
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
