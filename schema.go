package ancestor

import (
	"reflect"
	"sort"
	"sync"
)

// Schema is an immutable set of property descriptors keyed by name.
type Schema struct {
	descriptors []PropertyDescriptor
}

// NewSchema builds a schema from descriptors. Later duplicates of a name are
// ignored.
func NewSchema(descriptors ...PropertyDescriptor) Schema {
	if len(descriptors) == 0 {
		return Schema{}
	}
	seen := make(map[string]struct{}, len(descriptors))
	out := make([]PropertyDescriptor, 0, len(descriptors))
	for _, desc := range descriptors {
		if desc.name == "" {
			continue
		}
		if _, ok := seen[desc.name]; ok {
			continue
		}
		seen[desc.name] = struct{}{}
		out = append(out, desc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return Schema{descriptors: out}
}

func (s Schema) Len() int { return len(s.descriptors) }

// Names returns the property names in sorted order.
func (s Schema) Names() []string {
	if len(s.descriptors) == 0 {
		return nil
	}
	names := make([]string, len(s.descriptors))
	for i, desc := range s.descriptors {
		names[i] = desc.name
	}
	return names
}

// Descriptors returns a copy of the descriptors sorted by name.
func (s Schema) Descriptors() []PropertyDescriptor {
	if len(s.descriptors) == 0 {
		return nil
	}
	return append([]PropertyDescriptor(nil), s.descriptors...)
}

// Lookup returns the descriptor registered under name.
func (s Schema) Lookup(name string) (PropertyDescriptor, bool) {
	i := sort.Search(len(s.descriptors), func(i int) bool { return s.descriptors[i].name >= name })
	if i < len(s.descriptors) && s.descriptors[i].name == name {
		return s.descriptors[i], true
	}
	return PropertyDescriptor{}, false
}

func (s Schema) Has(name string) bool {
	_, ok := s.Lookup(name)
	return ok
}

// Without returns a narrowed schema lacking names.
func (s Schema) Without(names ...string) Schema {
	drop := make(map[string]struct{}, len(names))
	for _, name := range names {
		drop[name] = struct{}{}
	}
	out := make([]PropertyDescriptor, 0, len(s.descriptors))
	for _, desc := range s.descriptors {
		if _, ok := drop[desc.name]; !ok {
			out = append(out, desc)
		}
	}
	return Schema{descriptors: out}
}

// Only returns a narrowed schema keeping names that are present.
func (s Schema) Only(names ...string) Schema {
	out := make([]PropertyDescriptor, 0, len(names))
	for _, name := range names {
		if desc, ok := s.Lookup(name); ok {
			out = append(out, desc)
		}
	}
	return NewSchema(out...)
}

// Include returns a schema extended with descriptors. Including a descriptor
// that cannot be inherited makes the owning type misconfigured.
func (s Schema) Include(descriptors ...PropertyDescriptor) Schema {
	combined := make([]PropertyDescriptor, 0, len(s.descriptors)+len(descriptors))
	combined = append(combined, s.descriptors...)
	combined = append(combined, descriptors...)
	return NewSchema(combined...)
}

// Equal reports whether both schemas hold equal descriptors.
func (s Schema) Equal(other Schema) bool {
	if len(s.descriptors) != len(other.descriptors) {
		return false
	}
	for i := range s.descriptors {
		if !s.descriptors[i].Equal(other.descriptors[i]) {
			return false
		}
	}
	return true
}

// DescendantSchema lets a type narrow the set of properties passed to its
// descendants. Implement it on the pointer receiver. The method is called
// once, on a pointer to a zero value, with every declared attribute and the
// default inherited schema. Narrow inherited; do not invent names. Embedded
// types promote their override, so a wrapping type narrows further by calling
// the embedded implementation first.
type DescendantSchema interface {
	PropertiesPassedToDescendants(declared, inherited Schema) Schema
}

// SchemaOf returns the inheritable schema for T.
func SchemaOf[T any]() (Schema, error) {
	return SchemaFor(reflect.TypeFor[T]())
}

// SchemaFor returns the inheritable schema for a struct type or a pointer to
// one.
func SchemaFor(t reflect.Type) (Schema, error) {
	info := lookupType(t, nil)
	if info.err != nil {
		return Schema{}, info.err
	}
	return info.schema, nil
}

// DeclaredOf returns every declared attribute of T, inheritable or not.
func DeclaredOf[T any]() (Schema, error) {
	info := lookupType(reflect.TypeFor[T](), nil)
	if info.err != nil {
		return Schema{}, info.err
	}
	return info.declared, nil
}

var (
	nodeType  = reflect.TypeFor[Node]()
	typeCache sync.Map // reflect.Type -> *typeEntry
)

type typeEntry struct {
	once sync.Once
	info *typeInfo
}

// typeInfo is computed once per concrete type and never mutated afterwards.
type typeInfo struct {
	typ       reflect.Type
	name      string
	declared  Schema
	schema    Schema
	accessors map[string]*accessor
	err       error
}

func (ti *typeInfo) accessor(name string) *accessor {
	if ti == nil {
		return nil
	}
	return ti.accessors[name]
}

func lookupType(t reflect.Type, cfg *nodeConfig) *typeInfo {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return &typeInfo{name: "<nil>", err: configurationError("<nil>", "", ErrMissingNode)}
	}
	value, _ := typeCache.LoadOrStore(t, &typeEntry{})
	entry := value.(*typeEntry)
	entry.once.Do(func() {
		entry.info = computeType(t)
		logger, recorder := Logger(noopLogger{}), Recorder(noopRecorder{})
		if cfg != nil {
			logger, recorder = cfg.logger, cfg.recorder
		}
		if entry.info.err != nil {
			logger.Log(LogEvent{Kind: LogConfigurationError, Type: entry.info.name, Err: entry.info.err})
			recorder.ConfigurationError(entry.info.name)
			return
		}
		logger.Log(LogEvent{Kind: LogSchemaComputed, Type: entry.info.name, Count: entry.info.schema.Len()})
	})
	return entry.info
}

func computeType(t reflect.Type) *typeInfo {
	info := &typeInfo{typ: t, name: t.String()}
	if t.Kind() != reflect.Struct {
		info.err = configurationError(info.name, "", ErrMissingNode)
		return info
	}

	var fields []declaredField
	seen := map[string]struct{}{}
	if !collectFields(t, nil, seen, &fields) {
		info.err = configurationError(info.name, "", ErrMissingNode)
		return info
	}

	declared := make([]PropertyDescriptor, 0, len(fields))
	inherited := make([]PropertyDescriptor, 0, len(fields))
	for _, f := range fields {
		declared = append(declared, f.desc)
		switch {
		case f.desc.noinherit:
		case f.desc.kind.IsReference():
			inherited = append(inherited, f.desc)
		case f.desc.inherit:
			info.err = configurationError(info.name, f.desc.name, ErrScalarInheritance)
			return info
		}
	}
	info.declared = NewSchema(declared...)
	info.schema = NewSchema(inherited...)

	if custom, ok := reflect.New(t).Interface().(DescendantSchema); ok {
		info.schema = custom.PropertiesPassedToDescendants(info.declared, info.schema)
	}
	for _, desc := range info.schema.descriptors {
		declaredDesc, ok := info.declared.Lookup(desc.name)
		if !ok || !declaredDesc.Equal(desc) {
			info.err = configurationError(info.name, desc.name, ErrUndeclaredProperty)
			return info
		}
		if !desc.kind.IsReference() {
			info.err = configurationError(info.name, desc.name, ErrScalarInheritance)
			return info
		}
	}

	info.accessors = installAccessors(fields, info.schema)
	return info
}

type declaredField struct {
	desc  PropertyDescriptor
	index []int
}

// collectFields walks exported fields breadth first so that outer declarations
// shadow promoted ones. It stops at the embedded Node and reports whether one
// was found.
func collectFields(t reflect.Type, prefix []int, seen map[string]struct{}, out *[]declaredField) bool {
	found := false
	var embedded []reflect.StructField
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.Anonymous {
			if sf.Type == nodeType {
				found = true
				continue
			}
			if sf.Type.Kind() == reflect.Struct {
				embedded = append(embedded, sf)
			}
			continue
		}
		desc, ok := DescribeField(sf)
		if !ok {
			continue
		}
		if _, dup := seen[desc.name]; dup {
			continue
		}
		seen[desc.name] = struct{}{}
		*out = append(*out, declaredField{desc: desc, index: appendIndex(prefix, sf.Index...)})
	}
	for _, sf := range embedded {
		if collectFields(sf.Type, appendIndex(prefix, sf.Index...), seen, out) {
			found = true
		}
	}
	return found
}

func appendIndex(prefix []int, index ...int) []int {
	out := make([]int, 0, len(prefix)+len(index))
	out = append(out, prefix...)
	return append(out, index...)
}
