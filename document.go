package ancestor

import (
	"reflect"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// SchemaDocument is a serialisable view of a Schema.
type SchemaDocument struct {
	Type       string             `json:"type,omitempty" yaml:"type,omitempty"`
	Properties []PropertyDocument `json:"properties" yaml:"properties"`
}

// PropertyDocument describes one property of a SchemaDocument.
type PropertyDocument struct {
	Name       string `json:"name" yaml:"name"`
	Field      string `json:"field" yaml:"field"`
	Kind       string `json:"kind" yaml:"kind"`
	GoType     string `json:"go_type" yaml:"go_type"`
	Attributes string `json:"attributes" yaml:"attributes"`
	Inherited  bool   `json:"inherited" yaml:"inherited"`
	Readonly   bool   `json:"readonly,omitempty" yaml:"readonly,omitempty"`
	Copy       bool   `json:"copy,omitempty" yaml:"copy,omitempty"`
	Getter     string `json:"getter" yaml:"getter"`
	Setter     string `json:"setter" yaml:"setter"`
}

// Document describes every property of s as inherited.
func (s Schema) Document() SchemaDocument {
	doc := SchemaDocument{Properties: make([]PropertyDocument, 0, s.Len())}
	for _, desc := range s.descriptors {
		doc.Properties = append(doc.Properties, documentProperty(desc, true))
	}
	return doc
}

// DocumentOf describes every declared property of T, flagging the ones passed
// to descendants.
func DocumentOf[T any]() (SchemaDocument, error) {
	info := lookupType(reflect.TypeFor[T](), nil)
	if info.err != nil {
		return SchemaDocument{}, info.err
	}
	doc := SchemaDocument{
		Type:       info.name,
		Properties: make([]PropertyDocument, 0, info.declared.Len()),
	}
	for _, desc := range info.declared.descriptors {
		doc.Properties = append(doc.Properties, documentProperty(desc, info.schema.Has(desc.name)))
	}
	return doc, nil
}

func documentProperty(desc PropertyDescriptor, inherited bool) PropertyDocument {
	goType := ""
	if desc.typ != nil {
		goType = desc.typ.String()
	}
	return PropertyDocument{
		Name:       desc.name,
		Field:      desc.field,
		Kind:       desc.kind.String(),
		GoType:     goType,
		Attributes: desc.Attributes(),
		Inherited:  inherited,
		Readonly:   desc.readonly,
		Copy:       desc.copy,
		Getter:     desc.getter,
		Setter:     desc.setter,
	}
}

// Property returns the named property document.
func (d SchemaDocument) Property(name string) (PropertyDocument, bool) {
	for _, p := range d.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return PropertyDocument{}, false
}

// JSON encodes the document.
func (d SchemaDocument) JSON() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// YAML encodes the document.
func (d SchemaDocument) YAML() ([]byte, error) {
	return yaml.Marshal(d)
}

// SchemaDocumentFromJSON decodes a document produced by JSON.
func SchemaDocumentFromJSON(payload []byte) (SchemaDocument, error) {
	var doc SchemaDocument
	if err := json.Unmarshal(payload, &doc); err != nil {
		return SchemaDocument{}, err
	}
	return doc, nil
}

// SchemaDocumentFromYAML decodes a document produced by YAML.
func SchemaDocumentFromYAML(payload []byte) (SchemaDocument, error) {
	var doc SchemaDocument
	if err := yaml.Unmarshal(payload, &doc); err != nil {
		return SchemaDocument{}, err
	}
	return doc, nil
}
