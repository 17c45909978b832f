package ancestor

import (
	"io"
	"reflect"
	"testing"
)

type describeFixture struct {
	Title     *string
	Owner     *string           `ancestor:"owner,readonly,owned"`
	Tags      []string          `ancestor:"tags,copy"`
	Labels    map[string]string `ancestor:"labels,weak,getter=AllLabels,setter=ReplaceLabels"`
	Reader    io.Reader
	Anything  any `ancestor:"anything,dynamic"`
	Count     int
	Ratio     float64
	Enabled   bool
	Callback  func()
	Point     struct{ X, Y int }
	Skip      *string `ancestor:"-"`
	unexposed *string
}

func describe(t *testing.T, field string) PropertyDescriptor {
	t.Helper()
	sf, ok := reflect.TypeFor[describeFixture]().FieldByName(field)
	if !ok {
		t.Fatalf("no field %s", field)
	}
	desc, ok := DescribeField(sf)
	if !ok {
		t.Fatalf("field %s not described", field)
	}
	return desc
}

func TestDescribeFieldDefaults(t *testing.T) {
	desc := describe(t, "Title")
	if desc.Name() != "title" || desc.FieldName() != "Title" {
		t.Fatalf("unexpected names: %s %s", desc.Name(), desc.FieldName())
	}
	if desc.Kind() != KindReference || !desc.Shared() {
		t.Fatalf("pointer must be a shared reference: %v", desc)
	}
	if desc.Getter() != "Title" || desc.Setter() != "SetTitle" {
		t.Fatalf("accessors = %s/%s", desc.Getter(), desc.Setter())
	}
	if desc.ReferenceType() != reflect.TypeFor[string]() {
		t.Fatalf("reference type = %v", desc.ReferenceType())
	}
	if got := desc.Attributes(); got != "T*string,&,GTitle,SSetTitle" {
		t.Fatalf("attributes = %s", got)
	}
}

func TestDescribeFieldTagOptions(t *testing.T) {
	tests := []struct {
		field      string
		attributes string
		check      func(PropertyDescriptor) bool
	}{
		{"Owner", "T*string,R,O,GOwner,SSetOwner", func(d PropertyDescriptor) bool { return d.Readonly() && d.Exclusive() && !d.Shared() }},
		{"Tags", "T[]string,C,&,GTags,SSetTags", func(d PropertyDescriptor) bool { return d.Copy() }},
		{"Labels", "Tmap[string]string,W,GAllLabels,SReplaceLabels", func(d PropertyDescriptor) bool { return d.Weak() && d.Getter() == "AllLabels" }},
		{"Anything", "Tinterface {},&,D,GAnything,SSetAnything", func(d PropertyDescriptor) bool { return d.Dynamic() && d.ReferenceType() == nil }},
		{"Reader", "Tio.Reader,&,GReader,SSetReader", func(d PropertyDescriptor) bool { return d.ReferenceType() == reflect.TypeFor[io.Reader]() }},
	}
	for _, tc := range tests {
		t.Run(tc.field, func(t *testing.T) {
			desc := describe(t, tc.field)
			if got := desc.Attributes(); got != tc.attributes {
				t.Fatalf("attributes = %s, want %s", got, tc.attributes)
			}
			if !tc.check(desc) {
				t.Fatalf("flag check failed for %v", desc)
			}
		})
	}
}

func TestDescribeFieldKinds(t *testing.T) {
	tests := map[string]Kind{
		"Count":    KindInt,
		"Ratio":    KindFloat64,
		"Enabled":  KindBool,
		"Callback": KindFunc,
		"Point":    KindUnknown,
		"Tags":     KindReference,
	}
	for field, want := range tests {
		desc := describe(t, field)
		if desc.Kind() != want {
			t.Fatalf("%s kind = %s, want %s", field, desc.Kind(), want)
		}
		if desc.Kind() != KindReference && desc.ReferenceType() != nil {
			t.Fatalf("%s must not report a reference type", field)
		}
	}
	if !KindString.IsScalar() || KindFunc.IsScalar() || KindUnknown.IsScalar() {
		t.Fatalf("unexpected IsScalar classification")
	}
	if KindReference.String() != "reference" || KindUint16.String() != "uint16" {
		t.Fatalf("unexpected kind names")
	}
}

func TestDescribeFieldSkips(t *testing.T) {
	typ := reflect.TypeFor[describeFixture]()
	for _, name := range []string{"Skip", "unexposed"} {
		sf, _ := typ.FieldByName(name)
		if _, ok := DescribeField(sf); ok {
			t.Fatalf("%s must not be described", name)
		}
	}
}

func TestDescriptorEquality(t *testing.T) {
	a := describe(t, "Title")
	b := describe(t, "Title")
	if !a.Equal(b) {
		t.Fatalf("identical descriptors must be equal")
	}
	if a.Equal(describe(t, "Owner")) {
		t.Fatalf("different descriptors must not be equal")
	}
	other, _ := reflect.TypeFor[struct {
		Title *string `ancestor:"title,copy"`
	}]().FieldByName("Title")
	copyTitle, _ := DescribeField(other)
	if a.Equal(copyTitle) {
		t.Fatalf("same name with different attributes must not be equal")
	}
}
