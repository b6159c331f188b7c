package iopxml

import (
	"reflect"
	"strings"
	"testing"

	"github.com/intersec-oss/iop/asn1"
)

func declareDescriptor(goType reflect.Type, d *asn1.Descriptor) *asn1.Descriptor {
	reg := asn1.NewRegistry()
	reg.Declare(goType, d)
	if err := reg.Resolve(d); err != nil {
		panic(err)
	}
	return d
}

type simpleMsg struct {
	Name  string
	Count int32
	Nick  *string
	Flag  asn1.Opt[bool]
}

func simpleDescriptor() *asn1.Descriptor {
	d := &asn1.Descriptor{
		Name: "Simple",
		Kind: asn1.KindSequence,
		Fields: []asn1.Field{
			{Name: "name", FieldIndex: 0, Type: asn1.TString, Mode: asn1.Mandatory},
			{Name: "count", FieldIndex: 1, Type: asn1.TI32, Mode: asn1.Mandatory},
			{Name: "nick", FieldIndex: 2, Type: asn1.TString, Mode: asn1.Optional},
			{Name: "flag", FieldIndex: 3, Type: asn1.TBool, Mode: asn1.Optional},
		},
	}
	return declareDescriptor(reflect.TypeOf(simpleMsg{}), d)
}

func TestUnpackStructMandatoryAndOptional(t *testing.T) {
	d := simpleDescriptor()
	xmlDoc := `<Simple><name>hello</name><count>42</count><flag>true</flag></Simple>`

	var got simpleMsg
	if err := Unpack(d, strings.NewReader(xmlDoc), &got, 0); err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if got.Name != "hello" || got.Count != 42 {
		t.Fatalf("got %+v", got)
	}
	if got.Nick != nil {
		t.Fatalf("expected Nick absent, got %q", *got.Nick)
	}
	if !got.Flag.Present || !got.Flag.Value {
		t.Fatalf("expected Flag present and true, got %+v", got.Flag)
	}
}

func TestUnpackStructWithOptionalPresent(t *testing.T) {
	d := simpleDescriptor()
	xmlDoc := `<Simple><name>hello</name><count>42</count><nick>bob</nick></Simple>`

	var got simpleMsg
	if err := Unpack(d, strings.NewReader(xmlDoc), &got, 0); err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if got.Nick == nil || *got.Nick != "bob" {
		t.Fatalf("expected Nick=bob, got %v", got.Nick)
	}
	if got.Flag.Present {
		t.Fatalf("expected Flag absent, got %+v", got.Flag)
	}
}

func TestUnpackStructMissingMandatoryField(t *testing.T) {
	d := simpleDescriptor()
	xmlDoc := `<Simple><name>hello</name></Simple>`

	var got simpleMsg
	if err := Unpack(d, strings.NewReader(xmlDoc), &got, 0); err == nil {
		t.Fatalf("expected error for missing mandatory field count")
	}
}

func TestUnpackStructUnknownElement(t *testing.T) {
	d := simpleDescriptor()
	xmlDoc := `<Simple><name>hello</name><count>42</count><bogus>x</bogus></Simple>`

	var got simpleMsg
	if err := Unpack(d, strings.NewReader(xmlDoc), &got, 0); err == nil {
		t.Fatalf("expected error for unknown element without IgnoreUnknown")
	}

	got = simpleMsg{}
	if err := Unpack(d, strings.NewReader(xmlDoc), &got, IgnoreUnknown); err != nil {
		t.Fatalf("Unpack with IgnoreUnknown: %v", err)
	}
	if got.Name != "hello" || got.Count != 42 {
		t.Fatalf("got %+v", got)
	}
}

type listMsg struct {
	Items []int32
}

func TestUnpackSeqOf(t *testing.T) {
	d := &asn1.Descriptor{
		Name: "ListMsg",
		Kind: asn1.KindSequence,
		Fields: []asn1.Field{
			{Name: "items", FieldIndex: 0, Type: asn1.TI32, Mode: asn1.SeqOf},
		},
	}
	d = declareDescriptor(reflect.TypeOf(listMsg{}), d)

	xmlDoc := `<ListMsg><items>1</items><items>2</items><items>3</items></ListMsg>`
	var got listMsg
	if err := Unpack(d, strings.NewReader(xmlDoc), &got, 0); err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	want := []int32{1, 2, 3}
	if !reflect.DeepEqual(got.Items, want) {
		t.Fatalf("got %v, want %v", got.Items, want)
	}
}

func TestUnpackSeqOfConstraintViolation(t *testing.T) {
	d := &asn1.Descriptor{
		Name: "ListMsg",
		Kind: asn1.KindSequence,
		Fields: []asn1.Field{
			{Name: "items", FieldIndex: 0, Type: asn1.TI32, Mode: asn1.SeqOf,
				SeqOf: &asn1.SeqOfConstraint{Min: 2, Max: 2}},
		},
	}
	d = declareDescriptor(reflect.TypeOf(listMsg{}), d)

	xmlDoc := `<ListMsg><items>1</items></ListMsg>`
	var got listMsg
	if err := Unpack(d, strings.NewReader(xmlDoc), &got, 0); err == nil {
		t.Fatalf("expected seq-of length constraint violation")
	}
}

type choiceMsg struct {
	Sel int
	A   string
	B   int32
}

func choiceDescriptor() *asn1.Descriptor {
	d := &asn1.Descriptor{
		Name: "ChoiceMsg",
		Kind: asn1.KindChoice,
		Fields: []asn1.Field{
			{Name: "sel", FieldIndex: 0},
			{Name: "a", FieldIndex: 1, Type: asn1.TString, Mode: asn1.Mandatory, Tag: 0x0C},
			{Name: "b", FieldIndex: 2, Type: asn1.TI32, Mode: asn1.Mandatory, Tag: 0x02},
		},
	}
	return declareDescriptor(reflect.TypeOf(choiceMsg{}), d)
}

type wrapperMsg struct {
	Choice choiceMsg
}

func TestUnpackChoiceVariant(t *testing.T) {
	cd := choiceDescriptor()
	wd := &asn1.Descriptor{
		Name: "WrapperMsg",
		Kind: asn1.KindSequence,
		Fields: []asn1.Field{
			{Name: "choice", FieldIndex: 0, Type: asn1.TChoice, Mode: asn1.Mandatory, Elem: cd},
		},
	}
	wd = declareDescriptor(reflect.TypeOf(wrapperMsg{}), wd)

	xmlDoc := `<WrapperMsg><choice><b>9</b></choice></WrapperMsg>`
	var got wrapperMsg
	if err := Unpack(wd, strings.NewReader(xmlDoc), &got, 0); err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if got.Choice.Sel != 2 || got.Choice.B != 9 {
		t.Fatalf("got %+v", got.Choice)
	}
}

func TestUnpackChoiceUnknownVariant(t *testing.T) {
	cd := choiceDescriptor()
	xmlDoc := `<ChoiceMsg><c>9</c></ChoiceMsg>`
	var got choiceMsg
	if err := Unpack(cd, strings.NewReader(xmlDoc), &got, 0); err == nil {
		t.Fatalf("expected error for unknown choice variant")
	}
}

type dataMsg struct {
	Blob []byte
}

func dataDescriptor() *asn1.Descriptor {
	d := &asn1.Descriptor{
		Name: "DataMsg",
		Kind: asn1.KindSequence,
		Fields: []asn1.Field{
			{Name: "blob", FieldIndex: 0, Type: asn1.TOpenType, Mode: asn1.Mandatory},
		},
	}
	return declareDescriptor(reflect.TypeOf(dataMsg{}), d)
}

func TestUnpackBase64Data(t *testing.T) {
	d := dataDescriptor()
	xmlDoc := `<DataMsg><blob>aGVsbG8=</blob></DataMsg>`
	var got dataMsg
	if err := Unpack(d, strings.NewReader(xmlDoc), &got, 0); err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if string(got.Blob) != "hello" {
		t.Fatalf("got %q", got.Blob)
	}
}

func TestUnpackCIDPart(t *testing.T) {
	d := dataDescriptor()
	xmlDoc := `<DataMsg><blob href="cid:part1"/></DataMsg>`
	parts := Parts{"part1": []byte("hello")}

	var got dataMsg
	if err := UnpackParts(d, strings.NewReader(xmlDoc), &got, 0, parts); err != nil {
		t.Fatalf("UnpackParts: %v", err)
	}
	if string(got.Blob) != "hello" {
		t.Fatalf("got %q", got.Blob)
	}
}

func TestUnpackCIDPartMissing(t *testing.T) {
	d := dataDescriptor()
	xmlDoc := `<DataMsg><blob href="cid:missing"/></DataMsg>`
	var got dataMsg
	if err := UnpackParts(d, strings.NewReader(xmlDoc), &got, 0, Parts{}); err == nil {
		t.Fatalf("expected error for missing part")
	}
}

func TestUnpackStringConstraintViolation(t *testing.T) {
	d := &asn1.Descriptor{
		Name: "Simple",
		Kind: asn1.KindSequence,
		Fields: []asn1.Field{
			{Name: "name", FieldIndex: 0, Type: asn1.TString, Mode: asn1.Mandatory,
				Str: &asn1.StringConstraint{Min: 1, Max: 3}},
		},
	}
	d = declareDescriptor(reflect.TypeOf(struct{ Name string }{}), d)

	xmlDoc := `<Simple><name>toolong</name></Simple>`
	var got struct{ Name string }
	if err := Unpack(d, strings.NewReader(xmlDoc), &got, 0); err == nil {
		t.Fatalf("expected string constraint violation")
	}
}

type baseClass struct {
	ID int32
}

type childClass struct {
	ID    int32
	Extra string
}

func classRegistryFixture() (*ClassRegistry, *ClassInfo) {
	baseDesc := &asn1.Descriptor{
		Name: "Base",
		Kind: asn1.KindSequence,
		Fields: []asn1.Field{
			{Name: "id", FieldIndex: 0, Type: asn1.TI32, Mode: asn1.Mandatory},
		},
	}
	baseDesc = declareDescriptor(reflect.TypeOf(baseClass{}), baseDesc)

	childDesc := &asn1.Descriptor{
		Name: "Child",
		Kind: asn1.KindSequence,
		Fields: []asn1.Field{
			{Name: "id", FieldIndex: 0, Type: asn1.TI32, Mode: asn1.Mandatory},
			{Name: "extra", FieldIndex: 1, Type: asn1.TString, Mode: asn1.Mandatory},
		},
	}
	childDesc = declareDescriptor(reflect.TypeOf(childClass{}), childDesc)

	base := &ClassInfo{FullName: "Base", Desc: baseDesc}
	child := &ClassInfo{FullName: "Child", Desc: childDesc, Parent: base}
	abstractChild := &ClassInfo{FullName: "Abstract", Desc: baseDesc, Parent: base, Abstract: true}
	privateChild := &ClassInfo{FullName: "Private", Desc: baseDesc, Parent: base, Private: true}

	reg := NewClassRegistry()
	reg.Register(base)
	reg.Register(child)
	reg.Register(abstractChild)
	reg.Register(privateChild)
	return reg, base
}

func TestUnpackClassBase(t *testing.T) {
	reg, base := classRegistryFixture()
	xmlDoc := `<Base><id>3</id></Base>`
	v, err := UnpackClass(reg, base, strings.NewReader(xmlDoc), 0)
	if err != nil {
		t.Fatalf("UnpackClass: %v", err)
	}
	got, ok := v.(*baseClass)
	if !ok {
		t.Fatalf("expected *baseClass, got %T", v)
	}
	if got.ID != 3 {
		t.Fatalf("got %+v", got)
	}
}

func TestUnpackClassDerivedViaXsiType(t *testing.T) {
	reg, base := classRegistryFixture()
	xmlDoc := `<Base xsi:type="Child"><id>7</id><extra>hi</extra></Base>`
	v, err := UnpackClass(reg, base, strings.NewReader(xmlDoc), 0)
	if err != nil {
		t.Fatalf("UnpackClass: %v", err)
	}
	got, ok := v.(*childClass)
	if !ok {
		t.Fatalf("expected *childClass, got %T", v)
	}
	if got.ID != 7 || got.Extra != "hi" {
		t.Fatalf("got %+v", got)
	}
}

func TestUnpackClassAbstractRejected(t *testing.T) {
	reg, base := classRegistryFixture()
	xmlDoc := `<Base xsi:type="Abstract"><id>1</id></Base>`
	if _, err := UnpackClass(reg, base, strings.NewReader(xmlDoc), 0); err == nil {
		t.Fatalf("expected abstract class rejection")
	}
}

func TestUnpackClassPrivateRejectedWithFlag(t *testing.T) {
	reg, base := classRegistryFixture()
	xmlDoc := `<Base xsi:type="Private"><id>1</id></Base>`
	if _, err := UnpackClass(reg, base, strings.NewReader(xmlDoc), ForbidPrivate); err == nil {
		t.Fatalf("expected private class rejection under ForbidPrivate")
	}
	if _, err := UnpackClass(reg, base, strings.NewReader(xmlDoc), 0); err != nil {
		t.Fatalf("private class should unpack when ForbidPrivate is not set: %v", err)
	}
}

func TestUnpackClassUnknownType(t *testing.T) {
	reg, base := classRegistryFixture()
	xmlDoc := `<Base xsi:type="Nonexistent"><id>1</id></Base>`
	if _, err := UnpackClass(reg, base, strings.NewReader(xmlDoc), 0); err == nil {
		t.Fatalf("expected error for unresolvable xsi:type")
	}
}
