package loader_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/dsd/internal/loader"
	"github.com/calvinalkan/dsd/internal/record"
	"github.com/calvinalkan/dsd/internal/yamlevents"
)

// fakeResolver is a database stand-in holding a fixed set of names.
type fakeResolver struct {
	devices    map[string]bool
	properties map[string]bool
	err        error
}

func (f *fakeResolver) HasDevice(name string) (bool, error) {
	return f.devices[name], f.err
}

func (f *fakeResolver) HasProperty(name string) (bool, error) {
	return f.properties[name], f.err
}

func emptyResolver() *fakeResolver {
	return &fakeResolver{devices: map[string]bool{}, properties: map[string]bool{}}
}

func load(t *testing.T, l *loader.Loader, src string) ([]record.Record, error) {
	t.Helper()

	return l.Load("test.yaml", strings.NewReader(src))
}

const fullProperty = `property: ethernet-mac
type: hexadecimal-address-package
owner: Jane Doe
devices:
  - eth0
  - eth1
description: |
  MAC address of the interface.
    Indented line.
example: |
  ethernet-mac = 00:11:22:33:44:55
values:
  - token: auto
    description: derived from the board serial
  - token: 0x10
    description: fixed prefix
`

func Test_Load_Builds_Property_When_Document_Is_Complete(t *testing.T) {
	t.Parallel()

	l := loader.New()

	recs, err := load(t, l, fullProperty)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	want := &record.Property{
		Name:        "ethernet-mac",
		Type:        "hexadecimal-address-package",
		Owner:       "Jane Doe",
		Description: "MAC address of the interface.\n  Indented line.\n",
		Example:     "ethernet-mac = 00:11:22:33:44:55\n",
		Devices:     []string{"eth0", "eth1"},
		Values: []record.PropertyValue{
			{Token: "auto", Description: "derived from the board serial"},
			{Token: "0x10", Description: "fixed prefix"},
		},
	}

	if diff := cmp.Diff(want, recs[0]); diff != "" {
		t.Errorf("property mismatch (-want +got):\n%s", diff)
	}
}

func Test_Load_Builds_Device_When_Document_Is_Complete(t *testing.T) {
	t.Parallel()

	l := loader.New()

	recs, err := load(t, l, `device: eth0
owner: Jane Doe
description: first ethernet port
properties:
  - ethernet-mac
  - link-speed
`)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	want := &record.Device{
		Name:        "eth0",
		Owner:       "Jane Doe",
		Description: "first ethernet port",
		Properties:  []string{"ethernet-mac", "link-speed"},
	}

	if diff := cmp.Diff(want, recs[0]); diff != "" {
		t.Errorf("device mismatch (-want +got):\n%s", diff)
	}
}

func Test_Load_Accepts_Every_Type_Token_When_Any_Case(t *testing.T) {
	t.Parallel()

	for _, typ := range []string{"integer", "hexadecimal-integer", "hexadecimal-address-package", "string", "Integer", "STRING"} {
		l := loader.New()

		recs, err := load(t, l, "property: p\ntype: "+typ+"\n")
		if err != nil {
			t.Errorf("type %q: %v", typ, err)

			continue
		}

		if got := recs[0].(*record.Property).Type; got != typ {
			t.Errorf("type stored as %q, want %q", got, typ)
		}
	}
}

func Test_Load_Fails_And_Commits_Nothing_When_Type_Is_Unknown(t *testing.T) {
	t.Parallel()

	l := loader.New()

	recs, err := load(t, l, "device: d\nowner: x\n---\nproperty: p\ntype: floating-point\n")
	if !errors.Is(err, loader.ErrInvalidType) {
		t.Fatalf("err=%v, want ErrInvalidType", err)
	}

	if recs != nil {
		t.Errorf("recs=%v, want nil", recs)
	}

	if got := l.Batch().Len(); got != 0 {
		t.Errorf("batch len=%d, want=0", got)
	}
}

func Test_Load_Rejects_Malformed_Documents(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		want error
	}{
		{name: "UnknownFirstKey", src: "gadget: x\n", want: loader.ErrUnknownDocument},
		{name: "UnknownTopLevelKey", src: "device: d\ncolor: red\n", want: loader.ErrUnknownKey},
		{name: "PropertyKeyInDevice", src: "device: d\nvalues: []\n", want: loader.ErrUnknownKey},
		{name: "DeviceKeyInProperty", src: "property: p\nproperties: [a]\n", want: loader.ErrUnknownKey},
		{name: "SequenceForScalar", src: "device: d\nowner:\n  - a\n", want: loader.ErrUnexpectedEvent},
		{name: "MappingForSequence", src: "property: p\ndevices:\n  a: b\n", want: loader.ErrUnexpectedEvent},
		{name: "ScalarForSequence", src: "property: p\ndevices: eth0\n", want: loader.ErrUnexpectedEvent},
		{name: "MappingInReferenceList", src: "device: d\nproperties:\n  - name: p\n", want: loader.ErrUnexpectedEvent},
		{name: "DescriptionBeforeToken", src: "property: p\nvalues:\n  - description: x\n    token: y\n", want: loader.ErrUnknownKey},
		{name: "MissingValueDescription", src: "property: p\nvalues:\n  - token: y\n", want: loader.ErrSchema},
		{name: "ExtraValueKey", src: "property: p\nvalues:\n  - token: y\n    description: z\n    note: n\n", want: loader.ErrUnknownKey},
		{name: "DuplicateValueToken", src: "property: p\nvalues:\n  - {token: a, description: x}\n  - {token: a, description: y}\n", want: loader.ErrSchema},
		{name: "DuplicateKey", src: "device: d\nowner: a\nOwner: b\n", want: loader.ErrSchema},
		{name: "EmptyName", src: "device:\nowner: a\n", want: loader.ErrSchema},
		{name: "ScalarDocument", src: "just text\n", want: loader.ErrSchema},
		{name: "SequenceDocument", src: "- a\n- b\n", want: loader.ErrUnexpectedEvent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			l := loader.New()

			_, err := load(t, l, tt.src)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err=%v, want=%v", err, tt.want)
			}

			var lErr *loader.Error
			if !errors.As(err, &lErr) {
				t.Fatalf("err=%T, want *loader.Error", err)
			}

			if lErr.Source != "test.yaml" {
				t.Errorf("source=%q, want=test.yaml", lErr.Source)
			}
		})
	}
}

func Test_Load_Returns_Syntax_Error_When_Yaml_Is_Broken(t *testing.T) {
	t.Parallel()

	_, err := load(t, loader.New(), "device: [unclosed\n")
	if !errors.Is(err, yamlevents.ErrSyntax) {
		t.Fatalf("err=%v, want ErrSyntax", err)
	}
}

func Test_Load_Matches_Keys_Case_Insensitively_And_Keeps_Values(t *testing.T) {
	t.Parallel()

	recs, err := load(t, loader.New(), "DEVICE: Eth0\nOwner:  Mixed Case \nProperties:\n  - MAC\n")
	require.NoError(t, err)

	want := &record.Device{Name: "Eth0", Owner: "Mixed Case", Properties: []string{"MAC"}}
	if diff := cmp.Diff(want, recs[0]); diff != "" {
		t.Errorf("device mismatch (-want +got):\n%s", diff)
	}
}

func Test_Load_Reports_Line_When_Error_Is_Positioned(t *testing.T) {
	t.Parallel()

	_, err := load(t, loader.New(), "property: p\nowner: o\ntype: float\n")

	var lErr *loader.Error
	require.ErrorAs(t, err, &lErr)

	if got, want := lErr.Line, 3; got != want {
		t.Errorf("line=%d, want=%d", got, want)
	}

	if !strings.Contains(err.Error(), "(source=test.yaml line=3)") {
		t.Errorf("error %q lacks position suffix", err.Error())
	}
}

func Test_Load_Skips_Empty_Documents(t *testing.T) {
	t.Parallel()

	recs, err := load(t, loader.New(), "---\n---\ndevice: d\n---\n")
	require.NoError(t, err)

	if got, want := len(recs), 1; got != want {
		t.Errorf("len(recs)=%d, want=%d", got, want)
	}
}

func Test_Finish_Resolves_Forward_Reference_When_Defined_Later_In_Batch(t *testing.T) {
	t.Parallel()

	l := loader.New(loader.WithResolver(emptyResolver()))

	_, err := load(t, l, "device: D1\nproperties:\n  - P1\n")
	require.NoError(t, err)

	_, err = load(t, l, "property: P1\ntype: integer\ndevices:\n  - D1\n")
	require.NoError(t, err)

	batch, err := l.Finish()
	require.NoError(t, err)

	if got, want := batch.Len(), 2; got != want {
		t.Errorf("batch len=%d, want=%d", got, want)
	}
}

func Test_Finish_Fails_When_Reference_Stays_Unresolved(t *testing.T) {
	t.Parallel()

	l := loader.New(loader.WithResolver(emptyResolver()))

	_, err := load(t, l, "device: D1\nproperties:\n  - P1\n  - P2\n---\nproperty: P1\ndevices: [D1]\n")
	require.NoError(t, err)

	_, err = l.Finish()
	if !errors.Is(err, loader.ErrUnresolvedReference) {
		t.Fatalf("err=%v, want ErrUnresolvedReference", err)
	}

	msg := err.Error()
	if !strings.Contains(msg, "device D1 refers to undefined property P2") {
		t.Errorf("error %q does not name the dangling reference", msg)
	}

	if strings.Contains(msg, "P1") {
		t.Errorf("error %q names the resolved reference P1", msg)
	}
}

func Test_Finish_Accepts_Reference_When_Resolver_Knows_It(t *testing.T) {
	t.Parallel()

	r := emptyResolver()
	r.devices["stored-dev"] = true

	l := loader.New(loader.WithResolver(r))

	_, err := load(t, l, "property: p\ndevices: [stored-dev]\n")
	require.NoError(t, err)

	_, err = l.Finish()
	require.NoError(t, err)
}

func Test_Load_Fails_When_Resolver_Errors(t *testing.T) {
	t.Parallel()

	r := emptyResolver()
	r.err = errors.New("disk on fire")

	_, err := load(t, loader.New(loader.WithResolver(r)), "device: d\nproperties: [p]\n")
	if err == nil || !strings.Contains(err.Error(), "disk on fire") {
		t.Fatalf("err=%v, want resolver error", err)
	}
}

func Test_Finish_Ignores_References_When_No_Resolver(t *testing.T) {
	t.Parallel()

	l := loader.New()

	_, err := load(t, l, "device: d\nproperties: [nowhere]\n")
	require.NoError(t, err)

	_, err = l.Finish()
	require.NoError(t, err)
}

func Test_Load_Keeps_Duplicates_For_Batch_Add_To_Reject(t *testing.T) {
	t.Parallel()

	l := loader.New()

	_, err := load(t, l, "device: d\nowner: a\n---\ndevice: d\nowner: b\n")
	require.NoError(t, err)

	if got, want := len(l.Batch().Devices), 2; got != want {
		t.Fatalf("devices=%d, want=%d", got, want)
	}

	var accepted loader.Batch

	require.NoError(t, accepted.Add(l.Batch().Devices[0]))

	err = accepted.Add(l.Batch().Devices[1])
	if !errors.Is(err, loader.ErrDuplicate) {
		t.Errorf("err=%v, want ErrDuplicate", err)
	}

	// Namespaces are independent.
	require.NoError(t, accepted.Add(&record.Property{Name: "d"}))
}

func Test_Batch_Records_Orders_Properties_Before_Devices(t *testing.T) {
	t.Parallel()

	var b loader.Batch

	require.NoError(t, b.Add(&record.Device{Name: "d1"}))
	require.NoError(t, b.Add(&record.Property{Name: "p1"}))
	require.NoError(t, b.Add(&record.Device{Name: "d2"}))

	var got []string
	for _, rec := range b.Records() {
		got = append(got, rec.Kind().String()+":"+rec.RecordName())
	}

	want := []string{"property:p1", "device:d1", "device:d2"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func Test_ParseDevice_Fails_When_Document_Is_A_Property(t *testing.T) {
	t.Parallel()

	_, err := loader.ParseDevice([]byte("property: p\n"))
	if !errors.Is(err, loader.ErrWrongKind) {
		t.Fatalf("err=%v, want ErrWrongKind", err)
	}

	p, err := loader.ParseProperty([]byte("property: p\ntype: string\n"))
	require.NoError(t, err)

	if p.Name != "p" || p.Type != "string" {
		t.Errorf("got %+v", p)
	}

	_, err = loader.ParseProperty([]byte("property: a\n---\nproperty: b\n"))
	if !errors.Is(err, loader.ErrSchema) {
		t.Errorf("two documents: err=%v, want ErrSchema", err)
	}
}

func Test_LoadEvents_Fails_When_Stream_Is_Truncated(t *testing.T) {
	t.Parallel()

	events := []yamlevents.Event{
		{Kind: yamlevents.StreamStart},
		{Kind: yamlevents.DocumentStart},
		{Kind: yamlevents.MappingStart},
		{Kind: yamlevents.Scalar, Value: "device"},
		{Kind: yamlevents.Scalar, Value: "d"},
	}

	_, err := loader.New().LoadEvents("events", events)
	if !errors.Is(err, loader.ErrSchema) {
		t.Fatalf("err=%v, want ErrSchema", err)
	}
}
