package yamlevents_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/dsd/internal/yamlevents"
)

// kinds drops positions so tests can compare the shape of a stream.
func kinds(events []yamlevents.Event) []string {
	out := make([]string, 0, len(events))

	for _, ev := range events {
		if ev.Kind == yamlevents.Scalar {
			out = append(out, "scalar:"+ev.Value)

			continue
		}

		out = append(out, ev.Kind.String())
	}

	return out
}

func Test_Parse_Returns_Bare_Stream_When_Input_Is_Empty(t *testing.T) {
	t.Parallel()

	events, err := yamlevents.Parse(strings.NewReader(""))
	require.NoError(t, err)

	want := []string{"stream-start", "stream-end"}
	if diff := cmp.Diff(want, kinds(events)); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func Test_Parse_Flattens_Mapping_With_Sequence(t *testing.T) {
	t.Parallel()

	events, err := yamlevents.ParseBytes([]byte("device: eth0\nproperties:\n  - mac\n  - mtu\n"))
	require.NoError(t, err)

	want := []string{
		"stream-start",
		"document-start",
		"mapping-start",
		"scalar:device",
		"scalar:eth0",
		"scalar:properties",
		"sequence-start",
		"scalar:mac",
		"scalar:mtu",
		"sequence-end",
		"mapping-end",
		"document-end",
		"stream-end",
	}

	if diff := cmp.Diff(want, kinds(events)); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func Test_Parse_Emits_One_Frame_Per_Document_When_Stream_Has_Several(t *testing.T) {
	t.Parallel()

	events, err := yamlevents.ParseBytes([]byte("---\na: 1\n---\nb: 2\n"))
	require.NoError(t, err)

	want := []string{
		"stream-start",
		"document-start", "mapping-start", "scalar:a", "scalar:1", "mapping-end", "document-end",
		"document-start", "mapping-start", "scalar:b", "scalar:2", "mapping-end", "document-end",
		"stream-end",
	}

	if diff := cmp.Diff(want, kinds(events)); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func Test_Parse_Keeps_Block_Scalar_Newlines(t *testing.T) {
	t.Parallel()

	events, err := yamlevents.ParseBytes([]byte("text: |\n    one\n      two\n\nkept: |+\n    x\n\n"))
	require.NoError(t, err)

	var values []string

	for _, ev := range events {
		if ev.Kind == yamlevents.Scalar {
			values = append(values, ev.Value)
		}
	}

	want := []string{"text", "one\n  two\n", "kept", "x\n\n"}
	if diff := cmp.Diff(want, values); diff != "" {
		t.Errorf("scalars mismatch (-want +got):\n%s", diff)
	}
}

func Test_Parse_Expands_Alias_When_Anchor_Defined(t *testing.T) {
	t.Parallel()

	events, err := yamlevents.ParseBytes([]byte("a: &x [p, q]\nb: *x\n"))
	require.NoError(t, err)

	want := []string{
		"stream-start",
		"document-start",
		"mapping-start",
		"scalar:a", "sequence-start", "scalar:p", "scalar:q", "sequence-end",
		"scalar:b", "sequence-start", "scalar:p", "scalar:q", "sequence-end",
		"mapping-end",
		"document-end",
		"stream-end",
	}

	if diff := cmp.Diff(want, kinds(events)); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func Test_Parse_Does_Not_Convert_Scalar_Types(t *testing.T) {
	t.Parallel()

	events, err := yamlevents.ParseBytes([]byte("- 0x10\n- true\n- ~\n- 1.50\n"))
	require.NoError(t, err)

	var values []string

	for _, ev := range events {
		if ev.Kind == yamlevents.Scalar {
			values = append(values, ev.Value)
		}
	}

	want := []string{"0x10", "true", "~", "1.50"}
	if diff := cmp.Diff(want, values); diff != "" {
		t.Errorf("scalars mismatch (-want +got):\n%s", diff)
	}
}

func Test_Parse_Reports_Scalar_Position(t *testing.T) {
	t.Parallel()

	events, err := yamlevents.ParseBytes([]byte("a: 1\nbb: two\n"))
	require.NoError(t, err)

	var got yamlevents.Event

	for _, ev := range events {
		if ev.Kind == yamlevents.Scalar && ev.Value == "two" {
			got = ev
		}
	}

	if got.Line != 2 || got.Column != 5 {
		t.Errorf("position=%d:%d, want=2:5", got.Line, got.Column)
	}
}

func Test_Parse_Wraps_ErrSyntax_When_Yaml_Is_Malformed(t *testing.T) {
	t.Parallel()

	_, err := yamlevents.ParseBytes([]byte("a: [1, 2\nb: 3\n"))

	require.ErrorIs(t, err, yamlevents.ErrSyntax)
}

func Test_Parse_Fails_When_Reader_Is_Nil(t *testing.T) {
	t.Parallel()

	_, err := yamlevents.Parse(nil)

	require.Error(t, err)
}

func Test_EventKind_String_Names_Every_Kind(t *testing.T) {
	t.Parallel()

	for k := yamlevents.StreamStart; k <= yamlevents.Scalar; k++ {
		if strings.HasPrefix(k.String(), "event(") {
			t.Errorf("kind %d has no name", k)
		}
	}
}
