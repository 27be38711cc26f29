package cli_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/calvinalkan/dsd/internal/cli"
)

func Test_List_Prints_Both_Kinds_When_No_Selector(t *testing.T) {
	t.Parallel()

	c, db := seeded(t)

	for _, args := range [][]string{{"list", db}, {"list", db, "all"}, {"list", db, "ALL"}} {
		stdout := c.MustRun(args...)

		want := "-- all device names\neth0\n-- all property names\nmac"
		if diff := cmp.Diff(want, stdout); diff != "" {
			t.Errorf("%v: stdout mismatch (-want +got):\n%s", args, diff)
		}
	}
}

func Test_List_Prints_One_Kind_When_Selector_Given(t *testing.T) {
	t.Parallel()

	c, db := seeded(t)

	for _, tt := range []struct {
		selector string
		want     string
	}{
		{selector: "devs", want: "-- all device names\neth0"},
		{selector: "DEVS", want: "-- all device names\neth0"},
		{selector: "props", want: "-- all property names\nmac"},
		{selector: "properties", want: "-- all property names\nmac"},
	} {
		if got := c.MustRun("list", db, tt.selector); got != tt.want {
			t.Errorf("list %s=%q, want=%q", tt.selector, got, tt.want)
		}
	}
}

func Test_List_Warns_And_Lists_All_When_Selector_Unknown(t *testing.T) {
	t.Parallel()

	c, db := seeded(t)

	stdout, stderr, code := c.Run("list", db, "gizmos")

	if got, want := code, 1; got != want {
		t.Errorf("exitCode=%d, want=%d", got, want)
	}

	if got, want := stdout, "-- all device names\neth0\n-- all property names\nmac\n"; got != want {
		t.Errorf("stdout=%q, want=%q", got, want)
	}

	cli.AssertContains(t, stderr, "warning: unknown selector gizmos: listing all")
}

func Test_Lookup_Prints_Stored_Bytes_With_Document_Marker(t *testing.T) {
	t.Parallel()

	c, db := seeded(t)

	stdout, _, code := c.Run("lookup", db, "mac", "eth0")

	if got, want := code, 0; got != want {
		t.Errorf("exitCode=%d, want=%d", got, want)
	}

	want := "---\n" + storedMac + "---\n" + storedEth0
	if diff := cmp.Diff(want, stdout); diff != "" {
		t.Errorf("stdout mismatch (-want +got):\n%s", diff)
	}
}

func Test_Lookup_Output_Can_Be_Added_To_Another_Database(t *testing.T) {
	t.Parallel()

	c, db := seeded(t)

	stdout, _, _ := c.Run("lookup", db, "mac", "eth0")
	file := c.WriteFile("export.yaml", stdout)

	other := c.InitDB("other")
	c.MustRun("add", other, file)

	if diff := cmp.Diff(storedMac, c.ReadFile("other/properties/mac")); diff != "" {
		t.Errorf("copied property mismatch (-want +got):\n%s", diff)
	}
}

func Test_Lookup_Warns_When_Entry_Not_Found(t *testing.T) {
	t.Parallel()

	c, db := seeded(t)

	stdout, stderr, code := c.Run("lookup", db, "ghost", "eth0")

	if got, want := code, 1; got != want {
		t.Errorf("exitCode=%d, want=%d", got, want)
	}

	if got, want := stdout, "---\n"+storedEth0; got != want {
		t.Errorf("stdout=%q, want=%q", got, want)
	}

	cli.AssertContains(t, stderr, "warning: entry not found: ghost")
}

func Test_Show_Prints_Readable_Text_When_Invoked(t *testing.T) {
	t.Parallel()

	c, db := seeded(t)

	stdout, _, code := c.Run("show", db, "eth0", "mac")

	if got, want := code, 0; got != want {
		t.Errorf("exitCode=%d, want=%d", got, want)
	}

	want := "" +
		"Device Name:      eth0\n" +
		"Maintainer:       Jane Doe\n" +
		"Description:      first ethernet port\n" +
		"Uses Properties:  mac\n" +
		"\n" +
		"Property:         mac\n" +
		"Maintainer:       Jane Doe\n" +
		"Description:     \n" +
		"    MAC address.\n" +
		"\n" +
		"Type:             hexadecimal-address-package\n" +
		"Used by Devices:  eth0\n" +
		"Example:         \n" +
		"    mac = 00:11:22:33:44:55\n" +
		"\n"
	if diff := cmp.Diff(want, stdout); diff != "" {
		t.Errorf("stdout mismatch (-want +got):\n%s", diff)
	}
}

func Test_Show_Warns_When_Entry_Not_Found(t *testing.T) {
	t.Parallel()

	c, db := seeded(t)

	stderr := c.MustFail("show", db, "ghost")
	cli.AssertContains(t, stderr, "warning: entry not found: ghost")
}
