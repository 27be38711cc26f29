package store

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/calvinalkan/dsd/internal/record"
)

// indent prefixes sequence items and block text in stored files.
const indent = "    "

// Encode serializes rec in the stored layout. Fields are written in a fixed
// order and empty fields are left out:
//
//	property: ethernet-mac
//	type: hexadecimal-address-package
//	owner: Jane Doe
//	devices:
//	    - eth0
//	description: |
//	    MAC address of the interface.
//	example: |
//	    ethernet-mac = 00:11:22:33:44:55
//	values:
//	    - token: auto
//	      description: derived from the board serial
//
// Free text is written as a literal block scalar so that it reads back
// byte for byte, including leading blanks and trailing newlines.
func Encode(rec record.Record) ([]byte, error) {
	var b strings.Builder

	switch r := rec.(type) {
	case *record.Property:
		encodeProperty(&b, r)
	case *record.Device:
		encodeDevice(&b, r)
	default:
		return nil, fmt.Errorf("encode: unsupported record type %T", rec)
	}

	return []byte(b.String()), nil
}

func encodeProperty(b *strings.Builder, p *record.Property) {
	writeScalar(b, "property", p.Name)
	writeScalar(b, "type", p.Type)
	writeScalar(b, "owner", p.Owner)
	writeList(b, "devices", p.Devices)
	writeText(b, "description", p.Description)
	writeText(b, "example", p.Example)

	if len(p.Values) > 0 {
		b.WriteString("values:\n")

		for _, v := range p.Values {
			b.WriteString(indent + "- token: " + scalar(v.Token) + "\n")
			b.WriteString(indent + "  description: " + scalar(v.Description) + "\n")
		}
	}
}

func encodeDevice(b *strings.Builder, d *record.Device) {
	writeScalar(b, "device", d.Name)
	writeScalar(b, "owner", d.Owner)

	if strings.Contains(d.Description, "\n") {
		writeText(b, "description", d.Description)
	} else {
		writeScalar(b, "description", d.Description)
	}

	writeList(b, "properties", d.Properties)
}

func writeScalar(b *strings.Builder, key, value string) {
	if value == "" {
		return
	}

	b.WriteString(key + ": " + scalar(value) + "\n")
}

func writeList(b *strings.Builder, key string, items []string) {
	if len(items) == 0 {
		return
	}

	b.WriteString(key + ":\n")

	for _, item := range items {
		b.WriteString(indent + "- " + scalar(item) + "\n")
	}
}

// writeText writes value as a literal block scalar, falling back to a
// double-quoted scalar for text a block cannot carry.
func writeText(b *strings.Builder, key, value string) {
	if value == "" {
		return
	}

	if !blockSafe(value) {
		writeScalar(b, key, value)

		return
	}

	body := strings.TrimRight(value, "\n")
	trailing := len(value) - len(body)

	var lines []string
	if body != "" {
		lines = strings.Split(body, "\n")
	}

	header := "|"
	if needsIndentIndicator(lines) {
		header += strconv.Itoa(len(indent))
	}

	switch {
	case trailing == 0:
		header += "-"
	case trailing == 1 && body != "":
	default:
		header += "+"
	}

	b.WriteString(key + ": " + header + "\n")

	for _, line := range lines {
		if line == "" {
			b.WriteString("\n")

			continue
		}

		b.WriteString(indent + line + "\n")
	}

	// The newline after the last line is already written; keep chomping
	// needs the rest as empty lines.
	extra := trailing - 1
	if body == "" {
		extra = trailing
	}

	for range extra {
		b.WriteString("\n")
	}
}

// needsIndentIndicator reports whether the block's indentation cannot be
// detected from its first content line: that line starts with a blank, or
// a blank-only line comes before it.
func needsIndentIndicator(lines []string) bool {
	for _, line := range lines {
		if line == "" {
			continue
		}

		if strings.TrimLeft(line, " ") == "" {
			return true
		}

		return line[0] == ' ' || line[0] == '\t'
	}

	return false
}

// scalar renders a single-line value, plain when that reads back unchanged
// and double-quoted otherwise. Go's quoting escapes are a subset of YAML's.
func scalar(s string) string {
	if plainSafe(s) {
		return s
	}

	return strconv.Quote(s)
}

const indicators = "-?:,[]{}#&*!|>'\"%@`"

func plainSafe(s string) bool {
	if s == "" || strings.TrimSpace(s) != s || !utf8.ValidString(s) {
		return false
	}

	if strings.ContainsRune(indicators, rune(s[0])) {
		return false
	}

	if strings.Contains(s, ": ") || strings.Contains(s, " #") || strings.HasSuffix(s, ":") {
		return false
	}

	for _, r := range s {
		if !printable(r) {
			return false
		}
	}

	return true
}

func blockSafe(s string) bool {
	if !utf8.ValidString(s) {
		return false
	}

	for _, r := range s {
		if r != '\n' && r != '\t' && !printable(r) {
			return false
		}
	}

	return true
}

// printable reports whether r may appear unescaped in a YAML scalar, not
// counting tab and line breaks.
func printable(r rune) bool {
	switch {
	case r >= 0x20 && r <= 0x7e:
		return true
	case r >= 0xa0 && r <= 0xd7ff:
		return r != 0x2028 && r != 0x2029
	case r >= 0xe000 && r <= 0xfffd:
		return r != 0xfeff
	case r >= 0x10000 && r <= 0x10ffff:
		return true
	default:
		return false
	}
}
