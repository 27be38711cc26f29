// Package text renders records as plain text for people.
//
//	Device Name:      eth0
//	Maintainer:       Jane Doe
//	Uses Properties:  ethernet-mac
//	                  link-speed
//
// Labels are padded to one column. Multi-line text is indented below its
// label. Value tokens are aligned by display width, so wide characters do
// not break the "=>" column.
package text

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/calvinalkan/dsd/internal/record"
)

const (
	labelWidth = 17
	textIndent = "    "
)

// Record writes rec in the format of its kind.
func Record(w io.Writer, rec record.Record) error {
	switch r := rec.(type) {
	case *record.Device:
		return Device(w, r)
	case *record.Property:
		return Property(w, r)
	default:
		return fmt.Errorf("text: unsupported record type %T", rec)
	}
}

// Device writes d.
func Device(w io.Writer, d *record.Device) error {
	p := &printer{w: w}

	p.field("Device Name:", d.Name)
	p.field("Maintainer:", d.Owner)

	if strings.Contains(strings.TrimRight(d.Description, "\n"), "\n") {
		p.block("Description:", d.Description)
	} else {
		p.field("Description:", strings.TrimRight(d.Description, "\n"))
	}

	p.list("Uses Properties:", d.Properties)

	return p.err
}

// Property writes p.
func Property(w io.Writer, prop *record.Property) error {
	p := &printer{w: w}

	p.field("Property:", prop.Name)
	p.field("Maintainer:", prop.Owner)
	p.block("Description:", prop.Description)
	p.line("")
	p.field("Type:", prop.Type)
	p.values(prop.Values)
	p.list("Used by Devices:", prop.Devices)
	p.block("Example:", prop.Example)
	p.line("")

	return p.err
}

// printer remembers the first write error and skips everything after it.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) line(s string) {
	if p.err != nil {
		return
	}

	_, p.err = io.WriteString(p.w, s+"\n")
}

func label(s string) string {
	return s + strings.Repeat(" ", max(labelWidth-len(s), 0))
}

func (p *printer) field(name, value string) {
	if value == "" {
		return
	}

	p.line(label(name) + " " + value)
}

// block writes name on its own line and each non-empty line of text below
// it, indented.
func (p *printer) block(name, text string) {
	if text == "" {
		return
	}

	p.line(label(name))

	for _, l := range strings.Split(text, "\n") {
		if l == "" {
			continue
		}

		p.line(textIndent + l)
	}
}

func (p *printer) list(name string, items []string) {
	for i, item := range items {
		if i == 0 {
			p.line(label(name) + " " + item)

			continue
		}

		p.line(label("") + " " + item)
	}
}

func (p *printer) values(values []record.PropertyValue) {
	width := 0
	for _, v := range values {
		width = max(width, runewidth.StringWidth(v.Token))
	}

	for i, v := range values {
		head := label("")
		if i == 0 {
			head = label("Possible Values:")
		}

		pad := strings.Repeat(" ", width-runewidth.StringWidth(v.Token))
		p.line(head + " " + v.Token + pad + " => " + v.Description)
	}
}
