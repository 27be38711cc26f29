// Package record defines the two record shapes stored in a dsd database:
// devices and the named properties they expose.
//
// Records reference each other by name only. A [Device] lists the names of
// the properties it uses and a [Property] lists the names of the devices that
// use it. Nothing here resolves those names; that is the job of the loader
// (at ingest time) and the verifier (over a whole database).
package record

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies one of the two record collections.
type Kind uint8

// Kind values. The zero value is invalid so that an unset Kind is never
// mistaken for a real collection.
const (
	KindInvalid Kind = iota
	KindDevice
	KindProperty
)

// Directory names of the two collections under a database root.
const (
	DeviceDir   = "devices"
	PropertyDir = "properties"
)

// ErrUnknownKind is returned by [ParseKind] for an unrecognized selector.
var ErrUnknownKind = errors.New("unknown record kind")

// String returns the singular lower-case name ("device", "property").
func (k Kind) String() string {
	switch k {
	case KindDevice:
		return "device"
	case KindProperty:
		return "property"
	case KindInvalid:
		return "invalid"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Dir returns the collection's subdirectory name under a database root.
// Returns "" for an invalid kind.
func (k Kind) Dir() string {
	switch k {
	case KindDevice:
		return DeviceDir
	case KindProperty:
		return PropertyDir
	case KindInvalid:
		return ""
	default:
		return ""
	}
}

// Kinds lists the valid kinds in the order the tools report them.
func Kinds() []Kind {
	return []Kind{KindDevice, KindProperty}
}

// ParseKind maps a user supplied selector to a Kind. Matching is
// case-insensitive and accepts the short forms used on the command line.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "device", "devices", "dev", "devs":
		return KindDevice, nil
	case "property", "properties", "prop", "props":
		return KindProperty, nil
	default:
		return KindInvalid, fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Record is implemented by [*Device] and [*Property].
type Record interface {
	Kind() Kind
	RecordName() string
}

// PropertyValue is one allowed value of a property: a token and what it means.
type PropertyValue struct {
	Token       string
	Description string
}

// Property describes a named configuration value.
//
// Description and Example are free text and may span several lines.
// Devices holds device names, in document order.
type Property struct {
	Name        string
	Type        string
	Owner       string
	Description string
	Example     string
	Devices     []string
	Values      []PropertyValue
}

// Kind returns [KindProperty].
func (*Property) Kind() Kind { return KindProperty }

// RecordName returns the property name.
func (p *Property) RecordName() string { return p.Name }

// HasValue reports whether a value with the given token is already present.
// Tokens are compared exactly.
func (p *Property) HasValue(token string) bool {
	for _, v := range p.Values {
		if v.Token == token {
			return true
		}
	}

	return false
}

// Device describes a piece of hardware and the properties it exposes.
// Properties holds property names, in document order.
type Device struct {
	Name        string
	Owner       string
	Description string
	Properties  []string
}

// Kind returns [KindDevice].
func (*Device) Kind() Kind { return KindDevice }

// RecordName returns the device name.
func (d *Device) RecordName() string { return d.Name }

// Compile-time interface checks.
var (
	_ Record = (*Device)(nil)
	_ Record = (*Property)(nil)
)
