package loader

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/calvinalkan/dsd/internal/record"
	"github.com/calvinalkan/dsd/internal/yamlevents"
)

// state is what the machine expects next.
type state uint8

const (
	stateStreamStart   state = iota // stream-start
	stateStream                     // document-start or stream-end
	stateDocument                   // the document's top-level mapping
	stateEmptyDocument              // document-end after a null body
	stateFirstKey                   // "property" or "device"
	stateKey                        // a top-level key or mapping-end
	stateField                      // the scalar value of machine.field
	stateRefs                       // sequence-start of a reference list
	stateRefItem                    // a reference name or sequence-end
	stateValues                     // sequence-start of "values"
	stateValueItem                  // mapping-start of one value or sequence-end
	stateValueTokenKey              // the "token" key
	stateValueToken                 // the token
	stateValueDescKey               // the "description" key
	stateValueDesc                  // the description
	stateValueEnd                   // mapping-end closing one value
	stateDocumentEnd                // document-end after the top-level mapping
	stateDone                       // nothing; the stream has ended
)

var stateNames = [...]string{
	stateStreamStart:   "stream start",
	stateStream:        "between documents",
	stateDocument:      "document start",
	stateEmptyDocument: "empty document",
	stateFirstKey:      "first key",
	stateKey:           "top-level key",
	stateField:         "field value",
	stateRefs:          "reference list",
	stateRefItem:       "reference name",
	stateValues:        "value list",
	stateValueItem:     "value entry",
	stateValueTokenKey: "value token key",
	stateValueToken:    "value token",
	stateValueDescKey:  "value description key",
	stateValueDesc:     "value description",
	stateValueEnd:      "value entry end",
	stateDocumentEnd:   "document end",
	stateDone:          "stream end",
}

func (s state) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}

	return fmt.Sprintf("state(%d)", uint8(s))
}

// field selects which record field a scalar in stateField is stored into.
type field uint8

const (
	fieldName field = iota + 1
	fieldType
	fieldOwner
	fieldDescription
	fieldExample
)

// Recognized keys. Matching is case-insensitive.
const (
	keyProperty    = "property"
	keyDevice      = "device"
	keyType        = "type"
	keyOwner       = "owner"
	keyDescription = "description"
	keyExample     = "example"
	keyDevices     = "devices"
	keyProperties  = "properties"
	keyValues      = "values"
	keyToken       = "token"
)

// document is the record under construction.
type document struct {
	kind     record.Kind
	device   *record.Device
	property *record.Property
	line     int
	seen     map[string]bool
	pending  []pendingRef

	field field
	key   string
	value record.PropertyValue
}

func (d *document) name() string {
	switch d.kind {
	case record.KindDevice:
		return d.device.Name
	case record.KindProperty:
		return d.property.Name
	case record.KindInvalid:
		return ""
	default:
		return ""
	}
}

func (d *document) record() record.Record {
	if d.kind == record.KindDevice {
		return d.device
	}

	return d.property
}

// machine consumes the events of one load call. Records are staged in
// committed and only handed to the Loader once the whole call succeeded.
type machine struct {
	l         *Loader
	source    string
	state     state
	doc       *document
	committed []record.Record
	pending   []pendingRef
}

func newMachine(l *Loader, source string) *machine {
	return &machine{l: l, source: source, state: stateStreamStart}
}

func (m *machine) run(events []yamlevents.Event) error {
	for _, ev := range events {
		next, err := m.step(ev)
		if err != nil {
			return err
		}

		m.state = next
	}

	if m.state != stateDone {
		return &Error{Source: m.source, Err: fmt.Errorf("%w: event stream ended in state %q", ErrSchema, m.state)}
	}

	return nil
}

// step is the transition function. Every (state, event) pair that is not
// listed explicitly is a schema error.
func (m *machine) step(ev yamlevents.Event) (state, error) {
	switch m.state {
	case stateStreamStart:
		switch ev.Kind {
		case yamlevents.StreamStart:
			return stateStream, nil
		default:
			return m.unexpected(ev)
		}

	case stateStream:
		switch ev.Kind {
		case yamlevents.DocumentStart:
			m.doc = &document{line: ev.Line, seen: map[string]bool{}}

			return stateDocument, nil
		case yamlevents.StreamEnd:
			return stateDone, nil
		default:
			return m.unexpected(ev)
		}

	case stateDocument:
		switch ev.Kind {
		case yamlevents.MappingStart:
			return stateFirstKey, nil
		case yamlevents.Scalar:
			if ev.Value != "" {
				return m.fail(ev, ErrSchema, "document is a scalar, want a mapping")
			}

			return stateEmptyDocument, nil
		case yamlevents.DocumentEnd:
			m.doc = nil

			return stateStream, nil
		default:
			return m.unexpected(ev)
		}

	case stateEmptyDocument:
		switch ev.Kind {
		case yamlevents.DocumentEnd:
			m.doc = nil

			return stateStream, nil
		default:
			return m.unexpected(ev)
		}

	case stateFirstKey:
		switch ev.Kind {
		case yamlevents.Scalar:
			return m.firstKey(ev)
		default:
			return m.unexpected(ev)
		}

	case stateKey:
		switch ev.Kind {
		case yamlevents.Scalar:
			return m.key(ev)
		case yamlevents.MappingEnd:
			return stateDocumentEnd, nil
		default:
			return m.unexpected(ev)
		}

	case stateField:
		switch ev.Kind {
		case yamlevents.Scalar:
			return stateKey, m.set(ev)
		default:
			return m.unexpected(ev)
		}

	case stateRefs:
		switch ev.Kind {
		case yamlevents.SequenceStart:
			return stateRefItem, nil
		case yamlevents.Scalar:
			// "devices:" with nothing after it is an empty list.
			if ev.Value != "" {
				return m.unexpected(ev)
			}

			return stateKey, nil
		default:
			return m.unexpected(ev)
		}

	case stateRefItem:
		switch ev.Kind {
		case yamlevents.Scalar:
			return stateRefItem, m.addRef(ev)
		case yamlevents.SequenceEnd:
			return stateKey, nil
		default:
			return m.unexpected(ev)
		}

	case stateValues:
		switch ev.Kind {
		case yamlevents.SequenceStart:
			return stateValueItem, nil
		case yamlevents.Scalar:
			if ev.Value != "" {
				return m.unexpected(ev)
			}

			return stateKey, nil
		default:
			return m.unexpected(ev)
		}

	case stateValueItem:
		switch ev.Kind {
		case yamlevents.MappingStart:
			m.doc.value = record.PropertyValue{}

			return stateValueTokenKey, nil
		case yamlevents.SequenceEnd:
			return stateKey, nil
		default:
			return m.unexpected(ev)
		}

	case stateValueTokenKey:
		switch ev.Kind {
		case yamlevents.Scalar:
			if !keyIs(ev.Value, keyToken) {
				return m.fail(ev, ErrUnknownKey, "value key %q, want %q first", ev.Value, keyToken)
			}

			return stateValueToken, nil
		case yamlevents.MappingEnd:
			return m.fail(ev, ErrSchema, "value entry has no %q", keyToken)
		default:
			return m.unexpected(ev)
		}

	case stateValueToken:
		switch ev.Kind {
		case yamlevents.Scalar:
			m.doc.value.Token = ev.Value

			return stateValueDescKey, nil
		default:
			return m.unexpected(ev)
		}

	case stateValueDescKey:
		switch ev.Kind {
		case yamlevents.Scalar:
			if !keyIs(ev.Value, keyDescription) {
				return m.fail(ev, ErrUnknownKey, "value key %q, want %q after %q", ev.Value, keyDescription, keyToken)
			}

			return stateValueDesc, nil
		case yamlevents.MappingEnd:
			return m.fail(ev, ErrSchema, "value %q has no %q", m.doc.value.Token, keyDescription)
		default:
			return m.unexpected(ev)
		}

	case stateValueDesc:
		switch ev.Kind {
		case yamlevents.Scalar:
			m.doc.value.Description = ev.Value

			return stateValueEnd, nil
		default:
			return m.unexpected(ev)
		}

	case stateValueEnd:
		switch ev.Kind {
		case yamlevents.MappingEnd:
			return stateValueItem, m.appendValue(ev)
		case yamlevents.Scalar:
			return m.fail(ev, ErrUnknownKey, "value key %q, only %q and %q are allowed", ev.Value, keyToken, keyDescription)
		default:
			return m.unexpected(ev)
		}

	case stateDocumentEnd:
		switch ev.Kind {
		case yamlevents.DocumentEnd:
			return stateStream, m.commit()
		default:
			return m.unexpected(ev)
		}

	case stateDone:
		return m.unexpected(ev)

	default:
		return m.fail(ev, ErrSchema, "machine in unknown state %d", uint8(m.state))
	}
}

func (m *machine) firstKey(ev yamlevents.Event) (state, error) {
	switch {
	case keyIs(ev.Value, keyProperty):
		m.doc.kind = record.KindProperty
		m.doc.property = &record.Property{}
	case keyIs(ev.Value, keyDevice):
		m.doc.kind = record.KindDevice
		m.doc.device = &record.Device{}
	default:
		return m.fail(ev, ErrUnknownDocument, "first key %q, want %q or %q", ev.Value, keyProperty, keyDevice)
	}

	m.doc.seen[strings.ToLower(ev.Value)] = true
	m.doc.key = ev.Value
	m.doc.field = fieldName

	return stateField, nil
}

func (m *machine) key(ev yamlevents.Event) (state, error) {
	k := strings.ToLower(ev.Value)

	if m.doc.seen[k] {
		return m.fail(ev, ErrSchema, "key %q given twice", ev.Value)
	}

	next, f, ok := m.keyTarget(k)
	if !ok {
		return m.fail(ev, ErrUnknownKey, "%q in a %s document", ev.Value, m.doc.kind)
	}

	m.doc.seen[k] = true
	m.doc.key = ev.Value
	m.doc.field = f

	return next, nil
}

// keyTarget maps a lower-cased top-level key to the state that consumes its
// value. The name key is only valid as the first key.
func (m *machine) keyTarget(k string) (state, field, bool) {
	switch m.doc.kind {
	case record.KindProperty:
		switch k {
		case keyType:
			return stateField, fieldType, true
		case keyOwner:
			return stateField, fieldOwner, true
		case keyDescription:
			return stateField, fieldDescription, true
		case keyExample:
			return stateField, fieldExample, true
		case keyDevices:
			return stateRefs, 0, true
		case keyValues:
			return stateValues, 0, true
		}
	case record.KindDevice:
		switch k {
		case keyOwner:
			return stateField, fieldOwner, true
		case keyDescription:
			return stateField, fieldDescription, true
		case keyProperties:
			return stateRefs, 0, true
		}
	case record.KindInvalid:
	}

	return stateKey, 0, false
}

func (m *machine) set(ev yamlevents.Event) error {
	d := m.doc
	v := ev.Value

	switch d.field {
	case fieldName:
		if v == "" {
			_, err := m.fail(ev, ErrSchema, "%s name is empty", d.kind)

			return err
		}

		if d.kind == record.KindDevice {
			d.device.Name = v
		} else {
			d.property.Name = v
		}
	case fieldType:
		if !record.ValidType(v) {
			_, err := m.fail(ev, ErrInvalidType, "%q (valid: %s)", v, strings.Join(record.ValidTypes(), ", "))

			return err
		}

		d.property.Type = v
	case fieldOwner:
		if d.kind == record.KindDevice {
			d.device.Owner = v
		} else {
			d.property.Owner = v
		}
	case fieldDescription:
		if d.kind == record.KindDevice {
			d.device.Description = v
		} else {
			d.property.Description = v
		}
	case fieldExample:
		d.property.Example = v
	default:
		_, err := m.fail(ev, ErrSchema, "no field selected for key %q", d.key)

		return err
	}

	return nil
}

func (m *machine) appendValue(ev yamlevents.Event) error {
	p := m.doc.property
	if p.HasValue(m.doc.value.Token) {
		_, err := m.fail(ev, ErrSchema, "property %s lists value %q twice", p.Name, m.doc.value.Token)

		return err
	}

	p.Values = append(p.Values, m.doc.value)

	return nil
}

// addRef appends a reference name and resolves it against the resolver and
// everything loaded so far. Misses are kept as pending for [Loader.Finish].
func (m *machine) addRef(ev yamlevents.Event) error {
	d := m.doc
	name := ev.Value

	if name == "" {
		_, err := m.fail(ev, ErrSchema, "empty name in %q", d.key)

		return err
	}

	target := record.KindDevice
	if d.kind == record.KindDevice {
		target = record.KindProperty
		d.device.Properties = append(d.device.Properties, name)
	} else {
		d.property.Devices = append(d.property.Devices, name)
	}

	if m.l.resolver == nil {
		return nil
	}

	found, err := m.resolve(target, name)
	if err != nil {
		return &Error{Source: m.source, Line: ev.Line, Err: fmt.Errorf("resolve %s %s: %w", target, name, err)}
	}

	if !found {
		d.pending = append(d.pending, pendingRef{
			Kind:    d.kind,
			Name:    d.name(),
			Ref:     name,
			RefKind: target,
			Source:  m.source,
			Line:    ev.Line,
		})
	}

	return nil
}

func (m *machine) resolve(kind record.Kind, name string) (bool, error) {
	var (
		found bool
		err   error
	)

	if kind == record.KindDevice {
		found, err = m.l.resolver.HasDevice(name)
	} else {
		found, err = m.l.resolver.HasProperty(name)
	}

	if err != nil || found {
		return found, err
	}

	if m.l.batch.Has(kind, name) {
		return true, nil
	}

	for _, rec := range m.committed {
		if rec.Kind() == kind && rec.RecordName() == name {
			return true, nil
		}
	}

	return false, nil
}

func (m *machine) commit() error {
	d := m.doc
	rec := d.record()

	m.committed = append(m.committed, rec)
	m.pending = append(m.pending, d.pending...)
	m.doc = nil

	m.l.log.WithFields(logrus.Fields{
		"kind":    rec.Kind().String(),
		"name":    rec.RecordName(),
		"source":  m.source,
		"pending": len(d.pending),
	}).Debug("document loaded")

	return nil
}

func (m *machine) unexpected(ev yamlevents.Event) (state, error) {
	return m.fail(ev, ErrUnexpectedEvent, "%s in state %q", ev, m.state)
}

func (m *machine) fail(ev yamlevents.Event, sentinel error, format string, args ...any) (state, error) {
	return m.state, &Error{
		Source: m.source,
		Line:   ev.Line,
		Err:    fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...)),
	}
}

func keyIs(got, want string) bool {
	return strings.EqualFold(got, want)
}
