// Package yamlevents turns YAML text into a flat stream of structural events.
//
// The stream has the same shape a libyaml-style event parser produces:
//
//	StreamStart
//	  DocumentStart
//	    MappingStart
//	      Scalar "property"  Scalar "foo"
//	      Scalar "devices"   SequenceStart Scalar "bar" SequenceEnd
//	    MappingEnd
//	  DocumentEnd
//	StreamEnd
//
// Decoding is done by gopkg.in/yaml.v3 into [yaml.Node] trees, one per
// document, which are then walked in order. Scalar values are reported
// exactly as yaml.v3 decodes them: no type conversion is applied, so "0x10"
// stays "0x10" and block scalars keep their newlines. Aliases are expanded in
// place.
package yamlevents

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// EventKind identifies a structural event.
type EventKind uint8

// EventKind values.
const (
	StreamStart EventKind = iota + 1
	StreamEnd
	DocumentStart
	DocumentEnd
	SequenceStart
	SequenceEnd
	MappingStart
	MappingEnd
	Scalar
)

// String returns a human-readable event name used in error messages.
func (k EventKind) String() string {
	switch k {
	case StreamStart:
		return "stream-start"
	case StreamEnd:
		return "stream-end"
	case DocumentStart:
		return "document-start"
	case DocumentEnd:
		return "document-end"
	case SequenceStart:
		return "sequence-start"
	case SequenceEnd:
		return "sequence-end"
	case MappingStart:
		return "mapping-start"
	case MappingEnd:
		return "mapping-end"
	case Scalar:
		return "scalar"
	default:
		return fmt.Sprintf("event(%d)", uint8(k))
	}
}

// Event is one structural event. Value is only set for [Scalar].
// Line and Column are 1-based positions in the source, 0 when unknown.
type Event struct {
	Kind   EventKind
	Value  string
	Line   int
	Column int
}

// String formats the event for diagnostics.
func (e Event) String() string {
	if e.Kind == Scalar {
		return fmt.Sprintf("scalar %q", e.Value)
	}

	return e.Kind.String()
}

// ErrSyntax wraps YAML syntax errors reported by the decoder.
var ErrSyntax = errors.New("yaml syntax error")

// maxAliasDepth bounds alias expansion so a self-referencing alias cannot
// recurse forever.
const maxAliasDepth = 64

// Parse decodes all documents in r and returns their events, framed by a
// single StreamStart/StreamEnd pair.
func Parse(r io.Reader) ([]Event, error) {
	if r == nil {
		return nil, errors.New("reader is nil")
	}

	dec := yaml.NewDecoder(r)
	events := []Event{{Kind: StreamStart}}

	for {
		var doc yaml.Node

		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSyntax, err)
		}

		events, err = appendNode(events, &doc, 0)
		if err != nil {
			return nil, err
		}
	}

	return append(events, Event{Kind: StreamEnd}), nil
}

// ParseBytes is [Parse] over an in-memory buffer.
func ParseBytes(data []byte) ([]Event, error) {
	return Parse(bytes.NewReader(data))
}

func appendNode(events []Event, n *yaml.Node, aliasDepth int) ([]Event, error) {
	var err error

	switch n.Kind {
	case yaml.DocumentNode:
		events = append(events, at(DocumentStart, n))

		for _, child := range n.Content {
			events, err = appendNode(events, child, aliasDepth)
			if err != nil {
				return nil, err
			}
		}

		return append(events, at(DocumentEnd, n)), nil

	case yaml.MappingNode:
		events = append(events, at(MappingStart, n))

		for _, child := range n.Content {
			events, err = appendNode(events, child, aliasDepth)
			if err != nil {
				return nil, err
			}
		}

		return append(events, at(MappingEnd, n)), nil

	case yaml.SequenceNode:
		events = append(events, at(SequenceStart, n))

		for _, child := range n.Content {
			events, err = appendNode(events, child, aliasDepth)
			if err != nil {
				return nil, err
			}
		}

		return append(events, at(SequenceEnd, n)), nil

	case yaml.ScalarNode:
		ev := at(Scalar, n)
		ev.Value = n.Value

		return append(events, ev), nil

	case yaml.AliasNode:
		if n.Alias == nil {
			return nil, fmt.Errorf("%w: line %d: dangling alias %q", ErrSyntax, n.Line, n.Value)
		}

		if aliasDepth >= maxAliasDepth {
			return nil, fmt.Errorf("%w: line %d: alias nesting too deep", ErrSyntax, n.Line)
		}

		return appendNode(events, n.Alias, aliasDepth+1)

	default:
		return nil, fmt.Errorf("%w: line %d: unsupported node kind %d", ErrSyntax, n.Line, n.Kind)
	}
}

func at(kind EventKind, n *yaml.Node) Event {
	return Event{Kind: kind, Line: n.Line, Column: n.Column}
}
