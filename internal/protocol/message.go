// Package protocol defines the message envelope carried by holonet
// connections and the length-prefixed framing used by stream transports.
//
// The connection core treats a Message as an opaque value. Only transports
// (which serialize it) and applications (which build and read it) look inside.
package protocol

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// Kind tags the shape of a Message payload
type Kind uint8

const (
	// KindRaw carries uninterpreted bytes or text
	KindRaw Kind = iota
	// KindNamed carries a JSON value tagged with a name
	KindNamed
)

// String returns the string representation of a Kind
func (k Kind) String() string {
	switch k {
	case KindRaw:
		return "raw"
	case KindNamed:
		return "named"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

var (
	// ErrShortMessage is returned when an encoded message is truncated
	ErrShortMessage = errors.New("protocol: short message")
	// ErrUnknownKind is returned when an encoded message has an unknown kind
	ErrUnknownKind = errors.New("protocol: unknown message kind")
	// ErrNameTooLong is returned when a message name does not fit the header
	ErrNameTooLong = errors.New("protocol: message name too long")
	// ErrNotNamed is returned when decoding a raw message as a named value
	ErrNotNamed = errors.New("protocol: message is not named")
)

// Message is the envelope passed to Send and delivered to handlers
type Message struct {
	Kind Kind
	Name string
	Data []byte
}

// Raw wraps a byte payload
func Raw(b []byte) Message {
	return Message{Kind: KindRaw, Data: b}
}

// Text wraps a string payload
func Text(s string) Message {
	return Message{Kind: KindRaw, Data: []byte(s)}
}

// Named encodes v as JSON and tags it with name
func Named(name string, v any) (Message, error) {
	if len(name) > math.MaxUint16 {
		return Message{}, ErrNameTooLong
	}
	data, err := json.Marshal(v)
	if err != nil {
		return Message{}, fmt.Errorf("protocol: encode %q: %w", name, err)
	}
	return Message{Kind: KindNamed, Name: name, Data: data}, nil
}

// IsNamed reports whether m is a named message called name
func (m Message) IsNamed(name string) bool {
	return m.Kind == KindNamed && m.Name == name
}

// Decode unmarshals the JSON payload of a named message into v
func (m Message) Decode(v any) error {
	if m.Kind != KindNamed {
		return ErrNotNamed
	}
	if err := json.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("protocol: decode %q: %w", m.Name, err)
	}
	return nil
}

// Bytes returns the payload bytes
func (m Message) Bytes() []byte {
	return m.Data
}

// String returns the payload as text for raw messages and name:payload
// for named ones
func (m Message) String() string {
	if m.Kind == KindNamed {
		return m.Name + ":" + string(m.Data)
	}
	return string(m.Data)
}

// Equal reports whether two messages carry the same kind, name and payload
func (m Message) Equal(o Message) bool {
	return m.Kind == o.Kind && m.Name == o.Name && string(m.Data) == string(o.Data)
}

// headerSize is kind (1) + name length (2)
const headerSize = 3

// MarshalBinary encodes m as kind | name length | name | data
func (m Message) MarshalBinary() ([]byte, error) {
	if m.Kind != KindRaw && m.Kind != KindNamed {
		return nil, ErrUnknownKind
	}
	if len(m.Name) > math.MaxUint16 {
		return nil, ErrNameTooLong
	}
	buf := make([]byte, headerSize+len(m.Name)+len(m.Data))
	buf[0] = byte(m.Kind)
	binary.BigEndian.PutUint16(buf[1:3], uint16(len(m.Name)))
	n := copy(buf[headerSize:], m.Name)
	copy(buf[headerSize+n:], m.Data)
	return buf, nil
}

// UnmarshalBinary decodes the form produced by MarshalBinary
func (m *Message) UnmarshalBinary(b []byte) error {
	if len(b) < headerSize {
		return ErrShortMessage
	}
	kind := Kind(b[0])
	if kind != KindRaw && kind != KindNamed {
		return fmt.Errorf("%w: %d", ErrUnknownKind, b[0])
	}
	nameLen := int(binary.BigEndian.Uint16(b[1:3]))
	if len(b) < headerSize+nameLen {
		return ErrShortMessage
	}
	m.Kind = kind
	m.Name = string(b[headerSize : headerSize+nameLen])
	m.Data = append([]byte(nil), b[headerSize+nameLen:]...)
	return nil
}
