package protocol

import (
	"errors"
	"fmt"
)

// Event errors.
var (
	ErrEmptyEventName = errors.New("protocol: empty event name")
	ErrEventNameLen   = errors.New("protocol: event name too long")
	ErrEventValueLen  = errors.New("protocol: event value too long")
)

// Event is a listener invocation reported by the client.
//
// Wire format:
//
//	[NodeID: varint][Name: len-prefixed][Value: len-prefixed]
type Event struct {
	NodeID uint32 // Node the listener was bound to
	Name   string // Event name without the "on" prefix, e.g. "click"
	Value  string // Current value for input and change events
}

// String returns a compact form such as "click@4".
func (ev *Event) String() string {
	if ev.Value == "" {
		return fmt.Sprintf("%s@%d", ev.Name, ev.NodeID)
	}
	return fmt.Sprintf("%s@%d %q", ev.Name, ev.NodeID, ev.Value)
}

// Validate checks the event against the decoding limits.
func (ev *Event) Validate() error {
	switch {
	case ev.Name == "":
		return ErrEmptyEventName
	case len(ev.Name) > MaxEventNameLen:
		return ErrEventNameLen
	case len(ev.Value) > MaxEventValueLen:
		return ErrEventValueLen
	}
	return nil
}

// EncodeEvent encodes an event to bytes.
func EncodeEvent(ev *Event) []byte {
	e := NewEncoderWithCap(8 + len(ev.Name) + len(ev.Value))
	EncodeEventTo(e, ev)
	return e.Bytes()
}

// EncodeEventTo encodes an event using the provided encoder.
func EncodeEventTo(e *Encoder, ev *Event) {
	e.WriteID(ev.NodeID)
	e.WriteString(ev.Name)
	e.WriteString(ev.Value)
}

// DecodeEvent decodes and validates an event from bytes.
func DecodeEvent(data []byte) (*Event, error) {
	d := NewDecoder(data)
	ev, err := DecodeEventFrom(d)
	if err != nil {
		return nil, err
	}
	if err := d.Finish(); err != nil {
		return nil, err
	}
	return ev, nil
}

// DecodeEventFrom decodes and validates an event from a decoder.
func DecodeEventFrom(d *Decoder) (*Event, error) {
	id, err := d.ReadID()
	if err != nil {
		return nil, err
	}
	name, err := d.ReadString()
	if err != nil {
		return nil, err
	}
	value, err := d.ReadString()
	if err != nil {
		return nil, err
	}
	ev := &Event{NodeID: id, Name: name, Value: value}
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	return ev, nil
}
