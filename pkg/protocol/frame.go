package protocol

import (
	"encoding/binary"
	"errors"
	"io"
)

// Frame constants.
const (
	// FrameHeaderSize is the size of the frame header in bytes.
	FrameHeaderSize = 4

	// MaxPayloadSize is the maximum payload size (2^16 - 1 bytes).
	MaxPayloadSize = 65535
)

// FrameType identifies the type of frame.
type FrameType uint8

const (
	FrameEvent   FrameType = 0x01 // Client → Server listener invocations
	FramePatches FrameType = 0x02 // Server → Client commit batches
	FrameControl FrameType = 0x03 // Ping, pong, close
	FrameError   FrameType = 0x04 // Error report
)

var frameTypeNames = [...]string{
	FrameEvent:   "Event",
	FramePatches: "Patches",
	FrameControl: "Control",
	FrameError:   "Error",
}

func (ft FrameType) String() string {
	if !ft.Valid() {
		return "Unknown"
	}
	return frameTypeNames[ft]
}

// Valid reports whether ft is a known frame type.
func (ft FrameType) Valid() bool {
	return ft >= FrameEvent && ft <= FrameError
}

// FrameFlags are optional flags for frame processing.
type FrameFlags uint8

const (
	// FlagInitial marks the Patches frame carrying the first commit of a
	// session. The client clears its mount point before applying it.
	FlagInitial FrameFlags = 0x01

	// FlagMore marks a Patches frame whose commit continues in the next
	// frame. The client buffers until a frame without it arrives.
	FlagMore FrameFlags = 0x02
)

// Has returns true if the flags contain the specified flag.
func (ff FrameFlags) Has(flag FrameFlags) bool {
	return ff&flag != 0
}

// Frame errors.
var (
	ErrFrameTooLarge    = errors.New("protocol: frame payload too large")
	ErrInvalidFrameType = errors.New("protocol: invalid frame type")
)

// Frame represents a protocol frame with header and payload.
//
//	┌─────────────┬──────────────┬───────────────────────────────┐
//	│ Frame Type  │ Flags        │ Payload Length                │
//	│ (1 byte)    │ (1 byte)     │ (2 bytes, big-endian)         │
//	└─────────────┴──────────────┴───────────────────────────────┘
//	│  Payload (variable length)                                  │
//	└─────────────────────────────────────────────────────────────┘
type Frame struct {
	Type    FrameType
	Flags   FrameFlags
	Payload []byte
}

// Encode returns the header followed by the payload.
func (f *Frame) Encode() []byte {
	buf := make([]byte, 0, FrameHeaderSize+len(f.Payload))
	buf = append(buf, byte(f.Type), byte(f.Flags))
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(f.Payload)))
	return append(buf, f.Payload...)
}

// header is a decoded frame header.
type header struct {
	typ    FrameType
	flags  FrameFlags
	length int
}

func parseHeader(b []byte) (header, error) {
	h := header{
		typ:    FrameType(b[0]),
		flags:  FrameFlags(b[1]),
		length: int(binary.BigEndian.Uint16(b[2:FrameHeaderSize])),
	}
	if !h.typ.Valid() {
		return header{}, ErrInvalidFrameType
	}
	return h, nil
}

func (h header) frame(payload []byte) *Frame {
	return &Frame{Type: h.typ, Flags: h.flags, Payload: payload}
}

// DecodeFrame decodes one WebSocket message. The message must hold exactly
// one frame; a short payload gives io.ErrUnexpectedEOF and extra bytes give
// ErrTrailingBytes.
func DecodeFrame(data []byte) (*Frame, error) {
	if len(data) < FrameHeaderSize {
		return nil, io.ErrUnexpectedEOF
	}
	h, err := parseHeader(data)
	if err != nil {
		return nil, err
	}
	switch body := data[FrameHeaderSize:]; {
	case len(body) < h.length:
		return nil, io.ErrUnexpectedEOF
	case len(body) > h.length:
		return nil, ErrTrailingBytes
	default:
		return h.frame(append([]byte(nil), body...)), nil
	}
}

// ReadFrame reads the next frame from a stream. A clean end of stream before
// the header gives io.EOF.
func ReadFrame(r io.Reader) (*Frame, error) {
	var hb [FrameHeaderSize]byte
	if _, err := io.ReadFull(r, hb[:]); err != nil {
		return nil, err
	}
	h, err := parseHeader(hb[:])
	if err != nil {
		return nil, err
	}
	payload := make([]byte, h.length)
	if _, err := io.ReadFull(r, payload); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return h.frame(payload), nil
}

// WriteFrame writes f to w in one call.
func WriteFrame(w io.Writer, f *Frame) error {
	if len(f.Payload) > MaxPayloadSize {
		return ErrFrameTooLarge
	}
	_, err := w.Write(f.Encode())
	return err
}

// NewFrame returns an unflagged frame.
func NewFrame(ft FrameType, payload []byte) *Frame {
	return NewFrameWithFlags(ft, 0, payload)
}

// NewFrameWithFlags returns a frame carrying flags.
func NewFrameWithFlags(ft FrameType, flags FrameFlags, payload []byte) *Frame {
	return &Frame{Type: ft, Flags: flags, Payload: payload}
}
