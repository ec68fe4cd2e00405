package protocol

import "fmt"

// PatchOp is the type of patch operation. Each op mirrors one call on a
// rendering surface.
type PatchOp uint8

const (
	PatchCreateElement PatchOp = 0x01 // Create a detached element
	PatchCreateText    PatchOp = 0x02 // Create a detached text node
	PatchSetAttr       PatchOp = 0x03 // Set attribute
	PatchRemoveAttr    PatchOp = 0x04 // Remove attribute
	PatchSetText       PatchOp = 0x05 // Update text content
	PatchListen        PatchOp = 0x06 // Bind a listener
	PatchUnlisten      PatchOp = 0x07 // Unbind a listener
	PatchAttach        PatchOp = 0x08 // Append child to parent
	PatchInsert        PatchOp = 0x09 // Insert child before a sibling
	PatchDetach        PatchOp = 0x0A // Remove child from parent
)

// String returns the string representation of the patch operation.
func (op PatchOp) String() string {
	switch op {
	case PatchCreateElement:
		return "CreateElement"
	case PatchCreateText:
		return "CreateText"
	case PatchSetAttr:
		return "SetAttr"
	case PatchRemoveAttr:
		return "RemoveAttr"
	case PatchSetText:
		return "SetText"
	case PatchListen:
		return "Listen"
	case PatchUnlisten:
		return "Unlisten"
	case PatchAttach:
		return "Attach"
	case PatchInsert:
		return "Insert"
	case PatchDetach:
		return "Detach"
	default:
		return "Unknown"
	}
}

// Patch represents a single surface mutation.
type Patch struct {
	Op     PatchOp
	ID     uint32 // Target node
	Parent uint32 // Attach, Insert, Detach
	Before uint32 // Insert
	Key    string // Tag, attribute name or event name
	Value  string // Attribute value or text
}

// String returns a compact form such as "Attach 3 -> 1".
func (p Patch) String() string {
	switch p.Op {
	case PatchAttach, PatchDetach:
		return fmt.Sprintf("%s %d -> %d", p.Op, p.ID, p.Parent)
	case PatchInsert:
		return fmt.Sprintf("%s %d -> %d before %d", p.Op, p.ID, p.Parent, p.Before)
	case PatchSetAttr:
		return fmt.Sprintf("%s %d %s=%q", p.Op, p.ID, p.Key, p.Value)
	case PatchSetText, PatchCreateText:
		return fmt.Sprintf("%s %d %q", p.Op, p.ID, p.Value)
	default:
		return fmt.Sprintf("%s %d %s", p.Op, p.ID, p.Key)
	}
}

// EncodedLen returns the number of bytes encodePatch writes for p.
func (p *Patch) EncodedLen() int {
	n := 1 + UvarintLen(uint64(p.ID))
	switch p.Op {
	case PatchCreateElement, PatchRemoveAttr, PatchListen, PatchUnlisten:
		n += StringLen(p.Key)
	case PatchCreateText, PatchSetText:
		n += StringLen(p.Value)
	case PatchSetAttr:
		n += StringLen(p.Key) + StringLen(p.Value)
	case PatchAttach, PatchDetach:
		n += UvarintLen(uint64(p.Parent))
	case PatchInsert:
		n += UvarintLen(uint64(p.Parent)) + UvarintLen(uint64(p.Before))
	}
	return n
}

// PatchesFrame represents the patches of one commit with its sequence number.
type PatchesFrame struct {
	Seq     uint64
	Patches []Patch
}

// EncodePatches encodes a patches frame to bytes.
func EncodePatches(pf *PatchesFrame) []byte {
	e := NewEncoder()
	EncodePatchesTo(e, pf)
	return e.Bytes()
}

// EncodePatchesTo encodes a patches frame using the provided encoder.
func EncodePatchesTo(e *Encoder, pf *PatchesFrame) {
	e.WriteUvarint(pf.Seq)
	e.WriteUvarint(uint64(len(pf.Patches)))

	for i := range pf.Patches {
		encodePatch(e, &pf.Patches[i])
	}
}

func encodePatch(e *Encoder, p *Patch) {
	e.WriteByte(byte(p.Op))
	e.WriteID(p.ID)

	switch p.Op {
	case PatchCreateElement, PatchRemoveAttr, PatchListen, PatchUnlisten:
		e.WriteString(p.Key)

	case PatchCreateText, PatchSetText:
		e.WriteString(p.Value)

	case PatchSetAttr:
		e.WriteString(p.Key)
		e.WriteString(p.Value)

	case PatchAttach, PatchDetach:
		e.WriteID(p.Parent)

	case PatchInsert:
		e.WriteID(p.Parent)
		e.WriteID(p.Before)
	}
}

// PatchFrames splits pf into frames that each fit MaxPayloadSize. Every
// frame carries pf.Seq; all but the last have FlagMore set. flags are added
// to every frame.
func PatchFrames(pf *PatchesFrame, flags FrameFlags) ([]*Frame, error) {
	header := UvarintLen(pf.Seq) + MaxVarintLen
	var frames []*Frame
	start, size := 0, header
	flush := func(end int, more bool) {
		chunk := &PatchesFrame{Seq: pf.Seq, Patches: pf.Patches[start:end]}
		f := flags
		if more {
			f |= FlagMore
		}
		frames = append(frames, NewFrameWithFlags(FramePatches, f, EncodePatches(chunk)))
		start, size = end, header
	}
	for i := range pf.Patches {
		n := pf.Patches[i].EncodedLen()
		if header+n > MaxPayloadSize {
			return nil, fmt.Errorf("%w: %s patch for node %d", ErrFrameTooLarge, pf.Patches[i].Op, pf.Patches[i].ID)
		}
		if size+n > MaxPayloadSize || i-start == MaxPatchesPerFrame {
			flush(i, true)
		}
		size += n
	}
	flush(len(pf.Patches), false)
	return frames, nil
}

// DecodePatches decodes a patches frame from bytes.
func DecodePatches(data []byte) (*PatchesFrame, error) {
	d := NewDecoder(data)
	pf, err := DecodePatchesFrom(d)
	if err != nil {
		return nil, err
	}
	if err := d.Finish(); err != nil {
		return nil, err
	}
	return pf, nil
}

// DecodePatchesFrom decodes a patches frame from a decoder.
func DecodePatchesFrom(d *Decoder) (*PatchesFrame, error) {
	seq, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}

	count, err := d.ReadCollectionCount()
	if err != nil {
		return nil, err
	}

	pf := &PatchesFrame{
		Seq:     seq,
		Patches: make([]Patch, count),
	}
	for i := 0; i < count; i++ {
		if err := decodePatch(d, &pf.Patches[i]); err != nil {
			return nil, err
		}
	}
	return pf, nil
}

func decodePatch(d *Decoder, p *Patch) error {
	op, err := d.ReadByte()
	if err != nil {
		return err
	}
	p.Op = PatchOp(op)

	if p.ID, err = d.ReadID(); err != nil {
		return err
	}

	switch p.Op {
	case PatchCreateElement, PatchRemoveAttr, PatchListen, PatchUnlisten:
		p.Key, err = d.ReadString()

	case PatchCreateText, PatchSetText:
		p.Value, err = d.ReadString()

	case PatchSetAttr:
		if p.Key, err = d.ReadString(); err != nil {
			return err
		}
		p.Value, err = d.ReadString()

	case PatchAttach, PatchDetach:
		p.Parent, err = d.ReadID()

	case PatchInsert:
		if p.Parent, err = d.ReadID(); err != nil {
			return err
		}
		p.Before, err = d.ReadID()

	default:
		return fmt.Errorf("protocol: unknown patch op 0x%02x", op)
	}
	return err
}

// NewCreateElementPatch creates a CreateElement patch.
func NewCreateElementPatch(id uint32, tag string) Patch {
	return Patch{Op: PatchCreateElement, ID: id, Key: tag}
}

// NewCreateTextPatch creates a CreateText patch.
func NewCreateTextPatch(id uint32, text string) Patch {
	return Patch{Op: PatchCreateText, ID: id, Value: text}
}

// NewSetAttrPatch creates a SetAttr patch.
func NewSetAttrPatch(id uint32, key, value string) Patch {
	return Patch{Op: PatchSetAttr, ID: id, Key: key, Value: value}
}

// NewRemoveAttrPatch creates a RemoveAttr patch.
func NewRemoveAttrPatch(id uint32, key string) Patch {
	return Patch{Op: PatchRemoveAttr, ID: id, Key: key}
}

// NewSetTextPatch creates a SetText patch.
func NewSetTextPatch(id uint32, text string) Patch {
	return Patch{Op: PatchSetText, ID: id, Value: text}
}

// NewListenPatch creates a Listen patch.
func NewListenPatch(id uint32, event string) Patch {
	return Patch{Op: PatchListen, ID: id, Key: event}
}

// NewUnlistenPatch creates an Unlisten patch.
func NewUnlistenPatch(id uint32, event string) Patch {
	return Patch{Op: PatchUnlisten, ID: id, Key: event}
}

// NewAttachPatch creates an Attach patch.
func NewAttachPatch(id, parent uint32) Patch {
	return Patch{Op: PatchAttach, ID: id, Parent: parent}
}

// NewInsertPatch creates an Insert patch.
func NewInsertPatch(id, parent, before uint32) Patch {
	return Patch{Op: PatchInsert, ID: id, Parent: parent, Before: before}
}

// NewDetachPatch creates a Detach patch.
func NewDetachPatch(id, parent uint32) Patch {
	return Patch{Op: PatchDetach, ID: id, Parent: parent}
}
