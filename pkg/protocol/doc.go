// Package protocol implements the binary wire format spoken between a loom
// session and its thin browser client.
//
// The server never ships markup after the initial page. Every commit of the
// fiber engine is translated into a flat list of surface mutations and sent
// as a single Patches frame, so the client applies a commit atomically or
// not at all. The client answers with Event frames naming the node id the
// listener was bound to.
//
// # Wire Format
//
// All messages are framed with a 4-byte header:
//
//	┌─────────────┬──────────────┬───────────────────────────────┐
//	│ Frame Type  │ Flags        │ Payload Length                │
//	│ (1 byte)    │ (1 byte)     │ (2 bytes, big-endian)         │
//	└─────────────┴──────────────┴───────────────────────────────┘
//
// # Frame Types
//
//   - FrameEvent (0x01): client to server listener invocations
//   - FramePatches (0x02): server to client commit batches
//   - FrameControl (0x03): ping, pong and close
//   - FrameError (0x04): error report
//
// # Encoding
//
//   - Varint: node ids, sequence numbers and lengths (protobuf-style)
//   - Length-prefixed: strings prefixed with a varint length
//   - Big-endian: fixed-width integers (uint16, uint64)
//
// # Patches
//
// A patch names a surface operation and the node ids it touches:
//
//	[Op: 1 byte][ID: varint][op-specific fields]
//
// CreateElement carries a tag, SetAttr a key and a value, Attach a parent id,
// Insert a parent id and the id of the sibling to insert before.
//
// # Usage Example
//
//	pf := &PatchesFrame{
//	    Seq: 1,
//	    Patches: []Patch{
//	        NewCreateElementPatch(2, "button"),
//	        NewListenPatch(2, "click"),
//	        NewAttachPatch(2, 1),
//	    },
//	}
//	frame := NewFrame(FramePatches, EncodePatches(pf))
//
//	ev, err := DecodeEvent(payload)
package protocol
