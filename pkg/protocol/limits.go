package protocol

// Decoding limits. Client frames are untrusted, so every length prefix is
// checked before anything is allocated.
const (
	// MaxStringLen caps any single length-prefixed string.
	MaxStringLen = MaxPayloadSize

	// MaxPatchesPerFrame caps the patch count of one Patches frame.
	MaxPatchesPerFrame = 16_384

	// MaxEventNameLen caps event names sent by the client.
	MaxEventNameLen = 64

	// MaxEventValueLen caps the value carried by an input or change event.
	MaxEventValueLen = 16 * 1024
)
