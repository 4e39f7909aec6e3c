package bytecode

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// cborEncMode is a canonical-mode encoder so MarshalChunk produces
// deterministic bytes for the same Chunk (spec.md §5's determinism
// property extended to the debug dump).
//
// Grounded verbatim on the teacher's vm/dist/wire.go MarshalChunk pattern:
// a package-level canonical EncMode built once in init, reused by every
// Marshal call.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalChunk serializes a Chunk to CBOR bytes. This is spec.md §6's
// "persisted only for debugging; not a stable format" — no other package
// in this core reads these bytes back except UnmarshalChunk in tests and
// debug tooling.
func MarshalChunk(c *Chunk) ([]byte, error) {
	return cborEncMode.Marshal(c)
}

// UnmarshalChunk deserializes a Chunk from CBOR bytes produced by
// MarshalChunk.
func UnmarshalChunk(data []byte) (*Chunk, error) {
	var c Chunk
	if err := cbor.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal chunk: %w", err)
	}
	return &c, nil
}
