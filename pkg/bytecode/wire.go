package bytecode

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// BytecodeVersion is the current serialized format version.
// Increment when making incompatible changes to the format.
const BytecodeVersion uint16 = 1

// BytecodeMagic prefixes every serialized chunk: "CLBC" (CLove ByteCode).
var BytecodeMagic = []byte{'C', 'L', 'B', 'C'}

var (
	// ErrBadMagic is returned when data does not start with BytecodeMagic.
	ErrBadMagic = errors.New("bytecode: bad magic")
	// ErrVersion is returned for data written by an incompatible version.
	ErrVersion = errors.New("bytecode: unsupported version")
)

const headerLen = 6 // magic + uint16 version

// wireChunk is the CBOR payload following the header.
type wireChunk struct {
	Code      []byte    `cbor:"code"`
	Lines     []int     `cbor:"lines"`
	Constants []float64 `cbor:"constants"`
}

// cborEncMode uses canonical mode for deterministic encoding, so identical
// chunks serialize to identical bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Marshal serializes a chunk to bytes.
func Marshal(c *Chunk) ([]byte, error) {
	payload, err := cborEncMode.Marshal(wireChunk{
		Code:      c.Code(),
		Lines:     c.Lines(),
		Constants: c.Constants(),
	})
	if err != nil {
		return nil, fmt.Errorf("bytecode: marshal chunk: %w", err)
	}

	var buf bytes.Buffer
	buf.Grow(headerLen + len(payload))
	buf.Write(BytecodeMagic)
	binary.Write(&buf, binary.BigEndian, BytecodeVersion)
	buf.Write(payload)
	return buf.Bytes(), nil
}

// Unmarshal deserializes and validates a chunk.
func Unmarshal(data []byte) (*Chunk, error) {
	if len(data) < headerLen || !bytes.Equal(data[:4], BytecodeMagic) {
		return nil, ErrBadMagic
	}
	version := binary.BigEndian.Uint16(data[4:headerLen])
	if version != BytecodeVersion {
		return nil, fmt.Errorf("%w: %d (want %d)", ErrVersion, version, BytecodeVersion)
	}

	var w wireChunk
	if err := cbor.Unmarshal(data[headerLen:], &w); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal chunk: %w", err)
	}
	if len(w.Code) != len(w.Lines) {
		return nil, fmt.Errorf("bytecode: unmarshal chunk: %d code bytes but %d lines", len(w.Code), len(w.Lines))
	}
	if len(w.Constants) > MaxConstants {
		return nil, fmt.Errorf("bytecode: unmarshal chunk: %w", ErrTooManyConstants)
	}

	c := NewChunk()
	for i, b := range w.Code {
		if err := c.Write(b, w.Lines[i]); err != nil {
			return nil, err
		}
	}
	for _, v := range w.Constants {
		if err := c.constants.Append(v); err != nil {
			return nil, fmt.Errorf("bytecode: unmarshal chunk: %w", err)
		}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
