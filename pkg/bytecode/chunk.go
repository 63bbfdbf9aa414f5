package bytecode

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/clove/pkg/growable"
)

// MaxConstants is the size of a chunk's constant pool. OpConst addresses the
// pool with a single byte.
const MaxConstants = 256

// ErrTooManyConstants is returned by AddConstant when the pool is full.
var ErrTooManyConstants = errors.New("bytecode: too many constants in one chunk")

// Value is the runtime representation of every value the VM handles.
type Value = float64

// ChunkOption configures a Chunk.
type ChunkOption func(*chunkConfig)

type chunkConfig struct {
	codeLimit int
}

// WithCodeLimit caps the number of code bytes a chunk may hold.
func WithCodeLimit(n int) ChunkOption {
	return func(c *chunkConfig) { c.codeLimit = n }
}

// Chunk is a unit of compiled bytecode: instruction bytes, a parallel
// line-number map with one entry per byte, and a constant pool.
type Chunk struct {
	code      *growable.Array[byte]
	lines     *growable.Array[int]
	constants *growable.Array[Value]
}

// NewChunk creates a new empty chunk.
func NewChunk(opts ...ChunkOption) *Chunk {
	var cfg chunkConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Chunk{
		code:      growable.New[byte](growable.WithLimit(cfg.codeLimit)),
		lines:     growable.New[int](growable.WithLimit(cfg.codeLimit)),
		constants: growable.New[Value](growable.WithLimit(MaxConstants)),
	}
}

// Write appends one byte of code along with the source line it came from.
func (c *Chunk) Write(b byte, line int) error {
	if err := c.code.Append(b); err != nil {
		return fmt.Errorf("bytecode: write: %w", err)
	}
	if err := c.lines.Append(line); err != nil {
		return fmt.Errorf("bytecode: write line: %w", err)
	}
	return nil
}

// WriteOp appends a single opcode byte.
func (c *Chunk) WriteOp(op Opcode, line int) error {
	return c.Write(byte(op), line)
}

// AddConstant adds a value to the pool and returns its index.
// If an identical value is already pooled, its index is returned instead.
func (c *Chunk) AddConstant(v Value) (int, error) {
	bits := math.Float64bits(v)
	for i, existing := range c.constants.Items() {
		if math.Float64bits(existing) == bits {
			return i, nil
		}
	}
	if c.constants.Len() >= MaxConstants {
		return 0, ErrTooManyConstants
	}
	if err := c.constants.Append(v); err != nil {
		return 0, fmt.Errorf("bytecode: add constant: %w", err)
	}
	return c.constants.Len() - 1, nil
}

// Len returns the number of code bytes.
func (c *Chunk) Len() int { return c.code.Len() }

// Code returns the code bytes. The slice aliases the chunk's storage.
func (c *Chunk) Code() []byte { return c.code.Items() }

// Lines returns the line map, one entry per code byte.
func (c *Chunk) Lines() []int { return c.lines.Items() }

// Constants returns the constant pool.
func (c *Chunk) Constants() []Value { return c.constants.Items() }

// ConstantCount returns the number of pooled constants.
func (c *Chunk) ConstantCount() int { return c.constants.Len() }

// Line returns the source line of the byte at offset.
func (c *Chunk) Line(offset int) int { return c.lines.At(offset) }

// Constant returns the pooled value at index.
// Panics if the index is out of bounds.
func (c *Chunk) Constant(index int) Value { return c.constants.At(index) }

// Free releases the code, lines and constants together and leaves the chunk
// empty and reusable.
func (c *Chunk) Free() {
	c.code.Free()
	c.lines.Free()
	c.constants.Free()
}

// Validate checks the structural invariants of a chunk that did not come
// straight from the compiler: the line map is parallel to the code, every
// opcode is known and has its operands, constant operands are in range, no
// instruction pops more values than the code before it pushed, and the code
// ends in OpReturn. OpReturn on an empty stack is allowed and yields 0.
func (c *Chunk) Validate() error {
	code := c.Code()
	if len(code) != c.lines.Len() {
		return fmt.Errorf("bytecode: %d code bytes but %d line entries", len(code), c.lines.Len())
	}
	if c.constants.Len() > MaxConstants {
		return fmt.Errorf("bytecode: %d constants exceeds %d", c.constants.Len(), MaxConstants)
	}
	if len(code) == 0 {
		return errors.New("bytecode: empty chunk")
	}

	var last Opcode
	depth, reachable := 0, true
	for offset := 0; offset < len(code); {
		op := Opcode(code[offset])
		info, ok := LookupOpcode(op)
		if !ok {
			return fmt.Errorf("bytecode: unknown opcode %d at offset %d", byte(op), offset)
		}
		if offset+info.OperandLen >= len(code) {
			return fmt.Errorf("bytecode: truncated %s at offset %d", info.Name, offset)
		}
		if op == OpConst {
			idx := int(code[offset+1])
			if idx >= c.constants.Len() {
				return fmt.Errorf("bytecode: constant index %d out of range at offset %d", idx, offset)
			}
		}
		if reachable && op != OpReturn {
			if depth < info.StackPop {
				return fmt.Errorf("bytecode: stack underflow at offset %d (%s)", offset, info.Name)
			}
			depth += info.StackPush - info.StackPop
		}
		if op == OpReturn {
			reachable = false
		}
		last = op
		offset += 1 + info.OperandLen
	}
	if last != OpReturn {
		return fmt.Errorf("bytecode: chunk does not end in %s", OpReturn)
	}
	return nil
}
