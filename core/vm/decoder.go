package vm

import "sort"

// Instruction is a single decoded opcode: its byte, its byte-offset in the
// original bytecode, and — for PUSH1..PUSH32 — the immediate operand it
// consumed during decoding.
type Instruction struct {
	Op     OpCode
	Offset uint64
	Data   []byte // immediate operand for PUSH1..PUSH32, nil otherwise
}

// Bytecode is the result of decoding raw contract code: the ordered
// instruction sequence plus a jump table mapping every JUMPDEST's
// byte-offset to its index in Instructions, sorted by offset.
type Bytecode struct {
	Raw          []byte
	Instructions []Instruction
	jumpdests    map[uint64]int
	byOffset     map[uint64]int
}

// Decode performs a single linear pass over raw bytecode, splitting it into
// an ordered instruction sequence and a JUMPDEST table. PUSH opcodes
// consume their immediate operand during this pass so that operand bytes
// are never misinterpreted as opcodes. A truncated PUSH at the end of the
// bytecode has its operand zero-padded to its nominal length. Unknown
// opcodes are kept as-is (OpCode.String reports them as "INVALID"); they
// only fault the frame if actually reached during execution.
func Decode(code []byte) *Bytecode {
	bc := &Bytecode{
		Raw:       code,
		jumpdests: make(map[uint64]int),
		byOffset:  make(map[uint64]int),
	}
	for i := 0; i < len(code); {
		op := OpCode(code[i])
		offset := uint64(i)
		inst := Instruction{Op: op, Offset: offset}
		bc.byOffset[offset] = len(bc.Instructions)
		if n := op.PushSize(); n > 0 {
			data := make([]byte, n)
			avail := len(code) - (i + 1)
			if avail > n {
				avail = n
			}
			if avail > 0 {
				copy(data, code[i+1:i+1+avail])
			}
			inst.Data = data
			i += 1 + n
		} else {
			if op == JUMPDEST {
				bc.jumpdests[offset] = len(bc.Instructions)
			}
			i++
		}
		bc.Instructions = append(bc.Instructions, inst)
	}
	return bc
}

// InstructionAt returns the decoded instruction whose byte-offset is
// offset, and its index into Instructions. ok is false if offset is past
// the end of the code (normal termination) or falls inside a multi-byte
// PUSH operand (an invalid jump target).
func (bc *Bytecode) InstructionAt(offset uint64) (Instruction, int, bool) {
	idx, ok := bc.byOffset[offset]
	if !ok {
		return Instruction{}, 0, false
	}
	return bc.Instructions[idx], idx, true
}

// JumpdestOffsets returns the sorted byte-offsets of every JUMPDEST,
// matching §4.2's "sorted (byte_offset -> instruction_index) table".
func (bc *Bytecode) JumpdestOffsets() []uint64 {
	offsets := make([]uint64, 0, len(bc.jumpdests))
	for off := range bc.jumpdests {
		offsets = append(offsets, off)
	}
	sort.Slice(offsets, func(i, j int) bool { return offsets[i] < offsets[j] })
	return offsets
}

// ValidJumpdest reports whether offset is the byte-offset of a JUMPDEST
// instruction, and if so returns its index into Instructions.
func (bc *Bytecode) ValidJumpdest(offset uint64) (int, bool) {
	idx, ok := bc.jumpdests[offset]
	return idx, ok
}

// Len returns the number of decoded instructions.
func (bc *Bytecode) Len() int { return len(bc.Instructions) }
