package vm

import "github.com/holiman/uint256"

// stackLimit is the maximum number of slots a frame's stack may hold.
// Pushing past this is a stack-overflow fault (spec.md §7).
const stackLimit = 1024

// Stack is a per-frame operand stack of 256-bit words, backed directly by
// *uint256.Int the way go-ethereum's interpreter pushes/pops (see
// core/vm/stack_test.go's BenchmarkStackPush/Pop).
type Stack struct {
	data []uint256.Int
}

func newstack() *Stack {
	return &Stack{data: make([]uint256.Int, 0, 16)}
}

func (s *Stack) push(v *uint256.Int) {
	s.data = append(s.data, *v)
}

func (s *Stack) pop() uint256.Int {
	v := s.data[len(s.data)-1]
	s.data = s.data[:len(s.data)-1]
	return v
}

func (s *Stack) len() int { return len(s.data) }

// peek returns the top of the stack without popping it.
func (s *Stack) peek() *uint256.Int {
	return &s.data[len(s.data)-1]
}

// back returns the n-th item from the top (0 = top), without popping.
func (s *Stack) back(n int) *uint256.Int {
	return &s.data[len(s.data)-1-n]
}

// swap exchanges the top item with the item n below it (SWAP1 => n=1).
func (s *Stack) swap(n int) {
	top := len(s.data) - 1
	s.data[top], s.data[top-n] = s.data[top-n], s.data[top]
}

// dup pushes a copy of the n-th item from the top (DUP1 => n=1).
func (s *Stack) dup(n int) {
	v := s.data[len(s.data)-n]
	s.data = append(s.data, v)
}
