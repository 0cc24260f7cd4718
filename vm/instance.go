// This file is part of tacitus.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package vm implements the tacitus core: the NaN-boxed cell codec, the
// four-segment memory image, the symbol table, the bytecode interpreter and
// its list runtime.
//
// The REPL, a file-processing driver, value printing and any
// object-dispatch ("capsule") layer are explicitly out of scope for this
// package; they are external collaborators built on top of the surface
// exposed here (New, Instance.Compile-adjacent helpers in package compiler,
// Instance.Run, Instance.Stack).
package vm

import "github.com/pkg/errors"

// BuiltinFunc implements one built-in opcode's behavior against an
// Instance. It is responsible for leaving IP correctly advanced for opcodes
// with inline operands (OpLitNumber, OpLitString, OpBranch, ...); the
// dispatch loop only advances IP past the opcode byte itself before
// calling the handler.
type BuiltinFunc func(i *Instance) error

// Instance is one VM: its memory image, symbol table, registers and
// built-in opcode handler table. Instances share no state — running two
// programs concurrently means constructing two Instances (spec §5).
type Instance struct {
	Mem *Memory
	Sym *SymbolTable

	IP  int // byte offset into CODE, next opcode to fetch
	SP  int // byte offset into STACK, one past top-of-stack
	RSP int // byte offset into RSTACK, one past top-of-stack

	builtins [formBThreshold]BuiltinFunc

	insCount int64
}

// New constructs an Instance over mem with the standard vocabulary of
// built-in opcodes installed (spec §3.4's "initialized at startup with the
// built-in vocabulary").
func New(mem *Memory) *Instance {
	i := &Instance{Mem: mem, Sym: NewSymbolTable()}
	i.installBuiltins()
	for op := Op(0); int(op) < len(opcodeNames); op++ {
		if opcodeNames[op] != "" {
			i.Sym.DefineBuiltin(opcodeNames[op], byte(op))
		}
	}
	return i
}

// DefineBuiltin lets a host register an additional built-in, per spec §6
// "Symbol definition". fn replaces any handler already installed at opcode.
func (i *Instance) DefineBuiltin(name string, opcode byte, fn BuiltinFunc) error {
	if int(opcode) >= len(i.builtins) {
		return errf(Structural, "opcode %d out of Form A range", opcode)
	}
	i.builtins[opcode] = fn
	i.Sym.DefineBuiltin(name, opcode)
	return nil
}

// InstructionCount returns the number of opcodes dispatched by the most
// recent Run; each Run resets it to 0.
func (i *Instance) InstructionCount() int64 { return i.insCount }

// --- operand stack ---

// Push pushes a cell onto STACK.
func (i *Instance) Push(c Cell) error {
	if err := i.Mem.Stack.WriteCell(i.SP, c); err != nil {
		return errors.Wrap(err, "stack overflow")
	}
	i.SP += 4
	return nil
}

// Pop pops and returns the top cell of STACK.
func (i *Instance) Pop() (Cell, error) {
	if i.SP < 4 {
		return 0, errf(Structural, "stack underflow")
	}
	i.SP -= 4
	return i.Mem.Stack.ReadCell(i.SP)
}

// Peek returns the top cell of STACK without popping it.
func (i *Instance) Peek() (Cell, error) {
	if i.SP < 4 {
		return 0, errf(Structural, "stack underflow")
	}
	return i.Mem.Stack.ReadCell(i.SP - 4)
}

// PeekAt returns the cell at depth d below the top (0 = top-of-stack).
func (i *Instance) PeekAt(d int) (Cell, error) {
	off := i.SP - 4*(d+1)
	if off < 0 {
		return 0, errf(Structural, "stack underflow at depth %d", d)
	}
	return i.Mem.Stack.ReadCell(off)
}

// Depth returns the number of cells currently on STACK.
func (i *Instance) Depth() int { return i.SP / 4 }

// Stack returns the current operand-stack contents, bottom first, for
// REPL/print collaborators and tests (spec §6 "Stack inspection").
func (i *Instance) Stack() []Cell {
	out := make([]Cell, i.SP/4)
	for k := range out {
		out[k], _ = i.Mem.Stack.ReadCell(k * 4)
	}
	return out
}

// --- return/control stack ---

// RPush pushes a cell onto RSTACK.
func (i *Instance) RPush(c Cell) error {
	if err := i.Mem.RStack.WriteCell(i.RSP, c); err != nil {
		return errors.Wrap(err, "return stack overflow")
	}
	i.RSP += 4
	return nil
}

// RPop pops and returns the top cell of RSTACK.
func (i *Instance) RPop() (Cell, error) {
	if i.RSP < 4 {
		return 0, errf(Structural, "return stack underflow")
	}
	i.RSP -= 4
	return i.Mem.RStack.ReadCell(i.RSP)
}

// RDepth returns the number of cells currently on RSTACK.
func (i *Instance) RDepth() int { return i.RSP / 4 }
