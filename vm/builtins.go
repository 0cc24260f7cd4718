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

package vm

// installBuiltins wires every Op in opcodes.go to its handler. Handlers
// with an inline operand (lit_number, lit_string, lit_code_ref,
// push_symbol_ref, branch, branch_if_false) are responsible for reading
// their own operand bytes out of CODE and advancing IP past them; the
// dispatch loop in Run only ever advances IP past the single opcode byte
// before calling the handler.
func (i *Instance) installBuiltins() {
	i.builtins[OpNop] = opNop
	i.builtins[OpLitNumber] = opLitNumber
	i.builtins[OpLitString] = opLitString
	i.builtins[OpLitCodeRef] = opLitCodeRef
	i.builtins[OpPushSymbolRef] = opPushSymbolRef
	i.builtins[OpAdd] = arith(func(a, b float32) float32 { return a + b })
	i.builtins[OpSub] = arith(func(a, b float32) float32 { return a - b })
	i.builtins[OpMul] = arith(func(a, b float32) float32 { return a * b })
	i.builtins[OpDiv] = arith(func(a, b float32) float32 { return a / b })
	i.builtins[OpDup] = opDup
	i.builtins[OpDrop] = opDrop
	i.builtins[OpSwap] = opSwap
	i.builtins[OpOver] = opOver
	i.builtins[OpRot] = opRot
	i.builtins[OpPick] = opPick
	i.builtins[OpEval] = func(i *Instance) error { return i.Eval() }
	i.builtins[OpExit] = opExit
	i.builtins[OpBranch] = opBranch
	i.builtins[OpBranchIfFalse] = opBranchIfFalse
	i.builtins[OpListOpen] = opListOpen
	i.builtins[OpListClose] = opListClose
	i.builtins[OpListLength] = opListLength
	i.builtins[OpListHead] = opListHead
	i.builtins[OpListTail] = opListTail
	i.builtins[OpListUncons] = opListUncons
	i.builtins[OpListCons] = opListCons
	i.builtins[OpListConcat] = opListConcat
	i.builtins[OpListGetAt] = opListGetAt
	i.builtins[OpListSetAt] = opListSetAt
	i.builtins[OpListFind] = opListFind
}

func opNop(i *Instance) error { return nil }

func (i *Instance) readOperand(width int) ([]byte, error) {
	buf := make([]byte, width)
	for k := 0; k < width; k++ {
		b, err := i.Mem.Code.Read8(i.IP + k)
		if err != nil {
			return nil, err
		}
		buf[k] = b
	}
	i.IP += width
	return buf, nil
}

func opLitNumber(i *Instance) error {
	buf, err := i.readOperand(4)
	if err != nil {
		return err
	}
	bits := uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24
	return i.Push(Cell(bits))
}

func opLitString(i *Instance) error {
	buf, err := i.readOperand(2)
	if err != nil {
		return err
	}
	off := uint16(buf[0]) | uint16(buf[1])<<8
	c, err := Encode(TagString, off)
	if err != nil {
		return err
	}
	return i.Push(c)
}

func opLitCodeRef(i *Instance) error {
	buf, err := i.readOperand(2)
	if err != nil {
		return err
	}
	addr := uint16(buf[0]) | uint16(buf[1])<<8
	c, err := Encode(TagCode, addr)
	if err != nil {
		return err
	}
	return i.Push(c)
}

func opPushSymbolRef(i *Instance) error {
	buf, err := i.readOperand(3)
	if err != nil {
		return err
	}
	tag := Tag(buf[0])
	value := uint16(buf[1]) | uint16(buf[2])<<8
	c, err := Encode(tag, value)
	if err != nil {
		return err
	}
	return i.Push(c)
}

// arith builds a handler for a binary NUMBER operation: (a b -- f(a,b)).
// Both operands must decode as NUMBER; tagged values are not implicitly
// coerced, since INTEGER/SYMBOL/etc. index or name things rather than
// measure them (spec §4.1).
func arith(f func(a, b float32) float32) BuiltinFunc {
	return func(i *Instance) error {
		b, err := i.Pop()
		if err != nil {
			return err
		}
		a, err := i.Pop()
		if err != nil {
			return err
		}
		if tag, _ := Decode(a); tag != TagNumber {
			return errf(Structural, "arithmetic operand is not a NUMBER: %s", tag)
		}
		if tag, _ := Decode(b); tag != TagNumber {
			return errf(Structural, "arithmetic operand is not a NUMBER: %s", tag)
		}
		return i.Push(EncodeNumber(f(Float(a), Float(b))))
	}
}

// dup/drop/swap/over/rot/pick all move whole compounds, not a single cell:
// a LIST on the stack is its header plus span-1 payload cells beneath it,
// and reshuffling must keep a compound's cells together (spec §9 design
// notes). Each handler below locates the relevant element(s) with
// stackElementAt and moves the full span.

func opDup(i *Instance) error {
	topOff, span, err := i.stackElementAt(0)
	if err != nil {
		return err
	}
	return i.copySpan(topOff, span)
}

func opDrop(i *Instance) error {
	topOff, span, err := i.stackElementAt(0)
	if err != nil {
		return err
	}
	i.SP = topOff - (span-1)*4
	return nil
}

func opSwap(i *Instance) error {
	off1, span1, err := i.stackElementAt(0)
	if err != nil {
		return err
	}
	off2, span2, err := i.stackElementAt(1)
	if err != nil {
		return err
	}
	base1 := off1 - (span1-1)*4
	base2 := off2 - (span2-1)*4
	save1, err := i.readSpan(base1, span1)
	if err != nil {
		return err
	}
	save2, err := i.readSpan(base2, span2)
	if err != nil {
		return err
	}
	if err := i.writeSpan(base2, save1); err != nil {
		return err
	}
	return i.writeSpan(base2+span1*4, save2)
}

func opOver(i *Instance) error {
	off, span, err := i.stackElementAt(1)
	if err != nil {
		return err
	}
	return i.copySpan(off, span)
}

func opRot(i *Instance) error {
	off1, span1, err := i.stackElementAt(0) // c, top
	if err != nil {
		return err
	}
	off2, span2, err := i.stackElementAt(1) // b
	if err != nil {
		return err
	}
	off3, span3, err := i.stackElementAt(2) // a
	if err != nil {
		return err
	}
	base1 := off1 - (span1-1)*4
	base2 := off2 - (span2-1)*4
	base3 := off3 - (span3-1)*4
	c, err := i.readSpan(base1, span1)
	if err != nil {
		return err
	}
	b, err := i.readSpan(base2, span2)
	if err != nil {
		return err
	}
	a, err := i.readSpan(base3, span3)
	if err != nil {
		return err
	}
	pos := base3
	if err := i.writeSpan(pos, b); err != nil {
		return err
	}
	pos += span2 * 4
	if err := i.writeSpan(pos, c); err != nil {
		return err
	}
	pos += span1 * 4
	return i.writeSpan(pos, a)
}

func opPick(i *Instance) error {
	n, err := i.Pop()
	if err != nil {
		return err
	}
	idx, ok := indexFromCell(n)
	if !ok || idx < 0 {
		return errf(Structural, "pick: index operand is not a valid NUMBER/INTEGER")
	}
	off, span, err := i.stackElementAt(idx)
	if err != nil {
		return err
	}
	return i.copySpan(off, span)
}

// opExit pops a return address pushed by a Form B call or Eval's CODE
// branch and resumes there. The top-level clean-exit case (RSP already at
// the call floor) is special-cased in Run and never reaches this handler.
func opExit(i *Instance) error {
	c, err := i.RPop()
	if err != nil {
		return err
	}
	tag, _ := Decode(c)
	if tag != TagNumber {
		return errf(Structural, "exit: corrupt return address on RSTACK")
	}
	i.IP = int(Float(c))
	return nil
}

func opBranch(i *Instance) error {
	buf, err := i.readOperand(2)
	if err != nil {
		return err
	}
	i.IP = int(uint16(buf[0]) | uint16(buf[1])<<8)
	return nil
}

func opBranchIfFalse(i *Instance) error {
	buf, err := i.readOperand(2)
	if err != nil {
		return err
	}
	target := int(uint16(buf[0]) | uint16(buf[1])<<8)
	c, err := i.Pop()
	if err != nil {
		return err
	}
	if !IsTruthy(c) {
		i.IP = target
	}
	return nil
}
