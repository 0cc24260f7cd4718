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

import "github.com/pkg/errors"

// Run executes CODE starting at entry until an exit executes with RSTACK
// at its depth from the start of this call (a clean top-level exit, spec
// §4.7) or a structural error aborts evaluation. On error, IP, SP and RSP are reset to
// their values from the start of this call (spec §7's "reset to the
// top-level's saved marks"); CODE and STRING are never corrupted by a
// runtime error.
func (i *Instance) Run(entry int) (err error) {
	savedIP, savedSP, savedRSP := i.IP, i.SP, i.RSP
	i.IP = entry
	i.insCount = 0

	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = errors.Wrap(e, "panic during evaluation")
			} else {
				err = errf(Structural, "panic during evaluation: %v", r)
			}
		}
		if err != nil {
			i.IP, i.SP, i.RSP = savedIP, savedSP, savedRSP
		}
	}()

	floor := savedRSP
	for {
		if i.RSP < floor {
			// EXIT underflowed below our own call frame: a nested Run
			// popped more than it pushed, which is a bug in caller
			// bookkeeping, not a clean top-level exit.
			return errf(Structural, "return stack underflow below call floor")
		}
		b0, err := i.Mem.Code.Read8(i.IP)
		if err != nil {
			return errors.Wrap(err, "instruction pointer out of bounds")
		}
		if b0 < formBThreshold {
			i.IP++
			op := Op(b0)
			if int(op) >= len(i.builtins) || i.builtins[op] == nil {
				return errf(Structural, "undefined opcode %d", b0)
			}
			if op == OpExit && i.RSP == floor {
				// Clean top-level termination (spec §4.7).
				return nil
			}
			if err := i.builtins[op](i); err != nil {
				return err
			}
		} else {
			b1, err := i.Mem.Code.Read8(i.IP + 1)
			if err != nil {
				return errors.Wrap(err, "instruction pointer out of bounds")
			}
			addr := DecodeCall(b0, b1)
			i.IP += 2
			if err := i.RPush(EncodeNumber(float32(i.IP))); err != nil {
				return err
			}
			i.IP = int(addr)
		}
		i.insCount++
	}
}

// Eval implements the unified code-reference dispatch of spec §4.7: pop a
// cell and invoke it as BUILTIN (direct handler call, no RSTACK frame) or
// CODE (push IP, jump). Any other tag is a structural error.
func (i *Instance) Eval() error {
	c, err := i.Pop()
	if err != nil {
		return err
	}
	tag, value := Decode(c)
	switch tag {
	case TagBuiltin:
		if int(value) >= len(i.builtins) || i.builtins[value] == nil {
			return errf(Structural, "undefined builtin opcode %d", value)
		}
		return i.builtins[value](i)
	case TagCode:
		if err := i.RPush(EncodeNumber(float32(i.IP))); err != nil {
			return err
		}
		i.IP = int(value)
		return nil
	default:
		return errf(Structural, "eval: cannot invoke a %s cell", tag)
	}
}
