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

// SymbolTable maps names to either a BUILTIN opcode or a CODE address (spec
// §3.4). Redefinition shadows rather than replaces: each name keeps its
// full history, and lookup always returns the most recent binding — this
// gives an O(1) shadow/restore pair for free, at the cost of never
// reclaiming old bindings, which is fine for a VM where CODE is never
// deleted either (spec §3.5).
type SymbolTable struct {
	entries map[string][]Cell
}

// NewSymbolTable returns an empty symbol table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{entries: make(map[string][]Cell)}
}

// DefineBuiltin binds name to a built-in opcode, shadowing any prior
// binding.
func (t *SymbolTable) DefineBuiltin(name string, opcode byte) {
	t.push(name, MustEncode(TagBuiltin, uint16(opcode)))
}

// DefineCode binds name to a CODE address, shadowing any prior binding.
func (t *SymbolTable) DefineCode(name string, addr uint16) {
	t.push(name, MustEncode(TagCode, addr))
}

func (t *SymbolTable) push(name string, c Cell) {
	t.entries[name] = append(t.entries[name], c)
}

// Find returns the most recent binding for name as a tagged Cell, and true
// if one exists.
func (t *SymbolTable) Find(name string) (Cell, bool) {
	chain := t.entries[name]
	if len(chain) == 0 {
		return 0, false
	}
	return chain[len(chain)-1], true
}

// FindTaggedValue is an alias for Find matching the terminology of spec
// §4.3.
func (t *SymbolTable) FindTaggedValue(name string) (Cell, bool) {
	return t.Find(name)
}
