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

// Package compiler compiles tacitus source text into the bytecode of a
// vm.Instance's CODE segment.
//
// The language is whitespace-tokenized and Forth-like: a program is a
// sequence of words, number and string literals, list literals and colon
// definitions, read and compiled in a single left-to-right pass.
//
//	NUMBER			compiles as lit_number (an implicit literal, no
//				mnemonic required)
//	"a string"		compiles as lit_string, interning the text into
//				STRING
//	@name			compiles as push_symbol_ref: the named builtin
//				or word, as a first-class BUILTIN or CODE
//				value, without calling it
//	word			calls word: a single Form A byte for a builtin,
//				a two-byte Form B direct call for a
//				colon-defined word
//	[ a b c ]		compiles a list literal. Elements are compiled
//				in reverse source order so that, at runtime,
//				the first-written element ends up adjacent to
//				the LIST header — index 0 (see the list-layout
//				comment in vm/list.go). Elements may be numbers, strings, @refs
//				or nested list literals; bare words are not
//				permitted inside a list literal.
//	: name ... ;		defines name as a new word: its body compiles
//				inline behind a branch that skips it at run
//				time, with an implicit exit appended at ';'.
//				Forward
//				references (calling name before its
//				definition) are patched once the definition
//				closes.
//	if ... then
//	if ... else ... then	a runtime conditional, compiling to
//				branch_if_false/branch pairs patched against
//				the enclosing if/else/then nesting.
//	// comment		a line comment, skipped to end of line
//
// The text/scanner-based tokenizer and the forward-reference patching it
// does for colon definitions follow the shape of the ngaro assembler this
// package was adapted from; the grammar itself is a different, list-aware
// language built for NaN-boxed cells rather than bare machine words.
package compiler

import (
	"io"

	"github.com/jhlagado/tacitus/vm"
)

// Compile reads tacitus source from r and compiles it into i's CODE
// segment, always starting at CODE offset 0: the Instance keeps no compile
// cursor between calls, so a second Compile into the same Instance
// overwrites the CODE of the first. name is used only in error positions;
// pass a file name or "<stdin>".
//
// On success it returns the CODE offset of the first compiled
// instruction, suitable as the entry argument to Instance.Run. An exit is
// appended after the last top-level token so Run returns cleanly instead
// of falling off the end of CODE. On error
// the returned error can be type-asserted to ErrList for up to 10
// positioned diagnostics; i's CODE segment should be discarded, since a
// partially compiled program may contain unresolved forward-reference
// placeholders.
func Compile(i *vm.Instance, name string, r io.Reader) (entry int, err error) {
	p := newParser(i)
	entry = p.pc
	p.parse(name, r)
	if len(p.errs) > 0 {
		return 0, p.errs
	}
	return entry, nil
}
