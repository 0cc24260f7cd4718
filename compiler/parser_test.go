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

package compiler_test

import (
	"strings"
	"testing"

	"github.com/jhlagado/tacitus/compiler"
	"github.com/jhlagado/tacitus/vm"
)

// run compiles src and runs it to completion, returning the final
// operand stack bottom-first.
func run(t *testing.T, src string) []vm.Cell {
	t.Helper()
	inst := vm.New(vm.NewMemory())
	entry, err := compiler.Compile(inst, "test", strings.NewReader(src))
	if err != nil {
		t.Fatalf("compile %q: %v", src, err)
	}
	if err := inst.Run(entry); err != nil {
		t.Fatalf("run %q: %v", src, err)
	}
	return inst.Stack()
}

func wantNumber(t *testing.T, c vm.Cell, want float32) {
	t.Helper()
	tag, _ := vm.Decode(c)
	if tag != vm.TagNumber {
		t.Fatalf("cell tag = %s, want NUMBER", tag)
	}
	if got := vm.Float(c); got != want {
		t.Fatalf("cell value = %v, want %v", got, want)
	}
}

func wantInt(t *testing.T, c vm.Cell, want uint16) {
	t.Helper()
	tag, value := vm.Decode(c)
	if tag != vm.TagInteger {
		t.Fatalf("cell tag = %s, want INTEGER", tag)
	}
	if value != want {
		t.Fatalf("cell value = %d, want %d", value, want)
	}
}

func TestArithmetic(t *testing.T) {
	stack := run(t, "3 4 +")
	if len(stack) != 1 {
		t.Fatalf("stack depth = %d, want 1", len(stack))
	}
	wantNumber(t, stack[0], 7)
}

func TestStackShuffling(t *testing.T) {
	stack := run(t, "1 2 swap")
	if len(stack) != 2 {
		t.Fatalf("stack depth = %d, want 2", len(stack))
	}
	wantNumber(t, stack[0], 2)
	wantNumber(t, stack[1], 1)

	stack = run(t, "1 2 over")
	if len(stack) != 3 {
		t.Fatalf("stack depth = %d, want 3", len(stack))
	}
	wantNumber(t, stack[2], 1)
}

func TestColonDefinitionAndRecursionlessCall(t *testing.T) {
	stack := run(t, ": double dup + ; 21 double")
	if len(stack) != 1 {
		t.Fatalf("stack depth = %d, want 1", len(stack))
	}
	wantNumber(t, stack[0], 42)
}

func TestForwardReference(t *testing.T) {
	stack := run(t, ": a b ; : b 5 ; a")
	if len(stack) != 1 {
		t.Fatalf("stack depth = %d, want 1", len(stack))
	}
	wantNumber(t, stack[0], 5)
}

func TestConditional(t *testing.T) {
	stack := run(t, "0 if 111 else 222 then")
	if len(stack) != 1 {
		t.Fatalf("stack depth = %d, want 1", len(stack))
	}
	wantNumber(t, stack[0], 222)

	stack = run(t, "5 if 111 else 222 then")
	wantNumber(t, stack[0], 111)

	stack = run(t, "0 if 111 then")
	if len(stack) != 0 {
		t.Fatalf("stack depth = %d, want 0 (no else branch taken)", len(stack))
	}
}

func TestStandaloneBlockEval(t *testing.T) {
	stack := run(t, "( 1 2 + ) eval")
	if len(stack) != 1 {
		t.Fatalf("stack depth = %d, want 1", len(stack))
	}
	wantNumber(t, stack[0], 3)
}

// A LIST value is never one stack slot: under the reverse-header layout
// its header cell sits on top of its whole payload, so "[ 1 2 3 ]" alone
// already occupies 4 cells (3 payload + 1 header). These tests size the
// stack accordingly instead of treating a list as a single cell.

func TestListLiteralOrderAndLength(t *testing.T) {
	stack := run(t, "[ 1 2 3 ] length")
	if len(stack) != 5 {
		t.Fatalf("stack depth = %d, want 5 (3 payload + header + length)", len(stack))
	}
	wantInt(t, stack[4], 3)

	stack = run(t, "[ 1 2 3 ] head")
	if len(stack) != 5 {
		t.Fatalf("stack depth = %d, want 5 (3 payload + header + head)", len(stack))
	}
	wantNumber(t, stack[4], 1) // index 0 is the first-written element
}

func TestListTailAndUncons(t *testing.T) {
	stack := run(t, "[ 1 2 3 ] tail length")
	if len(stack) != 4 {
		t.Fatalf("stack depth = %d, want 4 (2 payload + header + length)", len(stack))
	}
	wantInt(t, stack[3], 2)

	stack = run(t, "[ 1 2 3 ] uncons")
	if len(stack) != 4 {
		t.Fatalf("stack depth = %d, want 4 (2 payload + header + x)", len(stack))
	}
	wantNumber(t, stack[3], 1)
}

func TestListCons(t *testing.T) {
	// cons expects (L x -- L'): L pushed first, x on top.
	stack := run(t, "[ 1 2 3 ] 4 cons head")
	if len(stack) != 6 {
		t.Fatalf("stack depth = %d, want 6 (4 payload + header + head)", len(stack))
	}
	wantNumber(t, stack[5], 4) // 4 is the new index-0 element

	stack = run(t, "[ 1 2 3 ] 4 cons length")
	if len(stack) != 6 {
		t.Fatalf("stack depth = %d, want 6", len(stack))
	}
	wantInt(t, stack[5], 4)
}

func TestListConcat(t *testing.T) {
	stack := run(t, "[ 1 2 ] [ 3 4 ] concat length")
	if len(stack) != 6 {
		t.Fatalf("stack depth = %d, want 6 (4 payload + header + length)", len(stack))
	}
	wantInt(t, stack[5], 4)

	// concat keeps L1's cells at the base of the joined region and shifts
	// L2's down to sit just under the new header, so the result reads
	// back as L2's elements followed by L1's (see opListConcat's doc).
	stack = run(t, "[ 1 2 ] [ 3 4 ] concat head")
	if len(stack) != 6 {
		t.Fatalf("stack depth = %d, want 6", len(stack))
	}
	wantNumber(t, stack[5], 3)
}

func TestListGetAtBoundary(t *testing.T) {
	stack := run(t, "[ 1 2 3 ] 0 get-at")
	if len(stack) != 5 {
		t.Fatalf("stack depth = %d, want 5 (3 payload + header + x)", len(stack))
	}
	wantNumber(t, stack[4], 1)

	stack = run(t, "[ 1 2 3 ] 9 get-at")
	if len(stack) != 5 {
		t.Fatalf("stack depth = %d, want 5 (3 payload + header + NIL)", len(stack))
	}
	if !vm.IsNil(stack[4]) {
		t.Errorf("get-at out of range should yield NIL, got tag/value %v", stack[4])
	}
}

func TestListSetAt(t *testing.T) {
	stack := run(t, "[ 1 2 3 ] 99 1 set-at head")
	if len(stack) != 5 {
		t.Fatalf("stack depth = %d, want 5 (3 payload + header + head)", len(stack))
	}
	wantNumber(t, stack[4], 1) // index 0 unaffected by replacing index 1

	stack = run(t, "[ 1 2 3 ] 99 1 set-at tail head")
	wantNumber(t, stack[len(stack)-1], 99)
}

func TestListSetAtOutOfRange(t *testing.T) {
	stack := run(t, "[ 1 2 3 ] 99 9 set-at")
	if len(stack) != 5 {
		t.Fatalf("stack depth = %d, want 5 (L unchanged + NIL)", len(stack))
	}
	if !vm.IsNil(stack[4]) {
		t.Error("set-at out of range should append NIL")
	}
	wantNumber(t, stack[2], 1) // index 0 of L, still adjacent to its header, untouched
}

func TestNestedList(t *testing.T) {
	stack := run(t, "[ [ 1 2 ] 3 ] length")
	if len(stack) != 6 {
		t.Fatalf("stack depth = %d, want 6 (3 payload + inner header + outer header + length)", len(stack))
	}
	wantInt(t, stack[5], 2) // two top-level elements: the nested list and 3
}

func TestUndefinedWordIsAnError(t *testing.T) {
	inst := vm.New(vm.NewMemory())
	_, err := compiler.Compile(inst, "test", strings.NewReader("nosuchword"))
	if err == nil {
		t.Fatal("expected an error compiling an undefined word")
	}
	if _, ok := err.(compiler.ErrList); !ok {
		t.Fatalf("error type = %T, want compiler.ErrList", err)
	}
}

func TestUnbalancedListIsAnError(t *testing.T) {
	inst := vm.New(vm.NewMemory())
	_, err := compiler.Compile(inst, "test", strings.NewReader("[ 1 2"))
	if err == nil {
		t.Fatal("expected an error compiling an unterminated list literal")
	}
}

func TestLineComment(t *testing.T) {
	stack := run(t, "1 2 + // trailing comment\n")
	wantNumber(t, stack[0], 3)
}
