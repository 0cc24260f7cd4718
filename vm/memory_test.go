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

package vm_test

import (
	"testing"

	"github.com/jhlagado/tacitus/vm"
)

func TestSegmentBoundsChecked(t *testing.T) {
	s := vm.NewSegment(8)
	if err := s.Write8(7, 0xFF); err != nil {
		t.Fatalf("Write8(7, ...): %v", err)
	}
	if err := s.Write8(8, 0xFF); err == nil {
		t.Error("Write8(8, ...) on an 8-byte segment should be out of bounds")
	}
	if _, err := s.ReadCell(5); err == nil {
		t.Error("ReadCell(5) on an 8-byte segment should be out of bounds (needs 4 bytes from offset 5)")
	}
	if err := s.WriteCell(4, vm.Nil); err != nil {
		t.Fatalf("WriteCell(4, ...): %v", err)
	}
	c, err := s.ReadCell(4)
	if err != nil || c != vm.Nil {
		t.Errorf("ReadCell(4) = (%v, %v), want (Nil, nil)", c, err)
	}
}

func TestNewMemoryDefaultSizes(t *testing.T) {
	m := vm.NewMemory()
	total := m.Stack.Len() + m.RStack.Len() + m.String.Len() + m.Code.Len()
	if total != 64*1024 {
		t.Errorf("default segment sizes sum to %d bytes, want 65536", total)
	}
}

func TestNewMemoryOptions(t *testing.T) {
	m := vm.NewMemory(vm.StackSize(256), vm.StringSize(512))
	if m.Stack.Len() != 256 {
		t.Errorf("StackSize(256) -> Stack.Len() = %d", m.Stack.Len())
	}
	if m.String.Len() != 512 {
		t.Errorf("StringSize(512) -> String.Len() = %d", m.String.Len())
	}
	if m.RStack.Len() != vm.DefaultRStackSize {
		t.Errorf("unspecified RStackSize should keep the default, got %d", m.RStack.Len())
	}
}

func TestInternStringIdempotent(t *testing.T) {
	m := vm.NewMemory()
	a, err := m.InternString("hello")
	if err != nil {
		t.Fatal(err)
	}
	b, err := m.InternString("hello")
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("InternString(\"hello\") returned %d then %d, want identical offsets", a, b)
	}
	c, err := m.InternString("world")
	if err != nil {
		t.Fatal(err)
	}
	if c == a {
		t.Error("InternString(\"world\") collided with InternString(\"hello\")'s offset")
	}
	s, err := m.DecodeString(a)
	if err != nil || s != "hello" {
		t.Errorf("DecodeString(%d) = (%q, %v), want (\"hello\", nil)", a, s, err)
	}
}

func TestInternStringExhaustion(t *testing.T) {
	m := vm.NewMemory(vm.StringSize(4))
	if _, err := m.InternString("hello"); err == nil {
		t.Error("expected an error interning a string that does not fit in STRING")
	}
}
