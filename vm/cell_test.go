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
	"math"
	"testing"

	"github.com/jhlagado/tacitus/vm"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []struct {
		tag   vm.Tag
		value uint16
	}{
		{vm.TagInteger, 0},
		{vm.TagInteger, 12345},
		{vm.TagCode, 0x7FFF},
		{vm.TagBuiltin, 5},
		{vm.TagString, 1},
		{vm.TagList, 0},
		{vm.TagSymbol, 42},
	}
	for _, c := range cases {
		cell, err := vm.Encode(c.tag, c.value)
		if err != nil {
			t.Fatalf("Encode(%s, %d): %v", c.tag, c.value, err)
		}
		tag, value := vm.Decode(cell)
		if tag != c.tag || value != c.value {
			t.Errorf("Decode(Encode(%s, %d)) = (%s, %d)", c.tag, c.value, tag, value)
		}
	}
}

func TestEncodeRejectsNumber(t *testing.T) {
	if _, err := vm.Encode(vm.TagNumber, 0); err == nil {
		t.Fatal("expected an error encoding TagNumber directly")
	}
}

func TestArithmeticNaNDecodesAsNumber(t *testing.T) {
	// 0.0/0.0 produces a NaN whose mantissa tag bits are zero: it must
	// decode as NUMBER, not collide with any boxed tag.
	nan := float32(math.NaN())
	cell := vm.EncodeNumber(nan)
	tag, _ := vm.Decode(cell)
	if tag != vm.TagNumber {
		t.Errorf("Decode(NaN) tag = %s, want NUMBER", tag)
	}
}

func TestFloatRoundTrip(t *testing.T) {
	for _, f := range []float32{0, 1, -1, 3.5, -273.15, 1e30} {
		cell := vm.EncodeNumber(f)
		if got := vm.Float(cell); got != f {
			t.Errorf("Float(EncodeNumber(%v)) = %v", f, got)
		}
		tag, _ := vm.Decode(cell)
		if tag != vm.TagNumber {
			t.Errorf("Decode(EncodeNumber(%v)) tag = %s, want NUMBER", f, tag)
		}
	}
}

func TestIsNil(t *testing.T) {
	if !vm.IsNil(vm.Nil) {
		t.Error("IsNil(Nil) = false")
	}
	if vm.IsNil(vm.EncodeNumber(0)) {
		t.Error("IsNil(NUMBER 0) = true, want false (NIL is a distinct INTEGER sentinel)")
	}
	if vm.IsNil(vm.EncodeInt(0)) == false {
		t.Error("IsNil(INTEGER 0) = false, want true")
	}
}

func TestIsTruthy(t *testing.T) {
	cases := []struct {
		c    vm.Cell
		want bool
	}{
		{vm.Nil, false},
		{vm.EncodeNumber(0), false},
		{vm.EncodeNumber(1), true},
		{vm.EncodeNumber(-1), true},
		{vm.EncodeInt(1), true},
		{vm.MustEncode(vm.TagString, 0), true},
	}
	for _, c := range cases {
		if got := vm.IsTruthy(c.c); got != c.want {
			t.Errorf("IsTruthy(%v) = %v, want %v", c.c, got, c.want)
		}
	}
}
