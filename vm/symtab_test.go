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

func TestSymbolTableFind(t *testing.T) {
	st := vm.NewSymbolTable()
	if _, ok := st.Find("dup"); ok {
		t.Fatal("Find on an empty table should fail")
	}
	st.DefineBuiltin("dup", 9)
	c, ok := st.Find("dup")
	if !ok {
		t.Fatal("Find(\"dup\") failed after DefineBuiltin")
	}
	tag, value := vm.Decode(c)
	if tag != vm.TagBuiltin || value != 9 {
		t.Errorf("Find(\"dup\") = (%s, %d), want (BUILTIN, 9)", tag, value)
	}
}

func TestSymbolTableShadowing(t *testing.T) {
	st := vm.NewSymbolTable()
	st.DefineCode("square", 100)
	st.DefineCode("square", 200)

	c, ok := st.Find("square")
	if !ok {
		t.Fatal("Find(\"square\") failed")
	}
	_, value := vm.Decode(c)
	if value != 200 {
		t.Errorf("Find(\"square\") = addr %d, want the newest binding 200", value)
	}
}
