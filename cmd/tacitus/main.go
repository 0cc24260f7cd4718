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

// Command tacitus compiles and runs a single tacitus source file, then
// dumps the resulting operand stack.
//
// Usage:
//
//	tacitus [-stack n] [-rstack n] [-strings n] [-code n] file.tac
//
// With no file argument, source is read from stdin. This is a batch
// driver only: there is no REPL and no line-at-a-time interactive
// evaluation, both of which are out of scope (see SPEC_FULL.md).
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/jhlagado/tacitus/compiler"
	"github.com/jhlagado/tacitus/internal/diag"
	"github.com/jhlagado/tacitus/vm"
)

func main() {
	var (
		stackSize  = flag.Int("stack", vm.DefaultStackSize, "STACK segment size in bytes")
		rstackSize = flag.Int("rstack", vm.DefaultRStackSize, "RSTACK segment size in bytes")
		stringSize = flag.Int("strings", vm.DefaultStringSize, "STRING segment size in bytes")
		codeSize   = flag.Int("code", vm.DefaultCodeSize, "CODE segment size in bytes")
	)
	flag.Parse()

	errw := diag.NewErrWriter(os.Stderr)

	if err := run(*stackSize, *rstackSize, *stringSize, *codeSize, errw); err != nil {
		fmt.Fprintln(errw, err)
		os.Exit(1)
	}
	if errw.Err != nil {
		fmt.Fprintf(os.Stderr, "(%d bytes of diagnostic output written before the error)\n", errw.N)
		os.Exit(1)
	}
}

func run(stackSize, rstackSize, stringSize, codeSize int, errw *diag.ErrWriter) error {
	name := "<stdin>"
	var src *os.File = os.Stdin
	if args := flag.Args(); len(args) > 0 {
		name = args[0]
		f, err := os.Open(name)
		if err != nil {
			return errors.Wrap(err, "opening source file")
		}
		defer f.Close()
		src = f
	}

	mem := vm.NewMemory(
		vm.StackSize(stackSize),
		vm.RStackSize(rstackSize),
		vm.StringSize(stringSize),
		vm.CodeSize(codeSize),
	)
	inst := vm.New(mem)

	entry, err := compiler.Compile(inst, name, src)
	if err != nil {
		return errors.Wrap(err, "compile")
	}

	if err := inst.Run(entry); err != nil {
		return errors.Wrap(err, "run")
	}

	dumpStack(errw, inst)
	return nil
}

func dumpStack(w *diag.ErrWriter, inst *vm.Instance) {
	stack := inst.Stack()
	fmt.Fprintf(w, "stack (%d cells):\n", len(stack))
	for idx, c := range stack {
		tag, value := vm.Decode(c)
		if tag == vm.TagNumber {
			fmt.Fprintf(w, "  %3d: %s %g\n", idx, tag, vm.Float(c))
		} else {
			fmt.Fprintf(w, "  %3d: %s %d\n", idx, tag, value)
		}
	}
	fmt.Fprintf(w, "%d instructions executed\n", inst.InstructionCount())
}
