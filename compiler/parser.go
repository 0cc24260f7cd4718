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

package compiler

import (
	"io"
	"math"
	"strconv"
	"strings"
	"text/scanner"
	"unicode"

	"github.com/jhlagado/tacitus/vm"
)

// item is one element read from a list literal, kept unconmpiled until the
// enclosing list_close so that elements can be emitted in reverse source
// order (see package doc and vm's list-layout doc).
type item struct {
	pos      scanner.Position
	kind     byte // 'n' number, 's' string, '@' symbol ref, 'l' nested list
	text     string
	children []item
}

// parser holds single-pass compile state, closely mirroring the shape of
// the ngaro assembler's parser: a text/scanner tokenizer, a pending-label
// table for forward references, and a positioned error list.
type parser struct {
	vmi *vm.Instance
	pc  int
	s   scanner.Scanner
	errs ErrList

	// pending maps a not-yet-defined word name to the CODE offsets of the
	// two-byte Form B call placeholders waiting on its address.
	pending map[string][]int
	// pendingRef is the same, but for @name push_symbol_ref placeholders
	// (the 2-byte value field following the tag byte).
	pendingRef map[string][]int

	// defOpen is true while compiling the body of a ": name ... ;"
	// definition.
	defOpen bool
	defName string
	defAddr int

	// ctrl is the stack of pending branch patch offsets for nested
	// if/else/then.
	ctrl []int
}

func newParser(i *vm.Instance) *parser {
	return &parser{
		vmi:        i,
		pc:         0, // Instance keeps no compile cursor: every Compile starts emitting at CODE offset 0.
		pending:    make(map[string][]int),
		pendingRef: make(map[string][]int),
	}
}

func (p *parser) error(pos scanner.Position, msg string) {
	if !pos.IsValid() {
		pos = p.s.Pos()
	}
	p.errs.add(pos, msg)
}

func isIdentRune(ch rune, i int) bool {
	return ch != '"' && (unicode.IsLetter(ch) || unicode.IsDigit(ch) || unicode.IsPunct(ch) || unicode.IsSymbol(ch))
}

func (p *parser) emitByte(b byte) {
	if err := p.vmi.Mem.Code.Write8(p.pc, b); err != nil {
		p.error(p.s.Position, err.Error())
		return
	}
	p.pc++
}

func (p *parser) emitUint16At(off int, v uint16) {
	if err := p.vmi.Mem.Code.Write8(off, byte(v)); err != nil {
		p.error(p.s.Position, err.Error())
	}
	if err := p.vmi.Mem.Code.Write8(off+1, byte(v>>8)); err != nil {
		p.error(p.s.Position, err.Error())
	}
}

func (p *parser) emitUint16(v uint16) {
	at := p.pc
	p.pc += 2
	p.emitUint16At(at, v)
}

func (p *parser) emitFloat32Bits(bits uint32) {
	p.emitByte(byte(bits))
	p.emitByte(byte(bits >> 8))
	p.emitByte(byte(bits >> 16))
	p.emitByte(byte(bits >> 24))
}

// parseNumber accepts any Go int or float literal (optionally signed),
// exactly as spec numbers are plain binary32 values.
func parseNumber(s string) (float32, bool) {
	if n, err := strconv.ParseInt(s, 0, 32); err == nil {
		return float32(n), true
	}
	if f, err := strconv.ParseFloat(s, 32); err == nil {
		return float32(f), true
	}
	return 0, false
}

func (p *parser) compileLitNumber(f float32) {
	p.emitByte(byte(vm.OpLitNumber))
	p.emitFloat32Bits(math.Float32bits(f))
}

func (p *parser) compileLitString(s string) {
	off, err := p.vmi.Mem.InternString(s)
	if err != nil {
		p.error(p.s.Position, err.Error())
		return
	}
	p.emitByte(byte(vm.OpLitString))
	p.emitUint16(off)
}

// compileWordCall compiles a call to name: a Form A byte for a builtin, a
// Form B direct call for a code word, or a placeholder plus a pending
// forward-reference entry if name is not yet defined.
func (p *parser) compileWordCall(name string, pos scanner.Position) {
	if c, ok := p.vmi.Sym.Find(name); ok {
		tag, value := vm.Decode(c)
		switch tag {
		case vm.TagBuiltin:
			p.emitByte(byte(value))
		case vm.TagCode:
			b0, b1, err := vm.EncodeCall(value)
			if err != nil {
				p.error(pos, err.Error())
				return
			}
			p.emitByte(b0)
			p.emitByte(b1)
		default:
			p.error(pos, "word \""+name+"\" is not callable")
		}
		return
	}
	// Forward reference: assume it will be defined as a code word.
	at := p.pc
	p.emitByte(0x80)
	p.emitByte(0x00)
	p.pending[name] = append(p.pending[name], at)
}

func (p *parser) compileSymbolRef(name string, pos scanner.Position) {
	if c, ok := p.vmi.Sym.Find(name); ok {
		tag, value := vm.Decode(c)
		p.emitByte(byte(vm.OpPushSymbolRef))
		p.emitByte(byte(tag))
		p.emitUint16(value)
		return
	}
	// Forward reference: always resolved as a CODE value once defined.
	p.emitByte(byte(vm.OpPushSymbolRef))
	p.emitByte(byte(vm.TagCode))
	at := p.pc
	p.emitUint16(0)
	p.pendingRef[name] = append(p.pendingRef[name], at)
}

func (p *parser) resolveWord(name string, addr uint16) {
	for _, at := range p.pending[name] {
		b0, b1, err := vm.EncodeCall(addr)
		if err != nil {
			p.error(p.s.Position, err.Error())
			continue
		}
		if werr := p.vmi.Mem.Code.Write8(at, b0); werr != nil {
			p.error(p.s.Position, werr.Error())
		}
		if werr := p.vmi.Mem.Code.Write8(at+1, b1); werr != nil {
			p.error(p.s.Position, werr.Error())
		}
	}
	delete(p.pending, name)
	for _, at := range p.pendingRef[name] {
		p.emitUint16At(at, addr)
	}
	delete(p.pendingRef, name)
}

// --- list literals ---

// readListItems consumes tokens up to (and including) the closing "]",
// building a tree of unconmpiled items. Bare words are rejected: list
// literals hold data, not calls.
func (p *parser) readListItems() []item {
	var items []item
	for tok := p.s.Scan(); tok != scanner.EOF; tok = p.s.Scan() {
		text := p.s.TokenText()
		pos := p.s.Position
		switch {
		case text == "]":
			return items
		case text == "[":
			items = append(items, item{pos: pos, kind: 'l', children: p.readListItems()})
		case tok == scanner.String:
			unq, err := strconv.Unquote(text)
			if err != nil {
				unq = strings.Trim(text, `"`)
			}
			items = append(items, item{pos: pos, kind: 's', text: unq})
		case strings.HasPrefix(text, "@") && len(text) > 1:
			items = append(items, item{pos: pos, kind: '@', text: text[1:]})
		default:
			if _, ok := parseNumber(text); ok {
				items = append(items, item{pos: pos, kind: 'n', text: text})
			} else {
				p.error(pos, "word \""+text+"\" is not valid inside a list literal")
			}
		}
		if p.errs.abort() {
			return items
		}
	}
	p.error(p.s.Position, "unterminated list literal")
	return items
}

func (p *parser) compileItem(it item) {
	switch it.kind {
	case 'n':
		f, _ := parseNumber(it.text)
		p.compileLitNumber(f)
	case 's':
		p.compileLitString(it.text)
	case '@':
		p.compileSymbolRef(it.text, it.pos)
	case 'l':
		p.compileListLiteral(it.children)
	}
}

func (p *parser) compileListLiteral(items []item) {
	p.emitByte(byte(vm.OpListOpen))
	for k := len(items) - 1; k >= 0; k-- {
		p.compileItem(items[k])
	}
	p.emitByte(byte(vm.OpListClose))
}

// --- if / else / then ---

func (p *parser) compileIf(pos scanner.Position) {
	p.emitByte(byte(vm.OpBranchIfFalse))
	at := p.pc
	p.emitUint16(0)
	p.ctrl = append(p.ctrl, at)
}

func (p *parser) compileElse(pos scanner.Position) {
	if len(p.ctrl) == 0 {
		p.error(pos, "else without matching if")
		return
	}
	ifAt := p.ctrl[len(p.ctrl)-1]
	p.emitByte(byte(vm.OpBranch))
	elseAt := p.pc
	p.emitUint16(0)
	p.emitUint16At(ifAt, uint16(p.pc))
	p.ctrl[len(p.ctrl)-1] = elseAt
}

func (p *parser) compileThen(pos scanner.Position) {
	if len(p.ctrl) == 0 {
		p.error(pos, "then without matching if")
		return
	}
	at := p.ctrl[len(p.ctrl)-1]
	p.ctrl = p.ctrl[:len(p.ctrl)-1]
	p.emitUint16At(at, uint16(p.pc))
}

// --- colon definitions ---

func (p *parser) compileColonDef(name string, pos scanner.Position) bool {
	if p.defOpen {
		p.error(pos, "nested definition of \""+name+"\" inside \""+p.defName+"\"")
		return false
	}
	if name == "" {
		p.error(pos, "empty word name after ':'")
		return false
	}
	p.defOpen = true
	p.defName = name
	return true
}

func (p *parser) closeColonDef(pos scanner.Position) {
	if !p.defOpen {
		p.error(pos, "';' without matching ':'")
		return
	}
	// The word's address is wherever its body started, which the caller
	// recorded before compiling any body tokens; see compileStream.
	p.emitByte(byte(vm.OpExit))
	p.defOpen = false
}

// parse runs the single-pass tokenize-and-compile loop.
func (p *parser) parse(name string, r io.Reader) {
	p.s.Init(r)
	p.s.Error = func(s *scanner.Scanner, msg string) { p.error(s.Position, msg) }
	p.s.IsIdentRune = isIdentRune
	p.s.Mode = scanner.ScanIdents | scanner.ScanStrings
	p.s.Filename = name
	p.defAddr = -1

	p.compileStream(false)
	p.emitByte(byte(vm.OpExit))

	if p.defOpen {
		p.error(p.s.Position, "unterminated definition of \""+p.defName+"\"")
	}
	for n := range p.pending {
		p.error(p.s.Position, "undefined word: "+n)
	}
	for n := range p.pendingRef {
		if _, ok := p.pending[n]; !ok {
			p.error(p.s.Position, "undefined word: "+n)
		}
	}
}

// compileStream compiles tokens one at a time until EOF, or, when
// inBlock is true, until it consumes the ")" that closes the enclosing
// standalone block (see compileBlock). It is called once for the whole
// program and recursively for every block body, so blocks may nest.
func (p *parser) compileStream(inBlock bool) {
	for tok := p.s.Scan(); !p.errs.abort() && tok != scanner.EOF; tok = p.s.Scan() {
		text := p.s.TokenText()
		pos := p.s.Position

		switch {
		case strings.HasPrefix(text, "//"):
			for p.s.Peek() != '\n' && p.s.Peek() != scanner.EOF {
				p.s.Next()
			}
		case text == "{" || text == "}" || text == "`":
			p.error(pos, "reserved punctuation \""+text+"\" is not used by any construct")
		case text == "(":
			p.compileBlock(pos)
		case text == ")":
			if !inBlock {
				p.error(pos, "unmatched ')'")
				continue
			}
			return
		case text == "[":
			items := p.readListItems()
			p.compileListLiteral(items)
		case text == "]":
			p.error(pos, "unmatched ']'")
		case text == ":" || (len(text) > 1 && text[0] == ':'):
			wordName := text[1:]
			if text == ":" {
				p.s.Scan()
				wordName = p.s.TokenText()
			}
			if p.compileColonDef(wordName, pos) {
				// Branch over the body so straight-line execution skips
				// it; the operand is patched once ';' closes the body.
				p.emitByte(byte(vm.OpBranch))
				p.emitUint16(0)
				p.defAddr = p.pc
			}
		case text == ";":
			p.closeColonDef(pos)
			if p.defAddr >= 0 {
				p.emitUint16At(p.defAddr-2, uint16(p.pc))
				if p.defAddr > 0xFFFF {
					p.error(pos, "word body address exceeds 16-bit CODE range")
				} else {
					p.vmi.Sym.DefineCode(p.defName, uint16(p.defAddr))
					p.resolveWord(p.defName, uint16(p.defAddr))
				}
				p.defAddr = -1
			}
		case text == "if":
			p.compileIf(pos)
		case text == "else":
			p.compileElse(pos)
		case text == "then":
			p.compileThen(pos)
		case tok == scanner.String:
			unq, err := strconv.Unquote(text)
			if err != nil {
				unq = strings.Trim(text, `"`)
			}
			p.compileLitString(unq)
		case len(text) > 1 && text[0] == '@':
			p.compileSymbolRef(text[1:], pos)
		default:
			if f, ok := parseNumber(text); ok {
				p.compileLitNumber(f)
			} else {
				p.compileWordCall(text, pos)
			}
		}
	}
	if inBlock {
		p.error(p.s.Position, "unterminated block, missing ')'")
	}
}

// compileBlock compiles a standalone block "( ... )" (spec §4.5's
// "literal code reference"): a forward branch over the block body, the
// body itself ending in an implicit exit, and a lit_code_ref pushing the
// body's address as a first-class CODE value once execution resumes past
// the branch. The block is never run inline; eval invokes it later.
func (p *parser) compileBlock(pos scanner.Position) {
	p.emitByte(byte(vm.OpBranch))
	branchAt := p.pc
	p.emitUint16(0)

	bodyStart := p.pc
	p.compileStream(true)
	p.emitByte(byte(vm.OpExit))

	p.emitUint16At(branchAt, uint16(p.pc))

	if bodyStart > 0xFFFF {
		p.error(pos, "block body address exceeds 16-bit CODE range")
		return
	}
	p.emitByte(byte(vm.OpLitCodeRef))
	p.emitUint16(uint16(bodyStart))
}
