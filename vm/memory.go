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

import "encoding/binary"

// Segment is a fixed-size, byte-addressed region of the memory image. Every
// accessor bounds-checks its offset and returns a Structural *Error rather
// than panicking, so that a single bad access can be turned into a clean
// top-level abort (spec §7).
type Segment struct {
	buf []byte
}

// NewSegment allocates a Segment of the given size in bytes.
func NewSegment(size int) Segment {
	return Segment{buf: make([]byte, size)}
}

// Len returns the segment's size in bytes.
func (s *Segment) Len() int { return len(s.buf) }

func (s *Segment) boundsCheck(off, width int) error {
	if off < 0 || off+width > len(s.buf) {
		return errf(Structural, "segment access out of bounds: offset %d width %d size %d", off, width, len(s.buf))
	}
	return nil
}

// Read8 reads a single byte at off.
func (s *Segment) Read8(off int) (byte, error) {
	if err := s.boundsCheck(off, 1); err != nil {
		return 0, err
	}
	return s.buf[off], nil
}

// Write8 writes a single byte at off.
func (s *Segment) Write8(off int, v byte) error {
	if err := s.boundsCheck(off, 1); err != nil {
		return err
	}
	s.buf[off] = v
	return nil
}

// Read16 reads a little-endian 16-bit value at off.
func (s *Segment) Read16(off int) (uint16, error) {
	if err := s.boundsCheck(off, 2); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(s.buf[off:]), nil
}

// Write16 writes a little-endian 16-bit value at off.
func (s *Segment) Write16(off int, v uint16) error {
	if err := s.boundsCheck(off, 2); err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(s.buf[off:], v)
	return nil
}

// ReadCell reads a Cell (the raw bit pattern of a binary32 float) at off.
func (s *Segment) ReadCell(off int) (Cell, error) {
	if err := s.boundsCheck(off, 4); err != nil {
		return 0, err
	}
	return Cell(binary.LittleEndian.Uint32(s.buf[off:])), nil
}

// WriteCell writes a Cell at off.
func (s *Segment) WriteCell(off int, c Cell) error {
	if err := s.boundsCheck(off, 4); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(s.buf[off:], uint32(c))
	return nil
}

// Default segment sizes. Their sum is the canonical 64 KiB image from spec
// §3.2. Sizing is configurable via Option values passed to NewMemory —
// mirrors the teacher's vm.DataSize/vm.AddressSize functional options.
const (
	DefaultStackSize  = 16 * 1024
	DefaultRStackSize = 8 * 1024
	DefaultStringSize = 16 * 1024
	DefaultCodeSize   = 64*1024 - DefaultStackSize - DefaultRStackSize - DefaultStringSize
)

// Memory is the four-segment image described in spec §3.2.
type Memory struct {
	Stack  Segment
	RStack Segment
	String Segment
	Code   Segment

	strings map[string]uint16 // intern cache, keyed by string content
	strCP   int                // next free offset in String
}

// Option configures a Memory built by NewMemory.
type Option func(*memConfig)

type memConfig struct {
	stackSize, rstackSize, stringSize, codeSize int
}

// StackSize overrides the STACK segment size in bytes.
func StackSize(n int) Option { return func(c *memConfig) { c.stackSize = n } }

// RStackSize overrides the RSTACK segment size in bytes.
func RStackSize(n int) Option { return func(c *memConfig) { c.rstackSize = n } }

// StringSize overrides the STRING segment size in bytes.
func StringSize(n int) Option { return func(c *memConfig) { c.stringSize = n } }

// CodeSize overrides the CODE segment size in bytes.
func CodeSize(n int) Option { return func(c *memConfig) { c.codeSize = n } }

// NewMemory builds a Memory image with the canonical 64 KiB segment sizes,
// or overridden sizes per the given Options.
func NewMemory(opts ...Option) *Memory {
	cfg := memConfig{
		stackSize:  DefaultStackSize,
		rstackSize: DefaultRStackSize,
		stringSize: DefaultStringSize,
		codeSize:   DefaultCodeSize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Memory{
		Stack:   NewSegment(cfg.stackSize),
		RStack:  NewSegment(cfg.rstackSize),
		String:  NewSegment(cfg.stringSize),
		Code:    NewSegment(cfg.codeSize),
		strings: make(map[string]uint16),
	}
}

// InternString interns s into STRING, returning its starting byte offset.
// Interning is idempotent: the same string content always returns the same
// offset (spec §3.5).
func (m *Memory) InternString(s string) (uint16, error) {
	if off, ok := m.strings[s]; ok {
		return off, nil
	}
	need := len(s) + 1 // NUL terminator
	if m.strCP+need > m.String.Len() {
		return 0, errf(Structural, "STRING segment exhausted interning %q", s)
	}
	off := m.strCP
	for i := 0; i < len(s); i++ {
		_ = m.String.Write8(off+i, s[i])
	}
	_ = m.String.Write8(off+len(s), 0)
	m.strCP += need
	if off > 0xFFFF {
		return 0, errf(Structural, "STRING offset %d exceeds 16-bit handle range", off)
	}
	u := uint16(off)
	m.strings[s] = u
	return u, nil
}

// DecodeString reads a NUL-terminated string starting at the given STRING
// offset.
func (m *Memory) DecodeString(start uint16) (string, error) {
	end := int(start)
	for {
		b, err := m.String.Read8(end)
		if err != nil {
			return "", err
		}
		if b == 0 {
			break
		}
		end++
	}
	buf := make([]byte, 0, end-int(start))
	for i := int(start); i < end; i++ {
		b, _ := m.String.Read8(i)
		buf = append(buf, b)
	}
	return string(buf), nil
}
