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

// The list runtime implements spec §4.8's reverse-header layout: a LIST's
// header cell sits immediately ABOVE its payload span on STACK (at the
// highest address, adjacent to whatever comes next), not below it. A
// payload element is either one plain cell (span 1) or, when it is itself
// a nested list, the nested list's own header-plus-payload block (span
// value+1). Index 0 is always the element adjacent to the header — the
// element physically closest to it — which list literals compile so as to
// make the first-written element (see compiler package).
//
// This layout makes close-list, tail, uncons and cons all O(1) in the
// number of elements: every one of them only ever touches the top one or
// two elements, never walks the rest of the list. length, head, get-at,
// set-at and find all need a position within the list and so are O(index);
// concat is O(len of its second argument), since splicing two spans
// together means closing the one-cell gap left by the first list's
// header.

// elementSpan reports how many cells the payload element whose top cell
// decodes to c occupies: 1 for any plain cell, or value+1 when c is itself
// a nested LIST header.
func elementSpan(c Cell) int {
	if tag, value := Decode(c); tag == TagList {
		return int(value) + 1
	}
	return 1
}

// listHeader reads and validates the LIST header at byte offset hdrOff,
// returning its payload width in cells.
func (i *Instance) listHeader(hdrOff int) (width int, err error) {
	c, err := i.Mem.Stack.ReadCell(hdrOff)
	if err != nil {
		return 0, err
	}
	tag, value := Decode(c)
	if tag != TagList {
		return 0, errf(Structural, "expected a LIST, found %s", tag)
	}
	return int(value), nil
}

// findElement walks the payload of the list headed at hdrOff looking for
// element index idx (0 = adjacent to the header), returning its top-cell
// offset and span. ok is false when idx is out of range.
func (i *Instance) findElement(hdrOff, width, idx int) (off, span int, ok bool, err error) {
	if idx < 0 {
		return 0, 0, false, nil
	}
	pos := hdrOff - 4
	remaining := width
	for j := 0; remaining > 0; j++ {
		c, rerr := i.Mem.Stack.ReadCell(pos)
		if rerr != nil {
			return 0, 0, false, rerr
		}
		span := elementSpan(c)
		if span > remaining {
			return 0, 0, false, errf(Structural, "corrupt list: element span exceeds remaining payload")
		}
		if j == idx {
			return pos, span, true, nil
		}
		pos -= span * 4
		remaining -= span
	}
	return 0, 0, false, nil
}

// listCount walks the full payload of the list headed at hdrOff and
// returns its element count.
func (i *Instance) listCount(hdrOff, width int) (int, error) {
	pos := hdrOff - 4
	remaining := width
	n := 0
	for remaining > 0 {
		c, err := i.Mem.Stack.ReadCell(pos)
		if err != nil {
			return 0, err
		}
		span := elementSpan(c)
		if span > remaining {
			return 0, errf(Structural, "corrupt list: element span exceeds remaining payload")
		}
		pos -= span * 4
		remaining -= span
		n++
	}
	return n, nil
}

// copySpan duplicates the span cells occupying [topOff-(span-1)*4, topOff]
// onto the top of the stack, preserving their relative order, and advances
// SP past the copy.
func (i *Instance) copySpan(topOff, span int) error {
	base := topOff - (span-1)*4
	for k := 0; k < span; k++ {
		c, err := i.Mem.Stack.ReadCell(base + k*4)
		if err != nil {
			return err
		}
		if err := i.Push(c); err != nil {
			return err
		}
	}
	return nil
}

// stackElementAt locates the n-th operand-stack element counting down from
// the top (0 = top-of-stack), returning its top-cell (highest-address)
// offset and span. The generic stack-shuffling builtins (dup, drop, swap,
// over, rot, pick) use this so they move an entire compound atomically
// instead of just its header cell.
func (i *Instance) stackElementAt(n int) (topOff, span int, err error) {
	off := i.SP - 4
	for k := 0; k < n; k++ {
		if off < 0 {
			return 0, 0, errf(Structural, "stack underflow")
		}
		c, rerr := i.Mem.Stack.ReadCell(off)
		if rerr != nil {
			return 0, 0, rerr
		}
		off -= elementSpan(c) * 4
	}
	if off < 0 {
		return 0, 0, errf(Structural, "stack underflow")
	}
	c, err := i.Mem.Stack.ReadCell(off)
	if err != nil {
		return 0, 0, err
	}
	span = elementSpan(c)
	if off-(span-1)*4 < 0 {
		return 0, 0, errf(Structural, "stack underflow: element span exceeds stack")
	}
	return off, span, nil
}

// readSpan reads span cells starting at the low address base.
func (i *Instance) readSpan(base, span int) ([]Cell, error) {
	cells := make([]Cell, span)
	for k := 0; k < span; k++ {
		c, err := i.Mem.Stack.ReadCell(base + k*4)
		if err != nil {
			return nil, err
		}
		cells[k] = c
	}
	return cells, nil
}

// writeSpan writes cells starting at the low address base.
func (i *Instance) writeSpan(base int, cells []Cell) error {
	for k, c := range cells {
		if err := i.Mem.Stack.WriteCell(base+k*4, c); err != nil {
			return err
		}
	}
	return nil
}

// opListOpen marks the start of a list literal by remembering the current
// stack depth on RSTACK.
func opListOpen(i *Instance) error {
	return i.RPush(EncodeInt(int16(i.SP)))
}

// opListClose closes the most recently opened list: it pops the marker
// pushed by opListOpen, computes how many cells were pushed since, and
// writes a LIST header cell on top of them.
func opListClose(i *Instance) error {
	marker, err := i.RPop()
	if err != nil {
		return err
	}
	tag, value := Decode(marker)
	if tag != TagInteger {
		return errf(Structural, "list_close: corrupt list marker")
	}
	markerSP := int(AsInt16(value))
	if i.SP < markerSP {
		return errf(Structural, "list_close: stack shrank below its open-list marker")
	}
	width := (i.SP - markerSP) / 4
	if width > 0xFFFF {
		return errf(Structural, "list has too many cells to address: %d", width)
	}
	hdr, err := Encode(TagList, uint16(width))
	if err != nil {
		return err
	}
	return i.Push(hdr)
}

// opListLength implements length: (L -- L n).
func opListLength(i *Instance) error {
	hdrOff := i.SP - 4
	width, err := i.listHeader(hdrOff)
	if err != nil {
		return err
	}
	n, err := i.listCount(hdrOff, width)
	if err != nil {
		return err
	}
	return i.Push(EncodeInt(int16(n)))
}

// opListHead implements head: (L -- L x), copying the index-0 element.
func opListHead(i *Instance) error {
	hdrOff := i.SP - 4
	width, err := i.listHeader(hdrOff)
	if err != nil {
		return err
	}
	off, span, ok, err := i.findElement(hdrOff, width, 0)
	if err != nil {
		return err
	}
	if !ok {
		return i.Push(Nil)
	}
	return i.copySpan(off, span)
}

// opListTail implements tail: (L -- L'), dropping the index-0 element in
// O(1) by rewriting the header in place over the dropped span.
func opListTail(i *Instance) error {
	hdrOff := i.SP - 4
	width, err := i.listHeader(hdrOff)
	if err != nil {
		return err
	}
	off, span, ok, err := i.findElement(hdrOff, width, 0)
	if err != nil {
		return err
	}
	if !ok {
		return nil // the tail of an empty list is the empty list
	}
	_ = off
	newHdrOff := hdrOff - span*4
	newHdr, err := Encode(TagList, uint16(width-span))
	if err != nil {
		return err
	}
	if err := i.Mem.Stack.WriteCell(newHdrOff, newHdr); err != nil {
		return err
	}
	i.SP = newHdrOff + 4
	return nil
}

// opListUncons implements uncons: (L -- L' x).
func opListUncons(i *Instance) error {
	hdrOff := i.SP - 4
	width, err := i.listHeader(hdrOff)
	if err != nil {
		return err
	}
	off, span, ok, err := i.findElement(hdrOff, width, 0)
	if err != nil {
		return err
	}
	if !ok {
		return i.Push(Nil)
	}
	saved := make([]Cell, span)
	base := off - (span-1)*4
	for k := 0; k < span; k++ {
		c, err := i.Mem.Stack.ReadCell(base + k*4)
		if err != nil {
			return err
		}
		saved[k] = c
	}
	newHdrOff := hdrOff - span*4
	newHdr, err := Encode(TagList, uint16(width-span))
	if err != nil {
		return err
	}
	if err := i.Mem.Stack.WriteCell(newHdrOff, newHdr); err != nil {
		return err
	}
	i.SP = newHdrOff + 4
	for _, c := range saved {
		if err := i.Push(c); err != nil {
			return err
		}
	}
	return nil
}

// opListCons implements cons: (L x -- L'), inserting x as the new index-0
// element in O(span of x).
func opListCons(i *Instance) error {
	xTop, err := i.Peek()
	if err != nil {
		return err
	}
	spanX := elementSpan(xTop)
	xTopOff := i.SP - 4
	xBase := xTopOff - (spanX-1)*4
	hdrLOff := xBase - 4
	width, err := i.listHeader(hdrLOff)
	if err != nil {
		return err
	}
	saved := make([]Cell, spanX)
	for k := 0; k < spanX; k++ {
		c, err := i.Mem.Stack.ReadCell(xBase + k*4)
		if err != nil {
			return err
		}
		saved[k] = c
	}
	i.SP = hdrLOff
	for _, c := range saved {
		if err := i.Push(c); err != nil {
			return err
		}
	}
	hdr, err := Encode(TagList, uint16(width+spanX))
	if err != nil {
		return err
	}
	return i.Push(hdr)
}

// opListConcat implements concat: (L1 L2 -- L3). The two payloads are
// already contiguous in memory (L1's old header sits exactly between
// them); concat shifts L2's payload down over that one stray cell and
// writes a combined header. Because L1's cells stay at the base of the
// joined region and L2's shift down to sit just under the new header, L3
// reads back as L2's elements (indices 0..width2-1) followed by L1's: the
// join is associative and preserves both `concat(L, []) = L` and
// `concat([], L) = L`, but is not order-preserving across the seam.
func opListConcat(i *Instance) error {
	hdr2Off := i.SP - 4
	width2, err := i.listHeader(hdr2Off)
	if err != nil {
		return err
	}
	payload2Start := hdr2Off - width2*4
	hdr1Off := payload2Start - 4
	width1, err := i.listHeader(hdr1Off)
	if err != nil {
		return err
	}
	for k := 0; k < width2; k++ {
		c, err := i.Mem.Stack.ReadCell(payload2Start + k*4)
		if err != nil {
			return err
		}
		if err := i.Mem.Stack.WriteCell(payload2Start-4+k*4, c); err != nil {
			return err
		}
	}
	total := width1 + width2
	if total > 0xFFFF {
		return errf(Structural, "concatenated list too large: %d cells", total)
	}
	hdr, err := Encode(TagList, uint16(total))
	if err != nil {
		return err
	}
	newHdrOff := payload2Start - 4 + width2*4
	if err := i.Mem.Stack.WriteCell(newHdrOff, hdr); err != nil {
		return err
	}
	i.SP = newHdrOff + 4
	return nil
}

// indexFromCell reads an index operand cell as a plain int, accepting
// either NUMBER or INTEGER.
func indexFromCell(c Cell) (int, bool) {
	tag, value := Decode(c)
	switch tag {
	case TagInteger:
		return int(AsInt16(value)), true
	case TagNumber:
		return int(Float(c)), true
	default:
		return 0, false
	}
}

// opListGetAt implements get-at: (L n -- L x | L NIL). An out-of-range
// index yields NIL, leaving L untouched (spec §4.8's boundary behavior); a
// compound element is copied whole, header and payload.
func opListGetAt(i *Instance) error {
	nCell, err := i.Pop()
	if err != nil {
		return err
	}
	idx, ok := indexFromCell(nCell)
	if !ok {
		return i.Push(Nil)
	}
	hdrOff := i.SP - 4
	width, err := i.listHeader(hdrOff)
	if err != nil {
		return err
	}
	off, span, ok, err := i.findElement(hdrOff, width, idx)
	if err != nil {
		return err
	}
	if !ok {
		return i.Push(Nil)
	}
	return i.copySpan(off, span)
}

// opListSetAt implements set-at: (L x n -- L'), or (L x n -- L NIL) when n
// is out of range, leaving L unchanged (spec §4.8's boundary behavior,
// matching get-at rather than the terser effect-table reading).
//
// A replacement whose span differs from the element it replaces shifts
// every element between the target and the header, so set-at is O(index)
// like get-at rather than O(1).
func opListSetAt(i *Instance) error {
	nCell, err := i.Pop()
	if err != nil {
		return err
	}
	idx, ok := indexFromCell(nCell)
	if !ok {
		return i.Push(Nil)
	}

	xTopOff := i.SP - 4
	xCell, err := i.Mem.Stack.ReadCell(xTopOff)
	if err != nil {
		return err
	}
	spanX := elementSpan(xCell)
	xBase := xTopOff - (spanX-1)*4
	hdrLOff := xBase - 4
	width, err := i.listHeader(hdrLOff)
	if err != nil {
		return err
	}

	off, spanOld, ok, err := i.findElement(hdrLOff, width, idx)
	if err != nil {
		return err
	}
	if !ok {
		// Drop x, restore L, append NIL.
		i.SP = xBase
		return i.Push(Nil)
	}

	savedX := make([]Cell, spanX)
	for k := 0; k < spanX; k++ {
		c, rerr := i.Mem.Stack.ReadCell(xBase + k*4)
		if rerr != nil {
			return rerr
		}
		savedX[k] = c
	}

	oldBase := off - (spanOld-1)*4
	// Elements strictly above the replaced one (closer to the header)
	// need to shift by (spanX - spanOld) cells to make room.
	aboveStart := oldBase + spanOld*4
	aboveEnd := hdrLOff
	delta := (spanX - spanOld) * 4
	if delta > 0 {
		for p := aboveEnd - 4; p >= aboveStart; p -= 4 {
			c, rerr := i.Mem.Stack.ReadCell(p)
			if rerr != nil {
				return rerr
			}
			if werr := i.Mem.Stack.WriteCell(p+delta, c); werr != nil {
				return werr
			}
		}
	} else if delta < 0 {
		for p := aboveStart; p < aboveEnd; p += 4 {
			c, rerr := i.Mem.Stack.ReadCell(p)
			if rerr != nil {
				return rerr
			}
			if werr := i.Mem.Stack.WriteCell(p+delta, c); werr != nil {
				return werr
			}
		}
	}
	for k := 0; k < spanX; k++ {
		if werr := i.Mem.Stack.WriteCell(oldBase+k*4, savedX[k]); werr != nil {
			return werr
		}
	}
	newWidth := width + (spanX - spanOld)
	if newWidth < 0 || newWidth > 0xFFFF {
		return errf(Structural, "set-at: resulting list width out of range")
	}
	newHdrOff := hdrLOff + delta
	hdr, err := Encode(TagList, uint16(newWidth))
	if err != nil {
		return err
	}
	if err := i.Mem.Stack.WriteCell(newHdrOff, hdr); err != nil {
		return err
	}
	i.SP = newHdrOff + 4
	return nil
}

// opListFind implements find: (L k -- L n | L NIL). An INTEGER or NUMBER key
// searches element values for an equal cell and returns its index. A
// STRING or SYMBOL key treats L as a flat maplist of alternating key/value
// pairs (even index = key) and returns the matching value's index — the
// usage spec §4.8 calls out for maplists.
func opListFind(i *Instance) error {
	key, err := i.Pop()
	if err != nil {
		return err
	}
	hdrOff := i.SP - 4
	width, err := i.listHeader(hdrOff)
	if err != nil {
		return err
	}
	keyTag, _ := Decode(key)
	maplist := keyTag == TagSymbol || keyTag == TagString

	pos := hdrOff - 4
	remaining := width
	idx := 0
	for remaining > 0 {
		c, rerr := i.Mem.Stack.ReadCell(pos)
		if rerr != nil {
			return rerr
		}
		span := elementSpan(c)
		if span > remaining {
			return errf(Structural, "corrupt list: element span exceeds remaining payload")
		}
		if maplist {
			if idx%2 == 0 && span == 1 && remaining-span > 0 && cellsEqual(i, c, key) {
				return i.Push(EncodeInt(int16(idx + 1)))
			}
		} else if span == 1 && cellsEqual(i, c, key) {
			return i.Push(EncodeInt(int16(idx)))
		}
		pos -= span * 4
		remaining -= span
		idx++
	}
	return i.Push(Nil)
}

// cellsEqual compares two cells for find's purposes: raw equality for
// every tag except STRING, where contents are compared by value.
func cellsEqual(i *Instance, a, b Cell) bool {
	if a == b {
		return true
	}
	ta, va := Decode(a)
	tb, vb := Decode(b)
	if ta != tb || ta != TagString {
		return false
	}
	sa, err1 := i.Mem.DecodeString(va)
	sb, err2 := i.Mem.DecodeString(vb)
	return err1 == nil && err2 == nil && sa == sb
}
