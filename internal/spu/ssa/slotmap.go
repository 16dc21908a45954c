/*
 * Copyright 2024 Arclight Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package ssa

import (
    `fmt`
    `sort`
    `strings`
)

/* every spilled value takes one 32-bit scratch word; this should follow
 * the RA size rounding once values grow wider than a scalar */
const (
    _SlotSize = 4
)

/* SlotMap assigns scratch memory offsets to spilled values. Slots are
 * handed out on first spill and never reclaimed, so Bytes only grows. */
type SlotMap struct {
    Base  uint32
    Bytes uint32
    off   map[Reg]uint32
    val   map[uint32]Reg
}

func newSlotMap(base uint32) *SlotMap {
    return &SlotMap {
        Base  : base,
        Bytes : base,
        off   : make(map[Reg]uint32),
        val   : make(map[uint32]Reg),
    }
}

/* SlotOf returns the memory reference of an SSA value, allocating a new
 * slot the first time the value is spilled. */
func (self *SlotMap) SlotOf(r Reg) Reg {
    if !r.Ssa() {
        panic("spill: slot of a non-SSA value: " + r.String())
    }

    /* allocate on first use */
    if _, ok := self.off[r]; !ok {
        self.off[r] = self.Bytes
        self.val[self.Bytes] = r
        self.Bytes += _SlotSize
    }
    return Mv(self.off[r])
}

/* ValueAt maps a memory reference back to the SSA value it spills. */
func (self *SlotMap) ValueAt(mem Reg) Reg {
    if !mem.Mem() {
        panic("spill: not a memory reference: " + mem.String())
    } else if v, ok := self.val[mem.Value()]; !ok {
        panic(fmt.Sprintf("spill: no value at offset %#x", mem.Value()))
    } else {
        return v
    }
}

/* chase resolves a register that may have been rewritten to memory back
 * to its SSA value id. */
func (self *SlotMap) chase(r Reg) Reg {
    if r.Mem() {
        return self.ValueAt(r)
    } else {
        return r
    }
}

func (self *SlotMap) String() string {
    nb := len(self.off)
    rr := make([]Reg, 0, nb)
    rs := make([]string, 0, nb)

    /* extract all values */
    for r := range self.off {
        rr = append(rr, r)
    }

    /* sort by value ID */
    sort.Slice(rr, func(i int, j int) bool {
        return rr[i] < rr[j]
    })

    /* convert every binding */
    for _, r := range rr {
        rs = append(rs, fmt.Sprintf("%s -> %#x", r, self.off[r]))
    }

    /* join them together */
    return fmt.Sprintf(
        "{%s}",
        strings.Join(rs, ", "),
    )
}
