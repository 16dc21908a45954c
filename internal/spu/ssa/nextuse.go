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

/* Next-use distances live in ℤ ∪ {∞}, modeled as a saturating uint32.
 * The sparse map never stores infinite distances, keeping it O(live values). */

type _Dist = uint32

const (
    _D_infinity _Dist = ^_Dist(0)
)

func distsum(a _Dist, b _Dist) _Dist {
    if s := a + b; s < a {
        return _D_infinity
    } else {
        return s
    }
}

type _NextUses map[Reg]_Dist

func (self _NextUses) get(r Reg) _Dist {
    if d, ok := self[r]; ok {
        return d
    } else {
        return _D_infinity
    }
}

func (self _NextUses) set(r Reg, d _Dist) {
    if d == _D_infinity {
        delete(self, r)
    } else {
        self[r] = d
    }
}

func (self _NextUses) clear() {
    for r := range self {
        delete(self, r)
    }
}

func (self _NextUses) assign(from _NextUses) {
    self.clear()
    for r, d := range from {
        self[r] = d
    }
}

/* minimum merges another next-use map into this one by taking the
 * element-wise minimum. Values absent from either map are infinite, so
 * they never contribute, which makes this behave like a set union. It
 * reports whether anything actually decreased. */
func (self _NextUses) minimum(from _NextUses) (progress bool) {
    for r, d := range from {
        if d < self.get(r) {
            self.set(r, d)
            progress = true
        }
    }
    return
}

func (self _NextUses) String() string {
    rr := make([]Reg, 0, len(self))
    for r := range self { rr = append(rr, r) }
    sort.Slice(rr, func(i int, j int) bool { return rr[i] < rr[j] })

    /* convert each binding */
    kv := make([]string, 0, len(rr))
    for _, r := range rr {
        kv = append(kv, fmt.Sprintf("%s: %d", r, self[r]))
    }
    return fmt.Sprintf("{%s}", strings.Join(kv, ", "))
}

/* every instruction currently costs one cycle, phis and terminators
 * included; this is the knob to grow when a real cost model lands */
func instrCycles(_ IrNode) _Dist {
    return 1
}

func blockCycles(bb *BasicBlock) (n _Dist) {
    for _, v := range bb.Phi { n += instrCycles(v) }
    for _, v := range bb.Ins { n += instrCycles(v) }
    n += instrCycles(bb.Term)
    return
}
