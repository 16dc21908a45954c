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
)

/* An implementation of "Register Spilling and Live-Range Splitting for
 * SSA-Form Programs" by Braun and Hack. Each block is simulated on its
 * own against the global next-use distances, then coupling code stitches
 * the per-block decisions together along the edges. */

/* _SpillBlock is the per-block summary that survives the local
 * simulation: the register file and spill sets at both boundaries, and
 * the converged next-use maps. */
type _SpillBlock struct {
    wEntry     []Reg
    wExit      []Reg
    sEntry     []Reg
    sExit      []Reg
    cycles     _Dist
    nextUseIn  _NextUses
    nextUseOut _NextUses
}

func (self *_SpillBlock) wExitHas(r Reg) bool {
    for _, v := range self.wExit {
        if v == r {
            return true
        }
    }
    return false
}

func (self *_SpillBlock) sExitHas(r Reg) bool {
    for _, v := range self.sExit {
        if v == r {
            return true
        }
    }
    return false
}

type _Candidate struct {
    node Reg
    dist _Dist
}

/* CmpStrategy ranks two eviction candidates; it reports whether a should
 * be kept in a register in preference to b. The default assumes that
 * rematerializing, even before every use, is cheaper than spilling, so a
 * rematerializable value with a nonzero distance always loses its
 * register first; within a class, nearer next use wins. Alternate
 * heuristics (e.g. loop-frequency aware ones) plug in here without
 * touching the algorithm. */
type CmpStrategy func(cfg *CFG, a _Candidate, b _Candidate) bool

func cmpNextUse(cfg *CFG, a _Candidate, b _Candidate) bool {
    ra := cfg.Remat[a.node] != nil && a.dist > 0
    rb := cfg.Remat[b.node] != nil && b.dist > 0

    /* prefer to keep the class that cannot be recomputed */
    if ra != rb {
        return rb
    } else if a.dist != b.dist {
        return a.dist < b.dist
    } else {
        return a.node < b.node
    }
}

func (self *_SpillCtx) sortCandidates(cc []_Candidate) {
    sort.SliceStable(cc, func(i int, j int) bool {
        return self.cmp(self.cfg, cc[i], cc[j])
    })
}

/* _SpillCtx carries all mutable state of one spilling run. It is owned
 * by a single function compilation; nothing escapes into globals. */
type _SpillCtx struct {
    cfg    *CFG
    block  *BasicBlock
    blocks []_SpillBlock
    w      _RegSet
    s      _RegSet
    next   map[Reg]_Dist
    ip     _Dist
    k      int
    cmp    CmpStrategy
}

func (self *_SpillCtx) insertW(r Reg) {
    if self.w.contains(r) {
        panic("spill: duplicate insertion into W: " + r.String())
    } else {
        self.w.add(r)
    }
}

func (self *_SpillCtx) removeW(r Reg) {
    if !self.w.contains(r) {
        panic("spill: value not in W: " + r.String())
    } else {
        self.w.remove(r)
    }
}

func (self *_SpillCtx) removeWIfPresent(r Reg) {
    self.w.remove(r)
}

/* nextIP looks up the instruction pointer of the next use of a value,
 * relative to the start of the current block. Untracked values have no
 * further use. */
func (self *_SpillCtx) nextIP(r Reg) _Dist {
    if d, ok := self.next[r]; ok {
        return d
    } else {
        return _D_infinity
    }
}

/* makeSpill emits the spill store of a value, unless the value can be
 * rematerialized, in which case its slot is never read and no store is
 * needed. */
func (self *_SpillCtx) makeSpill(v Reg) []IrNode {
    if self.cfg.Remat[v] != nil {
        return nil
    }
    self.cfg.Spills++
    return []IrNode {
        &IrStoreScratch {
            R    : v,
            Slot : self.cfg.Slots.SlotOf(v),
        },
    }
}

/* makeReload re-creates a value in the register file: rematerializable
 * values are recomputed from their recipe, everything else is loaded
 * back from its slot. Reloading breaks SSA, but the CFG is leaving SSA
 * form anyway. */
func (self *_SpillCtx) makeReload(v Reg) IrNode {
    if recipe := self.cfg.Remat[v]; recipe != nil {
        return rematTo(recipe, v)
    }
    self.cfg.Fills++
    return &IrLoadScratch {
        R    : v,
        Slot : self.cfg.Slots.SlotOf(v),
    }
}

/* limit evicts registers until the file holds at most m values. Spills
 * are appended to out, which is the instruction stream being rebuilt, so
 * they land immediately before the instruction under simulation. Only
 * the first eviction of a value with a future use emits a store; dead
 * values are simply dropped. */
func (self *_SpillCtx) limit(out *[]IrNode, m int) {
    if len(self.w) <= m {
        return
    }

    /* gather the eviction candidates; tracked IPs are absolute within
     * the block, the comparator wants distances relative to the current
     * position (this matters for the dist == 0 remat test) */
    cc := make([]_Candidate, 0, len(self.w))
    for _, v := range self.w.toslice() {
        d := self.nextIP(v)
        if d < _D_infinity && d >= self.ip {
            d -= self.ip
        } else {
            d = _D_infinity
        }
        cc = append(cc, _Candidate{node: v, dist: d})
    }

    /* sort by eviction preference */
    self.sortCandidates(cc)

    /* keep what fits, evict the rest */
    weight := 0
    for _, c := range cc {
        if weight + 1 <= m {
            weight++
            continue
        }

        /* spill on first eviction if there is another use */
        if !self.s.contains(c.node) && c.dist < _D_infinity {
            *out = append(*out, self.makeSpill(c.node)...)
            self.s.add(c.node)
        }
        self.removeW(c.node)
    }
}

/* localNextUse produces the next-use IPs of every SSA operand in the
 * block, relative to the block start. The array holds, bottom-to-top,
 * the terminator sources (left-to-right), then for each body
 * instruction its destinations (right-to-left) followed by its sources
 * (left-to-right). The simulation consumes it back-to-front. */
func (self *_SpillCtx) localNextUse() []_Dist {
    sb := &self.blocks[self.block.Id]
    ip := sb.cycles
    out := make([]_Dist, 0, len(self.block.Ins) * 2)

    /* seed with the exit distances, shifted past the block end */
    nu := make(_NextUses, len(sb.nextUseOut))
    for r, d := range sb.nextUseOut {
        nu.set(r, distsum(ip, d))
    }

    /* the terminator reads last */
    ip -= instrCycles(self.block.Term)
    for _, u := range usages(self.block.Term) {
        if r := *u; r.Ssa() {
            out = append(out, nu.get(r))
            nu.set(r, ip)
        }
    }

    /* walk the body in reverse; phis act on the edges and are skipped */
    for i := len(self.block.Ins) - 1; i >= 0; i-- {
        v := self.block.Ins[i]
        ip -= instrCycles(v)

        /* destinations right-to-left */
        dd := definitions(v)
        for j := len(dd) - 1; j >= 0; j-- {
            out = append(out, nu.get(*dd[j]))
        }

        /* sources left-to-right */
        for _, u := range usages(v) {
            if r := *u; r.Ssa() {
                out = append(out, nu.get(r))
                nu.set(r, ip)
            }
        }
    }

    /* phis advance the clock without contributing operands */
    for _, p := range self.block.Phi {
        ip -= instrCycles(p)
    }

    /* the reverse walk must land exactly at the block start */
    if ip != 0 {
        panic(fmt.Sprintf("spill: local cycle count did not land at zero in bb_%d", self.block.Id))
    }
    return out
}

/* checkKills validates the locally computed distances against the kill
 * flags from liveness: a value dies at an instruction iff some operand
 * there saw an infinite next use. */
func (self *_SpillCtx) checkKills(p _Pos, popped []_Candidate) {
    for i, c := range popped {
        /* only validate each distinct value once */
        dup := false
        for _, q := range popped[:i] {
            if q.node == c.node {
                dup = true
                break
            }
        }
        if dup {
            continue
        }

        /* compare against the recorded kill position */
        dead := false
        for _, q := range popped {
            if q.node == c.node && q.dist == _D_infinity {
                dead = true
                break
            }
        }
        if dead != self.cfg.Live.killedAt(p, c.node) {
            panic(fmt.Sprintf("spill: kill flag mismatch for %s at %s", c.node, p))
        }
    }
}

/* step simulates the operands of one instruction: sources missing from
 * the register file are queued for reload, the file is trimmed back to
 * budget, tracked distances advance past the instruction, and the
 * destinations take their places. The rebuilt instruction stream grows
 * through out. Phis never come through here. */
func (self *_SpillCtx) step(out *[]IrNode, v IrNode, p _Pos, arr []_Dist, cursor *int) {
    if len(self.w) > self.k {
        panic(fmt.Sprintf("spill: register budget exceeded at %s", p))
    }

    /* any source missing from W needs a reload; it must have been
     * spilled earlier, and the reload makes it resident again, possibly
     * overflowing W until the next trim */
    var rr []Reg
    for _, u := range usages(v) {
        r := *u
        if !r.Ssa() || self.w.contains(r) {
            continue
        }
        if !self.s.contains(r) {
            panic(fmt.Sprintf("spill: %s used at %s but in neither W nor S", r, p))
        }
        rr = append(rr, r)
        self.insertW(r)
    }

    /* make room for the sources we just added */
    self.limit(out, self.k)

    /* advance the tracked distances past this instruction, pruning dead
     * values from W as we go; this does not affect correctness but
     * keeps the eviction candidate lists short */
    uu := usages(v)
    popped := make([]_Candidate, 0, len(uu))
    for j := len(uu) - 1; j >= 0; j-- {
        r := *uu[j]
        if !r.Ssa() {
            continue
        }
        *cursor = *cursor - 1
        nip := arr[*cursor]
        popped = append(popped, _Candidate{node: r, dist: nip})
        if nip == _D_infinity {
            self.removeWIfPresent(r)
            delete(self.next, r)
        } else {
            self.next[r] = nip
        }
    }
    self.checkKills(p, popped)

    /* destinations are unique in SSA form; dead ones keep no tracking
     * entry and fall out of W at the next trim without a spill */
    dd := definitions(v)
    for j := 0; j < len(dd); j++ {
        *cursor = *cursor - 1
        nip := arr[*cursor]
        if nip == _D_infinity {
            self.removeWIfPresent(*dd[j])
        } else {
            self.next[*dd[j]] = nip
        }
    }

    /* make room for the destinations, then place them */
    self.limit(out, self.k - len(dd))
    for _, d := range dd {
        self.insertW(*d)
    }

    /* emit the queued reloads right before the instruction; exports
     * execute as one parallel group, so reloads feeding an export must
     * hoist above the whole group */
    if len(rr) > 0 {
        at := len(*out)
        if _, ok := v.(*IrExport); ok {
            for at > 0 {
                if _, ok := (*out)[at - 1].(*IrExport); ok {
                    at--
                } else {
                    break
                }
            }
        }

        /* build and splice the reload sequence */
        rl := make([]IrNode, 0, len(rr))
        for _, r := range rr {
            rl = append(rl, self.makeReload(r))
        }
        ins := make([]IrNode, 0, len(*out) + len(rl))
        ins = append(ins, (*out)[:at]...)
        ins = append(ins, rl...)
        ins = append(ins, (*out)[at:]...)
        *out = ins
    }
}

/* minAlgorithm simulates one block in program order, maintaining the
 * register file within budget. Corresponds to minAlgorithm from the
 * paper. */
func (self *_SpillCtx) minAlgorithm() {
    sb := &self.blocks[self.block.Id]
    arr := self.localNextUse()
    cursor := len(arr)

    /* tracked IPs start from the entry distances */
    for r, d := range sb.nextUseIn {
        self.next[r] = d
    }

    /* when W and S were initialized we implicitly chose which phis are
     * spilled; rewrite those to define their slot directly, phi sources
     * are reconciled later by the coupling code */
    for _, phi := range self.block.Phi {
        if !self.w.contains(phi.R) {
            phi.R = self.cfg.Slots.SlotOf(phi.R)
        }
        self.ip += instrCycles(phi)
    }

    /* simulate the body, rebuilding the instruction stream with spills
     * and reloads in place */
    out := make([]IrNode, 0, len(self.block.Ins))
    for i, v := range self.block.Ins {
        self.step(&out, v, pos(self.block, i), arr, &cursor)
        out = append(out, v)
        self.ip += instrCycles(v)
    }

    /* the terminator reads its operands like any other instruction */
    self.step(&out, self.block.Term, termpos(self.block), arr, &cursor)
    self.ip += instrCycles(self.block.Term)

    /* every operand accounted for */
    if cursor != 0 {
        panic("spill: local next-use array not exactly sized")
    }

    /* install the rebuilt body and snapshot the exit state */
    self.block.Ins = out
    sb.wExit = self.w.toslice()
    sb.sExit = self.s.toslice()
}

// Spill rewrites the function so that at most K values are live in
// registers at any point, storing the overflow to scratch memory
// starting at byte offset Base. The slot assignment is left on the CFG
// for the caller to size its scratch buffer.
type Spill struct {
    K    int
    Base uint32
    Cmp  CmpStrategy
}

func (self Spill) Apply(cfg *CFG) {
    cmp := self.Cmp
    if cmp == nil {
        cmp = cmpNextUse
    }

    /* the spiller depends on liveness and the remat table; establish
     * them if the caller did not run the full pipeline */
    if cfg.Live == nil {
        new(Liveness).Apply(cfg)
    }
    if cfg.Remat == nil {
        new(Rematerialize).Apply(cfg)
    }

    /* Step 1: the global next-use fixed point */
    blocks := make([]_SpillBlock, cfg.MaxBlock())
    globalNextUseDistances(cfg, blocks)
    validateNextUseInfo(cfg, blocks)

    /* fresh slot assignment for this run */
    cfg.Slots = newSlotMap(self.Base)

    /* Step 2: simulate every block separately, in reverse post-order so
     * all forward predecessors are settled first; back edges only reach
     * loop headers, which use their own entry heuristic */
    order := cfg.PostOrder().Reversed()
    for _, bb := range order {
        ctx := &_SpillCtx {
            cfg    : cfg,
            block  : bb,
            blocks : blocks,
            w      : make(_RegSet),
            s      : make(_RegSet),
            next   : make(map[Reg]_Dist),
            k      : self.K,
            cmp    : cmp,
        }
        ctx.computeWEntry()
        ctx.computeSEntry()
        ctx.minAlgorithm()

        /* optional dump of the block summary */
        if _DebugSpill {
            dumpSpillBlock(bb, &blocks[bb.Id])
        }
    }

    /* Step 3: now that all blocks are processed separately, stitch the
     * decisions together along every edge */
    for _, bb := range order {
        ctx := &_SpillCtx {
            cfg    : cfg,
            blocks : blocks,
            k      : self.K,
            cmp    : cmp,
        }
        for _, pred := range bb.Pred {
            ctx.insertCouplingCode(pred, bb)
        }
    }
}
