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

type FuncLiveness struct {
    In    map[int]_RegSet
    Out   map[int]_RegSet
    Kills map[_Pos]_RegSet
}

/* killedAt reports whether r dies at the given position. */
func (self *FuncLiveness) killedAt(p _Pos, r Reg) bool {
    return self.Kills[p].contains(r)
}

// Liveness computes per-block live-in and live-out sets and the kill
// position of every SSA use. Phis act on the edges: a phi destination
// counts as live-in to its own block, while its sources are only live
// out of the matching predecessor.
type Liveness struct{}

func (self Liveness) flow(bb *BasicBlock, out _RegSet) _RegSet {
    regs := out.clone()

    /* the terminator reads first when walking backwards */
    for _, u := range usages(bb.Term) {
        if u.Ssa() {
            regs.add(*u)
        }
    }

    /* walk the body backwards */
    for i := len(bb.Ins) - 1; i >= 0; i-- {
        for _, d := range definitions(bb.Ins[i]) {
            regs.remove(*d)
        }
        for _, u := range usages(bb.Ins[i]) {
            if u.Ssa() {
                regs.add(*u)
            }
        }
    }

    /* phi destinations are defined on the incoming edges, so they stay
     * live-in; phi sources belong to the predecessors */
    return regs
}

func (self Liveness) kills(bb *BasicBlock, out _RegSet, kills map[_Pos]_RegSet) {
    live := out.clone()

    /* a use is a kill iff the value is dead right after the reader */
    record := func(p _Pos, v IrNode) {
        for _, u := range usages(v) {
            if r := *u; r.Ssa() && !live.contains(r) {
                if kills[p] == nil {
                    kills[p] = make(_RegSet)
                }
                kills[p].add(r)
            }
        }
        for _, d := range definitions(v) {
            live.remove(*d)
        }
        for _, u := range usages(v) {
            if u.Ssa() {
                live.add(*u)
            }
        }
    }

    /* terminator first, then the body backwards */
    record(termpos(bb), bb.Term)
    for i := len(bb.Ins) - 1; i >= 0; i-- {
        record(pos(bb, i), bb.Ins[i])
    }
}

func (self Liveness) Apply(cfg *CFG) {
    nb := cfg.MaxBlock()
    in := make(map[int]_RegSet, nb)
    out := make(map[int]_RegSet, nb)

    /* empty initial sets */
    for _, bb := range cfg.Blocks {
        in[bb.Id] = make(_RegSet)
        out[bb.Id] = make(_RegSet)
    }

    /* backward worklist iteration */
    wl := newBlockWorklist(nb)
    for i := len(cfg.Blocks) - 1; i >= 0; i-- {
        wl.push(cfg.Blocks[i])
    }

    for !wl.empty() {
        bb := wl.pop()

        /* live-out is the union over successors of their live-in, with
         * the phi effects applied per edge */
        regs := out[bb.Id]
        for it := bb.Term.Successors(); it.Next(); {
            succ := it.Block()
            si := in[succ.Id].clone()

            /* kill the phi writes, then add the sources for this edge */
            for _, phi := range succ.Phi {
                si.remove(phi.R)
            }
            for _, phi := range succ.Phi {
                if op := *phi.V[bb]; op.Ssa() {
                    si.add(op)
                }
            }
            regs.union(si)
        }

        /* recompute live-in; the sets only ever grow, so a size check
         * detects progress */
        rs := self.flow(bb, regs)
        if len(rs) != len(in[bb.Id]) {
            in[bb.Id] = rs
            for _, p := range bb.Pred {
                wl.push(p)
            }
        }
    }

    /* derive the kill positions from the converged sets */
    kills := make(map[_Pos]_RegSet)
    for _, bb := range cfg.Blocks {
        self.kills(bb, out[bb.Id], kills)
    }

    /* attach to the CFG */
    cfg.Live = &FuncLiveness {
        In    : in,
        Out   : out,
        Kills : kills,
    }
}
