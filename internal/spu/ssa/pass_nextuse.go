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

    `github.com/oleiade/lane`
)

type _BlockWorklist struct {
    q  *lane.Deque
    in []bool
}

func newBlockWorklist(nb int) *_BlockWorklist {
    return &_BlockWorklist {
        q  : lane.NewDeque(),
        in : make([]bool, nb),
    }
}

func (self *_BlockWorklist) empty() bool {
    return self.q.Empty()
}

func (self *_BlockWorklist) push(bb *BasicBlock) {
    if !self.in[bb.Id] {
        self.in[bb.Id] = true
        self.q.Append(bb)
    }
}

func (self *_BlockWorklist) pop() (bb *BasicBlock) {
    bb = self.q.Shift().(*BasicBlock)
    self.in[bb.Id] = false
    return
}

/* globalNextUseDistances runs the backward fixed point that computes, for
 * every block, the next-use distance map at its entry and exit. Distances
 * only ever decrease and are bounded below, so the worklist terminates.
 *
 * Phis are excluded from the local walk: they act on the edges, so their
 * effects are applied per predecessor when propagating, by killing the
 * destination and making the matching source live at distance zero. */
func globalNextUseDistances(cfg *CFG, blocks []_SpillBlock) {
    wl := newBlockWorklist(cfg.MaxBlock())

    /* initialize the per-block state, scheduling every block once; later
     * blocks are visited first since the dataflow runs backwards */
    for _, bb := range cfg.Blocks {
        sb := &blocks[bb.Id]
        sb.cycles = blockCycles(bb)
        sb.nextUseIn = make(_NextUses)
        sb.nextUseOut = make(_NextUses)
    }
    for i := len(cfg.Blocks) - 1; i >= 0; i-- {
        wl.push(cfg.Blocks[i])
    }

    /* scratch state, reused across iterations */
    dists := make(_NextUses)
    defined := make(_RegSet)

    for !wl.empty() {
        bb := wl.pop()
        sb := &blocks[bb.Id]

        /* local pass: distance from block entry to the first use of each
         * value, before any local redefinition */
        dists.clear()
        for r := range defined { defined.remove(r) }

        /* phis only advance the clock */
        cycle := _Dist(0)
        for _, v := range bb.Phi {
            cycle += instrCycles(v)
        }

        /* record first use before def, then record defs */
        for _, v := range bb.Ins {
            for _, u := range usages(v) {
                if r := *u; r.Ssa() && !defined.contains(r) && dists.get(r) == _D_infinity {
                    dists.set(r, cycle)
                }
            }
            for _, d := range definitions(v) {
                defined.add(*d)
            }
            cycle += instrCycles(v)
        }

        /* the terminator reads its condition at the end of the block */
        for _, u := range usages(bb.Term) {
            if r := *u; r.Ssa() && !defined.contains(r) && dists.get(r) == _D_infinity {
                dists.set(r, cycle)
            }
        }

        /* cycle counting must agree with the precomputed block length */
        if cycle += instrCycles(bb.Term); cycle != sb.cycles {
            panic(fmt.Sprintf("spill: inconsistent cycle count for bb_%d", bb.Id))
        }

        /* transfer function: shift the exit distances over the block, then
         * local first uses win (they are always smaller), then values
         * defined here are not live-in at all */
        for r, d := range sb.nextUseOut {
            sb.nextUseIn.set(r, distsum(d, sb.cycles))
        }
        for r, d := range dists {
            sb.nextUseIn.set(r, d)
        }
        for r := range defined {
            sb.nextUseIn.set(r, _D_infinity)
        }

        /* join into every predecessor's exit state, with the phi effects
         * of this block applied edge-wise */
        for _, pred := range bb.Pred {
            sp := &blocks[pred.Id]
            dists.assign(sb.nextUseIn)

            /* kill the phi writes */
            for _, phi := range bb.Phi {
                dists.set(phi.R, _D_infinity)
            }

            /* make the corresponding sources live */
            for _, phi := range bb.Phi {
                if op := *phi.V[pred]; op.Ssa() {
                    dists.set(op, 0)
                }
            }

            /* join by taking the minimum, re-scheduling on any change */
            if sp.nextUseOut.minimum(dists) {
                wl.push(pred)
            }
        }
    }
}

/* validateNextUseInfo checks the two-way consistency between liveness and
 * the converged next-use maps: a value has a finite distance at a block
 * boundary iff it is live across that boundary. */
func validateNextUseInfo(cfg *CFG, blocks []_SpillBlock) {
    for _, bb := range cfg.Blocks {
        sb := &blocks[bb.Id]
        in := cfg.Live.In[bb.Id]
        out := cfg.Live.Out[bb.Id]

        /* live values must have finite distances */
        for r := range in {
            if sb.nextUseIn.get(r) == _D_infinity {
                panic(fmt.Sprintf("spill: %s live-in to bb_%d but has no next use", r, bb.Id))
            }
        }
        for r := range out {
            if sb.nextUseOut.get(r) == _D_infinity {
                panic(fmt.Sprintf("spill: %s live-out of bb_%d but has no next use", r, bb.Id))
            }
        }

        /* finite distances must be live */
        for r := range sb.nextUseIn {
            if !in.contains(r) {
                panic(fmt.Sprintf("spill: %s has a next use at bb_%d entry but is not live-in", r, bb.Id))
            }
        }
        for r := range sb.nextUseOut {
            if !out.contains(r) {
                panic(fmt.Sprintf("spill: %s has a next use at bb_%d exit but is not live-out", r, bb.Id))
            }
        }
    }
}
