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
)

/* Decide W and S at the entry of the current block, before the local
 * simulation runs. These are heuristics: any choice is correct as long
 * as |W| <= k, the coupling code repairs whatever the choice implies on
 * each incoming edge. */

/* computeWEntryLoopHeader seeds the register file of a loop header. The
 * predecessors along back edges have not been simulated yet, so instead
 * of consulting exit states we keep the values the loop will want
 * soonest, which tends to hold loop-carried values in registers across
 * the back edge. */
func (self *_SpillCtx) computeWEntryLoopHeader() {
    sb := &self.blocks[self.block.Id]
    cc := make([]_Candidate, 0, len(sb.nextUseIn))

    /* everything live-in, phi destinations included */
    for r, d := range sb.nextUseIn {
        cc = append(cc, _Candidate{node: r, dist: d})
    }

    /* nearest first, admit while the budget allows */
    self.sortCandidates(cc)
    for _, c := range cc {
        if len(self.w) + 1 <= self.k {
            self.insertW(c.node)
        }
    }
    sb.wEntry = self.w.toslice()
}

/* computeWEntry seeds the register file at block entry. Values resident
 * in every simulated predecessor stay resident for free; values
 * resident somewhere, and phis whose sources are all resident, compete
 * for the remaining budget by next-use distance. */
func (self *_SpillCtx) computeWEntry() {
    bb := self.block
    sb := &self.blocks[bb.Id]

    /* start blocks begin with an empty register file */
    if len(bb.Pred) == 0 {
        return
    }

    /* back edges invalidate the predecessor exit states */
    if bb.LoopHeader {
        self.computeWEntryLoopHeader()
        return
    }

    /* count in how many predecessors each value exits resident */
    freq := make(map[Reg]int)
    for _, p := range bb.Pred {
        for _, v := range self.blocks[p.Id].wExit {
            freq[v]++
        }
    }

    /* resident everywhere is free: the value fits in every predecessor
     * budget, so keeping it costs no coupling code; resident somewhere
     * makes it a candidate */
    cc := make([]_Candidate, 0, len(sb.nextUseIn))
    for r, d := range sb.nextUseIn {
        if freq[r] == len(bb.Pred) {
            self.insertW(r)
        } else if freq[r] > 0 {
            cc = append(cc, _Candidate{node: r, dist: d})
        }
    }

    /* a phi destination is a candidate when every SSA source is
     * resident in its predecessor; constant sources materialize on the
     * edge and never occupy a predecessor register */
    for _, phi := range bb.Phi {
        ok := true
        for _, p := range bb.Pred {
            src := *phi.V[p]
            if src.Ssa() && !self.blocks[p.Id].wExitHas(src) {
                ok = false
                break
            }
        }
        if ok {
            cc = append(cc, _Candidate{node: phi.R, dist: sb.nextUseIn.get(phi.R)})
        }
    }

    /* admit by preference while the budget allows */
    self.sortCandidates(cc)
    for _, c := range cc {
        if len(self.w) + 1 <= self.k {
            self.insertW(c.node)
        }
    }

    /* the freely admitted set is bounded by any one predecessor exit,
     * so this cannot actually fire */
    if len(self.w) > self.k {
        panic(fmt.Sprintf("spill: entry state of bb_%d exceeds the register budget", bb.Id))
    }
    sb.wEntry = self.w.toslice()
}

/* computeSEntry seeds the spilled set at block entry: whatever any
 * predecessor already spilled, plus everything live into the block that
 * did not make it into W. Dead entries are filtered by liveness so the
 * set does not grow along long chains. */
func (self *_SpillCtx) computeSEntry() {
    bb := self.block
    sb := &self.blocks[bb.Id]
    lv := self.cfg.Live.In[bb.Id]

    for _, p := range bb.Pred {
        for _, v := range self.blocks[p.Id].sExit {
            if lv.contains(v) {
                self.s.add(v)
            }
        }
    }
    for r := range lv {
        if !self.w.contains(r) {
            self.s.add(r)
        }
    }
    sb.sEntry = self.s.toslice()
}
