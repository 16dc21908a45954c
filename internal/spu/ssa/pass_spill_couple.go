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

/* Coupling code reconciles the spilling decisions of two blocks along
 * the edge between them: the successor assumed some register file and
 * spilled set at entry, the predecessor delivers some other pair at
 * exit, and the difference becomes stores and loads on the edge. The
 * pass that split critical edges guarantees every such edge has a spot
 * to put them. */

/* coupleMemoryPhi lowers one source of a phi whose destination was
 * spilled: the phi becomes a memory-to-memory move performed by the
 * register allocator, so the source must be a slot too. */
func (self *_SpillCtx) coupleMemoryPhi(pred *BasicBlock, phi *IrPhi) {
    src := *phi.V[pred]
    slots := self.cfg.Slots

    /* constant sources have no register to store from; materialize a
     * fresh value once, at the start of the function where the register
     * file is known to be empty, and fill its slot there */
    if !src.Ssa() {
        gpr := self.cfg.NewValue()
        mem := slots.SlotOf(gpr)
        self.cfg.Root.prepend(
            &IrMov{R: gpr, V: src},
            &IrStoreScratch{R: gpr, Slot: mem},
        )
        self.cfg.Spills++
        phi.V[pred] = regnewref(mem)
        return
    }

    /* rematerializable sources never got a store from the local
     * simulation, their slot is only ever written here; recompute into
     * a temporary at the end of the predecessor and store that */
    if recipe := self.cfg.Remat[src]; recipe != nil {
        tmp := self.cfg.NewValue()
        pred.appendBody(
            rematTo(recipe, tmp),
            &IrStoreScratch{R: tmp, Slot: slots.SlotOf(src)},
        )
        self.cfg.Spills++
        phi.V[pred] = regnewref(slots.SlotOf(src))
        return
    }

    /* plain values: store at the end of the predecessor unless it
     * already left the value spilled */
    if !self.blocks[pred.Id].sExitHas(src) {
        pred.appendBody(&IrStoreScratch{R: src, Slot: slots.SlotOf(src)})
        self.cfg.Spills++
    }
    phi.V[pred] = regnewref(slots.SlotOf(src))
}

/* insertCouplingCode fixes up one edge of the CFG after both of its
 * ends have been simulated. */
func (self *_SpillCtx) insertCouplingCode(pred *BasicBlock, succ *BasicBlock) {
    sp := &self.blocks[pred.Id]
    ss := &self.blocks[succ.Id]
    slots := self.cfg.Slots

    /* spilled phis first: their destination was rewritten to a slot by
     * the local simulation, now each source must become one */
    for _, phi := range succ.Phi {
        if phi.R.Mem() && !(*phi.V[pred]).Mem() {
            self.coupleMemoryPhi(pred, phi)
        }
    }

    /* values the successor assumes spilled but the predecessor did not
     * spill; phi destinations were just dealt with above */
    spills:
    for _, v := range ss.sEntry {
        if sp.sExitHas(v) {
            continue
        }
        for _, phi := range succ.Phi {
            if slots.chase(phi.R) == v {
                continue spills
            }
        }
        if ins := self.makeSpill(v); len(ins) != 0 {
            insertOnEdge(pred, succ, ins...)
        }
    }

    /* values the successor assumes resident but the predecessor does
     * not deliver; phi destinations are defined by the phi itself */
    reloads:
    for _, v := range ss.wEntry {
        if sp.wExitHas(v) {
            continue
        }
        for _, phi := range succ.Phi {
            if phi.R == v {
                continue reloads
            }
        }
        insertOnEdge(pred, succ, self.makeReload(v))
    }

    /* register phis whose source left the predecessor spilled: bring
     * the source back so the phi move has something to copy; constant
     * sources are the register allocator's problem */
    for _, phi := range succ.Phi {
        if phi.R.Mem() {
            continue
        }
        if src := *phi.V[pred]; src.Ssa() && !sp.wExitHas(src) {
            insertOnEdge(pred, succ, self.makeReload(src))
        }
    }
}
