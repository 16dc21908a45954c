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

/* canRemat identifies instructions that are cheaper to recompute than to
 * reload: moves of immediates, which depend on nothing. */
func canRemat(v IrNode) bool {
    if p, ok := v.(*IrMov); ok {
        return p.V.Imm()
    } else {
        return false
    }
}

/* rematTo re-emits the recipe of a rematerializable value with a new
 * destination. */
func rematTo(recipe IrNode, dst Reg) IrNode {
    if p, ok := recipe.(*IrMov); ok && p.V.Imm() {
        return &IrMov{R: dst, V: p.V}
    } else {
        panic("spill: invalid remat recipe: " + recipe.String())
    }
}

// Rematerialize scans the function for values that may be recomputed
// instead of spilled, and records their defining instructions for the
// spiller to re-emit at reload points.
type Rematerialize struct{}

func (Rematerialize) Apply(cfg *CFG) {
    remat := make(map[Reg]IrNode)

    /* scan every block for remat recipes */
    for _, bb := range cfg.PostOrder().Reversed() {
        for _, v := range bb.Ins {
            if canRemat(v) {
                remat[v.(*IrMov).R] = v
            }
        }
    }

    /* attach to the CFG */
    cfg.Remat = remat
}
