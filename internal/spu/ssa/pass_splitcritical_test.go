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
    `testing`

    `github.com/stretchr/testify/require`
)

func hasCriticalEdges(cfg *CFG) bool {
    for _, bb := range cfg.Blocks {
        if len(bb.Pred) > 1 {
            for _, p := range bb.Pred {
                if p.numSuccessors() > 1 {
                    return true
                }
            }
        }
    }
    return false
}

func TestSplitCritical_Split(t *testing.T) {
    cfg := testCFG(3)
    b0, b1, b2 := cfg.Blocks[0], cfg.Blocks[1], cfg.Blocks[2]

    v0 := cfg.NewValue()
    v1 := cfg.NewValue()
    v2 := cfg.NewValue()

    /* bb_0 branches to bb_1 and bb_2, bb_1 falls through to bb_2, so the
     * edge bb_0 -> bb_2 is critical */
    b0.Ins = []IrNode { &IrLoadInput{R: v0, Id: 0} }
    b0.Term = br(v0, b1, b2)
    b1.Ins = []IrNode { &IrMov{R: v1, V: Iv(1)} }
    b1.Term = jmp(b2)
    b2.Phi = []*IrPhi {{
        R: v2,
        V: map[*BasicBlock]*Reg {
            b0: regnewref(v0),
            b1: regnewref(v1),
        },
    }}
    b2.Term = ret(v2)
    cfg.Rebuild()
    require.True(t, hasCriticalEdges(cfg))

    new(SplitCritical).Apply(cfg)
    require.False(t, hasCriticalEdges(cfg))
    require.Equal(t, 4, len(cfg.Blocks))

    /* the new block sits on the split edge with nothing in it */
    nb := cfg.Blocks[3]
    require.Empty(t, nb.Ins)
    require.Equal(t, []*BasicBlock{b0}, nb.Pred)

    /* the phi source moved from bb_0 to the new block */
    phi := b2.Phi[0]
    require.Nil(t, phi.V[b0])
    require.Equal(t, v0, *phi.V[nb])
    require.Equal(t, v1, *phi.V[b1])
}

func TestSplitCritical_NoOp(t *testing.T) {
    cfg := testDiamond()
    new(SplitCritical).Apply(cfg)
    require.False(t, hasCriticalEdges(cfg))
    require.Equal(t, 4, len(cfg.Blocks))
}
