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

func testCFG(nb int) *CFG {
    cfg := new(CFG)
    for i := 0; i < nb; i++ {
        cfg.CreateBlock()
    }
    cfg.Root = cfg.Blocks[0]
    return cfg
}

func jmp(to *BasicBlock) IrTerminator {
    return &IrSwitch{Ln: to}
}

func br(v Reg, then *BasicBlock, otherwise *BasicBlock) IrTerminator {
    return &IrSwitch {
        V  : v,
        Ln : otherwise,
        Br : map[int64]*BasicBlock { 0: then },
    }
}

func ret(rr ...Reg) IrTerminator {
    return &IrReturn{R: rr}
}

/* testDiamond builds:
 *
 *   bb_0: %0 = in0, %1 = in1, %2 = in2, branch %0 -> bb_1 / bb_2
 *   bb_1: %3 = %1 + %2
 *   bb_2: %4 = %1 - %2
 *   bb_3: %5 = phi(bb_1: %3, bb_2: %4), %6 = %5 + %0, ret %6
 */
func testDiamond() *CFG {
    cfg := testCFG(4)
    b0, b1, b2, b3 := cfg.Blocks[0], cfg.Blocks[1], cfg.Blocks[2], cfg.Blocks[3]

    v0 := cfg.NewValue()
    v1 := cfg.NewValue()
    v2 := cfg.NewValue()
    v3 := cfg.NewValue()
    v4 := cfg.NewValue()
    v5 := cfg.NewValue()
    v6 := cfg.NewValue()

    b0.Ins = []IrNode {
        &IrLoadInput{R: v0, Id: 0},
        &IrLoadInput{R: v1, Id: 1},
        &IrLoadInput{R: v2, Id: 2},
    }
    b0.Term = br(v0, b1, b2)

    b1.Ins = []IrNode { &IrBinaryExpr{R: v3, X: v1, Y: v2, Op: IrOpAdd} }
    b1.Term = jmp(b3)

    b2.Ins = []IrNode { &IrBinaryExpr{R: v4, X: v1, Y: v2, Op: IrOpSub} }
    b2.Term = jmp(b3)

    b3.Phi = []*IrPhi {{
        R: v5,
        V: map[*BasicBlock]*Reg {
            b1: regnewref(v3),
            b2: regnewref(v4),
        },
    }}
    b3.Ins = []IrNode { &IrBinaryExpr{R: v6, X: v5, Y: v0, Op: IrOpAdd} }
    b3.Term = ret(v6)

    cfg.Rebuild()
    return cfg
}

/* testLoop builds:
 *
 *   bb_0: %0 = mov $0, %1 = in0
 *   bb_1: %2 = phi(bb_0: %0, bb_2: %3), branch %2 -> bb_3 / bb_2
 *   bb_2: %3 = %2 + %1, back to bb_1
 *   bb_3: ret %2
 */
func testLoop() *CFG {
    cfg := testCFG(4)
    b0, b1, b2, b3 := cfg.Blocks[0], cfg.Blocks[1], cfg.Blocks[2], cfg.Blocks[3]

    v0 := cfg.NewValue()
    v1 := cfg.NewValue()
    v2 := cfg.NewValue()
    v3 := cfg.NewValue()

    b0.Ins = []IrNode {
        &IrMov{R: v0, V: Iv(0)},
        &IrLoadInput{R: v1, Id: 0},
    }
    b0.Term = jmp(b1)

    b1.Phi = []*IrPhi {{
        R: v2,
        V: map[*BasicBlock]*Reg {
            b0: regnewref(v0),
            b2: regnewref(v3),
        },
    }}
    b1.Term = br(v2, b3, b2)

    b2.Ins = []IrNode { &IrBinaryExpr{R: v3, X: v2, Y: v1, Op: IrOpAdd} }
    b2.Term = jmp(b1)

    b3.Term = ret(v2)
    cfg.Rebuild()
    return cfg
}

func TestCFG_PostOrder(t *testing.T) {
    cfg := testDiamond()
    rpo := cfg.PostOrder().Reversed()
    require.Equal(t, len(cfg.Blocks), len(rpo))
    require.Same(t, cfg.Root, rpo[0])

    /* the join block must come after both branches */
    require.Same(t, cfg.Blocks[3], rpo[3])
}

func TestCFG_Dominators(t *testing.T) {
    cfg := testDiamond()
    b0, b1, b2, b3 := cfg.Blocks[0], cfg.Blocks[1], cfg.Blocks[2], cfg.Blocks[3]
    require.Same(t, b0, cfg.DominatedBy[b1.Id])
    require.Same(t, b0, cfg.DominatedBy[b2.Id])
    require.Same(t, b0, cfg.DominatedBy[b3.Id])
    require.True(t, cfg.dominates(b0, b3))
    require.False(t, cfg.dominates(b1, b3))
    require.False(t, cfg.dominates(b3, b1))
}

func TestCFG_LoopHeaders(t *testing.T) {
    cfg := testLoop()
    require.True(t, cfg.Blocks[1].LoopHeader)
    require.False(t, cfg.Blocks[0].LoopHeader)
    require.False(t, cfg.Blocks[2].LoopHeader)
    require.False(t, cfg.Blocks[3].LoopHeader)

    /* the diamond has no back edges at all */
    for _, bb := range testDiamond().Blocks {
        require.False(t, bb.LoopHeader)
    }
}

func TestCFG_LoopHeadersNested(t *testing.T) {
    /* bb_1 heads the outer loop, bb_2 the inner one:
     *   bb_0: %0 = input[0], jump bb_1
     *   bb_1: branch %0 ? bb_2 : bb_5
     *   bb_2: branch %0 ? bb_3 : bb_4
     *   bb_3: back to bb_2
     *   bb_4: back to bb_1
     *   bb_5: ret
     */
    cfg := testCFG(6)
    b0, b1, b2 := cfg.Blocks[0], cfg.Blocks[1], cfg.Blocks[2]
    b3, b4, b5 := cfg.Blocks[3], cfg.Blocks[4], cfg.Blocks[5]

    v0 := cfg.NewValue()
    b0.Ins = []IrNode { &IrLoadInput{R: v0, Id: 0} }
    b0.Term = jmp(b1)
    b1.Term = br(v0, b2, b5)
    b2.Term = br(v0, b3, b4)
    b3.Term = jmp(b2)
    b4.Term = jmp(b1)
    b5.Term = ret()
    cfg.Rebuild()

    require.True(t, b1.LoopHeader)
    require.True(t, b2.LoopHeader)
    require.False(t, b0.LoopHeader)
    require.False(t, b3.LoopHeader)
    require.False(t, b4.LoopHeader)
    require.False(t, b5.LoopHeader)
}
