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
    `strings`
)

type BasicBlock struct {
    Id         int
    Phi        []*IrPhi
    Ins        []IrNode
    Pred       []*BasicBlock
    Term       IrTerminator
    LoopHeader bool
}

func (self *BasicBlock) String() string {
    buf := make([]string, 0, len(self.Phi) + len(self.Ins) + 2)
    buf = append(buf, fmt.Sprintf("bb_%d:", self.Id))

    /* dump phis, body and terminator */
    for _, v := range self.Phi { buf = append(buf, "  " + v.String()) }
    for _, v := range self.Ins { buf = append(buf, "  " + v.String()) }
    buf = append(buf, "  " + self.Term.String())
    return strings.Join(buf, "\n")
}

func (self *BasicBlock) numSuccessors() (n int) {
    for it := self.Term.Successors(); it.Next(); {
        n++
    }
    return
}

/* prepend inserts instructions at the very beginning of the block body,
 * after the phis (phis live on the edges, not in the body). */
func (self *BasicBlock) prepend(ins ...IrNode) {
    self.Ins = append(ins, self.Ins...)
}

/* appendBody inserts instructions at the logical end of the block, which
 * is right before the terminator. */
func (self *BasicBlock) appendBody(ins ...IrNode) {
    self.Ins = append(self.Ins, ins...)
}

/* edgeBlock maps a control flow edge onto the unique block that owns it.
 * The CFG must not contain critical edges. */
func edgeBlock(pred *BasicBlock, succ *BasicBlock) *BasicBlock {
    if pred.numSuccessors() == 1 {
        return pred
    }

    /* the predecessor has multiple successors, so this must be the only
     * edge entering the successor, otherwise the edge would be critical */
    if len(succ.Pred) != 1 {
        panic(fmt.Sprintf("spill: critical edge bb_%d -> bb_%d", pred.Id, succ.Id))
    } else {
        return succ
    }
}

/* insertOnEdge places instructions along the edge from pred to succ, at
 * the end of pred if the edge endpoint is unique there, or at the start
 * of succ otherwise. */
func insertOnEdge(pred *BasicBlock, succ *BasicBlock, ins ...IrNode) {
    if bb := edgeBlock(pred, succ); bb == pred {
        bb.appendBody(ins...)
    } else {
        bb.prepend(ins...)
    }
}
