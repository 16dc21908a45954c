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
    `strings`

    `github.com/oleiade/lane`
)

/* CFG is a whole function: its blocks in source order, the dominator
 * relation, and everything the pass pipeline leaves behind. All state is
 * owned by this object, there are no package-level globals. */
type CFG struct {
    Root        *BasicBlock
    Blocks      []*BasicBlock
    NValues     int
    DominatedBy map[int]*BasicBlock
    DominatorOf map[int][]*BasicBlock
    Live        *FuncLiveness
    Remat       map[Reg]IrNode
    Slots       *SlotMap
    Spills      int
    Fills       int
}

func (self *CFG) String() string {
    buf := make([]string, 0, len(self.Blocks))
    for _, bb := range self.Blocks { buf = append(buf, bb.String()) }
    return strings.Join(buf, "\n")
}

func (self *CFG) MaxBlock() int {
    return len(self.Blocks)
}

func (self *CFG) CreateBlock() (bb *BasicBlock) {
    bb = &BasicBlock { Id: len(self.Blocks) }
    self.Blocks = append(self.Blocks, bb)
    return
}

/* NewValue allocates a fresh SSA value id, for temporaries created after
 * the input program was built. */
func (self *CFG) NewValue() (r Reg) {
    r = Sv(self.NValues)
    self.NValues++
    return
}

func (self *CFG) block(id int) *BasicBlock {
    return self.Blocks[id]
}

/* Rebuild recomputes the predecessor lists, the dominator tree and the
 * loop header marks after the block graph was mutated. */
func (self *CFG) Rebuild() {
    for _, bb := range self.Blocks {
        bb.Pred = bb.Pred[:0]
        bb.LoopHeader = false
    }

    /* derive predecessors from the terminators */
    for _, bb := range self.Blocks {
        for it := bb.Term.Successors(); it.Next(); {
            p := it.Block()
            p.Pred = append(p.Pred, bb)
        }
    }

    /* dominators and loop headers follow from the new edges */
    buildDominatorTree(self)
    markLoopHeaders(self)
}

type BasicBlockIter struct {
    g *CFG
    b *BasicBlock
    s *lane.Stack
    v map[int]struct{}
}

func newBasicBlockIter(cfg *CFG) *BasicBlockIter {
    s := lane.NewStack()
    s.Push(cfg.Root)

    /* start from the root block */
    return &BasicBlockIter {
        g: cfg,
        s: s,
        v: map[int]struct{}{ cfg.Root.Id: {} },
    }
}

func (self *BasicBlockIter) Next() bool {
    var tail bool
    var this *BasicBlock

    /* scan until the stack is empty */
    for !self.s.Empty() {
        tail = true
        this = self.s.Head().(*BasicBlock)

        /* add the first unvisited successor */
        for it := this.Term.Successors(); it.Next(); {
            if p := it.Block(); p != nil {
                if _, ok := self.v[p.Id]; !ok {
                    tail = false
                    self.v[p.Id] = struct{}{}
                    self.s.Push(p)
                    break
                }
            }
        }

        /* all the successors are visited, pop the current node */
        if tail {
            self.b = self.s.Pop().(*BasicBlock)
            return true
        }
    }

    /* clear the basic block pointer to indicate no more blocks */
    self.b = nil
    return false
}

func (self *BasicBlockIter) Block() *BasicBlock {
    return self.b
}

func (self *BasicBlockIter) ForEach(action func(bb *BasicBlock)) {
    for self.Next() {
        action(self.b)
    }
}

func (self *BasicBlockIter) Reversed() []*BasicBlock {
    nb := len(self.g.Blocks)
    ret := make([]*BasicBlock, 0, nb)

    /* dump all the blocks */
    for self.Next() {
        ret = append(ret, self.b)
    }

    /* reverse the order */
    blockreverse(ret)
    return ret
}

/* PostOrder iterates the reachable blocks of the CFG in post-order. */
func (self *CFG) PostOrder() *BasicBlockIter {
    return newBasicBlockIter(self)
}
