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
    `strings`
)

type Reg uint64

const (
    _B_kind = 32
)

const (
    _M_kind  = 0x0f
    _R_value = (uint64(1) << _B_kind) - 1
)

const (
    _K_ssa  = 0
    _K_imm  = 1
    _K_unif = 2
    _K_mem  = 3
)

func mkreg(kind uint64, value uint64) Reg {
    return Reg(((kind & _M_kind) << _B_kind) | (value & _R_value))
}

/* Sv constructs an SSA value reference from its dense id. */
func Sv(id int) Reg {
    return mkreg(_K_ssa, uint64(id))
}

/* Iv constructs a 32-bit immediate operand. */
func Iv(v int32) Reg {
    return mkreg(_K_imm, uint64(uint32(v)))
}

/* Uv constructs a uniform register file reference. */
func Uv(id int) Reg {
    return mkreg(_K_unif, uint64(id))
}

/* Mv constructs a spill memory reference from a byte offset. */
func Mv(off uint32) Reg {
    return mkreg(_K_mem, uint64(off))
}

func (self Reg) kind() uint8 {
    return uint8(uint64(self) >> _B_kind)
}

func (self Reg) Ssa() bool {
    return self.kind() == _K_ssa
}

func (self Reg) Imm() bool {
    return self.kind() == _K_imm
}

func (self Reg) Unif() bool {
    return self.kind() == _K_unif
}

func (self Reg) Mem() bool {
    return self.kind() == _K_mem
}

func (self Reg) Value() uint32 {
    return uint32(uint64(self) & _R_value)
}

func (self Reg) Id() int {
    if !self.Ssa() {
        panic("ir: not an SSA value: " + self.String())
    } else {
        return int(self.Value())
    }
}

func (self Reg) String() string {
    switch self.kind() {
        case _K_ssa  : return fmt.Sprintf("%%%d", self.Value())
        case _K_imm  : return fmt.Sprintf("$%d", int32(self.Value()))
        case _K_unif : return fmt.Sprintf("u%d", self.Value())
        case _K_mem  : return fmt.Sprintf("[m:%#x]", self.Value())
        default      : panic("ir: invalid register kind")
    }
}

type IrNode interface {
    fmt.Stringer
    irnode()
}

func (*IrPhi)         irnode() {}
func (*IrMov)         irnode() {}
func (*IrUnaryExpr)   irnode() {}
func (*IrBinaryExpr)  irnode() {}
func (*IrFma)         irnode() {}
func (*IrLoadInput)   irnode() {}
func (*IrTexFetch)    irnode() {}
func (*IrExport)      irnode() {}
func (*IrLoadScratch) irnode() {}
func (*IrStoreScratch) irnode() {}
func (*IrSwitch)      irnode() {}
func (*IrReturn)      irnode() {}

type IrUsages interface {
    IrNode
    Usages() []*Reg
}

type IrDefinitions interface {
    IrNode
    Definitions() []*Reg
}

type IrPhi struct {
    R Reg
    V map[*BasicBlock]*Reg
}

func (self *IrPhi) String() string {
    nb := len(self.V)
    ret := make([]string, 0, nb)
    phi := make([]struct{b int; r Reg}, 0, nb)

    /* add each path */
    for bb, reg := range self.V {
        phi = append(phi, struct{b int; r Reg}{b: bb.Id, r: *reg})
    }

    /* sort by basic block ID */
    sort.Slice(phi, func(i int, j int) bool {
        return phi[i].b < phi[j].b
    })

    /* dump as string */
    for _, p := range phi {
        ret = append(ret, fmt.Sprintf("bb_%d: %s", p.b, p.r))
    }

    /* join them together */
    return fmt.Sprintf(
        "%s = φ(%s)",
        self.R,
        strings.Join(ret, ", "),
    )
}

func (self *IrPhi) Usages() (r []*Reg) {
    r = make([]*Reg, 0, len(self.V))
    for _, v := range self.V { r = append(r, v) }
    return
}

func (self *IrPhi) Definitions() []*Reg {
    return []*Reg { &self.R }
}

/* IrMov copies its operand, which may be an immediate or a uniform.
 * Immediate moves are the rematerialization recipes of this IR. */
type IrMov struct {
    R Reg
    V Reg
}

func (self *IrMov) String() string {
    return fmt.Sprintf("%s = mov %s", self.R, self.V)
}

func (self *IrMov) Usages() []*Reg {
    return []*Reg { &self.V }
}

func (self *IrMov) Definitions() []*Reg {
    return []*Reg { &self.R }
}

type (
    IrUnaryOp  uint8
    IrBinaryOp uint8
)

const (
    IrOpNeg IrUnaryOp = iota
    IrOpRcp
    IrOpRsqrt
    IrOpFloor
    IrOpF2I
    IrOpI2F
)

const (
    IrOpAdd IrBinaryOp = iota
    IrOpSub
    IrOpMul
    IrOpMin
    IrOpMax
    IrOpAnd
    IrOpShr
    IrCmpEq
    IrCmpLt
)

func (self IrUnaryOp) String() string {
    switch self {
        case IrOpNeg   : return "neg"
        case IrOpRcp   : return "rcp"
        case IrOpRsqrt : return "rsqrt"
        case IrOpFloor : return "floor"
        case IrOpF2I   : return "f2i"
        case IrOpI2F   : return "i2f"
        default        : panic("unreachable")
    }
}

func (self IrBinaryOp) String() string {
    switch self {
        case IrOpAdd : return "+"
        case IrOpSub : return "-"
        case IrOpMul : return "*"
        case IrOpMin : return "min"
        case IrOpMax : return "max"
        case IrOpAnd : return "&"
        case IrOpShr : return ">>"
        case IrCmpEq : return "=="
        case IrCmpLt : return "<"
        default      : panic("unreachable")
    }
}

type IrUnaryExpr struct {
    R  Reg
    V  Reg
    Op IrUnaryOp
}

func (self *IrUnaryExpr) String() string {
    return fmt.Sprintf("%s = %s %s", self.R, self.Op, self.V)
}

func (self *IrUnaryExpr) Usages() []*Reg {
    return []*Reg { &self.V }
}

func (self *IrUnaryExpr) Definitions() []*Reg {
    return []*Reg { &self.R }
}

type IrBinaryExpr struct {
    R  Reg
    X  Reg
    Y  Reg
    Op IrBinaryOp
}

func (self *IrBinaryExpr) String() string {
    return fmt.Sprintf("%s = %s %s %s", self.R, self.X, self.Op, self.Y)
}

func (self *IrBinaryExpr) Usages() []*Reg {
    return []*Reg { &self.X, &self.Y }
}

func (self *IrBinaryExpr) Definitions() []*Reg {
    return []*Reg { &self.R }
}

type IrFma struct {
    R Reg
    X Reg
    Y Reg
    Z Reg
}

func (self *IrFma) String() string {
    return fmt.Sprintf("%s = fma %s, %s, %s", self.R, self.X, self.Y, self.Z)
}

func (self *IrFma) Usages() []*Reg {
    return []*Reg { &self.X, &self.Y, &self.Z }
}

func (self *IrFma) Definitions() []*Reg {
    return []*Reg { &self.R }
}

type IrLoadInput struct {
    R  Reg
    Id uint32
}

func (self *IrLoadInput) String() string {
    return fmt.Sprintf("%s = load.input(#%d)", self.R, self.Id)
}

func (self *IrLoadInput) Definitions() []*Reg {
    return []*Reg { &self.R }
}

type IrTexFetch struct {
    Out   []Reg
    Coord Reg
    Layer Reg
    Tex   uint32
}

func (self *IrTexFetch) String() string {
    out := make([]string, 0, len(self.Out))
    for _, r := range self.Out { out = append(out, r.String()) }
    return fmt.Sprintf("%s = tex.fetch #%d, {%s, %s}", strings.Join(out, ", "), self.Tex, self.Coord, self.Layer)
}

func (self *IrTexFetch) Usages() []*Reg {
    return []*Reg { &self.Coord, &self.Layer }
}

func (self *IrTexFetch) Definitions() []*Reg {
    return regsliceref(self.Out)
}

/* IrExport writes a shaded result to an output slot. Consecutive exports
 * execute as one parallel group, so nothing may be inserted between them. */
type IrExport struct {
    In   []Reg
    Slot uint32
}

func (self *IrExport) String() string {
    in := make([]string, 0, len(self.In))
    for _, r := range self.In { in = append(in, r.String()) }
    return fmt.Sprintf("export #%d, {%s}", self.Slot, strings.Join(in, ", "))
}

func (self *IrExport) Usages() []*Reg {
    return regsliceref(self.In)
}

type IrLoadScratch struct {
    R    Reg
    Slot Reg
}

func (self *IrLoadScratch) String() string {
    return fmt.Sprintf("%s = ld.scratch %s", self.R, self.Slot)
}

func (self *IrLoadScratch) Definitions() []*Reg {
    return []*Reg { &self.R }
}

type IrStoreScratch struct {
    R    Reg
    Slot Reg
}

func (self *IrStoreScratch) String() string {
    return fmt.Sprintf("st.scratch %s, %s", self.R, self.Slot)
}

func (self *IrStoreScratch) Usages() []*Reg {
    return []*Reg { &self.R }
}

type IrSuccessors interface {
    Next() bool
    Block() *BasicBlock
    Value() (int64, bool)
    UpdateBlock(bb *BasicBlock)
}

type IrTerminator interface {
    IrNode
    Successors() IrSuccessors
    irterminator()
}

func (*IrSwitch) irterminator() {}
func (*IrReturn) irterminator() {}

type _SwitchSuccessors struct {
    i  int
    kk []int64
    sw *IrSwitch
}

func (self *_SwitchSuccessors) Next() bool {
    self.i++
    return self.i <= len(self.kk)
}

func (self *_SwitchSuccessors) Block() *BasicBlock {
    if self.i < len(self.kk) {
        return self.sw.Br[self.kk[self.i]]
    } else {
        return self.sw.Ln
    }
}

func (self *_SwitchSuccessors) Value() (int64, bool) {
    if self.i < len(self.kk) {
        return self.kk[self.i], true
    } else {
        return 0, false
    }
}

func (self *_SwitchSuccessors) UpdateBlock(bb *BasicBlock) {
    if self.i < len(self.kk) {
        self.sw.Br[self.kk[self.i]] = bb
    } else {
        self.sw.Ln = bb
    }
}

type IrSwitch struct {
    V  Reg
    Ln *BasicBlock
    Br map[int64]*BasicBlock
}

func (self *IrSwitch) String() string {
    nb := len(self.Br)
    ret := make([]string, 0, nb)

    /* no branches */
    if nb == 0 {
        return fmt.Sprintf("goto bb_%d", self.Ln.Id)
    }

    /* add each case, sorted by value */
    for _, id := range self.keys() {
        ret = append(ret, fmt.Sprintf("  %d => bb_%d,", id, self.Br[id].Id))
    }

    /* default branch */
    ret = append(ret, fmt.Sprintf(
        "  _ => bb_%d,",
        self.Ln.Id,
    ))

    /* join them together */
    return fmt.Sprintf(
        "switch %s {\n%s\n}",
        self.V,
        strings.Join(ret, "\n"),
    )
}

func (self *IrSwitch) keys() (kk []int64) {
    kk = make([]int64, 0, len(self.Br))
    for k := range self.Br { kk = append(kk, k) }
    sort.Slice(kk, func(i int, j int) bool { return kk[i] < kk[j] })
    return
}

func (self *IrSwitch) Usages() []*Reg {
    if len(self.Br) == 0 {
        return nil
    } else {
        return []*Reg { &self.V }
    }
}

func (self *IrSwitch) Successors() IrSuccessors {
    return &_SwitchSuccessors {
        i  : -1,
        kk : self.keys(),
        sw : self,
    }
}

type _EmptySuccessor struct{}
func (_EmptySuccessor) Next()  bool              { return false }
func (_EmptySuccessor) Block() *BasicBlock       { return nil }
func (_EmptySuccessor) Value() (int64, bool)     { return 0, false }
func (_EmptySuccessor) UpdateBlock(*BasicBlock)  {}

type IrReturn struct {
    R []Reg
}

func (self *IrReturn) String() string {
    nb := len(self.R)
    ret := make([]string, 0, nb)

    /* dump registers */
    for _, r := range self.R {
        ret = append(ret, r.String())
    }

    /* join them together */
    return fmt.Sprintf(
        "ret {%s}",
        strings.Join(ret, ", "),
    )
}

func (self *IrReturn) Usages() []*Reg {
    return regsliceref(self.R)
}

func (self *IrReturn) Successors() IrSuccessors {
    return _EmptySuccessor{}
}
