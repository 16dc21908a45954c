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

func TestNextUse_Diamond(t *testing.T) {
    cfg := testDiamond()
    b0, b1, b3 := cfg.Blocks[0], cfg.Blocks[1], cfg.Blocks[3]
    blocks := make([]_SpillBlock, cfg.MaxBlock())
    globalNextUseDistances(cfg, blocks)

    /* in the join block %0 and the phi value are both read right after
     * the phi tick */
    require.Equal(t, _Dist(1), blocks[b3.Id].nextUseIn.get(Sv(0)))
    require.Equal(t, _Dist(1), blocks[b3.Id].nextUseIn.get(Sv(5)))

    /* the branch reads %1 and %2 immediately; %0 is only read across the
     * join, one phi tick plus the branch block away */
    require.Equal(t, _Dist(0), blocks[b1.Id].nextUseIn.get(Sv(1)))
    require.Equal(t, _Dist(0), blocks[b1.Id].nextUseIn.get(Sv(2)))
    require.Equal(t, _Dist(3), blocks[b1.Id].nextUseIn.get(Sv(0)))

    /* the phi source becomes live at distance zero on its own edge */
    require.Equal(t, _Dist(0), blocks[b1.Id].nextUseOut.get(Sv(3)))
    require.Equal(t, _Dist(3), blocks[b0.Id].nextUseOut.get(Sv(0)))

    /* locally defined values are not live-in */
    require.Equal(t, _D_infinity, blocks[b0.Id].nextUseIn.get(Sv(0)))
    require.Equal(t, _D_infinity, blocks[b1.Id].nextUseIn.get(Sv(3)))
}

func TestNextUse_Loop(t *testing.T) {
    cfg := testLoop()
    b1, b2 := cfg.Blocks[1], cfg.Blocks[2]
    blocks := make([]_SpillBlock, cfg.MaxBlock())
    globalNextUseDistances(cfg, blocks)

    /* the invariant stays at a finite distance around the back edge */
    require.Less(t, blocks[b1.Id].nextUseIn.get(Sv(1)), _D_infinity)
    require.Less(t, blocks[b2.Id].nextUseOut.get(Sv(1)), _D_infinity)

    /* the body reads both the counter and the invariant right away */
    require.Equal(t, _Dist(0), blocks[b2.Id].nextUseIn.get(Sv(1)))
    require.Equal(t, _Dist(0), blocks[b2.Id].nextUseIn.get(Sv(2)))
}

func TestNextUse_FixedPointStable(t *testing.T) {
    cfg := testLoop()
    fst := make([]_SpillBlock, cfg.MaxBlock())
    snd := make([]_SpillBlock, cfg.MaxBlock())
    globalNextUseDistances(cfg, fst)
    globalNextUseDistances(cfg, snd)

    /* the fixed point is a function of the CFG alone */
    for i := range fst {
        require.Equal(t, fst[i].nextUseIn, snd[i].nextUseIn)
        require.Equal(t, fst[i].nextUseOut, snd[i].nextUseOut)
        require.Equal(t, fst[i].cycles, snd[i].cycles)
    }
}

func TestNextUse_LivenessAgreement(t *testing.T) {
    for _, cfg := range []*CFG { testDiamond(), testLoop() } {
        new(Liveness).Apply(cfg)
        blocks := make([]_SpillBlock, cfg.MaxBlock())
        globalNextUseDistances(cfg, blocks)
        require.NotPanics(t, func() { validateNextUseInfo(cfg, blocks) })
    }
}
