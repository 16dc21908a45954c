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

func TestLiveness_Diamond(t *testing.T) {
    cfg := testDiamond()
    new(Liveness).Apply(cfg)
    b0, b1, b2, b3 := cfg.Blocks[0], cfg.Blocks[1], cfg.Blocks[2], cfg.Blocks[3]
    lv := cfg.Live

    /* bb_0 defines everything it needs */
    require.Equal(t, regset(), lv.In[b0.Id])
    require.Equal(t, regset(Sv(0), Sv(1), Sv(2)), lv.Out[b0.Id])

    /* the branches consume %1 / %2 and pass %0 through; the phi sources
     * are live out of their own predecessor only */
    require.Equal(t, regset(Sv(0), Sv(1), Sv(2)), lv.In[b1.Id])
    require.Equal(t, regset(Sv(0), Sv(3)), lv.Out[b1.Id])
    require.Equal(t, regset(Sv(0), Sv(4)), lv.Out[b2.Id])

    /* the phi destination counts as live-in to the join block */
    require.Equal(t, regset(Sv(0), Sv(5)), lv.In[b3.Id])
    require.Equal(t, regset(), lv.Out[b3.Id])
}

func TestLiveness_Kills(t *testing.T) {
    cfg := testDiamond()
    new(Liveness).Apply(cfg)
    b0, b1, b3 := cfg.Blocks[0], cfg.Blocks[1], cfg.Blocks[3]
    lv := cfg.Live

    /* %1 and %2 die at the adds, %0 survives until the join block */
    require.True(t, lv.killedAt(pos(b1, 0), Sv(1)))
    require.True(t, lv.killedAt(pos(b1, 0), Sv(2)))
    require.False(t, lv.killedAt(termpos(b0), Sv(0)))
    require.True(t, lv.killedAt(pos(b3, 0), Sv(0)))
    require.True(t, lv.killedAt(pos(b3, 0), Sv(5)))
    require.True(t, lv.killedAt(termpos(b3), Sv(6)))
}

func TestLiveness_Loop(t *testing.T) {
    cfg := testLoop()
    new(Liveness).Apply(cfg)
    b1, b2 := cfg.Blocks[1], cfg.Blocks[2]
    lv := cfg.Live

    /* the invariant %1 stays live around the loop, the carried value
     * flows through the phi */
    require.Equal(t, regset(Sv(1), Sv(2)), lv.In[b1.Id])
    require.Equal(t, regset(Sv(1), Sv(2)), lv.In[b2.Id])
    require.Equal(t, regset(Sv(1), Sv(3)), lv.Out[b2.Id])
    require.False(t, lv.killedAt(pos(b2, 0), Sv(1)))
    require.True(t, lv.killedAt(pos(b2, 0), Sv(2)))
}
