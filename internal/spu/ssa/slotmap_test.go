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

func TestSlotMap_Alloc(t *testing.T) {
    sm := newSlotMap(16)
    require.Equal(t, uint32(16), sm.Bytes)

    /* slots are stable and allocated on first use */
    require.Equal(t, Mv(16), sm.SlotOf(Sv(3)))
    require.Equal(t, Mv(16), sm.SlotOf(Sv(3)))
    require.Equal(t, Mv(20), sm.SlotOf(Sv(7)))
    require.Equal(t, uint32(24), sm.Bytes)

    /* and map back to their value */
    require.Equal(t, Sv(3), sm.ValueAt(Mv(16)))
    require.Equal(t, Sv(7), sm.ValueAt(Mv(20)))
    require.Equal(t, Sv(3), sm.chase(Mv(16)))
    require.Equal(t, Sv(5), sm.chase(Sv(5)))
}

func TestSlotMap_Invalid(t *testing.T) {
    sm := newSlotMap(0)
    require.Panics(t, func() { sm.SlotOf(Iv(1)) })
    require.Panics(t, func() { sm.ValueAt(Sv(0)) })
    require.Panics(t, func() { sm.ValueAt(Mv(64)) })
}
