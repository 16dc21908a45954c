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
    `os`

    `github.com/davecgh/go-spew/spew`
)

const (
    _DebugSpill = false
)

var (
    _DumpConfig = spew.ConfigState {
        Indent                  : "    ",
        SortKeys                : true,
        DisableMethods          : true,
        DisablePointerMethods   : true,
        DisablePointerAddresses : true,
    }
)

func dumpSpillBlock(bb *BasicBlock, sb *_SpillBlock) {
    fmt.Fprintf(os.Stdout, "bb_%d: W_entry = %s, W_exit = %s, S_entry = %s, S_exit = %s\n",
        bb.Id,
        regslicerepr(sb.wEntry),
        regslicerepr(sb.wExit),
        regslicerepr(sb.sEntry),
        regslicerepr(sb.sExit))
    _DumpConfig.Fdump(os.Stdout, sb.nextUseIn)
}
