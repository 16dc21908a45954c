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

// Pass represents a transformation of the CFG.
type Pass interface {
    Apply(*CFG)
}

// PassDescriptor describes a Pass as runnable by the pipeline.
type PassDescriptor struct {
    Pass Pass
    Name string
}

// Passes is the analysis pipeline that every function runs before
// spilling; the spiller itself is parameterized and appended by
// SpillRegisters.
var Passes = [...]PassDescriptor {
    { Name: "Critical Edge Splitting", Pass: new(SplitCritical)    },
    { Name: "Liveness Analysis",       Pass: new(Liveness)         },
    { Name: "Rematerialization",       Pass: new(Rematerialize)    },
}

func executeSpillPasses(cfg *CFG, k int, base uint32) {
    for _, p := range Passes {
        p.Pass.Apply(cfg)
    }
    Spill{K: k, Base: base}.Apply(cfg)
}

// SpillRegisters lowers the register pressure of cfg to at most k
// values, placing spill slots in scratch memory from byte offset base
// on. It returns the first free byte past the slots, i.e. the scratch
// size the function needs when base is 0.
func SpillRegisters(cfg *CFG, k int, base uint32) uint32 {
    executeSpillPasses(cfg, k, base)
    return cfg.Slots.Bytes
}
