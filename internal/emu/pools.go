/*
 * Copyright 2022 ByteDance Inc.
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

package emu

import (
    `sync`

    `github.com/cloudwego/lanefold/internal/ir`
)

var (
    emulatorPool sync.Pool
)

func newEmulator() *Emulator {
    if v := emulatorPool.Get(); v == nil {
        return allocEmulator()
    } else {
        return resetEmulator(v.(*Emulator))
    }
}

func freeEmulator(p *Emulator) {
    emulatorPool.Put(p)
}

func allocEmulator() (p *Emulator) {
    p = new(Emulator)
    p.regs = make(map[*ir.Instr]Value, 64)
    return
}

func resetEmulator(p *Emulator) *Emulator {
    p.MaxSteps = 0
    p.fn, p.bb = nil, nil
    p.args, p.rv = nil, nil
    return p
}

// NewEmulator returns an emulator with the default step limit.
func NewEmulator() *Emulator {
    return allocEmulator()
}
