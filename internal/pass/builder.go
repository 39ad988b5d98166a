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

package pass

import (
    `fmt`
    `io`
    `os`

    `github.com/cloudwego/lanefold/internal/opts`
)

type OptLevel uint8

const (
    O0 OptLevel = iota
    O1
    O2
    O3
)

func (self OptLevel) String() string {
    return fmt.Sprintf("O%d", uint8(self))
}

// ExtensionPoint names a fixed stage of the pipeline where plugins can add
// passes.
type ExtensionPoint uint8

const (
    PipelineStart ExtensionPoint = iota
    OptimizerLast
)

func (self ExtensionPoint) String() string {
    switch self {
        case PipelineStart : return "pipeline-start"
        case OptimizerLast : return "optimizer-last"
        default            : panic("unreachable")
    }
}

type EPCallback func(mpm *ModulePassManager, level OptLevel)

// PassBuilder assembles a pass pipeline from the core passes and the
// callbacks plugins registered at each extension point.
type PassBuilder struct {
    Diag io.Writer
    Opts opts.Options
    eps  map[ExtensionPoint][]EPCallback
}

func NewPassBuilder(o opts.Options) *PassBuilder {
    return &PassBuilder {
        Diag : os.Stderr,
        Opts : o,
        eps  : make(map[ExtensionPoint][]EPCallback),
    }
}

// Diagnostics returns the stream plugins should report matches to.
func (self *PassBuilder) Diagnostics() io.Writer {
    if self.Opts.Silent() || self.Diag == nil {
        return io.Discard
    } else {
        return self.Diag
    }
}

func (self *PassBuilder) RegisterCallback(ep ExtensionPoint, cb EPCallback) {
    self.eps[ep] = append(self.eps[ep], cb)
}

func (self *PassBuilder) RegisterPipelineStartEPCallback(cb EPCallback) {
    self.RegisterCallback(PipelineStart, cb)
}

func (self *PassBuilder) RegisterOptimizerLastEPCallback(cb EPCallback) {
    self.RegisterCallback(OptimizerLast, cb)
}

func (self *PassBuilder) invoke(ep ExtensionPoint, mpm *ModulePassManager, level OptLevel) {
    for _, cb := range self.eps[ep] {
        cb(mpm, level)
    }
}

// BuildPipeline creates the module pipeline for `level`: the pipeline-start
// callbacks, the core passes (skipped at O0), then the optimizer-last
// callbacks.
func (self *PassBuilder) BuildPipeline(level OptLevel, core ...Pass) *ModulePassManager {
    mpm := &ModulePassManager { VerifyEach: self.Opts.VerifyEach }
    self.invoke(PipelineStart, mpm, level)

    /* core passes */
    if level > O0 {
        for _, p := range core {
            mpm.AddPass(p)
        }
    }

    /* late extension point */
    self.invoke(OptimizerLast, mpm, level)
    return mpm
}
