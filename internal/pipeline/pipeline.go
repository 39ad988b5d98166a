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

// Package pipeline assembles the default optimization pipeline: the core
// passes at O1 and above, plus every registered plugin.
package pipeline

import (
    `fmt`
    `io`

    `github.com/cloudwego/lanefold/internal/ir`
    `github.com/cloudwego/lanefold/internal/opts`
    `github.com/cloudwego/lanefold/internal/pass`
    `github.com/cloudwego/lanefold/internal/transform/tdce`

    _ `github.com/cloudwego/lanefold/internal/transform/sqfma`
)

type _PassDescriptor struct {
    pass pass.Pass
    desc string
}

var _passes = [...]_PassDescriptor {
    { desc: "Trivial Dead Code Elimination", pass: tdce.TDCE{} },
}

// Describe lists the core passes with their descriptions.
func Describe() map[string]string {
    ret := make(map[string]string, len(_passes))
    for _, p := range _passes { ret[p.pass.Name()] = p.desc }
    return ret
}

// Build creates the pass builder for `o`, with every plugin loaded, and the
// pipeline for its optimization level.
func Build(o opts.Options, diag io.Writer) (*pass.PassBuilder, *pass.ModulePassManager) {
    pb := pass.NewPassBuilder(o)
    core := make([]pass.Pass, 0, len(_passes))

    /* diagnostics stream */
    if diag != nil {
        pb.Diag = diag
    }

    /* the core passes */
    for _, p := range _passes {
        core = append(core, p.pass)
    }

    /* load the plugins and build the pipeline */
    pb.LoadPlugins()
    return pb, pb.BuildPipeline(pass.OptLevel(o.OptLevel), core...)
}

// Optimize runs the whole pipeline over `m`, calling every hook on the pass
// manager before it runs.
func Optimize(m *ir.Module, o opts.Options, diag io.Writer, hooks ...func(*pass.ModulePassManager)) (pass.PreservedAnalyses, error) {
    if o.OptLevel < 0 || o.OptLevel > int(pass.O3) {
        return pass.All(), fmt.Errorf("pipeline: invalid optimization level %d", o.OptLevel)
    }

    /* verify the input first */
    if err := ir.Verify(m); err != nil {
        return pass.All(), fmt.Errorf("pipeline: invalid input module: %w", err)
    }

    /* build and run the pipeline */
    _, mpm := Build(o, diag)
    for _, fn := range hooks { fn(mpm) }
    return mpm.Run(m, pass.NewAnalysisManager())
}
