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

package sqfma

import (
    `github.com/cloudwego/lanefold/internal/pass`
)

const Version = "v0.1"

func init() {
    pass.MustRegister(PluginInfo())
}

// PluginInfo describes the fold as a pass builder plugin. It is added at
// the start of the pipeline, or last when the late extension point is
// requested.
func PluginInfo() pass.PluginInfo {
    return pass.PluginInfo {
        APIVersion                   : pass.PluginAPIVersion,
        Name                         : Name,
        Version                      : Version,
        RegisterPassBuilderCallbacks : registerCallbacks,
    }
}

func registerCallbacks(pb *pass.PassBuilder) {
    cb := func(mpm *pass.ModulePassManager, _ pass.OptLevel) {
        mpm.AddPass(&Pass {
            Diag  : pb.Diagnostics(),
            Trace : pb.Opts.Trace,
        })
    }

    /* pick the extension point */
    if pb.Opts.LateEP {
        pb.RegisterOptimizerLastEPCallback(cb)
    } else {
        pb.RegisterPipelineStartEPCallback(cb)
    }
}
