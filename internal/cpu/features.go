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

// Package cpu reports whether the host can execute the fused multiply-add
// the fold gives up on, for the CLI to show next to the plugin list.
package cpu

import (
    `runtime`
    `sort`

    `github.com/klauspost/cpuid/v2`
    `golang.org/x/sys/cpu`
)

// Info is a snapshot of the host CPU.
type Info struct {
    Arch     string
    Brand    string
    Cores    int
    HasFMA   bool
    HasAVX   bool
    HasASIMD bool
    Features []string
}

// Host describes the CPU the process runs on.
func Host() Info {
    ret := Info {
        Arch     : runtime.GOARCH,
        Brand    : cpuid.CPU.BrandName,
        Cores    : cpuid.CPU.PhysicalCores,
        HasFMA   : cpuid.CPU.Supports(cpuid.FMA3) || cpu.X86.HasFMA,
        HasAVX   : cpuid.CPU.Supports(cpuid.AVX) || cpu.X86.HasAVX,
        HasASIMD : cpuid.CPU.Supports(cpuid.ASIMD) || cpu.ARM64.HasASIMD,
        Features : cpuid.CPU.FeatureSet(),
    }

    /* unknown brands */
    if ret.Brand == "" {
        ret.Brand = "unknown"
    }

    /* stable order */
    sort.Strings(ret.Features)
    return ret
}

// FusedMultiplyAdd reports whether fmuladd would be lowered to a single
// fused instruction on this host.
func (self Info) FusedMultiplyAdd() bool {
    return self.HasFMA || self.HasASIMD
}
