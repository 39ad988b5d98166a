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

    `github.com/cloudwego/lanefold/internal/ir`
)

// Pass transforms a whole module and reports what it kept valid.
type Pass interface {
    Name() string
    Run(m *ir.Module, am *AnalysisManager) PreservedAnalyses
}

// PassError wraps a verification failure with the pass that caused it.
type PassError struct {
    Pass string
    Err  error
}

func (self *PassError) Error() string {
    return fmt.Sprintf("pass %s: %v", self.Pass, self.Err)
}

func (self *PassError) Unwrap() error {
    return self.Err
}

// ModulePassManager runs an ordered list of passes over a module.
type ModulePassManager struct {
    Passes     []Pass
    VerifyEach bool
    PrintAfter io.Writer
}

func (self *ModulePassManager) AddPass(p Pass) {
    self.Passes = append(self.Passes, p)
}

func (self *ModulePassManager) Names() []string {
    ret := make([]string, 0, len(self.Passes))
    for _, p := range self.Passes { ret = append(ret, p.Name()) }
    return ret
}

// Run executes every pass in order, invalidating cached analyses after each
// one. The result is the intersection of what every pass preserved.
func (self *ModulePassManager) Run(m *ir.Module, am *AnalysisManager) (PreservedAnalyses, error) {
    ret := All()

    /* create a private analysis manager if needed */
    if am == nil {
        am = NewAnalysisManager()
    }

    /* run every pass */
    for _, p := range self.Passes {
        pa := p.Run(m, am)
        am.Invalidate(pa)
        ret = ret.Intersect(pa)

        /* dump the module if requested */
        if self.PrintAfter != nil {
            fmt.Fprintf(self.PrintAfter, "; *** IR dump after %s (preserved: %s) ***\n%s", p.Name(), pa, m)
        }

        /* verify the module if requested */
        if self.VerifyEach {
            if err := ir.Verify(m); err != nil {
                return ret, &PassError { Pass: p.Name(), Err: err }
            }
        }
    }

    /* all done */
    return ret, nil
}
