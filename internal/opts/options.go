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

package opts

type Options struct {
	OptLevel   int
	VerifyEach bool
	Quiet      bool
	Trace      bool
	LateEP     bool
}

// Silent reports whether per-match diagnostics should be suppressed.
func (self *Options) Silent() bool {
	return self.Quiet && !self.Trace
}

func GetDefaultOptions() Options {
	return Options{
		OptLevel:   OptLevel,
		VerifyEach: VerifyEach,
		Quiet:      Quiet,
		Trace:      Trace,
		LateEP:     LateEP,
	}
}
