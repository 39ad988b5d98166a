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

import (
	"fmt"

	"github.com/xyproto/env/v2"
)

const (
	_DefaultOptLevel = 2 // same default as the host pipeline
)

var (
	OptLevel   = intInRange("LANEFOLD_OPT_LEVEL", _DefaultOptLevel, 0, 3)
	VerifyEach = env.Bool("LANEFOLD_VERIFY_EACH")
	Quiet      = env.Bool("LANEFOLD_QUIET")
	Trace      = env.Bool("LANEFOLD_TRACE")
	LateEP     = env.Bool("LANEFOLD_LATE_EP")
)

func intInRange(key string, def int, min int, max int) int {
	if env.Str(key) == "" {
		return def
	} else if ret := env.Int(key, min-1); ret < min || ret > max {
		panic(fmt.Sprintf("lanefold: invalid value for %s, expected %d to %d", key, min, max))
	} else {
		return ret
	}
}
