/*
 * Copyright 2022 CloudWeGo Authors
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

package debug

import (
	"sync/atomic"

	"github.com/cloudwego/lanefold/internal/pass"
	"github.com/cloudwego/lanefold/internal/transform/sqfma"
	"github.com/cloudwego/lanefold/internal/transform/tdce"
)

// A Stats records statistics about the optimization passes.
type Stats struct {
	Fold     FoldStats
	DCE      DCEStats
	Analysis CacheStats
}

// A FoldStats records what the square-FMA fold did.
type FoldStats struct {
	Runs     int
	Matches  int
	Rewrites int
	Erased   int
}

// A DCEStats records statistics about dead code elimination.
type DCEStats struct {
	Erased int
}

// A CacheStats records statistics about the analysis cache.
type CacheStats struct {
	Hit  int
	Miss int
}

// GetStats returns statistics of the optimization passes.
func GetStats() Stats {
	return Stats{
		Fold: FoldStats{
			Runs:     int(atomic.LoadUint64(&sqfma.RunCount)),
			Matches:  int(atomic.LoadUint64(&sqfma.MatchCount)),
			Rewrites: int(atomic.LoadUint64(&sqfma.RewriteCount)),
			Erased:   int(atomic.LoadUint64(&sqfma.EraseCount)),
		},
		DCE: DCEStats{
			Erased: int(atomic.LoadUint64(&tdce.EraseCount)),
		},
		Analysis: CacheStats{
			Hit:  int(atomic.LoadUint64(&pass.HitCount)),
			Miss: int(atomic.LoadUint64(&pass.MissCount)),
		},
	}
}
