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

package ir

import (
    `github.com/oleiade/lane`
)

type _IterFrame struct {
    bb   *BasicBlock
    next int
}

// PostOrder returns the blocks reachable from the entry in depth-first post
// order. The walk uses an explicit stack so deep CFGs don't grow the Go stack.
func PostOrder(fn *Function) []*BasicBlock {
    entry := fn.Entry()
    ret := make([]*BasicBlock, 0, len(fn.Blocks))

    /* empty function */
    if entry == nil {
        return ret
    }

    /* initialize the DFS stack */
    st := lane.NewStack()
    vis := map[*BasicBlock]struct{} { entry: {} }
    st.Push(&_IterFrame { bb: entry })

    /* scan until the stack is empty */
    for !st.Empty() {
        fp := st.Head().(*_IterFrame)
        succ := fp.bb.Successors()

        /* descend into the next unvisited successor */
        for fp.next < len(succ) {
            p := succ[fp.next]
            fp.next++

            /* mark as visited */
            if _, ok := vis[p]; !ok {
                vis[p] = struct{}{}
                st.Push(&_IterFrame { bb: p })
                break
            }
        }

        /* all the successors are visited, pop the current block */
        if fp.next >= len(succ) && st.Head() == fp {
            st.Pop()
            ret = append(ret, fp.bb)
        }
    }

    /* all done */
    return ret
}

// ReversePostOrder returns the reachable blocks in reverse post order, in
// which every block comes after its dominators.
func ReversePostOrder(fn *Function) []*BasicBlock {
    ret := PostOrder(fn)
    blockreverse(ret)
    return ret
}

func blockreverse(s []*BasicBlock) {
    for i, j := 0, len(s) - 1; i < j; i, j = i + 1, j - 1 {
        s[i], s[j] = s[j], s[i]
    }
}
