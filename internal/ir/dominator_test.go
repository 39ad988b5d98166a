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
    `testing`

    `github.com/stretchr/testify/assert`
    `github.com/stretchr/testify/require`
    `gonum.org/v1/gonum/graph/flow`
    `gonum.org/v1/gonum/graph/simple`
)

// buildLoopy creates the CFG
//
//   bb_0 -> bb_1
//   bb_1 -> bb_2, bb_3
//   bb_2 -> bb_4
//   bb_3 -> bb_4, bb_5
//   bb_4 -> bb_1, bb_5
//   bb_5 -> ret
//   bb_6 -> bb_5 (unreachable)
func buildLoopy() *Function {
    m := NewModule("test")
    fn := m.NewFunction("loopy", F64, F64)
    bb := make([]*BasicBlock, 7)
    for i := range bb { bb[i] = fn.NewBlock() }
    x := fn.Params[0]
    p := NewBuilder(bb[0])
    p.Br(bb[1])
    p.SetInsertPoint(bb[1])
    p.CondBr(p.FCmp(FCmpOLT, x, Float(F64, 0)), bb[2], bb[3])
    p.SetInsertPoint(bb[2])
    p.Br(bb[4])
    p.SetInsertPoint(bb[3])
    p.CondBr(p.FCmp(FCmpOGT, x, Float(F64, 1)), bb[4], bb[5])
    p.SetInsertPoint(bb[4])
    p.CondBr(p.FCmp(FCmpOEQ, x, x), bb[1], bb[5])
    p.SetInsertPoint(bb[5])
    p.Ret(x)
    p.SetInsertPoint(bb[6])
    p.Br(bb[5])
    return fn
}

func TestDominator_Loopy(t *testing.T) {
    fn := buildLoopy()
    require.NoError(t, VerifyFunction(fn))
    dt := BuildDominatorTree(fn)
    idom := func(i int) int { return dt.DominatedBy[fn.Blocks[i]].Id }
    assert.Equal(t, 0, idom(1))
    assert.Equal(t, 1, idom(2))
    assert.Equal(t, 1, idom(3))
    assert.Equal(t, 1, idom(4))
    assert.Equal(t, 1, idom(5))
    assert.False(t, dt.Reachable(fn.Blocks[6]))
    assert.True(t, dt.Dominates(fn.Blocks[1], fn.Blocks[5]))
    assert.True(t, dt.Dominates(fn.Blocks[4], fn.Blocks[4]))
    assert.False(t, dt.Dominates(fn.Blocks[3], fn.Blocks[4]))
    assert.False(t, dt.Dominates(fn.Blocks[0], fn.Blocks[6]))
}

func TestDominator_MatchesGonum(t *testing.T) {
    fn := buildLoopy()
    dt := BuildDominatorTree(fn)
    g := simple.NewDirectedGraph()
    for _, bb := range fn.Blocks {
        g.AddNode(simple.Node(bb.Id))
    }
    for _, bb := range fn.Blocks {
        for _, p := range bb.Successors() {
            g.SetEdge(g.NewEdge(simple.Node(bb.Id), simple.Node(p.Id)))
        }
    }
    ref := flow.Dominators(simple.Node(fn.Entry().Id), g)
    for _, bb := range ReversePostOrder(fn)[1:] {
        want := ref.DominatorOf(int64(bb.Id))
        require.NotNil(t, want, "bb_%d", bb.Id)
        assert.Equal(t, want.ID(), int64(dt.DominatedBy[bb].Id), "bb_%d", bb.Id)
    }
}

func TestBlockIter_Order(t *testing.T) {
    fn := buildLoopy()
    ids := func(s []*BasicBlock) (r []int) {
        for _, bb := range s { r = append(r, bb.Id) }
        return
    }
    assert.Equal(t, []int{5, 4, 2, 3, 1, 0}, ids(PostOrder(fn)))
    assert.Equal(t, []int{0, 1, 3, 2, 4, 5}, ids(ReversePostOrder(fn)))
    assert.Empty(t, PostOrder(NewModule("x").NewFunction("empty", Void)))
}
