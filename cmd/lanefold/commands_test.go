// Copyright 2022 CloudWeGo Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cloudwego/lanefold/internal/ir"
	"github.com/cloudwego/lanefold/internal/ir/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func genSamples(t *testing.T) string {
	file := filepath.Join(t.TempDir(), "samples.lfm")
	_, _, err := execute(t, "gen", "-o", file)
	require.NoError(t, err)
	return file
}

func TestCommand_GenDis(t *testing.T) {
	file := genSamples(t)
	out, _, err := execute(t, "dis", file)
	require.NoError(t, err)
	assert.Contains(t, out, "@llvm.fmuladd.f64")
	assert.Contains(t, out, "define double @norm2(")
}

func TestCommand_Opt(t *testing.T) {
	file := genSamples(t)
	output := filepath.Join(t.TempDir(), "out.lfm")
	_, diag, err := execute(t, "opt", "-O", "2", "--verify-each", "-o", output, file)
	require.NoError(t, err)
	assert.Equal(t, 6, strings.Count(diag, "sqfma: matched "))

	/* the output no longer has the idiom but still has the strict fma */
	data, err := os.ReadFile(output)
	require.NoError(t, err)
	m, err := codec.Unmarshal(data)
	require.NoError(t, err)
	for _, name := range []string{"norm2", "norm2f", "twice", "shared", "branchy"} {
		assert.NotContains(t, m.Func(name).String(), "@llvm.fmuladd.", name)
	}
	assert.Contains(t, m.Func("swapped").String(), "@llvm.fmuladd.f64")
	assert.Contains(t, m.Func("strict").String(), "@llvm.fma.f64")
	require.NoError(t, ir.Verify(m))

	/* quiet, printing the IR */
	out, diag, err := execute(t, "opt", "--quiet", file)
	require.NoError(t, err)
	assert.Empty(t, diag)
	assert.Contains(t, out, "define double @norm2(")
	assert.Equal(t, 1, strings.Count(out, "call double @llvm.fmuladd.f64"), "only the swapped near miss keeps its call")
}

func TestCommand_OptPrintAfter(t *testing.T) {
	file := genSamples(t)
	_, diag, err := execute(t, "opt", "-q", "--print-after", file)
	require.NoError(t, err)
	assert.Contains(t, diag, "; *** IR dump after sqfma")
	assert.Contains(t, diag, "; *** IR dump after tdce")
}

func TestCommand_Run(t *testing.T) {
	file := genSamples(t)
	out, _, err := execute(t, "run", file, "norm2", "<3, 4>")
	require.NoError(t, err)
	assert.Equal(t, "25\n", out)
	out, _, err = execute(t, "run", file, "branchy", "3,4", "1")
	require.NoError(t, err)
	assert.Equal(t, "25\n", out)
	out, _, err = execute(t, "run", file, "branchy", "3,4", "10")
	require.NoError(t, err)
	assert.Equal(t, "10\n", out)
}

func TestCommand_Errors(t *testing.T) {
	file := genSamples(t)
	_, _, err := execute(t, "run", file, "nope")
	assert.Error(t, err)
	_, _, err = execute(t, "run", file, "norm2")
	assert.Error(t, err)
	_, _, err = execute(t, "run", file, "norm2", "1")
	assert.Error(t, err)
	_, _, err = execute(t, "opt", "-O", "7", file)
	assert.Error(t, err)
	_, _, err = execute(t, "dis", filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
	_, _, err = execute(t, "gen")
	assert.Error(t, err)

	/* not a module */
	bad := filepath.Join(t.TempDir(), "bad")
	require.NoError(t, os.WriteFile(bad, []byte("garbage"), 0o644))
	_, _, err = execute(t, "dis", bad)
	var fe codec.FormatError
	assert.ErrorAs(t, err, &fe)
}

func TestCommand_Plugins(t *testing.T) {
	out, _, err := execute(t, "plugins")
	require.NoError(t, err)
	assert.Contains(t, out, "plugins: sqfma v0.1 (api v1)")
	assert.Contains(t, out, "pass tdce: Trivial Dead Code Elimination")
	assert.Contains(t, out, "fused multiply-add: ")
}
