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
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/cloudwego/lanefold/internal/cpu"
	"github.com/cloudwego/lanefold/internal/emu"
	"github.com/cloudwego/lanefold/internal/ir"
	"github.com/cloudwego/lanefold/internal/ir/codec"
	"github.com/cloudwego/lanefold/internal/opts"
	"github.com/cloudwego/lanefold/internal/pass"
	"github.com/cloudwego/lanefold/internal/pipeline"
	"github.com/cloudwego/lanefold/internal/samples"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "lanefold",
		Short:         "Square-FMA fold for vector-lane IR",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newGenCommand(),
		newDisCommand(),
		newOptCommand(),
		newRunCommand(),
		newPluginsCommand(),
	)
	return root
}

func loadModule(file string) (*ir.Module, error) {
	fp, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	m, err := codec.Decode(fp)
	if err != nil {
		return nil, fmt.Errorf("load module %s failed: %w", file, err)
	}
	return m, nil
}

func saveModule(ctx context.Context, file string, m *ir.Module) error {
	var buf bytes.Buffer
	if err := codec.Encode(ctx, &buf, m); err != nil {
		return fmt.Errorf("encode module %s failed: %w", m.Name, err)
	}
	if err := os.WriteFile(file, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write module %s failed: %w", file, err)
	}
	return nil
}

func newGenCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "gen -o file",
		Short: "Write a sample module containing the idiom",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return saveModule(cmd.Context(), output, samples.Module())
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func newDisCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dis file",
		Short: "Print the textual form of a module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadModule(args[0])
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), m.String())
			return err
		},
	}
}

func newOptCommand() *cobra.Command {
	var output string
	var printAfter bool
	o := opts.GetDefaultOptions()
	cmd := &cobra.Command{
		Use:   "opt [-O n] [-o out] file",
		Short: "Run the optimization pipeline over a module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadModule(args[0])
			if err != nil {
				return err
			}

			// dumps go to stderr, next to the diagnostics
			diag := cmd.ErrOrStderr()
			hook := func(mpm *pass.ModulePassManager) {
				if printAfter {
					mpm.PrintAfter = diag
				}
			}
			if _, err = pipeline.Optimize(m, o, diag, hook); err != nil {
				return err
			}

			if output == "" {
				_, err = io.WriteString(cmd.OutOrStdout(), m.String())
				return err
			}
			return saveModule(cmd.Context(), output, m)
		},
	}
	fs := cmd.Flags()
	fs.IntVarP(&o.OptLevel, "opt-level", "O", o.OptLevel, "optimization level (0 to 3)")
	fs.StringVarP(&output, "output", "o", "", "output file, prints the textual IR if empty")
	fs.BoolVar(&o.VerifyEach, "verify-each", o.VerifyEach, "verify the module after every pass")
	fs.BoolVar(&o.LateEP, "late", o.LateEP, "register the fold at the end of the pipeline")
	fs.BoolVarP(&o.Quiet, "quiet", "q", o.Quiet, "suppress per-match diagnostics")
	fs.BoolVar(&o.Trace, "trace", o.Trace, "dump every matched bundle")
	fs.BoolVar(&printAfter, "print-after", false, "print the module after every pass")
	return cmd
}

func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run file fn [args...]",
		Short: "Interpret a function of a module",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadModule(args[0])
			if err != nil {
				return err
			}
			fn := m.Func(args[1])
			if fn == nil {
				return fmt.Errorf("no function named @%s in %s", args[1], args[0])
			}
			if len(args)-2 != len(fn.Params) {
				return fmt.Errorf("@%s takes %d argument(s), got %d", fn.Name, len(fn.Params), len(args)-2)
			}

			// parse the arguments by parameter type
			vals := make([]emu.Value, len(fn.Params))
			for i, p := range fn.Params {
				if vals[i], err = emu.Parse(p.Ty, args[i+2]); err != nil {
					return fmt.Errorf("argument %d of @%s: %w", i, fn.Name, err)
				}
			}

			ret, err := emu.Call(fn, vals...)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), ret)
			return err
		},
	}
}

func newPluginsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "List registered plugins, core passes and host CPU features",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			names := lo.Map(pass.Plugins(), func(p pass.PluginInfo, _ int) string { return p.String() })
			fmt.Fprintf(w, "plugins: %s\n", strings.Join(names, ", "))

			// core passes
			desc := pipeline.Describe()
			keys := lo.Keys(desc)
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(w, "pass %s: %s\n", k, desc[k])
			}

			// host
			info := cpu.Host()
			fmt.Fprintf(w, "cpu: %s (%s, %d cores)\n", info.Brand, info.Arch, info.Cores)
			fmt.Fprintf(w, "fused multiply-add: %v\n", info.FusedMultiplyAdd())
			_, err := fmt.Fprintf(w, "features: %s\n", strings.Join(info.Features, " "))
			return err
		},
	}
}
