// Command lumenjit is a developer-facing driver for the jit package: it
// loads a LIR module from a JSON fixture, compiles it, runs a named cell,
// and reports compile/execution statistics or disassembly. It is not part
// of the JIT core's public surface (spec.md §6 places the source parser and
// package manager out of scope); it exists purely so a human can exercise
// the engine from a terminal instead of only from Go tests.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dc0d/onexit"
	"github.com/spf13/cobra"

	"github.com/lumen-lang/ljit/jit"
	"github.com/lumen-lang/ljit/lir"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "lumenjit",
		Short: "Driver for the Lumen JIT backend",
	}

	var diskCacheDir string
	var hotThreshold uint64
	rootCmd.PersistentFlags().StringVar(&diskCacheDir, "disk-cache", "", "lz4-compressed on-disk code cache directory (empty disables)")
	rootCmd.PersistentFlags().Uint64Var(&hotThreshold, "hot-threshold", 10, "call count at which a cell is considered hot")

	newEngine := func() *jit.Engine {
		cfg := jit.DefaultConfig()
		cfg.DiskCacheDir = diskCacheDir
		cfg.HotThreshold = hotThreshold
		e := jit.NewEngine(cfg)
		onexit.Register(func() {
			s := e.Stats()
			fmt.Fprintf(os.Stderr, "lumenjit: %d cell(s) compiled, %d cache hit(s), %d disk-cache hit(s)\n",
				s.CellsCompiled, s.CacheHits, s.DiskCacheHits)
		})
		return e
	}

	rootCmd.AddCommand(
		compileCmd(newEngine),
		runCmd(newEngine),
		statsCmd(newEngine),
		disasmCmd(newEngine),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "lumenjit:", err)
		os.Exit(1)
	}
}

func loadModule(path string) (*lir.Module, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return lir.LoadModuleJSON(f)
}

func compileCmd(newEngine func() *jit.Engine) *cobra.Command {
	return &cobra.Command{
		Use:   "compile <module.json>",
		Short: "Compile every cell in a LIR module and report the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mod, err := loadModule(args[0])
			if err != nil {
				return err
			}
			e := newEngine()
			if err := e.CompileModule(mod); err != nil {
				return err
			}
			stats := e.Stats()
			fmt.Printf("compiled %d cell(s), cache size %d\n", stats.CellsCompiled, stats.CacheSize)
			return nil
		},
	}
}

func runCmd(newEngine func() *jit.Engine) *cobra.Command {
	var args64 []int64
	cmd := &cobra.Command{
		Use:   "run <module.json> <cell>",
		Short: "Compile a module and execute one cell with integer arguments",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, cliArgs []string) error {
			mod, err := loadModule(cliArgs[0])
			if err != nil {
				return err
			}
			name := cliArgs[1]
			e := newEngine()
			if err := e.CompileModule(mod); err != nil {
				return err
			}
			word := make([]uint64, len(args64))
			for i, a := range args64 {
				word[i] = jit.BoxInt(a)
			}
			result, err := e.Execute(name, word)
			if err != nil {
				return err
			}
			if code, trapped := e.LastTrap(name); trapped && code != jit.TrapNone {
				return fmt.Errorf("cell %q trapped: %s", name, code)
			}
			fmt.Printf("%s(%v) = %d\n", name, args64, jit.UnboxInt(result))
			return nil
		},
	}
	cmd.Flags().Int64SliceVar(&args64, "arg", nil, "integer argument, repeatable (boxed as Int before the call)")
	return cmd
}

func statsCmd(newEngine func() *jit.Engine) *cobra.Command {
	return &cobra.Command{
		Use:   "stats <module.json>",
		Short: "Compile a module and print per-cell compile statistics as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mod, err := loadModule(args[0])
			if err != nil {
				return err
			}
			e := newEngine()
			if err := e.CompileModule(mod); err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(e.Stats())
		},
	}
}

func disasmCmd(newEngine func() *jit.Engine) *cobra.Command {
	return &cobra.Command{
		Use:   "disasm <module.json> <cell>",
		Short: "Compile a module and hex-dump one cell's generated machine code",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mod, err := loadModule(args[0])
			if err != nil {
				return err
			}
			e := newEngine()
			if err := e.CompileModule(mod); err != nil {
				return err
			}
			dump, err := e.DisassembleEntry(args[1])
			if err != nil {
				return err
			}
			fmt.Print(dump)
			return nil
		},
	}
}
