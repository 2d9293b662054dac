package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pattyshack/elfscope/analysis"
)

func printInstructions(output io.Writer, analyzer *analysis.Analyzer, name string) error {
	instructions, err := analyzer.Disassemble(name)
	if err != nil {
		return err
	}

	fmt.Fprintf(output, "<%s>:\n", name)
	for _, inst := range instructions {
		fmt.Fprintln(output, inst)
	}
	return nil
}

func printComponentSize(output io.Writer, analyzer *analysis.Analyzer, name string) error {
	size, err := analyzer.ComponentSize(name)
	if err != nil {
		return err
	}

	fmt.Fprintf(output, "%s: %d\n", name, size)
	return nil
}

func printNames(output io.Writer, title string, names []string) {
	if len(names) == 0 {
		fmt.Fprintf(output, "%s: none\n", title)
		return
	}

	fmt.Fprintf(output, "%s:\n", title)
	for _, name := range names {
		fmt.Fprintln(output, " ", name)
	}
}

func newDisassembleCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "disas <file> <function>",
		Short: "disassemble a function",
		Args:  requireFile(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withAnalyzer(
				args[0],
				func(analyzer *analysis.Analyzer) error {
					return printInstructions(cmd.OutOrStdout(), analyzer, args[1])
				})
		},
	}
}

func newSizeCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "size <file> <component>",
		Short: "total function size attributed to a source file",
		Args:  requireFile(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withAnalyzer(
				args[0],
				func(analyzer *analysis.Analyzer) error {
					return printComponentSize(cmd.OutOrStdout(), analyzer, args[1])
				})
		},
	}
}

func newDynamicMemoryCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "dynmem <file>",
		Short: "list defined dynamic memory allocation functions",
		Args:  requireFile(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withAnalyzer(
				args[0],
				func(analyzer *analysis.Analyzer) error {
					printNames(
						cmd.OutOrStdout(),
						"Dynamic memory",
						analyzer.DynamicMemoryUsage())
					return nil
				})
		},
	}
}

func newSoftFloatCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "softfloat <file>",
		Short: "list defined software floating point helpers",
		Args:  requireFile(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withAnalyzer(
				args[0],
				func(analyzer *analysis.Analyzer) error {
					printNames(
						cmd.OutOrStdout(),
						"Software float",
						analyzer.SoftwareFloatUsage())
					return nil
				})
		},
	}
}
