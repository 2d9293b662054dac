package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pattyshack/elfscope/analysis"
	"github.com/pattyshack/elfscope/config"
	"github.com/pattyshack/elfscope/elf"
)

type options struct {
	configPath string
	logLevel   string
	minLength  int
}

func (opts *options) loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		cfg, err = config.Load(opts.configPath)
		if err != nil {
			return nil, err
		}
	}

	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if opts.minLength > 0 {
		cfg.MinStringLength = opts.minLength
	}

	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// withAnalyzer opens and analyzes the file, then runs process.  The
// analyzer must not be used after process returns.
func (opts *options) withAnalyzer(
	path string,
	process func(*analysis.Analyzer) error,
) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}

	logger, err := cfg.NewLogger(os.Stderr)
	if err != nil {
		return err
	}

	file, err := elf.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	analyzer, err := analysis.New(file.File, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to analyze %s: %w", path, err)
	}

	return process(analyzer)
}

func requireFile(numExtra int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		err := cobra.ExactArgs(1+numExtra)(cmd, args)
		if err != nil {
			return err
		}

		_, err = os.Stat(args[0])
		return err
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "elfscope <command> <file>",
		Short: "ELF size, symbol, string and disassembly analyzer",
		Long: `elfscope analyzes ELF objects and executables (including embedded
ARM / AVR firmware) without external toolchains:
* flash / ram usage and per section sizes
* symbols sorted by size, split into bss / data / text
* printable strings in data sections
* compiler producer strings from debug info
* function disassembly`,
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "yaml config file")
	flags.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error")
	flags.IntVar(
		&opts.minLength,
		"min-length",
		0,
		"minimum printable string length (default 4)")

	cmd.AddCommand(
		newAnalyzeCommand(opts),
		newDisassembleCommand(opts),
		newSizeCommand(opts),
		newDynamicMemoryCommand(opts),
		newSoftFloatCommand(opts),
		newReplCommand(opts))

	return cmd
}

func main() {
	err := newRootCommand().Execute()
	if err != nil {
		os.Exit(1)
	}
}
