package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/pattyshack/elfscope/analysis"
)

type replCommand struct {
	name        string
	description string
	run         func(io.Writer, *analysis.Analyzer, []string) error
}

func reportCommand(kind analysis.ReportKind) replCommand {
	return replCommand{
		name:        string(kind),
		description: "              - print the " + string(kind) + " report",
		run: func(
			output io.Writer,
			analyzer *analysis.Analyzer,
			args []string,
		) error {
			return writeTextReport(output, analyzer.Report(), kind)
		},
	}
}

func replCommands() []replCommand {
	commands := []replCommand{}
	for _, kind := range analysis.ReportKinds {
		commands = append(commands, reportCommand(kind))
	}

	return append(
		commands,
		replCommand{
			name:        "disas",
			description: " <function> - disassemble function",
			run: func(
				output io.Writer,
				analyzer *analysis.Analyzer,
				args []string,
			) error {
				if len(args) != 1 {
					return fmt.Errorf("expected one function name")
				}
				return printInstructions(output, analyzer, args[0])
			},
		},
		replCommand{
			name:        "size",
			description: " <component> - function size attributed to source file",
			run: func(
				output io.Writer,
				analyzer *analysis.Analyzer,
				args []string,
			) error {
				if len(args) != 1 {
					return fmt.Errorf("expected one component name")
				}
				return printComponentSize(output, analyzer, args[0])
			},
		},
		replCommand{
			name:        "dynmem",
			description: "            - list dynamic memory functions",
			run: func(
				output io.Writer,
				analyzer *analysis.Analyzer,
				args []string,
			) error {
				printNames(output, "Dynamic memory", analyzer.DynamicMemoryUsage())
				return nil
			},
		},
		replCommand{
			name:        "softfloat",
			description: "         - list software float helpers",
			run: func(
				output io.Writer,
				analyzer *analysis.Analyzer,
				args []string,
			) error {
				printNames(output, "Software float", analyzer.SoftwareFloatUsage())
				return nil
			},
		})
}

// findReplCommand matches the command name exactly, or by unique prefix.
func findReplCommand(
	commands []replCommand,
	name string,
) (replCommand, error) {
	matches := []replCommand{}
	for _, cmd := range commands {
		if cmd.name == name {
			return cmd, nil
		}
		if strings.HasPrefix(cmd.name, name) {
			matches = append(matches, cmd)
		}
	}

	switch len(matches) {
	case 0:
		return replCommand{}, fmt.Errorf("invalid command: %s", name)
	case 1:
		return matches[0], nil
	default:
		names := []string{}
		for _, cmd := range matches {
			names = append(names, cmd.name)
		}
		return replCommand{}, fmt.Errorf(
			"ambiguous command: %s (%s)",
			name,
			strings.Join(names, ", "))
	}
}

func printReplHelp(output io.Writer, commands []replCommand) {
	fmt.Fprintln(output, "commands:")
	for _, cmd := range commands {
		fmt.Fprintf(output, "  %s%s\n", cmd.name, cmd.description)
	}
	fmt.Fprintln(output, "  help              - print this message")
}

// runReplLine executes a single line.  It returns false when the session ends.
func runReplLine(
	output io.Writer,
	analyzer *analysis.Analyzer,
	commands []replCommand,
	line string,
) bool {
	args := strings.Fields(line)
	if len(args) == 0 {
		return true
	}

	switch args[0] {
	case "quit", "exit":
		return false
	case "help", "?":
		printReplHelp(output, commands)
		return true
	}

	cmd, err := findReplCommand(commands, args[0])
	if err == nil {
		err = cmd.run(output, analyzer, args[1:])
	}

	if err != nil {
		fmt.Fprintln(output, "error:", err)
	}
	return true
}

func newReplCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "repl <file>",
		Short: "interactive query shell",
		Args:  requireFile(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withAnalyzer(
				args[0],
				func(analyzer *analysis.Analyzer) error {
					return repl(analyzer, args[0])
				})
		},
	}
}

func repl(analyzer *analysis.Analyzer, path string) error {
	rl, err := readline.New("elfscope > ")
	if err != nil {
		return err
	}
	defer rl.Close()

	fmt.Println("loaded", path, "(type help for commands)")

	commands := replCommands()
	lastLine := ""
	for {
		line, err := rl.Readline()
		if err != nil {
			if err == io.EOF || err == readline.ErrInterrupt {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			line = lastLine
		}
		lastLine = line

		if !runReplLine(os.Stdout, analyzer, commands, line) {
			return nil
		}
	}
}
