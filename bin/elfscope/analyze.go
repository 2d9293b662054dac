package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pattyshack/elfscope/analysis"
)

const (
	formatText = "text"
	formatYAML = "yaml"
)

func newAnalyzeCommand(opts *options) *cobra.Command {
	outputDir := ""
	format := formatText

	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "print (or write) the info, strings, symbols, bss, data and text reports",
		Args:  requireFile(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != formatText && format != formatYAML {
				return fmt.Errorf("unsupported format: %s", format)
			}

			return opts.withAnalyzer(
				args[0],
				func(analyzer *analysis.Analyzer) error {
					report := analyzer.Report()
					if outputDir == "" {
						return writeReports(cmd.OutOrStdout(), report, format)
					}
					return writeReportFiles(outputDir, report, format)
				})
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "write one file per report into dir")
	cmd.Flags().StringVar(&format, "format", formatText, "text or yaml")

	return cmd
}

func writeReport(
	output io.Writer,
	report *analysis.Report,
	kind analysis.ReportKind,
	format string,
) error {
	if format == formatText {
		return writeTextReport(output, report, kind)
	}

	value, err := report.Section(kind)
	if err != nil {
		return err
	}

	encoder := yaml.NewEncoder(output)
	encoder.SetIndent(2)
	err = encoder.Encode(map[string]interface{}{string(kind): value})
	if err != nil {
		return fmt.Errorf("failed to encode %s report: %w", kind, err)
	}
	return encoder.Close()
}

func writeReports(
	output io.Writer,
	report *analysis.Report,
	format string,
) error {
	for idx, kind := range analysis.ReportKinds {
		if idx > 0 && format == formatText {
			fmt.Fprintln(output)
		}

		err := writeReport(output, report, kind, format)
		if err != nil {
			return err
		}
	}
	return nil
}

func writeReportFiles(
	dir string,
	report *analysis.Report,
	format string,
) error {
	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	extension := ".txt"
	if format == formatYAML {
		extension = ".yaml"
	}

	for _, kind := range analysis.ReportKinds {
		buffer := &bytes.Buffer{}
		err := writeReport(buffer, report, kind, format)
		if err != nil {
			return err
		}

		path := filepath.Join(dir, string(kind)+extension)
		err = os.WriteFile(path, buffer.Bytes(), 0o644)
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}

	return nil
}
