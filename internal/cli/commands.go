package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	yamlFormat = "yaml"
	jsonFormat = "json"
)

func newModelsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the known models and their keys.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(a.out, 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tKEY\tVERSION")
			for _, target := range a.targets {
				fmt.Fprintf(w, "%s\t%s\tv%d\n", target.Name(), target.Key(), target.Version())
			}
			return w.Flush()
		},
	}
}

func newInspectCommand(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "inspect MODEL",
		Short: "Load a stored value and show how it was parsed.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := a.target(args[0])
			if err != nil {
				return err
			}
			report, err := target.Inspect(cmd.Context(), a.env)
			if err != nil {
				return err
			}
			return render(a.out, output, report)
		},
	}
	addOutputFlag(cmd, &output)
	return cmd
}

func newExportCommand(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "export MODEL",
		Short: "Print the stored string of a model, storing the default first when empty.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := a.target(args[0])
			if err != nil {
				return err
			}
			serialized, err := target.Export(cmd.Context(), a.env)
			if err != nil {
				return err
			}
			if file == "" || file == "-" {
				_, err = fmt.Fprintln(a.out, serialized)
				return err
			}
			if err := os.WriteFile(file, []byte(serialized), 0o600); err != nil {
				return fmt.Errorf("cli: write %s: %w", file, err)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Write to a file instead of stdout.")
	return cmd
}

func newImportCommand(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "import MODEL [FILE]",
		Short: "Parse serialized data, stdin by default, and store the result.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := a.target(args[0])
			if err != nil {
				return err
			}
			var raw []byte
			if len(args) == 1 || args[1] == "-" {
				raw, err = io.ReadAll(cmd.InOrStdin())
			} else {
				raw, err = os.ReadFile(args[1])
			}
			if err != nil {
				return fmt.Errorf("cli: read input: %w", err)
			}
			report, err := target.Import(cmd.Context(), a.env, strings.TrimSpace(string(raw)))
			if err != nil {
				return err
			}
			if report.Trace.Fallback {
				a.logger.Warn("imported data was replaced by the default",
					zap.String("model", target.Name()),
					zap.String("reason", string(report.Trace.Reason)))
			}
			return render(a.out, output, report)
		},
	}
	addOutputFlag(cmd, &output)
	return cmd
}

func newDescribeCommand(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "describe MODEL",
		Short: "Show every generation of a model and the fields of its default.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := a.target(args[0])
			if err != nil {
				return err
			}
			return render(a.out, output, target.Describe())
		},
	}
	addOutputFlag(cmd, &output)
	return cmd
}

func newResetCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset MODEL",
		Short: "Delete the stored value; the next load returns the default.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := a.target(args[0])
			if err != nil {
				return err
			}
			return target.Reset(cmd.Context(), a.env)
		},
	}
}

func addOutputFlag(cmd *cobra.Command, output *string) {
	cmd.Flags().StringVarP(output, "output", "o", yamlFormat, "Output format: yaml or json.")
}

func render(w io.Writer, format string, value any) error {
	switch format {
	case yamlFormat, "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(value); err != nil {
			return fmt.Errorf("cli: encode yaml: %w", err)
		}
		return enc.Close()
	case jsonFormat:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(value)
	default:
		return fmt.Errorf("cli: unknown output format %q", format)
	}
}
