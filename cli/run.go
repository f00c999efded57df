package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/toolmath/tools"
)

// NewExecCmd creates the "exec" subcommand.
func NewExecCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exec [code...]",
		Short: "Run Mathematica code once",
		Long: "Run Mathematica code through execute_mathematica and print the result. " +
			"The code comes from the arguments, or from --file (use - for stdin).",
		RunE: runExec,
	}
	cmd.Flags().StringP("format", "f", "text", "Output format: text | latex | mathematica")
	cmd.Flags().String("file", "", "Read code from a file (- for stdin)")
	return cmd
}

func runExec(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	file, _ := cmd.Flags().GetString("file")

	code := strings.Join(args, " ")
	if file != "" {
		if len(args) > 0 {
			return exitError(exitInvalid, "give code as arguments or with --file, not both")
		}
		data, err := readSource(cmd, file)
		if err != nil {
			return exitError(exitInvalid, "reading %s: %v", file, err)
		}
		code = string(data)
	}

	s, rec, err := newServer(cmd, "")
	if err != nil {
		return err
	}
	res, err := s.Call(cmd.Context(), tools.ExecuteTool, map[string]any{
		"code":   code,
		"format": format,
	})
	return writeResult(cmd, rec, res, err)
}

func readSource(cmd *cobra.Command, file string) ([]byte, error) {
	if file == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	// #nosec G304 -- path is operator supplied.
	return os.ReadFile(file)
}

// NewVerifyCmd creates the "verify" subcommand.
func NewVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <step> <step> [step...]",
		Short: "Check a derivation step by step",
		Long: "Check that each step is symbolically equal to the one before it " +
			"and print the engine's report. Each argument is one step.",
		Example: `  toolmath verify "x^2 - y^2" "(x - y)*(x + y)"`,
		RunE:    runVerify,
	}
	cmd.Flags().StringP("format", "f", "text", "Output format: text | latex | mathematica")
	return cmd
}

func runVerify(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	steps := make([]any, 0, len(args))
	for _, a := range args {
		steps = append(steps, a)
	}

	s, rec, err := newServer(cmd, "")
	if err != nil {
		return err
	}
	res, err := s.Call(cmd.Context(), tools.VerifyTool, map[string]any{
		"steps":  steps,
		"format": format,
	})
	return writeResult(cmd, rec, res, err)
}

// NewProbeCmd creates the "probe" subcommand.
func NewProbeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Check that the engine can be started",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, _, err := newServer(cmd, "")
			if err != nil {
				return err
			}
			if err := s.Probe(cmd.Context()); err != nil {
				return exitError(exitUnavailable, "%v", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "engine reachable")
			return nil
		},
	}
}
