package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/toolmath/tools"
)

// NewToolsCmd creates the "tools" command group.
func NewToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List or search the served tools",
		Args:  cobra.NoArgs,
		RunE:  runToolsList,
	}
	cmd.Flags().StringP("query", "q", "", "Search query")
	cmd.Flags().Int("limit", tools.DefaultSearchLimit, "Maximum number of results")

	cmd.AddCommand(newToolsDescribeCmd())
	return cmd
}

func newCatalog(cmd *cobra.Command) (*tools.Catalog, error) {
	s, _, err := newServer(cmd, "")
	if err != nil {
		return nil, err
	}
	return tools.NewCatalog(s.Registry())
}

func runToolsList(cmd *cobra.Command, _ []string) error {
	query, _ := cmd.Flags().GetString("query")
	limit, _ := cmd.Flags().GetInt("limit")

	catalog, err := newCatalog(cmd)
	if err != nil {
		return err
	}
	results, err := catalog.Search(query, limit)
	if err != nil {
		return fmt.Errorf("searching tools: %w", err)
	}
	if len(results) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No tools found.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTAGS\tDESCRIPTION")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.ID, strings.Join(r.Tags, ","), r.ShortDescription)
	}
	return w.Flush()
}

func newToolsDescribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "describe <name>",
		Short: "Show a tool's documentation and input schema",
		Args:  cobra.ExactArgs(1),
		RunE:  runToolsDescribe,
	}
}

func runToolsDescribe(cmd *cobra.Command, args []string) error {
	name := strings.TrimSpace(args[0])
	catalog, err := newCatalog(cmd)
	if err != nil {
		return err
	}

	doc, err := catalog.Describe(name)
	if errors.Is(err, tools.ErrMethodNotFound) {
		return exitError(exitInvalid, "unknown tool %q", name)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s\n", tools.ToolID(name))
	if doc.Summary != "" {
		fmt.Fprintf(out, "  %s\n", doc.Summary)
	}
	if doc.Tool != nil {
		fmt.Fprintf(out, "\n%s\n", doc.Tool.Description)
		schema, err := json.MarshalIndent(doc.Tool.InputSchema, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding schema: %w", err)
		}
		fmt.Fprintf(out, "\nInput schema:\n%s\n", schema)
	}

	examples, err := catalog.Examples(name, 5)
	if err != nil {
		return err
	}
	if len(examples) > 0 {
		fmt.Fprintln(out, "\nExamples:")
		for _, ex := range examples {
			argsJSON, _ := json.Marshal(ex.Args)
			fmt.Fprintf(out, "  %s: %s\n", ex.Title, argsJSON)
		}
	}
	return nil
}
