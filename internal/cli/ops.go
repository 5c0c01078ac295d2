package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"apiprobe/internal/config"
	"apiprobe/internal/openapi"
)

func OpsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ops [document]",
		Short: "List the operations of a document",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runOps,
	}
	cmd.Flags().String("tag", "", "Only list operations with this tag")
	return cmd
}

func runOps(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd, firstArg(args))
	if err != nil {
		return err
	}
	doc, err := openapi.Load(cmd.Context(), cfg.Spec)
	if err != nil {
		return fmt.Errorf("loading document: %w", err)
	}
	if cfg.BaseURL != "" {
		if err := doc.SetBaseURL(cfg.BaseURL); err != nil {
			return err
		}
	}
	tag, _ := cmd.Flags().GetString("tag")

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, op := range doc.Operations {
		if tag != "" && !hasTag(op.Tags, tag) {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", strings.ToUpper(op.Method), op.Path, op.Label())
	}
	return w.Flush()
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}
