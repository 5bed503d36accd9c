package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/compintel/internal/model"
	"github.com/sells-group/compintel/internal/store"
)

var analysesCmd = &cobra.Command{
	Use:   "analyses",
	Short: "Inspect analysis run history",
	Long:  "Commands for listing and viewing past analysis runs.",
}

// -- analyses list --

var analysesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List analysis runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		status, _ := cmd.Flags().GetString("status")
		company, _ := cmd.Flags().GetString("company")
		limit, _ := cmd.Flags().GetInt("limit")

		filter := store.AnalysisFilter{
			Status:  model.AnalysisStatus(status),
			Company: company,
			Limit:   limit,
		}

		records, err := st.ListAnalyses(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "analyses list")
		}

		if len(records) == 0 {
			fmt.Fprintln(os.Stderr, "No analyses found.")
			return nil
		}

		formatAnalysesList(os.Stdout, records)
		return nil
	},
}

// -- analyses show --

var analysesShowCmd = &cobra.Command{
	Use:   "show <analysis-id>",
	Short: "Show full details of an analysis run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		record, err := st.GetAnalysis(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "analyses show")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(record)
	},
}

func init() {
	analysesListCmd.Flags().String("status", "", "filter by status (running, complete, failed)")
	analysesListCmd.Flags().String("company", "", "filter by company name")
	analysesListCmd.Flags().Int("limit", 50, "max number of analyses to display")

	analysesCmd.AddCommand(analysesListCmd)
	analysesCmd.AddCommand(analysesShowCmd)
	rootCmd.AddCommand(analysesCmd)
}

// formatAnalysesList writes a tabular list of analysis runs to w.
func formatAnalysesList(out io.Writer, records []model.AnalysisRecord) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCOMPANY\tSTRATEGY\tLEVEL\tSTATUS\tTOKENS\tCOST\tCREATED")
	for _, r := range records {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t$%.4f\t%s\n",
			shortID(r.ID), r.Company, r.Strategy, r.Level, r.Status,
			r.TotalTokens, r.CostUSD,
			r.CreatedAt.Local().Format(time.DateTime),
		)
	}
	_ = w.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
