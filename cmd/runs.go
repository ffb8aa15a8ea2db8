package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/extraction-eval/internal/model"
	"github.com/sells-group/extraction-eval/internal/store"
)

var (
	runsStatus     string
	runsDocumentID string
	runsLimit      int
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List stored evaluation runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		list, err := st.ListEvaluations(ctx, store.EvalFilter{
			Status:     model.Status(runsStatus),
			DocumentID: runsDocumentID,
			Limit:      runsLimit,
		})
		if err != nil {
			return eris.Wrap(err, "list evaluations")
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tDOCUMENT\tSTATUS\tCREATED\tUPDATED")
		for _, es := range list {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				es.ID, es.DocumentID, es.Status,
				es.CreatedAt.Format("2006-01-02 15:04:05"),
				es.UpdatedAt.Format("2006-01-02 15:04:05"),
			)
		}
		return w.Flush()
	},
}

func init() {
	runsCmd.Flags().StringVar(&runsStatus, "status", "", "filter by status (RUNNING, COMPLETED, FAILED, NO_BASELINE)")
	runsCmd.Flags().StringVar(&runsDocumentID, "document-id", "", "filter by document id")
	runsCmd.Flags().IntVar(&runsLimit, "limit", 50, "maximum rows to list")
	rootCmd.AddCommand(runsCmd)
}
