package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/XiaoConstantine/tunelab/pkg/store"
)

func NewListCommand() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List archived runs",
		Example: `  # List runs, newest first
  tunelab-cli list --db runs.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := store.NewSQLiteStore(dbPath)
			if err != nil {
				return err
			}
			defer s.Close()

			summaries, err := s.ListRuns()
			if err != nil {
				return err
			}
			if len(summaries) == 0 {
				fmt.Println("no runs archived yet")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RUN ID\tUSE CASE\tITERATIONS\tFINISHED")
			for _, summary := range summaries {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
					summary.RunID, summary.UseCaseID, summary.Iterations,
					summary.EndTime.Format("2006-01-02 15:04:05"))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "runs.db", "SQLite database holding archived runs")
	return cmd
}
