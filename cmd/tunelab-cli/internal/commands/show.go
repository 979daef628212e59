package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/XiaoConstantine/tunelab/pkg/report"
	"github.com/XiaoConstantine/tunelab/pkg/store"
)

func NewShowCommand() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print a stored run as a YAML report",
		Example: `  # Inspect an archived run
  tunelab-cli show 7f3a... --db runs.db`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := store.NewSQLiteStore(dbPath)
			if err != nil {
				return err
			}
			defer s.Close()

			history, err := s.Load(args[0])
			if err != nil {
				return err
			}
			r, err := report.FromHistory(history)
			if err != nil {
				return err
			}
			return r.Write(os.Stdout)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "runs.db", "SQLite database holding archived runs")
	return cmd
}
