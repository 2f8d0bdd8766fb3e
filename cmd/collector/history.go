package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/qepting91/idea-collector/internal/archive"
	"github.com/qepting91/idea-collector/internal/domain"
)

func (a *app) historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List archived runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := a.runSettings()
			if err != nil {
				return err
			}
			if run.Archive == "" {
				return domain.ConfigErrorf("run.archive", "no archive configured")
			}

			db, err := archive.Open(run.Archive)
			if err != nil {
				return err
			}
			defer db.Close()

			runs, err := db.ListRuns(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("listing runs: %w", err)
			}

			w := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(w, "No archived runs.")
				return nil
			}
			for _, r := range runs {
				fmt.Fprintf(w, "%s  %s  %4d records  %2d errors  [%s]\n",
					r.RunAt.Format("2006-01-02 15:04:05Z"), r.RunID, r.TotalRecords, r.ErrorCount,
					strings.Join(r.SearchTerms, ", "))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to list (0 for all)")
	return cmd
}
