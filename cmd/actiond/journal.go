package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/l1jgo/action/internal/persist"
)

func newJournalCmd() *cobra.Command {
	var (
		limit int
		run   string
	)
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "List recently finished controllers from the run journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			db, err := persist.Open(ctx, cfg.Database, log)
			if err != nil {
				return fmt.Errorf("database: %w", err)
			}
			defer db.Close()

			repo := persist.NewJournalRepo(db)
			if run != "" {
				runID, err := uuid.Parse(run)
				if err != nil {
					return fmt.Errorf("--run: %w", err)
				}
				n, err := repo.Count(ctx, runID)
				if err != nil {
					return err
				}
				fmt.Printf("Run %s journaled %d controllers.\n", runID, n)
				return nil
			}

			entries, err := repo.Recent(ctx, limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("No journal entries found.")
				return nil
			}
			fmt.Printf("%-36s  %-24s  %8s  %10s  %s\n", "RUN", "LABEL", "FRAMES", "ELAPSED", "FINISHED")
			for _, e := range entries {
				label := e.Label
				if e.Stopped {
					label += " (stopped)"
				}
				fmt.Printf("%-36s  %-24s  %8d  %10s  %s\n",
					e.RunID, label, e.Frames(), e.Elapsed, e.FinishedAt.Format(time.RFC3339))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of entries to show")
	cmd.Flags().StringVar(&run, "run", "", "print the entry count of one run ID instead of listing")
	return cmd
}
