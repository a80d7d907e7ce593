package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLedgerCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Show the most recent delivery outcomes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := openLedger(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			if store == nil {
				return fmt.Errorf("the delivery ledger is disabled (delivery.ledger.driver: none)")
			}
			defer store.Close()

			entries, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				deadline := ""
				if !e.Deadline.IsZero() {
					deadline = e.Deadline.Format(timeLayout)
				}
				rows = append(rows, []string{
					e.RecordedAt.Format(timeLayout),
					e.RunID,
					deadline,
					e.CameraID,
					e.Region,
					e.Status,
					e.FilePath,
					e.Error,
				})
			}
			return writeTable(cmd.OutOrStdout(), []string{"RECORDED", "RUN", "DEADLINE", "CAMERA", "REGION", "STATUS", "FILE", "ERROR"}, rows, nil)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show")
	return cmd
}
