package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/raoulx24/camrelay/internal/clock"
)

func newNextCommand(ctx *commandContext) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "next",
		Short: "Show the upcoming aligned round deadlines",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if count < 1 {
				return fmt.Errorf("--count must be at least 1")
			}

			now := clock.Real{Location: cfg.Location()}.Now()
			rows, err := upcomingDeadlines(now, cfg.Run.AlignmentMinutes, cfg.Run.StartupOverhead, count)
			if err != nil {
				return err
			}
			return writeTable(cmd.OutOrStdout(), []string{"DEADLINE", "WAKE", "IN"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight})
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 3, "Number of deadlines to show")
	return cmd
}

// upcomingDeadlines lists the next n aligned deadlines after now with the
// time the coordinator would wake for each.
func upcomingDeadlines(now time.Time, multiple int, overhead time.Duration, n int) ([][]string, error) {
	rows := make([][]string, 0, n)
	from := now
	for i := 0; i < n; i++ {
		deadline, err := clock.NextAlignedDeadline(from, multiple)
		if err != nil {
			return nil, err
		}
		wake := now.Add(clock.SleepFor(now, deadline, overhead))
		rows = append(rows, []string{
			deadline.Format(timeLayout),
			wake.Format(timeLayout),
			clock.Interval(now, deadline).Round(time.Second).String(),
		})
		from = deadline
	}
	return rows, nil
}
