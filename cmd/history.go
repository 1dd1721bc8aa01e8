package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/brk3/habitlog/pkg/datekey"
	"github.com/spf13/cobra"
)

var (
	historyBack int
	historyDays int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past days, starting from yesterday",
	Long: `The "history" command shows the log for past days. It starts at yesterday;
--back moves further into the past and --days shows several days, newest
first. History never includes today.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return history(cmd, historyBack, historyDays)
	},
}

var errFutureHistory = errors.New("history starts at yesterday; --back cannot be negative")

// offsetFunc moves a date key by whole days.
type offsetFunc func(ctx context.Context, date datekey.Key, days int) (datekey.Key, error)

// historyDates returns days keys, newest first, starting at yesterday minus
// back.
func historyDates(ctx context.Context, offset offsetFunc, today datekey.Key, back, days int) ([]datekey.Key, error) {
	if back < 0 {
		return nil, errFutureHistory
	}
	if days < 1 {
		return nil, fmt.Errorf("--days must be at least 1, got %d", days)
	}
	out := make([]datekey.Key, 0, days)
	for i := 0; i < days; i++ {
		k, err := offset(ctx, today, -1-back-i)
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, nil
}

func history(cmd *cobra.Command, back, days int) error {
	c, err := newClient(cmd.Context())
	if err != nil {
		return err
	}
	today, err := c.Today(cmd.Context())
	if err != nil {
		return err
	}
	dates, err := historyDates(cmd.Context(), c.Offset, today.Date, back, days)
	if err != nil {
		return err
	}
	habits, err := c.ListHabits(cmd.Context())
	if err != nil {
		return err
	}
	for _, date := range dates {
		day, err := c.Day(cmd.Context(), date)
		if err != nil {
			return err
		}
		renderDay(cmd.OutOrStdout(), habits, *day)
	}
	return nil
}

func init() {
	historyCmd.Flags().IntVar(&historyBack, "back", 0, "days before yesterday to start from")
	historyCmd.Flags().IntVar(&historyDays, "days", 1, "number of days to show")
	rootCmd.AddCommand(historyCmd)
}
