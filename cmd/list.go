package cmd

import (
	"github.com/spf13/cobra"
)

var listHabitsOnly bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show today's log",
	Long: `The "list" command shows today's entry for every habit. With --habits it
lists the habits themselves, with their ids.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return list(cmd, listHabitsOnly)
	},
}

func list(cmd *cobra.Command, habitsOnly bool) error {
	c, err := newClient(cmd.Context())
	if err != nil {
		return err
	}
	habits, err := c.ListHabits(cmd.Context())
	if err != nil {
		return err
	}
	if habitsOnly {
		renderHabits(cmd.OutOrStdout(), habits)
		return nil
	}
	today, err := c.Today(cmd.Context())
	if err != nil {
		return err
	}
	renderDay(cmd.OutOrStdout(), habits, *today)
	return nil
}

func init() {
	listCmd.Flags().BoolVar(&listHabitsOnly, "habits", false, "list habits instead of today's entries")
	rootCmd.AddCommand(listCmd)
}
