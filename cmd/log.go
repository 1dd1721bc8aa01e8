package cmd

import (
	"fmt"
	"strconv"

	"github.com/brk3/habitlog/internal/apiclient"
	"github.com/brk3/habitlog/internal/server"
	"github.com/spf13/cobra"
)

var toggleCmd = &cobra.Command{
	Use:   "toggle <habit-id>",
	Short: "Advance a checkbox habit: pending, done, missed, pending",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return logEntry(cmd, args[0], func(c *apiclient.Client) (*server.EntryMutationResponse, error) {
			return c.Toggle(cmd.Context(), args[0])
		})
	},
}

var countCmd = &cobra.Command{
	Use:   "count <habit-id> <n>",
	Short: "Set today's count for a counter habit",
	Long: `The "count" command sets today's count. Values below zero or above the
target are clamped.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("count must be a whole number: %q", args[1])
		}
		return logEntry(cmd, args[0], func(c *apiclient.Client) (*server.EntryMutationResponse, error) {
			return c.SetCount(cmd.Context(), args[0], n)
		})
	},
}

var incCmd = &cobra.Command{
	Use:   "inc <habit-id>",
	Short: "Add one to today's count for a counter habit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return logEntry(cmd, args[0], func(c *apiclient.Client) (*server.EntryMutationResponse, error) {
			return c.Increment(cmd.Context(), args[0])
		})
	},
}

func logEntry(cmd *cobra.Command, habitID string, op func(*apiclient.Client) (*server.EntryMutationResponse, error)) error {
	c, err := newClient(cmd.Context())
	if err != nil {
		return err
	}
	resp, err := op(c)
	if err != nil {
		return err
	}
	if !resp.Applied {
		return fmt.Errorf("nothing changed: %s is not a habit of that type", habitID)
	}
	habits, err := c.ListHabits(cmd.Context())
	if err != nil {
		return err
	}
	for _, h := range habits {
		if h.ID == habitID {
			cmd.Println(entryLine(resp.Today.Entries[habitID], label(h), h.Unit))
			break
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(toggleCmd, countCmd, incCmd)
}
