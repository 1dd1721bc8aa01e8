package cmd

import (
	"fmt"
	"strings"

	"github.com/brk3/habitlog/pkg/habit"
	"github.com/spf13/cobra"
)

type draftFlags struct {
	name   string
	kind   string
	target int
	icon   string
	unit   string
}

var (
	addFlags  draftFlags
	editFlags draftFlags
)

var addCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a habit",
	Long: `The "add" command creates a habit. Checkbox habits are the default; pass
--type counter with a --target of 2 or more for a counter.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d := addFlags.draft()
		d.Name = strings.Join(args, " ")
		return addHabit(cmd, d)
	},
}

var editCmd = &cobra.Command{
	Use:   "edit <habit-id>",
	Short: "Edit a habit",
	Long: `The "edit" command changes the fields given as flags and leaves the rest.
Today's entry keeps the target it was created with.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editHabit(cmd, args[0])
	},
}

var removeCmd = &cobra.Command{
	Use:     "remove <habit-id>",
	Aliases: []string{"rm"},
	Short:   "Remove a habit",
	Long:    `The "remove" command deletes a habit. Its past entries stay in the log.`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return removeHabit(cmd, args[0])
	},
}

func (f draftFlags) draft() habit.Draft {
	return habit.Draft{
		Name:   f.name,
		Kind:   habit.Kind(f.kind),
		Target: f.target,
		Icon:   f.icon,
		Unit:   f.unit,
	}
}

func bindDraftFlags(cmd *cobra.Command, f *draftFlags, withName bool) {
	if withName {
		cmd.Flags().StringVar(&f.name, "name", "", "habit name")
	}
	cmd.Flags().StringVar(&f.kind, "type", string(habit.KindCheckbox), "habit type (checkbox|counter)")
	cmd.Flags().IntVar(&f.target, "target", 0, "daily target for counter habits")
	cmd.Flags().StringVar(&f.icon, "icon", "", "short icon, e.g. an emoji")
	cmd.Flags().StringVar(&f.unit, "unit", "", "unit for counter habits, e.g. glasses")
}

func addHabit(cmd *cobra.Command, d habit.Draft) error {
	c, err := newClient(cmd.Context())
	if err != nil {
		return err
	}
	resp, err := c.CreateHabit(cmd.Context(), d)
	if err != nil {
		return err
	}
	cmd.Printf("Added %s (%s)\n", label(resp.Habit), resp.Habit.ID)
	return nil
}

func editHabit(cmd *cobra.Command, id string) error {
	c, err := newClient(cmd.Context())
	if err != nil {
		return err
	}
	habits, err := c.ListHabits(cmd.Context())
	if err != nil {
		return err
	}
	var current *habit.Habit
	for i := range habits {
		if habits[i].ID == id {
			current = &habits[i]
			break
		}
	}
	if current == nil {
		return fmt.Errorf("no habit with id %s", id)
	}

	d := overlayDraft(*current, editFlags, cmd.Flags().Changed)
	resp, err := c.UpdateHabit(cmd.Context(), id, d)
	if err != nil {
		return err
	}
	cmd.Printf("Updated %s (%s)\n", label(resp.Habit), resp.Habit.ID)
	return nil
}

// overlayDraft starts from h and applies only the flags the user set.
func overlayDraft(h habit.Habit, f draftFlags, changed func(string) bool) habit.Draft {
	d := habit.Draft{Name: h.Name, Kind: h.Kind, Icon: h.Icon, Unit: h.Unit}
	if h.Target != nil {
		d.Target = *h.Target
	}
	if changed("name") {
		d.Name = f.name
	}
	if changed("type") {
		d.Kind = habit.Kind(f.kind)
	}
	if changed("target") {
		d.Target = f.target
	}
	if changed("icon") {
		d.Icon = f.icon
	}
	if changed("unit") {
		d.Unit = f.unit
	}
	return d
}

func removeHabit(cmd *cobra.Command, id string) error {
	c, err := newClient(cmd.Context())
	if err != nil {
		return err
	}
	if _, err := c.DeleteHabit(cmd.Context(), id); err != nil {
		return err
	}
	cmd.Printf("Removed %s\n", id)
	return nil
}

func init() {
	bindDraftFlags(addCmd, &addFlags, false)
	bindDraftFlags(editCmd, &editFlags, true)
	rootCmd.AddCommand(addCmd, editCmd, removeCmd)
}
