package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/corkboard-dev/corkboard/pkg/core"
)

var (
	reminderTitle string
	reminderWork  string
	reminderDue   string
	reminderEvery string
)

var reminderCmd = &cobra.Command{
	Use:   "reminder",
	Short: "Manage reminders on a board",
}

var reminderAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a reminder",
	Run: func(cmd *cobra.Command, args []string) {
		if boardID == "" {
			fmt.Println("Error: --board is required")
			cmd.Usage()
			os.Exit(1)
		}
		if reminderTitle == "" {
			fmt.Println("Error: --title is required")
			cmd.Usage()
			os.Exit(1)
		}

		due, err := parseDue(reminderDue)
		if err != nil {
			fatal("Invalid --due", err)
		}
		rule, err := parseRecurrence(reminderEvery)
		if err != nil {
			fatal("Invalid --every", err)
		}

		ctx := context.Background()
		store := openStore(ctx)
		defer store.Close(ctx)

		item, err := store.AddReminder(reminderTitle, reminderWork, due.Unix(), rule)
		if err != nil {
			fatal("Failed to add reminder", err)
		}
		fmt.Printf("Reminder %s scheduled for %s.\n", item.ID, due.Format(time.RFC3339))
	},
}

var reminderListCmd = &cobra.Command{
	Use:   "list",
	Short: "List reminders on a board",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if boardID == "" {
			fmt.Println("Error: --board is required")
			cmd.Usage()
			os.Exit(1)
		}

		ctx := context.Background()
		store := openStore(ctx)
		defer store.Close(ctx)

		for _, r := range store.Reminders() {
			due := time.Unix(r.DueAt, 0).Format(time.RFC3339)
			recurring := ""
			if r.Recurrence != nil {
				recurring = fmt.Sprintf(" (every %d %s)", r.Recurrence.Interval, r.Recurrence.Frequency)
			}
			fmt.Printf("%s  %-10s  %s  %s%s\n", r.ID, r.Status, due, r.Title, recurring)
		}
	},
}

var reminderCancelCmd = &cobra.Command{
	Use:   "cancel <id>",
	Short: "Cancel a scheduled reminder",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		store := openStore(ctx)
		defer store.Close(ctx)

		if err := store.CancelReminder(args[0]); err != nil {
			fatal("Failed to cancel reminder", err)
		}
		fmt.Printf("Reminder %s cancelled.\n", args[0])
	},
}

var reminderRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a reminder",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		store := openStore(ctx)
		defer store.Close(ctx)

		if err := store.RemoveReminder(args[0]); err != nil {
			fatal("Failed to remove reminder", err)
		}
		fmt.Printf("Reminder %s removed.\n", args[0])
	},
}

// parseDue accepts RFC 3339, a date, or a duration offset like "2h".
func parseDue(s string) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		return time.Now().Add(d), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02 15:04", s, time.Local); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

// parseRecurrence turns "day", "2 weeks", "3 hours" into a rule.
func parseRecurrence(s string) (*core.RecurrenceRule, error) {
	if s == "" {
		return nil, nil
	}
	fields := strings.Fields(s)
	interval := 1
	unit := fields[0]
	if len(fields) == 2 {
		if _, err := fmt.Sscanf(fields[0], "%d", &interval); err != nil {
			return nil, fmt.Errorf("unrecognized interval %q", fields[0])
		}
		unit = fields[1]
	} else if len(fields) != 1 {
		return nil, fmt.Errorf("unrecognized recurrence %q", s)
	}

	var freq core.Frequency
	switch strings.TrimSuffix(strings.ToLower(unit), "s") {
	case "hour":
		freq = core.Hourly
	case "day":
		freq = core.Daily
	case "week":
		freq = core.Weekly
	case "month":
		freq = core.Monthly
	case "year":
		freq = core.Yearly
	default:
		return nil, fmt.Errorf("unrecognized unit %q", unit)
	}
	return &core.RecurrenceRule{Frequency: freq, Interval: interval}, nil
}

func init() {
	rootCmd.AddCommand(reminderCmd)
	reminderCmd.AddCommand(reminderAddCmd, reminderListCmd, reminderCancelCmd, reminderRemoveCmd)

	reminderAddCmd.Flags().StringVar(&reminderTitle, "title", "", "Reminder title")
	reminderAddCmd.Flags().StringVar(&reminderWork, "work", "", "Work text used for the notification")
	reminderAddCmd.Flags().StringVar(&reminderDue, "due", "", "Due time (RFC 3339, date, or offset like 2h)")
	reminderAddCmd.Flags().StringVar(&reminderEvery, "every", "", "Recurrence, e.g. 'day' or '2 weeks'")
	reminderAddCmd.MarkFlagRequired("title")
}
