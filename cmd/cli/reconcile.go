package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"taskflow-backend/internal/task/scheduler"

	"github.com/spf13/cobra"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Run one reconciliation batch and print the report",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := context.Background()
		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		report := a.scheduler.RunOnce(ctx)
		out, err := json.MarshalIndent(struct {
			Report   interface{}       `json:"report"`
			Failures map[string]string `json:"failures,omitempty"`
		}{report, report.Failures()}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))

		if n := len(report.Errors); n > 0 {
			return fmt.Errorf("%d task(s) failed to reconcile", n)
		}
		return nil
	},
}

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Send today's open tasks to the notification channels",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := context.Background()
		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.scheduler.SendDigest(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Digest sent with %d task(s)\n", n)
		return nil
	},
}

var weekCmd = &cobra.Command{
	Use:   "week [YYYY-MM-DD]",
	Short: "Print the tasks due in the week containing a date",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var at time.Time
		if len(args) == 1 {
			parsed, err := time.Parse("2006-01-02", args[0])
			if err != nil {
				return fmt.Errorf("invalid date %q: %w", args[0], err)
			}
			at = parsed
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := context.Background()
		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		summary, err := a.scheduler.WeekTasks(ctx, at)
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(struct {
			*scheduler.WeekSummary
			CompletionRate string `json:"completion_rate"`
		}{summary, summary.CompletionRate()}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(digestCmd)
	rootCmd.AddCommand(weekCmd)
}
