package commands

import (
	"fmt"

	"github.com/klokku/weekgrid/pkg/store"
	"github.com/klokku/weekgrid/pkg/week"
	"github.com/spf13/cobra"
)

func newListCmd(opts *rootOptions) *cobra.Command {
	var weekStart string
	var unscheduledOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the events of a week and the unscheduled list",
		Example: `  weekctl list
  weekctl list --week 2025-06-09
  weekctl list --unscheduled`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			if !unscheduledOnly {
				ws, err := resolveWeek(s.store, weekStart)
				if err != nil {
					return err
				}
				end, _ := week.End(ws)
				s.print.heading("Week %s to %s", ws, week.FormatDate(end))
				s.print.events(s.store.ForWeek(ws))
			}
			s.print.heading("Unscheduled")
			s.print.events(s.store.Unscheduled())
			return nil
		},
	}
	cmd.Flags().StringVarP(&weekStart, "week", "w", "", "Monday of the week to show (default: current week)")
	cmd.Flags().BoolVar(&unscheduledOnly, "unscheduled", false, "Only show the unscheduled list")
	return cmd
}

func newUpcomingCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "upcoming",
		Short: "Show the next events of today and the coming seven days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			s.print.heading("Upcoming")
			s.print.events(s.store.Upcoming(limit))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", store.DefaultUpcomingLimit, "Maximum number of events")
	return cmd
}

// resolveWeek returns weekStart, or the current week when empty.
func resolveWeek(s *store.Store, weekStart string) (string, error) {
	if weekStart == "" {
		return s.CurrentWeek(), nil
	}
	if !week.IsWeekStart(weekStart) {
		return "", fmt.Errorf("week %q must be a Monday in YYYY-MM-DD format", weekStart)
	}
	return weekStart, nil
}
