package commands

import (
	"fmt"

	"github.com/klokku/weekgrid/pkg/calendar"
	"github.com/klokku/weekgrid/pkg/slot"
	"github.com/klokku/weekgrid/pkg/store"
	"github.com/klokku/weekgrid/pkg/week"
	"github.com/spf13/cobra"
)

func newAddCmd(opts *rootOptions) *cobra.Command {
	flags := &eventFlags{}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an event, unscheduled unless --day and --at are given",
		Example: `  weekctl add --title "Read a book"
  weekctl add -t Standup -c blue --day Mon --at 09:00 --duration 1 --repeat weekly --until 2025-08-25`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			draft := calendar.Event{}
			if err := flags.apply(cmd, &draft); err != nil {
				return err
			}
			if err := flags.schedule(cmd, &draft, s.store.CurrentWeek()); err != nil {
				return err
			}
			created, err := s.store.Add(cmd.Context(), draft)
			if err != nil {
				return err
			}
			s.print.events(created)
			return nil
		},
	}
	flags.bind(cmd, true)
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newNewCmd(opts *rootOptions) *cobra.Command {
	var weekStart string
	cmd := &cobra.Command{
		Use:     "new DAY HH:MM",
		Short:   "Create a one hour \"" + store.NewEventTitle + "\" on a free cell",
		Example: `  weekctl new Tue 14:30`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, start, err := parseCell(args[0], args[1])
			if err != nil {
				return err
			}
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			ws, err := resolveWeek(s.store, weekStart)
			if err != nil {
				return err
			}
			created, err := s.store.CreateAt(cmd.Context(), day, start, ws)
			if err != nil {
				return err
			}
			s.print.event(created)
			return nil
		},
	}
	cmd.Flags().StringVarP(&weekStart, "week", "w", "", "Monday of the week (default: current week)")
	return cmd
}

func newPlaceCmd(opts *rootOptions) *cobra.Command {
	var weekStart string
	cmd := &cobra.Command{
		Use:   "place ID DAY HH:MM",
		Short: "Move an event to a cell; a repeating unscheduled event is expanded",
		Example: `  weekctl place event-1 Wed 10:00
  weekctl place event-1 Mon 08:15 --week 2025-06-09`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, start, err := parseCell(args[1], args[2])
			if err != nil {
				return err
			}
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			ws, err := resolveWeek(s.store, weekStart)
			if err != nil {
				return err
			}
			placed, err := s.store.Place(cmd.Context(), args[0], day, start, ws)
			if err != nil {
				return err
			}
			s.print.events(placed)
			return nil
		},
	}
	cmd.Flags().StringVarP(&weekStart, "week", "w", "", "Monday of the week (default: current week)")
	return cmd
}

func newUnscheduleCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "unschedule ID",
		Short: "Move an event back to the unscheduled list; a recurring series collapses into one event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			e, err := s.store.Unschedule(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			s.print.event(e)
			return nil
		},
	}
}

func newResizeCmd(opts *rootOptions) *cobra.Command {
	var edge string
	var by int
	cmd := &cobra.Command{
		Use:   "resize ID",
		Short: "Drag the top or bottom edge of an event by a number of 15 minute slots",
		Example: `  weekctl resize event-1 --by 2
  weekctl resize event-1 --edge top --by -4`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var e store.Edge
			switch edge {
			case "bottom":
				e = store.Bottom
			case "top":
				e = store.Top
			default:
				return fmt.Errorf("edge must be top or bottom, got %q", edge)
			}
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			resized, err := s.store.Resize(cmd.Context(), args[0], e, by)
			if err != nil {
				return err
			}
			s.print.event(resized)
			return nil
		},
	}
	cmd.Flags().StringVar(&edge, "edge", "bottom", "Edge to drag: top or bottom")
	cmd.Flags().IntVar(&by, "by", 0, "Signed number of slots")
	_ = cmd.MarkFlagRequired("by")
	return cmd
}

func newEditCmd(opts *rootOptions) *cobra.Command {
	flags := &eventFlags{}
	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Change the fields of an event; editing a series instance rebuilds the series",
		Example: `  weekctl edit event-1 --title "Deep work" --color violet
  weekctl edit recurring-42-3 --repeat none`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			e, ok := s.store.Get(args[0])
			if !ok {
				return fmt.Errorf("%w: %s", store.ErrEventNotInStore, args[0])
			}
			if err := flags.apply(cmd, &e); err != nil {
				return err
			}
			updated, err := s.store.Update(cmd.Context(), e)
			if err != nil {
				return err
			}
			s.print.events(updated)
			return nil
		},
	}
	flags.bind(cmd, false)
	return cmd
}

func newDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a single event; other instances of its series stay",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			return s.store.Delete(cmd.Context(), args[0])
		},
	}
}

func parseCell(dayArg, timeArg string) (week.Day, int, error) {
	day, err := parseDay(dayArg)
	if err != nil {
		return "", 0, err
	}
	start, err := slot.Parse(timeArg)
	if err != nil {
		return "", 0, err
	}
	return day, start, nil
}
