package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/klokku/weekgrid/pkg/calendar"
	"github.com/spf13/cobra"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate FILE",
		Short: "Import events from a JSON export into the API",
		Long: `migrate uploads the events of FILE in one bulk request. FILE holds either a
JSON array of events or an object with an "events" array. Events whose id
already exists are skipped.`,
		Example: `  weekctl migrate ./calendar-export.json`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := readExport(args[0])
			if err != nil {
				return err
			}
			c, _, err := opts.client()
			if err != nil {
				return err
			}
			p := newPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr())
			p.heading("Migrating %d events", len(events))
			result, err := c.Migrate(cmd.Context(), events)
			if err != nil {
				return err
			}
			green.Fprintf(p.out, "✓ %d migrated, %d skipped\n", result.Migrated, result.Skipped)
			if result.Failed > 0 {
				red.Fprintf(p.err, "✗ %d failed\n", result.Failed)
			}
			return nil
		},
	}
}

func readExport(path string) ([]calendar.Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", path, err)
	}

	var dtos []calendar.EventDTO
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		var wrapped calendar.MigrateRequest
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, fmt.Errorf("could not parse %s: %w", path, err)
		}
		dtos = wrapped.Events
	} else if err := json.Unmarshal(trimmed, &dtos); err != nil {
		return nil, fmt.Errorf("could not parse %s: %w", path, err)
	}

	events := make([]calendar.Event, 0, len(dtos))
	for i, d := range dtos {
		e, err := calendar.DTOToEvent(d)
		if err != nil {
			return nil, fmt.Errorf("event %d in %s: %w", i, path, err)
		}
		events = append(events, e)
	}
	return events, nil
}
