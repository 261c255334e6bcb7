package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/garyellow/campus-assist-go/internal/availability"
	"github.com/garyellow/campus-assist-go/internal/directory"
	"github.com/garyellow/campus-assist-go/internal/schedule"
	"github.com/garyellow/campus-assist-go/internal/timeutil"
)

type statusOutput struct {
	Name      string                  `json:"name"`
	Status    availability.StatusKind `json:"status"`
	Available bool                    `json:"available"`
	Label     string                  `json:"label"`
	CheckedAt time.Time               `json:"checked_at"`
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	var (
		at     string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "status <name...>",
		Short: "Check whether a faculty member is available",
		Long:  "Evaluates the operating rules and the configured timetable or ICS file for the named person, at the current time or at --at.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.settings()
			if err != nil {
				return err
			}

			now := opts.now()
			if at != "" {
				now, err = time.ParseInLocation(time.RFC3339, at, s.Location)
				if err != nil {
					return fmt.Errorf("--at: want RFC 3339, e.g. 2026-10-19T10:30:00+05:30: %w", err)
				}
			}

			name := strings.Join(args, " ")
			if _, ok := s.Tables[directory.KindFaculty]; ok {
				if table, err := loadTable(cmd, s, directory.KindFaculty); err == nil {
					if rec, found := table.Find(name); found {
						name = rec.Get(directory.SchemaFor(directory.KindFaculty).NameField)
					}
				}
			}

			source, timetable, err := calendarSource(s)
			if err != nil {
				return err
			}
			ev := &availability.Evaluator{Rules: s.Rules, Location: s.Location, Source: source}
			res := ev.Check(cmd.Context(), name, now)

			out := statusOutput{
				Name:      name,
				Status:    res.Status,
				Available: res.Available,
				Label:     res.Label(s.Location),
				CheckedAt: now.In(s.Location),
			}
			if res.Status == availability.Available && timetable != nil && !timetable.Has(name) {
				out.Label = "Available (No schedule found)"
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\nCurrent: %s\n",
				out.Name, out.Label, timeutil.Caption(now, s.Location))
			return err
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "evaluate at this RFC 3339 time instead of now")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

// calendarSource returns the configured schedule source, or nil when
// neither a timetable nor an ICS file is set.
func calendarSource(s *Settings) (availability.Source, *schedule.Timetable, error) {
	switch {
	case s.Timetable != "":
		tt, err := schedule.LoadTimetable(s.Timetable, s.Location)
		if err != nil {
			return nil, nil, err
		}
		return tt, tt, nil
	case s.ICSFile != "":
		return &schedule.ICSFeed{URL: s.ICSFile, Location: s.Location}, nil, nil
	default:
		return nil, nil, nil
	}
}
