package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/garyellow/campus-assist-go/internal/directory"
	"github.com/garyellow/campus-assist-go/internal/loader"
)

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "search <faculty|services|labs> [query...]",
		Short: "Filter a directory table",
		Long:  "Lists the rows of a table whose searchable fields contain the query, ignoring case. An empty query lists every row.",
		Args:  cobra.MinimumNArgs(1),
		ValidArgs: []string{
			string(directory.KindFaculty),
			string(directory.KindServices),
			string(directory.KindLabs),
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := directory.ParseKind(args[0])
			if err != nil {
				return err
			}
			s, err := opts.settings()
			if err != nil {
				return err
			}
			table, err := loadTable(cmd, s, kind)
			if err != nil {
				return err
			}

			rows := table.Search(strings.Join(args[1:], " "))
			if asJSON {
				if rows == nil {
					rows = []directory.Record{}
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}
			return writeRows(cmd, table.Columns, rows)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print matching rows as JSON")
	return cmd
}

func loadTable(cmd *cobra.Command, s *Settings, kind directory.Kind) (*directory.Table, error) {
	path, ok := s.Tables[kind]
	if !ok {
		return nil, fmt.Errorf("no file configured for %s (set tables.%s)", kind, kind)
	}
	table, err := (&loader.File{Path: path}).Load(cmd.Context(), kind)
	if err != nil {
		return nil, fmt.Errorf("unable to load %s data: %w", kind, err)
	}
	if table.Skipped > 0 {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: %d %s row(s) skipped for missing required fields\n", table.Skipped, kind)
	}
	return table, nil
}

func writeRows(cmd *cobra.Command, columns []string, rows []directory.Record) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	if len(rows) > 0 {
		_, _ = fmt.Fprintln(w, strings.Join(columns, "\t"))
		for _, row := range rows {
			cells := make([]string, len(columns))
			for i, col := range columns {
				cells[i] = row.Get(col)
			}
			_, _ = fmt.Fprintln(w, strings.Join(cells, "\t"))
		}
	}
	_, _ = fmt.Fprintf(w, "Found %d result(s)\n", len(rows))
	return w.Flush()
}
