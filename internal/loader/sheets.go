package loader

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/url"

	"github.com/garyellow/campus-assist-go/internal/directory"
)

// SheetsExportURL returns the CSV export URL of a Google Sheets document.
// gid selects a tab; empty means the first one.
func SheetsExportURL(sheetID, gid string) string {
	u := "https://docs.google.com/spreadsheets/d/" + url.PathEscape(sheetID) + "/export?format=csv"
	if gid != "" {
		u += "&gid=" + url.QueryEscape(gid)
	}
	return u
}

// SheetsCSV loads a table from a CSV export URL, normally a Google Sheets
// document shared as "anyone with the link".
type SheetsCSV struct {
	URL     string
	Fetcher Fetcher
}

// Load fetches and parses the export.
func (s *SheetsCSV) Load(ctx context.Context, kind directory.Kind) (*directory.Table, error) {
	body, _, err := s.Fetcher.GetBytes(ctx, "sheets", s.URL)
	if err != nil {
		return nil, err
	}
	return ParseCSV(kind, bytes.NewReader(body))
}

// ParseCSV reads a header row followed by data rows.
func ParseCSV(kind directory.Kind, r io.Reader) (*directory.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("empty CSV document")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV rows: %w", err)
	}
	return directory.Normalize(kind, header, rows), nil
}
