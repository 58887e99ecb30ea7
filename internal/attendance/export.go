package attendance

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// CSVHeader is the export header kept for compatibility with existing spreadsheets.
var CSVHeader = []string{"ID", "Name", "Major", "Neptun", "Date", "Scans"}

// WriteCSV writes one row per record under CSVHeader.
func WriteCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			strconv.FormatInt(r.ID, 10),
			r.Name,
			r.Major,
			r.Code,
			r.Date,
			strconv.Itoa(r.Scans),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTable writes records as the fixed-width listing shown to operators.
func WriteTable(w io.Writer, records []Record) error {
	if _, err := fmt.Fprintf(w, "%-5s %-25s %-30s %-10s %-12s %-6s\n", "ID", "Name", "Major", "Neptun", "Date", "Scans"); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, strings.Repeat("=", 100)); err != nil {
		return err
	}
	for _, r := range records {
		if _, err := fmt.Fprintf(w, "%-5d %-25s %-30s %-10s %-12s %-6d\n", r.ID, r.Name, r.Major, r.Code, r.Date, r.Scans); err != nil {
			return err
		}
	}
	return nil
}
