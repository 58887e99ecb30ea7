package commands

import (
	"os"

	"github.com/spf13/cobra"

	"scanattend/internal/attendance"
)

const defaultExportPath = "attendance_export.csv"

func newRecordsCmd(e *env) *cobra.Command {
	var f attendance.Filter
	cmd := &cobra.Command{
		Use:   "records",
		Short: "Print attendance records, newest day first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := e.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()
			f.Code = attendance.NormalizeCode(f.Code)
			records, err := s.ledger.List(cmd.Context(), f)
			if err != nil {
				return err
			}
			return attendance.WriteTable(cmd.OutOrStdout(), records)
		},
	}
	cmd.Flags().StringVar(&f.Code, "code", "", "only this subject code")
	cmd.Flags().StringVar(&f.Date, "date", "", "only this day (YYYY-MM-DD)")
	cmd.Flags().IntVar(&f.Limit, "limit", 0, "maximum rows, 0 for all")
	cmd.Flags().IntVar(&f.Offset, "offset", 0, "rows to skip when --limit is set")
	return cmd
}

func newExportCmd(e *env) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all attendance records to a CSV file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := e.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()
			records, err := s.ledger.List(cmd.Context(), attendance.Filter{})
			if err != nil {
				return err
			}
			fh, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := attendance.WriteCSV(fh, records); err != nil {
				_ = fh.Close()
				return err
			}
			if err := fh.Close(); err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "exported %d records to %s\n", len(records), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", defaultExportPath, "CSV file to write")
	return cmd
}

func newTotalCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "total CODE",
		Short: "Print how many days a subject has attended",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := e.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()
			code := attendance.NormalizeCode(args[0])
			n, err := s.ledger.TotalScans(cmd.Context(), code)
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "%s attended %d times\n", code, n)
			return nil
		},
	}
}
