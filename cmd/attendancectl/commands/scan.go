package commands

import (
	"bufio"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"scanattend/internal/scan"
	"scanattend/internal/status"
)

func newScanCmd(e *env) *cobra.Command {
	var window time.Duration
	cmd := &cobra.Command{
		Use:   "scan [TEXT...]",
		Short: "Submit keyed scans from arguments, or one per line from stdin",
		Long: `Submit keyed scans through the same pipeline the kiosk uses.

With no arguments, lines are read from stdin until EOF, which lets a
keyboard-wedge barcode reader be piped straight in. Blank lines are ignored.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := e.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()
			loc, err := e.cfg.Location()
			if err != nil {
				return err
			}
			if window == 0 {
				window = -1
			}
			out := cmd.OutOrStdout()
			coord := scan.NewCoordinator(s.registry, s.ledger, status.LogSink{Log: e.log}, scan.Options{
				DebounceWindow: window,
				Location:       loc,
				Logger:         e.log,
			})
			submit := func(text string) {
				o, ok := coord.Submit(cmd.Context(), scan.RawScanEvent{
					ID:         uuid.NewString(),
					Text:       text,
					Source:     scan.SourceKeyed,
					ObservedAt: time.Now(),
				})
				if ok {
					printf(out, "%s\n", o.Message())
				}
			}

			if len(args) > 0 {
				for _, a := range args {
					submit(a)
				}
				return nil
			}
			sc := bufio.NewScanner(cmd.InOrStdin())
			for sc.Scan() {
				submit(sc.Text())
			}
			return sc.Err()
		},
	}
	cmd.Flags().DurationVar(&window, "debounce", scan.DefaultDebounceWindow, "suppress repeats of the same code within this window, 0 to disable")
	return cmd
}
