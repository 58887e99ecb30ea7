// Package commands implements the attendancectl CLI.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"scanattend/internal/attendance"
	"scanattend/internal/config"
	"scanattend/internal/logging"
	"scanattend/internal/store"
)

var red = color.New(color.FgRed, color.Bold)

// env is what every subcommand works against.
type env struct {
	cfg   config.App
	log   *slog.Logger
	dbURL string
}

// Execute runs the CLI with os.Args.
func Execute(version string) error {
	root := NewRootCmd(version)
	if err := root.Execute(); err != nil {
		red.Fprintf(os.Stderr, "error: %v\n", err)
		return err
	}
	return nil
}

// NewRootCmd builds the command tree. Each call returns a fresh tree.
func NewRootCmd(version string) *cobra.Command {
	e := &env{}
	root := &cobra.Command{
		Use:     "attendancectl",
		Short:   "Manage the subject registry and attendance records",
		Version: version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			e.cfg = config.Load()
			e.log = logging.New(cmd.ErrOrStderr(), e.cfg.LogLevel, e.cfg.Production())
			if e.dbURL == "" {
				e.dbURL = e.cfg.DatabaseURL
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&e.dbURL, "database", "", "database URL (defaults to DATABASE_URL)")

	root.AddCommand(
		newMigrateCmd(e),
		newEnrollCmd(e),
		newSubjectsCmd(e),
		newRecordsCmd(e),
		newExportCmd(e),
		newTotalCmd(e),
		newScanCmd(e),
		newTokenCmd(e),
	)
	return root
}

// services opens and migrates the database and wires the registry and ledger.
type services struct {
	db       *store.DB
	registry *attendance.Registry
	ledger   *attendance.Ledger
}

func (e *env) open(ctx context.Context) (*services, error) {
	db, err := store.NewDB(e.dbURL)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	repo := attendance.NewRepository(db.Client)
	return &services{
		db:       db,
		registry: attendance.NewRegistry(repo),
		ledger:   attendance.NewLedger(repo),
	}, nil
}

func (s *services) Close() error { return s.db.Close() }

func printf(w io.Writer, format string, a ...any) {
	_, _ = fmt.Fprintf(w, format, a...)
}
