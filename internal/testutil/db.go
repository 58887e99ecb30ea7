// Package testutil holds helpers shared by package tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"scanattend/internal/store"
)

// NewSQLite opens a migrated SQLite database in a per-test temp dir.
func NewSQLite(t testing.TB) *store.DB {
	t.Helper()
	db, err := store.NewDB("sqlite://" + filepath.Join(t.TempDir(), "attendance.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(context.Background()))
	return db
}
