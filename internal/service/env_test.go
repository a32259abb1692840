package service

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"qrforge/internal/config"
	"qrforge/internal/database"
	"qrforge/internal/database/migration"
	"qrforge/internal/logging"
	"qrforge/internal/repository/sqlstore"
	"qrforge/internal/storage"
)

var testQR = config.QRConfig{
	DefaultSize:     200,
	MinSize:         100,
	MaxSize:         1000,
	DefaultFormat:   "png",
	DefaultECC:      "M",
	DefaultFG:       "#000000",
	DefaultBG:       "#ffffff",
	QuietZone:       4,
	LogoSizePercent: 20,
	LogoOpacity:     1,
}

// testEnv is a migrated SQLite metadata store plus a local content store.
type testEnv struct {
	meta  *sqlstore.Store
	files *storage.Local
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	db, err := database.NewSQLite(filepath.Join(dir, "qrforge.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migration.EnsureMigrated(context.Background(), db, database.SQLite, logging.Discard()))

	files, err := storage.NewLocal(filepath.Join(dir, "cache"))
	require.NoError(t, err)
	return &testEnv{meta: sqlstore.New(db, database.SQLite), files: files}
}

type countingTrigger struct{ n atomic.Int32 }

func (c *countingTrigger) MaybeTrigger() { c.n.Add(1) }
