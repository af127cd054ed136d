package store

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/nvr-ai/go-parking/monitoring"
	"github.com/nvr-ai/go-parking/regions"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "parking.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		"memory": NewMemory(),
		"sqlite": openTestSQLite(t),
	}
}

func TestStore_GetSet(t *testing.T) {
	ctx := context.Background()

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get(ctx, KeyTotalSpots)
			assert.True(t, errors.Is(err, ErrNotFound), "unset key must report ErrNotFound, got %v", err)

			require.NoError(t, s.Set(ctx, KeyTotalSpots, 50))
			v, err := s.Get(ctx, KeyTotalSpots)
			require.NoError(t, err)
			assert.Equal(t, 50, v)

			// Overwrite, negative values are stored as-is.
			require.NoError(t, s.Set(ctx, KeyTotalSpots, -3))
			v, err = s.Get(ctx, KeyTotalSpots)
			require.NoError(t, err)
			assert.Equal(t, -3, v)
		})
	}
}

func TestSpots_NamedCounts(t *testing.T) {
	ctx := context.Background()

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			spots := NewSpots(s)

			require.NoError(t, spots.SaveTotalSpots(ctx, 50))
			require.NoError(t, spots.SaveTotalHandicapSpots(ctx, 4))
			require.NoError(t, spots.SaveAvailableFreeSpots(ctx, -3))
			require.NoError(t, spots.SaveAvailableHandicapSpots(ctx, 2))

			total, err := spots.TotalSpots(ctx)
			require.NoError(t, err)
			assert.Equal(t, 50, total)

			totalHandicap, err := spots.TotalHandicapSpots(ctx)
			require.NoError(t, err)
			assert.Equal(t, 4, totalHandicap)

			free, err := spots.AvailableFreeSpots(ctx)
			require.NoError(t, err)
			assert.Equal(t, -3, free)

			freeHandicap, err := spots.AvailableHandicapSpots(ctx)
			require.NoError(t, err)
			assert.Equal(t, 2, freeHandicap)

			byCategory, err := spots.Available(ctx, regions.Handicap)
			require.NoError(t, err)
			assert.Equal(t, 2, byCategory)

			totalByCategory, err := spots.Total(ctx, regions.Normal)
			require.NoError(t, err)
			assert.Equal(t, 50, totalByCategory)
		})
	}
}

func TestSpots_UnknownCategory(t *testing.T) {
	spots := NewSpots(NewMemory())
	ctx := context.Background()

	_, err := spots.Total(ctx, regions.Category(9))
	assert.Error(t, err)
	assert.Error(t, spots.SaveAvailable(ctx, regions.Category(9), 1))
}

func TestMemory_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewMemory()
	assert.ErrorIs(t, m.Set(ctx, KeyTotalSpots, 1), context.Canceled)
	_, err := m.Get(ctx, KeyTotalSpots)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSQLite_MigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parking.db")

	first, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, first.Set(context.Background(), KeyAvailableFreeSpots, 12))
	require.NoError(t, first.Close())

	second, err := OpenSQLite(path)
	require.NoError(t, err)
	defer second.Close()

	version, dirty, err := second.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	v, err := second.Get(context.Background(), KeyAvailableFreeSpots)
	require.NoError(t, err)
	assert.Equal(t, 12, v)
}

func TestSQLite_PragmasOnEveryConnection(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	// Hold both so the pool has to open a second connection.
	first, err := s.db.Conn(ctx)
	require.NoError(t, err)
	defer first.Close()
	second, err := s.db.Conn(ctx)
	require.NoError(t, err)
	defer second.Close()

	for i, conn := range []*sql.Conn{first, second} {
		var timeout int
		require.NoError(t, conn.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&timeout))
		assert.Equal(t, 5000, timeout, "connection %d", i)

		var synchronous int
		require.NoError(t, conn.QueryRowContext(ctx, "PRAGMA synchronous").Scan(&synchronous))
		assert.Equal(t, 1, synchronous, "connection %d", i) // NORMAL
	}
}

func TestMigrateLogger_UsesMonitoring(t *testing.T) {
	saved := monitoring.Logf
	defer func() { monitoring.Logf = saved }()

	var lines []string
	monitoring.SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, v...))
	})

	(&migrateLogger{}).Printf("applied %d", 1)
	assert.Equal(t, []string{"[migrate] applied 1"}, lines)
}
