// Package testutil holds helpers shared by package tests.
package testutil

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alimikegami/digital-store/settlement-service/internal/infrastructure/database/migrations"
	"github.com/alimikegami/digital-store/settlement-service/internal/infrastructure/database/sqlite"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

// NewDB returns a migrated SQLite database that lives for the duration of
// the test.
func NewDB(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "settlement.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, migrations.Migrate(context.Background(), db))

	return db
}

// Clock is a settable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
