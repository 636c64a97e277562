// Copyright (c) 2024 The redgold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package sqltest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NewSQLiteDB opens a file-backed SQLite database under a per-test temp
// directory. The DSN matches what the daemon uses to open its local
// store: read/write/create mode with foreign keys on.
func NewSQLiteDB(t testing.TB) *sql.DB {
	t.Helper()

	name := "redgoldtest_" + deterministicTestID(t) + ".sqlite"
	dbPath := filepath.Join(t.TempDir(), name)
	dsn := "file:" + dbPath + "?mode=rwc&cache=shared&_fk=1"

	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err, "failed to open SQLite database")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		require.NoError(t, err, "failed to ping SQLite database")
	}

	t.Cleanup(func() {
		assert.NoError(t, db.Close(), "failed to close SQLite database")
	})

	return db
}
