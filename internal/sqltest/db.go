// Copyright (c) 2024 The redgold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package sqltest runs store tests against every SQL backend the node
// supports. The peer registry speaks portable SQL so the same test body
// must pass unchanged on PostgreSQL and SQLite.
package sqltest

import (
	"database/sql"
	"fmt"
	"hash/fnv"
	"testing"

	// Register the pgx driver under name "pgx".
	_ "github.com/jackc/pgx/v5/stdlib"

	// Register SQLite driver under name "sqlite".
	_ "modernc.org/sqlite"

	"github.com/stretchr/testify/require"
)

// DBFactory opens a fresh, isolated database for one test and registers
// its cleanup on t.
type DBFactory func(t testing.TB) *sql.DB

// DBTestFunc is a test body parameterized over the backend factory.
type DBTestFunc func(t *testing.T, dbFactory DBFactory)

// RunDatabaseTest runs testFunc once per supported backend as a parallel
// subtest. Each invocation gets its own database, so bodies may write
// freely. The Postgres leg skips itself when no server DSN is configured
// in the environment.
func RunDatabaseTest(t *testing.T, testFunc DBTestFunc) {
	t.Helper()

	backends := []struct {
		name    string
		factory DBFactory
	}{
		{name: "Postgres", factory: NewPostgresDB},
		{name: "SQLite", factory: NewSQLiteDB},
	}

	for _, be := range backends {
		be := be
		t.Run(be.name, func(t *testing.T) {
			t.Parallel()
			testFunc(t, be.factory)
		})
	}
}

// deterministicTestID derives a short stable identifier from the test
// name. Database names must not depend on randomness (test caching) and
// must stay short enough that no backend truncates them.
func deterministicTestID(t testing.TB) string {
	t.Helper()

	h := fnv.New32a()
	_, err := h.Write([]byte(t.Name()))
	require.NoError(t, err)

	return fmt.Sprintf("%08x", h.Sum32())
}
