// Copyright (c) 2024 The redgold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package sqltest

import (
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// The registry schema leans on three portability assumptions shared by
// pgx and modernc sqlite: $1 placeholders, BYTEA columns, and the
// ON CONFLICT ... DO UPDATE upsert form. These statements mirror the
// node table shape without importing the store itself.
const (
	createRegistrySQL = `
		CREATE TABLE IF NOT EXISTS registry (
			public_key TEXT PRIMARY KEY,
			last_seen BIGINT NOT NULL,
			tx BYTEA NOT NULL
		);`
	upsertRegistrySQL = `
		INSERT INTO registry (public_key, last_seen, tx)
		VALUES ($1, $2, $3)
		ON CONFLICT (public_key) DO UPDATE SET
			last_seen = excluded.last_seen,
			tx = excluded.tx;`
	selectRegistrySQL = `
		SELECT last_seen, tx FROM registry WHERE public_key = $1`
	countRegistrySQL = `SELECT COUNT(*) FROM registry`
)

// TestBackendIsolation checks that every subtest sees a fresh database:
// parallel bodies create the same table and never observe each other's
// rows.
func TestBackendIsolation(t *testing.T) {
	RunDatabaseTest(t, func(t *testing.T, dbFactory DBFactory) {
		for i := 0; i < 3; i++ {
			i := i
			t.Run(fmt.Sprintf("Instance%d", i), func(t *testing.T) {
				t.Parallel()

				db := dbFactory(t)
				_, err := db.Exec(createRegistrySQL)
				require.NoError(t, err)

				var count int
				err = db.QueryRow(countRegistrySQL).Scan(&count)
				require.NoError(t, err)
				require.Zero(t, count, "expected a fresh database")

				for j := 0; j < 5; j++ {
					key := fmt.Sprintf("peer-%d-%d", i, j)
					_, err = db.Exec(upsertRegistrySQL, key, int64(j), []byte{byte(j)})
					require.NoError(t, err, "insert failed")
				}

				err = db.QueryRow(countRegistrySQL).Scan(&count)
				require.NoError(t, err)
				require.Equal(t, 5, count)
			})
		}
	})
}

// TestUpsertPortability pins the ON CONFLICT upsert behavior both drivers
// must share: a conflicting insert replaces the row in place and a blob
// round-trips unchanged.
func TestUpsertPortability(t *testing.T) {
	RunDatabaseTest(t, func(t *testing.T, dbFactory DBFactory) {
		db := dbFactory(t)
		_, err := db.Exec(createRegistrySQL)
		require.NoError(t, err)

		_, err = db.Exec(upsertRegistrySQL, "peer-a", int64(100), []byte{0x01, 0x02})
		require.NoError(t, err)

		// Same key again: the row updates rather than erroring.
		_, err = db.Exec(upsertRegistrySQL, "peer-a", int64(200), []byte{0x03})
		require.NoError(t, err)

		var lastSeen int64
		var blob []byte
		err = db.QueryRow(selectRegistrySQL, "peer-a").Scan(&lastSeen, &blob)
		require.NoError(t, err)
		require.Equal(t, int64(200), lastSeen)
		require.Equal(t, []byte{0x03}, blob)

		var count int
		err = db.QueryRow(countRegistrySQL).Scan(&count)
		require.NoError(t, err)
		require.Equal(t, 1, count)

		// A miss surfaces as sql.ErrNoRows on both backends.
		err = db.QueryRow(selectRegistrySQL, "peer-b").Scan(&lastSeen, &blob)
		require.ErrorIs(t, err, sql.ErrNoRows)
	})
}
