package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wormhole-foundation/suigov/testutil"
)

func TestDatabaseJournal(t *testing.T) {
	if testing.Short() || !testutil.DatabaseAvailable() {
		t.Skip("short testing requested or SUIGOV_TEST_DB not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	db, err := NewDatabase(ctx, testutil.Database())
	require.NoError(t, err)
	require.NoError(t, db.CreateSchema())

	_, err = db.DB.ExecContext(ctx, `TRUNCATE TABLE upgrade_journal`)
	require.NoError(t, err)

	testJournal(t, db)

	db, err = NewDatabase(ctx, testutil.Database())
	require.NoError(t, err)
	defer db.Close() // nolint: errcheck
	count, err := db.DB.Model((*Record)(nil)).Where("run_id = ?", "r7").Count()
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}
