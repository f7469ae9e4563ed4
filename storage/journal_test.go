package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wormhole-foundation/suigov/testutil"
)

func init() {
	// Freeze time for tests
	timeNow = testutil.KnownTimeAfter(time.Second)
}

const (
	stateA = "0x00000000000000000000000000000000000000000000000000000000000000aa"
	stateB = "0x00000000000000000000000000000000000000000000000000000000000000bb"
	stateC = "0x00000000000000000000000000000000000000000000000000000000000000cc"
)

func runRecords() []*Record {
	return []*Record{
		{RunID: "r1", Step: StepUpgrade, Status: StatusSubmitted, StateID: stateA, PackageID: "0x1", TxDigest: "d1", SignedVAA: "0100"},
		{RunID: "r1", Step: StepUpgrade, Status: StatusFinalized, StateID: stateA, PackageID: "0x1", TxDigest: "d1", SignedVAA: "0100"},
		{RunID: "r9", Step: StepUpgrade, Status: StatusFailed, StateID: stateB, Error: "rejected, \"quoted\"\nnewline"},
	}
}

func testJournal(t *testing.T, j Journal) {
	ctx := context.Background()

	_, err := j.Last(ctx, stateA)
	require.ErrorIs(t, err, ErrNoRecord)

	for _, r := range runRecords() {
		require.NoError(t, j.Record(ctx, r))
	}

	last, err := j.Last(ctx, stateA)
	require.NoError(t, err)
	assert.Equal(t, "r1", last.RunID)
	assert.Equal(t, StatusFinalized, last.Status)
	assert.Equal(t, "d1", last.TxDigest)
	assert.Equal(t, "0100", last.SignedVAA)
	assert.False(t, last.RecordedAt.IsZero())
	assert.True(t, last.PendingMigration())

	other, err := j.Last(ctx, stateB)
	require.NoError(t, err)
	assert.Equal(t, "rejected, \"quoted\"\nnewline", other.Error)
	assert.False(t, other.PendingMigration())

	_, err = j.Last(ctx, "0x0")
	assert.ErrorIs(t, err, ErrNoRecord)

	// a migration retried after failing records every attempt
	for _, status := range []string{StatusFailed, StatusFailed, StatusFinalized} {
		require.NoError(t, j.Record(ctx, &Record{RunID: "r7", Step: StepMigrate, Status: status, StateID: stateC, Error: "attempt"}))
	}
	retried, err := j.Last(ctx, stateC)
	require.NoError(t, err)
	assert.Equal(t, StatusFinalized, retried.Status)
	assert.False(t, retried.PendingMigration())

	require.NoError(t, j.Close())
}

func TestMemJournal(t *testing.T) {
	testJournal(t, NewMemJournal())
}

func TestCSVJournal(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "journal")
	j, err := NewCSVJournal(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "upgrade_journal.csv"), j.Filename())

	testJournal(t, j)

	data, err := os.ReadFile(j.Filename())
	require.NoError(t, err)
	assert.Equal(t, "run_id,step,status,state_id,package_id,tx_digest,signed_vaa,error,recorded_at\n", string(data[:len("run_id,step,status,state_id,package_id,tx_digest,signed_vaa,error,recorded_at\n")]))

	// a second journal on the same directory appends without repeating the header
	again, err := NewCSVJournal(dir)
	require.NoError(t, err)
	require.NoError(t, again.Record(context.Background(), &Record{RunID: "r1", Step: StepMigrate, Status: StatusSubmitted, StateID: stateA}))
	last, err := again.Last(context.Background(), stateA)
	require.NoError(t, err)
	assert.Equal(t, StepMigrate, last.Step)
	assert.True(t, last.PendingMigration())
}

func TestNullJournal(t *testing.T) {
	j := &NullJournal{}
	require.NoError(t, j.Record(context.Background(), &Record{StateID: stateA}))
	_, err := j.Last(context.Background(), stateA)
	assert.ErrorIs(t, err, ErrNoRecord)
}

func TestPendingMigration(t *testing.T) {
	testCases := []struct {
		step, status string
		want         bool
	}{
		{StepUpgrade, StatusSubmitted, true},
		{StepUpgrade, StatusExecuted, true},
		{StepUpgrade, StatusFailed, false},
		{StepUpgrade, StatusFinalized, true},
		{StepMigrate, StatusExecuted, true},
		{StepMigrate, StatusSubmitted, true},
		{StepMigrate, StatusFailed, true},
		{StepMigrate, StatusFinalized, false},
	}
	for _, tc := range testCases {
		r := &Record{Step: tc.step, Status: tc.status}
		assert.Equal(t, tc.want, r.PendingMigration(), "%s/%s", tc.step, tc.status)
	}
}
