package storage

import (
	"context"
	"errors"
	"time"

	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("suigov/storage")

// ErrNoRecord is returned by Last when nothing was journaled for a state object.
var ErrNoRecord = errors.New("no journal record")

var timeNow = time.Now

// Steps of an upgrade run.
const (
	StepUpgrade = "upgrade"
	StepMigrate = "migrate"
)

// Statuses of a step.
const (
	StatusSubmitted = "submitted"
	// StatusExecuted is an executed transaction whose finality was not confirmed.
	StatusExecuted  = "executed"
	StatusFinalized = "finalized"
	StatusFailed    = "failed"
)

// Record is one transition of an upgrade run. Every transition is appended, the
// latest record of a state object tells where a run stopped.
type Record struct {
	tableName struct{} `pg:"upgrade_journal"` // nolint: structcheck,unused

	RunID      string    `pg:",pk,notnull"`
	Step       string    `pg:",pk,notnull"`
	Status     string    `pg:",pk,notnull"`
	StateID    string    `pg:",notnull"`
	PackageID  string    `pg:",use_zero"`
	TxDigest   string    `pg:",use_zero"`
	SignedVAA  string    `pg:",use_zero"` // hex
	Error      string    `pg:",use_zero"`
	RecordedAt time.Time `pg:",pk,notnull"`
}

// PendingMigration reports whether the run stopped after the upgrade was executed
// by the ledger and before the migration was finalized. An upgrade that executed
// but whose finality was not confirmed counts as applied.
func (r *Record) PendingMigration() bool {
	switch r.Step {
	case StepUpgrade:
		return r.Status == StatusSubmitted || r.Status == StatusExecuted || r.Status == StatusFinalized
	case StepMigrate:
		return r.Status != StatusFinalized
	}
	return false
}

// A Journal persists the progress of upgrade runs so an interrupted run can be resumed.
type Journal interface {
	Record(ctx context.Context, r *Record) error
	// Last returns the most recent record for the state object, or ErrNoRecord.
	Last(ctx context.Context, stateID string) (*Record, error)
	Close() error
}

func stamp(r *Record) {
	if r.RecordedAt.IsZero() {
		r.RecordedAt = timeNow().UTC()
	}
}
