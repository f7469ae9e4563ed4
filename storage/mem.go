package storage

import (
	"context"
	"sync"
)

var _ Journal = (*MemJournal)(nil)

func NewMemJournal() *MemJournal {
	return &MemJournal{}
}

// MemJournal keeps records in memory, mostly for tests.
type MemJournal struct {
	DataMu  sync.Mutex
	Records []Record
}

func (j *MemJournal) Record(ctx context.Context, r *Record) error {
	stamp(r)
	j.DataMu.Lock()
	j.Records = append(j.Records, *r)
	j.DataMu.Unlock()
	return nil
}

func (j *MemJournal) Last(ctx context.Context, stateID string) (*Record, error) {
	j.DataMu.Lock()
	defer j.DataMu.Unlock()
	for i := len(j.Records) - 1; i >= 0; i-- {
		if j.Records[i].StateID == stateID {
			r := j.Records[i]
			return &r, nil
		}
	}
	return nil, ErrNoRecord
}

func (j *MemJournal) Close() error {
	return nil
}
