package storage

import (
	"context"
	"errors"

	"github.com/go-pg/pg/v10"
	"github.com/go-pg/pg/v10/orm"
	"golang.org/x/xerrors"
)

var models = []interface{}{
	(*Record)(nil),
}

var _ Journal = (*Database)(nil)

func NewDatabase(ctx context.Context, url string) (*Database, error) {
	opt, err := pg.ParseURL(url)
	if err != nil {
		return nil, xerrors.Errorf("parse database URL: %w", err)
	}

	db := pg.Connect(opt)
	// Check if connection credentials are valid and PostgreSQL is up and running.
	if err := db.Ping(ctx); err != nil {
		return nil, xerrors.Errorf("ping database: %w", err)
	}

	return &Database{DB: db}, nil
}

// Database journals upgrade runs to postgres.
type Database struct {
	DB *pg.DB
}

func (d *Database) CreateSchema() error {
	for _, model := range models {
		if err := d.DB.Model(model).CreateTable(&orm.CreateTableOptions{
			IfNotExists: true,
		}); err != nil {
			return xerrors.Errorf("creating table: %w", err)
		}
	}
	return nil
}

func (d *Database) Close() error {
	return d.DB.Close()
}

func (d *Database) Record(ctx context.Context, r *Record) error {
	stamp(r)
	if _, err := d.DB.ModelContext(ctx, r).Insert(); err != nil {
		return xerrors.Errorf("insert journal record: %w", err)
	}
	return nil
}

func (d *Database) Last(ctx context.Context, stateID string) (*Record, error) {
	r := &Record{}
	if err := d.DB.ModelContext(ctx, r).
		Where("state_id = ?", stateID).
		Order("recorded_at desc").
		Limit(1).
		Select(); err != nil {
		if errors.Is(err, pg.ErrNoRows) {
			return nil, ErrNoRecord
		}
		return nil, xerrors.Errorf("select journal record: %w", err)
	}
	return r, nil
}
