package storage

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-pg/pg/v10/orm"
	"github.com/go-pg/pg/v10/types"
	"golang.org/x/xerrors"
)

const PostgresTimestampFormat = "2006-01-02T15:04:05.999Z07:00"

var ErrMarshalUnsupportedType = errors.New("cannot marshal unsupported type")

// A table is a list of columns and corresponding field names in the Go struct
type table struct {
	name    string
	columns []string
	fields  []string
}

var (
	// Cache of model schemas for csv storage
	csvModelTablesMu sync.Mutex
	csvModelTables   = map[reflect.Type]table{}
)

// getCSVModelTable derives the columns of a model from its go-pg table definition,
// so the csv and postgres journals share a layout.
func getCSVModelTable(v interface{}) table {
	csvModelTablesMu.Lock()
	defer csvModelTablesMu.Unlock()

	typ := reflect.TypeOf(v)
	if t, ok := csvModelTables[typ]; ok {
		return t
	}

	m := orm.NewQuery(nil, v).TableModel().Table()
	t := table{name: stripQuotes(m.SQLNameForSelects)}
	for _, fld := range m.Fields {
		t.columns = append(t.columns, fld.SQLName)
		t.fields = append(t.fields, fld.GoName)
	}
	csvModelTables[typ] = t
	return t
}

func stripQuotes(s types.Safe) string {
	return strings.Trim(string(s), `"`)
}

var _ Journal = (*CSVJournal)(nil)

// CSVJournal appends records to <dir>/upgrade_journal.csv.
type CSVJournal struct {
	mu       sync.Mutex
	filename string
	table    table
}

func NewCSVJournal(dir string) (*CSVJournal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, xerrors.Errorf("create journal directory: %w", err)
	}
	t := getCSVModelTable((*Record)(nil))
	return &CSVJournal{
		filename: filepath.Join(dir, t.name+".csv"),
		table:    t,
	}, nil
}

func (c *CSVJournal) Filename() string {
	return c.filename
}

// Record appends r, creating the file with a header row if it does not exist yet.
func (c *CSVJournal) Record(ctx context.Context, r *Record) error {
	stamp(r)
	row, err := c.marshal(r)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var rows [][]string
	f, err := os.OpenFile(c.filename, os.O_APPEND|os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err == nil {
		rows = append(rows, c.table.columns)
	} else {
		if !errors.Is(err, os.ErrExist) {
			return xerrors.Errorf("create file %q: %w", c.filename, err)
		}
		// File exists, attempt to append
		f, err = os.OpenFile(c.filename, os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return xerrors.Errorf("open file %q: %w", c.filename, err)
		}
	}
	defer f.Close() // nolint: errcheck

	w := csv.NewWriter(f)
	if err := w.WriteAll(append(rows, row)); err != nil {
		return xerrors.Errorf("write %q: %w", c.filename, err)
	}
	if err := f.Sync(); err != nil {
		log.Errorw("failed to sync csv file", "error", err, "filename", c.filename)
	}
	return nil
}

func (c *CSVJournal) Last(ctx context.Context, stateID string) (*Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := os.Open(c.filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoRecord
		}
		return nil, xerrors.Errorf("open file %q: %w", c.filename, err)
	}
	defer f.Close() // nolint: errcheck

	rd := csv.NewReader(f)
	header, err := rd.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoRecord
		}
		return nil, xerrors.Errorf("read header of %q: %w", c.filename, err)
	}

	var last *Record
	for {
		row, err := rd.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, xerrors.Errorf("read %q: %w", c.filename, err)
		}
		r, err := c.unmarshal(header, row)
		if err != nil {
			return nil, err
		}
		if r.StateID == stateID {
			last = r
		}
	}
	if last == nil {
		return nil, ErrNoRecord
	}
	return last, nil
}

func (c *CSVJournal) Close() error {
	return nil
}

func (c *CSVJournal) marshal(r *Record) ([]string, error) {
	value := reflect.ValueOf(r).Elem()
	row := make([]string, len(c.table.fields))
	for i, f := range c.table.fields {
		fv := value.FieldByName(f)
		switch v := fv.Interface().(type) {
		case time.Time:
			row[i] = v.Format(PostgresTimestampFormat)
		case string:
			row[i] = v
		default:
			return nil, xerrors.Errorf("field %s: %w", f, ErrMarshalUnsupportedType)
		}
	}
	return row, nil
}

func (c *CSVJournal) unmarshal(header, row []string) (*Record, error) {
	if len(row) != len(header) {
		return nil, xerrors.Errorf("row has %d values, header has %d", len(row), len(header))
	}
	fields := make(map[string]string, len(c.table.columns))
	for i, col := range c.table.columns {
		fields[col] = c.table.fields[i]
	}

	r := &Record{}
	value := reflect.ValueOf(r).Elem()
	for i, col := range header {
		name, ok := fields[col]
		if !ok {
			continue
		}
		fv := value.FieldByName(name)
		switch fv.Interface().(type) {
		case time.Time:
			ts, err := time.Parse(PostgresTimestampFormat, row[i])
			if err != nil {
				return nil, xerrors.Errorf("column %s: %w", col, err)
			}
			fv.Set(reflect.ValueOf(ts))
		case string:
			fv.SetString(row[i])
		default:
			return nil, xerrors.Errorf("column %s: %w", col, ErrMarshalUnsupportedType)
		}
	}
	return r, nil
}
