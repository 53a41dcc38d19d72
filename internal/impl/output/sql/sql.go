// Package sql implements the "sql" output type tag: a batched INSERT
// sink over database/sql via github.com/jmoiron/sqlx, using
// github.com/lib/pq as the driver. Each binary payload is decoded as a
// JSON object and inserted as one row; columns are taken from the
// object's keys.
package sql

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/ark-flow/arkflow/internal/component"
	"github.com/ark-flow/arkflow/internal/errs"
	"github.com/ark-flow/arkflow/internal/message"
	"github.com/ark-flow/arkflow/internal/registry"
)

// Config is the "sql" output's configuration fragment.
type Config struct {
	DSN   string `yaml:"dsn"`
	Table string `yaml:"table"`
}

// Output inserts one row per payload into Table, within a single
// transaction per Write call.
type Output struct {
	cfg Config
	db  *sqlx.DB
}

// New constructs a sql Output from cfg.
func New(cfg Config) (*Output, error) {
	if cfg.DSN == "" {
		return nil, errs.Config("sql output: dsn is required")
	}
	if cfg.Table == "" {
		return nil, errs.Config("sql output: table is required")
	}
	return &Output{cfg: cfg}, nil
}

// Connect opens the database connection pool.
func (o *Output) Connect(ctx context.Context) error {
	db, err := sqlx.Open("postgres", o.cfg.DSN)
	if err != nil {
		return errs.Connection(err, "sql output: open")
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return errs.Connection(err, "sql output: ping")
	}
	o.db = db
	return nil
}

// Write decodes each payload as a JSON object and inserts it as one
// row, all within a single transaction.
func (o *Output) Write(ctx context.Context, batch message.Batch) error {
	b := batch
	if b.IsColumnar() {
		var err error
		b, err = b.ToJSON()
		if err != nil {
			return errs.Serialization(err, "sql output: encoding columnar batch")
		}
	}
	if len(b.Binary()) == 0 {
		return nil
	}

	tx, err := o.db.BeginTxx(ctx, nil)
	if err != nil {
		return errs.Disconnection(err)
	}
	defer tx.Rollback()

	for _, payload := range b.Binary() {
		row := map[string]any{}
		if err := json.Unmarshal(payload, &row); err != nil {
			return errs.Serialization(err, "sql output: decoding payload")
		}
		if err := insertRow(ctx, tx, o.cfg.Table, row); err != nil {
			return errs.IO(err, "sql output: inserting row")
		}
	}

	if err := tx.Commit(); err != nil {
		return errs.Disconnection(err)
	}
	return nil
}

func insertRow(ctx context.Context, tx *sqlx.Tx, table string, row map[string]any) error {
	cols := make([]string, 0, len(row))
	for k := range row {
		cols = append(cols, k)
	}
	sort.Strings(cols)

	placeholders := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = row[c]
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// Close releases the database connection pool.
func (o *Output) Close(context.Context) error {
	if o.db == nil {
		return nil
	}
	return o.db.Close()
}

func init() {
	registry.Outputs.MustRegister("sql", func(raw component.Decoder) (component.Output, error) {
		var cfg Config
		if err := raw.Decode(&cfg); err != nil {
			return nil, errs.Config("sql output: %v", err)
		}
		return New(cfg)
	})
}
