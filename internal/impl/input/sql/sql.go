// Package sql implements the "sql" input type tag: a cursor-paginated
// polling query over database/sql via github.com/jmoiron/sqlx, using
// github.com/lib/pq as the driver. Each poll advances a monotonic
// cursor column so rows are never re-read.
package sql

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/ark-flow/arkflow/internal/component"
	"github.com/ark-flow/arkflow/internal/errs"
	"github.com/ark-flow/arkflow/internal/message"
	"github.com/ark-flow/arkflow/internal/registry"
)

// Config is the "sql" input's configuration fragment.
type Config struct {
	DSN          string        `yaml:"dsn"`
	Table        string        `yaml:"table"`
	CursorColumn string        `yaml:"cursor_column"`
	PollInterval time.Duration `yaml:"poll_interval"`
	BatchSize    int           `yaml:"batch_size"`
}

// Input polls Table for rows with CursorColumn greater than the
// highest value seen so far, every PollInterval.
type Input struct {
	cfg    Config
	db     *sqlx.DB
	cursor any
	ticker *time.Ticker
}

// New constructs a sql Input from cfg.
func New(cfg Config) (*Input, error) {
	if cfg.DSN == "" {
		return nil, errs.Config("sql input: dsn is required")
	}
	if cfg.Table == "" {
		return nil, errs.Config("sql input: table is required")
	}
	if cfg.CursorColumn == "" {
		return nil, errs.Config("sql input: cursor_column is required")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &Input{cfg: cfg, cursor: 0}, nil
}

// Connect opens the database connection pool.
func (in *Input) Connect(ctx context.Context) error {
	db, err := sqlx.Open("postgres", in.cfg.DSN)
	if err != nil {
		return errs.Connection(err, "sql input: open %s", in.cfg.Table)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return errs.Connection(err, "sql input: ping")
	}
	in.db = db
	in.ticker = time.NewTicker(in.cfg.PollInterval)
	return nil
}

// Read polls for the next page of rows past the cursor, encoding each
// row as one JSON payload. When no new rows are found it returns an
// empty batch and a nil error; the next Read waits for the next tick.
func (in *Input) Read(ctx context.Context) (message.Batch, message.Ack, error) {
	select {
	case <-in.ticker.C:
	case <-ctx.Done():
		return message.Batch{}, nil, ctx.Err()
	}

	query := fmt.Sprintf("SELECT * FROM %s WHERE %s > $1 ORDER BY %s ASC LIMIT $2",
		in.cfg.Table, in.cfg.CursorColumn, in.cfg.CursorColumn)
	rows, err := in.db.QueryxContext(ctx, query, in.cursor, in.cfg.BatchSize)
	if err != nil {
		return message.Batch{}, nil, errs.Disconnection(err)
	}
	defer rows.Close()

	var payloads [][]byte
	var last any
	for rows.Next() {
		row := map[string]any{}
		if err := rows.MapScan(row); err != nil {
			return message.Batch{}, nil, errs.Read(err, "sql input: scanning row")
		}
		enc, err := json.Marshal(row)
		if err != nil {
			return message.Batch{}, nil, errs.Serialization(err, "sql input: encoding row")
		}
		payloads = append(payloads, enc)
		last = row[in.cfg.CursorColumn]
	}
	if err := rows.Err(); err != nil {
		return message.Batch{}, nil, errs.Read(err, "sql input: iterating rows")
	}
	if last != nil {
		in.cursor = last
	}

	// An empty page is legal: a Len() == 0 batch traverses the pipeline
	// as a no-op.
	return message.NewBinary(payloads), message.Noop, nil
}

// Close releases the database connection pool.
func (in *Input) Close(context.Context) error {
	if in.ticker != nil {
		in.ticker.Stop()
	}
	if in.db == nil {
		return nil
	}
	return in.db.Close()
}

func init() {
	registry.Inputs.MustRegister("sql", func(raw component.Decoder) (component.Input, error) {
		var cfg Config
		if err := raw.Decode(&cfg); err != nil {
			return nil, errs.Config("sql input: %v", err)
		}
		return New(cfg)
	})
}
