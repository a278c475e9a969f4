// Package postgres stores index files as rows of a PostgreSQL table so that
// several daemons can share one durable index location.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/storage"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS index_files (
	index_name TEXT NOT NULL,
	file_name  TEXT NOT NULL,
	data       BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (index_name, file_name)
)`

const defaultTimeout = 10 * time.Second

// Directory implements storage.Directory over the index_files table. Every
// row upsert is a single statement, which makes WriteFile atomic.
type Directory struct {
	db      *sql.DB
	index   string
	timeout time.Duration
}

var _ storage.Directory = (*Directory)(nil)

// Open ensures the backing table exists and returns a directory scoped to
// the named index.
func Open(ctx context.Context, db *sql.DB, indexName string) (*Directory, error) {
	if indexName == "" {
		return nil, fmt.Errorf("postgres directory: empty index name")
	}
	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		return nil, fmt.Errorf("creating index_files table: %w", err)
	}
	return &Directory{db: db, index: indexName, timeout: defaultTimeout}, nil
}

// SetTimeout bounds each statement.
func (d *Directory) SetTimeout(timeout time.Duration) {
	if timeout > 0 {
		d.timeout = timeout
	}
}

func (d *Directory) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), d.timeout)
}

func (d *Directory) Exists(name string) (bool, error) {
	ctx, cancel := d.ctx()
	defer cancel()
	var one int
	err := d.db.QueryRowContext(ctx,
		`SELECT 1 FROM index_files WHERE index_name = $1 AND file_name = $2`,
		d.index, name,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking %s: %w", name, err)
	}
	return true, nil
}

func (d *Directory) ReadFile(name string) ([]byte, error) {
	ctx, cancel := d.ctx()
	defer cancel()
	var data []byte
	err := d.db.QueryRowContext(ctx,
		`SELECT data FROM index_files WHERE index_name = $1 AND file_name = $2`,
		d.index, name,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", name, storage.ErrNotExist)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return data, nil
}

func (d *Directory) WriteFile(name string, data []byte) error {
	ctx, cancel := d.ctx()
	defer cancel()
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO index_files (index_name, file_name, data, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (index_name, file_name)
		DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		d.index, name, data,
	)
	if err != nil {
		// A server-side rejection rolls the statement back; anything else
		// (timeout, dropped connection) may have committed.
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			return fmt.Errorf("writing %s: %w", name, err)
		}
		return fmt.Errorf("%w: writing %s: %w", storage.ErrIndeterminate, name, err)
	}
	return nil
}

func (d *Directory) Remove(name string) error {
	ctx, cancel := d.ctx()
	defer cancel()
	_, err := d.db.ExecContext(ctx,
		`DELETE FROM index_files WHERE index_name = $1 AND file_name = $2`,
		d.index, name,
	)
	if err != nil {
		return fmt.Errorf("removing %s: %w", name, err)
	}
	return nil
}

func (d *Directory) List() ([]string, error) {
	ctx, cancel := d.ctx()
	defer cancel()
	rows, err := d.db.QueryContext(ctx,
		`SELECT file_name FROM index_files WHERE index_name = $1 ORDER BY file_name`,
		d.index,
	)
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning file name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating files: %w", err)
	}
	return names, nil
}

// Drop removes every file of this index.
func (d *Directory) Drop(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM index_files WHERE index_name = $1`, d.index); err != nil {
		return fmt.Errorf("dropping index %s: %w", d.index, err)
	}
	return nil
}
