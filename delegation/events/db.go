// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

const eventTableSchema = `CREATE TABLE IF NOT EXISTS event (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	kind TEXT NOT NULL,
	requestID TEXT NOT NULL,
	nodeIDs TEXT NOT NULL,
	message TEXT NOT NULL,
	blockNumber INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS event_i0 ON event(kind);
CREATE INDEX IF NOT EXISTS event_i1 ON event(blockNumber);
CREATE INDEX IF NOT EXISTS event_i2 ON event(requestID);`

// DB persists emitted events in sqlite.
type DB struct {
	path          string
	db            *sql.DB
	driverVersion string
}

// New create or open event db at given path.
func New(path string) (eventDB *DB, err error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if eventDB == nil {
			db.Close()
		}
	}()
	// a single connection keeps in-memory databases shared and serializes writers
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(eventTableSchema); err != nil {
		return nil, err
	}

	driverVer, _, _ := sqlite3.Version()
	return &DB{
		path,
		db,
		driverVer,
	}, nil
}

// NewMem create an event db in ram.
func NewMem() (*DB, error) {
	return New(":memory:")
}

func (db *DB) Close() error {
	return db.db.Close()
}

func (db *DB) Path() string {
	return db.path
}

func (db *DB) DriverVersion() string {
	return db.driverVersion
}

// Insert stores ev and assigns its sequence number.
func (db *DB) Insert(ctx context.Context, ev *Event) error {
	ids, err := json.Marshal(ev.NodeIDs)
	if err != nil {
		return err
	}
	res, err := db.db.ExecContext(ctx,
		"INSERT INTO event(kind, requestID, nodeIDs, message, blockNumber) VALUES(?, ?, ?, ?, ?)",
		string(ev.Kind), ev.RequestID, string(ids), ev.Message, ev.Block)
	if err != nil {
		return errors.Wrap(err, "insert event")
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return err
	}
	ev.Seq = uint64(seq)
	return nil
}

func (db *DB) Filter(ctx context.Context, filter *Filter) ([]*Event, error) {
	const query = "SELECT seq, kind, requestID, nodeIDs, message, blockNumber FROM event"
	if filter == nil {
		return db.query(ctx, query+" ORDER BY seq ASC")
	}

	var args []any
	stmt := query + " WHERE 1"
	if filter.Range != nil {
		args = append(args, filter.Range.From)
		stmt += " AND blockNumber >= ? "
		if filter.Range.To >= filter.Range.From {
			args = append(args, filter.Range.To)
			stmt += " AND blockNumber <= ? "
		}
	}
	if filter.RequestID != "" {
		args = append(args, filter.RequestID)
		stmt += " AND requestID = ? "
	}
	if len(filter.Kinds) > 0 {
		stmt += " AND kind IN (" + strings.TrimSuffix(strings.Repeat("?,", len(filter.Kinds)), ",") + ")"
		for _, k := range filter.Kinds {
			args = append(args, string(k))
		}
	}

	if filter.Order == DESC {
		stmt += " ORDER BY seq DESC "
	} else {
		stmt += " ORDER BY seq ASC "
	}

	if filter.Options != nil {
		stmt += " LIMIT ?, ? "
		args = append(args, filter.Options.Offset, filter.Options.Limit)
	}
	return db.query(ctx, stmt, args...)
}

func (db *DB) query(ctx context.Context, stmt string, args ...any) ([]*Event, error) {
	rows, err := db.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var (
			ev   Event
			kind string
			ids  string
		)
		if err := rows.Scan(&ev.Seq, &kind, &ev.RequestID, &ids, &ev.Message, &ev.Block); err != nil {
			return nil, err
		}
		ev.Kind = Kind(kind)
		if err := json.Unmarshal([]byte(ids), &ev.NodeIDs); err != nil {
			return nil, errors.Wrap(err, "decode node ids")
		}
		events = append(events, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}
