// Package sqlite opens a store/sql/shared.Store backed by SQLite, the
// single-process counterpart to store/sql/postgres, mirroring dendrite's
// roomserver/storage/sqlite3 dialect package.
package sqlite

import (
	"context"
	"database/sql"

	_ "github.com/mattn/go-sqlite3"

	"github.com/coreroom/stateres/event"
	"github.com/coreroom/stateres/spec"
	"github.com/coreroom/stateres/store/sql/shared"
)

const schema = `
CREATE TABLE IF NOT EXISTS stateres_events (
	event_id TEXT PRIMARY KEY,
	room_id TEXT NOT NULL,
	room_version TEXT NOT NULL,
	raw_json BLOB NOT NULL,
	auth_events TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_stateres_events_room_id ON stateres_events(room_id);
`

const insertEventSQL = `
INSERT OR IGNORE INTO stateres_events (event_id, room_id, room_version, raw_json, auth_events)
VALUES (?, ?, ?, ?, ?)
`

const selectEventSQL = `
SELECT room_id, room_version, raw_json FROM stateres_events WHERE event_id = ?
`

const selectAuthEventsSQL = `
SELECT auth_events FROM stateres_events WHERE event_id = ?
`

// Store adapts shared.Store's context-aware methods to the context-less
// stateres.EventStore interface; see postgres.Store's doc comment for why.
type Store struct {
	Shared *shared.Store
}

// Open opens (creating if necessary) the sqlite database at path and
// prepares every statement the store needs.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, err
	}

	insertStmt, err := db.Prepare(insertEventSQL)
	if err != nil {
		return nil, err
	}
	selectStmt, err := db.Prepare(selectEventSQL)
	if err != nil {
		return nil, err
	}
	selectAuthStmt, err := db.Prepare(selectAuthEventsSQL)
	if err != nil {
		return nil, err
	}

	return &Store{Shared: &shared.Store{
		DB:                   db,
		InsertEventStmt:      insertStmt,
		SelectEventStmt:      selectStmt,
		SelectAuthEventsStmt: selectAuthStmt,
	}}, nil
}

func (s *Store) Put(eventID spec.EventID, roomID spec.RoomID, version spec.RoomVersion, rawJSON []byte, authEvents []spec.EventID) error {
	return s.Shared.Put(context.Background(), eventID, roomID, version, rawJSON, authEvents)
}

func (s *Store) GetEvent(id spec.EventID) (event.Event, error) {
	return s.Shared.GetEvent(context.Background(), id)
}

func (s *Store) GetEvents(ids []spec.EventID) ([]event.Event, error) {
	return s.Shared.GetEvents(context.Background(), ids)
}

func (s *Store) AuthEventIDs(roomID spec.RoomID, eventIDs []spec.EventID) ([]spec.EventID, error) {
	return s.Shared.AuthEventIDs(context.Background(), roomID, eventIDs)
}

func (s *Store) AuthChainDiff(roomID spec.RoomID, forks [][]spec.EventID) ([]spec.EventID, error) {
	return s.Shared.AuthChainDiff(context.Background(), roomID, forks)
}
