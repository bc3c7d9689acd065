// Package shared implements the stateres.EventStore contract over
// database/sql, independent of the SQL dialect in front of it. The
// postgres and sqlite packages each supply the dialect-specific schema and
// placeholder syntax and construct a Store from already-prepared
// statements, mirroring dendrite's roomserver/storage/shared split from its
// postgres/sqlite3 backend pair.
package shared

import (
	"context"
	"database/sql"
	"encoding/json"

	"golang.org/x/sync/errgroup"

	"github.com/coreroom/stateres/event"
	"github.com/coreroom/stateres/spec"
)

// Store is a database/sql-backed stateres.EventStore. Its methods are
// dialect-agnostic; callers obtain one via postgres.Open or sqlite.Open,
// which supply the prepared statements for their placeholder syntax.
type Store struct {
	DB *sql.DB

	InsertEventStmt      *sql.Stmt
	SelectEventStmt       *sql.Stmt
	SelectAuthEventsStmt  *sql.Stmt
}

// Put persists an event's raw canonical JSON and the auth_events it was
// built with, so later lookups can reconstruct it via event.Parse without
// round-tripping through the whole PDU again for graph walks.
func (s *Store) Put(ctx context.Context, eventID spec.EventID, roomID spec.RoomID, version spec.RoomVersion, rawJSON []byte, authEvents []spec.EventID) error {
	authJSON, err := json.Marshal(idsToStrings(authEvents))
	if err != nil {
		return err
	}
	_, err = s.InsertEventStmt.ExecContext(ctx, string(eventID), string(roomID), string(version), rawJSON, authJSON)
	return err
}

// ErrEventNotFound is returned when a lookup misses.
type ErrEventNotFound struct{ EventID spec.EventID }

func (e *ErrEventNotFound) Error() string { return "event not found: " + string(e.EventID) }

func (s *Store) GetEvent(ctx context.Context, id spec.EventID) (event.Event, error) {
	var roomID, version string
	var rawJSON []byte
	err := s.SelectEventStmt.QueryRowContext(ctx, string(id)).Scan(&roomID, &version, &rawJSON)
	if err == sql.ErrNoRows {
		return nil, &ErrEventNotFound{EventID: id}
	}
	if err != nil {
		return nil, err
	}
	return event.Parse(rawJSON, id, spec.RoomVersion(version))
}

// GetEvents fetches every id concurrently, since each is an independent
// round trip to the database and *sql.Stmt is safe for concurrent use;
// errgroup.Group cancels the remaining fetches as soon as one fails and
// propagates its error.
func (s *Store) GetEvents(ctx context.Context, ids []spec.EventID) ([]event.Event, error) {
	out := make([]event.Event, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			ev, err := s.GetEvent(gctx, id)
			if err != nil {
				return err
			}
			out[i] = ev
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// authEventsOf returns the auth_events recorded for id at insert time,
// without parsing the full event.
func (s *Store) authEventsOf(ctx context.Context, id spec.EventID) ([]spec.EventID, error) {
	var authJSON []byte
	err := s.SelectAuthEventsStmt.QueryRowContext(ctx, string(id)).Scan(&authJSON)
	if err == sql.ErrNoRows {
		return nil, &ErrEventNotFound{EventID: id}
	}
	if err != nil {
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal(authJSON, &ids); err != nil {
		return nil, err
	}
	return toEventIDs(ids), nil
}

func (s *Store) AuthEventIDs(ctx context.Context, roomID spec.RoomID, eventIDs []spec.EventID) ([]spec.EventID, error) {
	visited := map[spec.EventID]bool{}
	queue := append([]spec.EventID{}, eventIDs...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true
		authEvents, err := s.authEventsOf(ctx, id)
		if err != nil {
			return nil, err
		}
		queue = append(queue, authEvents...)
	}
	out := make([]spec.EventID, 0, len(visited))
	for id := range visited {
		out = append(out, id)
	}
	return out, nil
}

func (s *Store) AuthChainDiff(ctx context.Context, roomID spec.RoomID, forks [][]spec.EventID) ([]spec.EventID, error) {
	chains := make([]map[spec.EventID]bool, len(forks))
	for i, fork := range forks {
		ids, err := s.AuthEventIDs(ctx, roomID, fork)
		if err != nil {
			return nil, err
		}
		set := map[spec.EventID]bool{}
		for _, id := range ids {
			set[id] = true
		}
		chains[i] = set
	}

	counts := map[spec.EventID]int{}
	for _, chain := range chains {
		for id := range chain {
			counts[id]++
		}
	}

	var diff []spec.EventID
	for id, count := range counts {
		if count != len(chains) {
			diff = append(diff, id)
		}
	}
	return diff, nil
}

func idsToStrings(ids []spec.EventID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

func toEventIDs(ss []string) []spec.EventID {
	out := make([]spec.EventID, len(ss))
	for i, s := range ss {
		out[i] = spec.EventID(s)
	}
	return out
}
