package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"heater_monitor/internal/models"

	"github.com/google/uuid"
)

// sqliteTimestamp is the layout SQLite compares lexically in TIMESTAMP columns.
const sqliteTimestamp = "2006-01-02 15:04:05"

const (
	insertEventSQL  = `INSERT INTO heater_events (id, occurred_at, type, message, meta) VALUES (?, ?, ?, ?, ?)`
	selectEventsSQL = `SELECT id, occurred_at, type, message, meta FROM heater_events`

	pruneEventsBeforeSQL   = `DELETE FROM heater_events WHERE occurred_at < ?`
	pruneEventsOverflowSQL = `DELETE FROM heater_events WHERE rowid NOT IN (SELECT rowid FROM heater_events ORDER BY occurred_at DESC, rowid DESC LIMIT ?)`
)

// EventSQLite is the heater_events journal.
type EventSQLite struct {
	db  *sql.DB
	now func() time.Time
}

func NewEventSQLite(db *sql.DB) *EventSQLite {
	return &EventSQLite{db: db, now: time.Now}
}

// Append stores e, assigning an ID and the current time when they are missing.
func (r *EventSQLite) Append(ctx context.Context, e models.HeaterEvent) error {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = r.now()
	}

	var meta sql.NullString
	if e.Metadata != nil {
		b, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("marshal %s event metadata: %w", e.Type, err)
		}
		meta = sql.NullString{String: string(b), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, insertEventSQL,
		e.EventID,
		e.OccurredAt.UTC().Format(sqliteTimestamp),
		strings.ToUpper(strings.TrimSpace(e.Type)),
		e.Description,
		meta,
	)
	if err != nil {
		return fmt.Errorf("insert %s event: %w", e.Type, err)
	}
	return nil
}

// eventQuery builds the filtered select. Zero bounds and an empty type are not filtered.
func eventQuery(from, to time.Time, typ string) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if !from.IsZero() {
		conds = append(conds, "occurred_at >= ?")
		args = append(args, from.UTC().Format(sqliteTimestamp))
	}
	if !to.IsZero() {
		conds = append(conds, "occurred_at <= ?")
		args = append(args, to.UTC().Format(sqliteTimestamp))
	}
	if typ = strings.ToUpper(strings.TrimSpace(typ)); typ != "" {
		conds = append(conds, "type = ?")
		args = append(args, typ)
	}

	q := selectEventsSQL
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	return q + " ORDER BY occurred_at ASC", args
}

// List returns events in [from, to] of the given type, oldest first.
func (r *EventSQLite) List(ctx context.Context, from, to time.Time, typ string) ([]models.HeaterEvent, error) {
	q, args := eventQuery(from, to, typ)
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	out := []models.HeaterEvent{}
	for rows.Next() {
		var (
			ev   models.HeaterEvent
			meta sql.NullString
		)
		if err := rows.Scan(&ev.EventID, &ev.OccurredAt, &ev.Type, &ev.Description, &meta); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.OccurredAt = ev.OccurredAt.UTC()
		ev.Metadata = decodeMeta(meta)
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

// Prune deletes events older than before, then all but the newest keep events.
// A zero before or a non-positive keep skips that step. It returns the rows deleted.
func (r *EventSQLite) Prune(ctx context.Context, before time.Time, keep int) (int64, error) {
	var total int64
	if !before.IsZero() {
		n, err := r.exec(ctx, pruneEventsBeforeSQL, before.UTC().Format(sqliteTimestamp))
		if err != nil {
			return total, fmt.Errorf("prune events before %s: %w", before.UTC().Format(time.RFC3339), err)
		}
		total += n
	}
	if keep > 0 {
		n, err := r.exec(ctx, pruneEventsOverflowSQL, keep)
		if err != nil {
			return total, fmt.Errorf("prune events beyond %d: %w", keep, err)
		}
		total += n
	}
	return total, nil
}

func (r *EventSQLite) exec(ctx context.Context, q string, args ...any) (int64, error) {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// decodeMeta returns the stored JSON as a value, or the raw text when it is not JSON.
func decodeMeta(meta sql.NullString) any {
	if !meta.Valid || meta.String == "" {
		return nil
	}
	var v any
	if err := json.Unmarshal([]byte(meta.String), &v); err != nil {
		return meta.String
	}
	return v
}
