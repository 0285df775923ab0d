package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"heater_monitor/internal/models"
)

type StateSQLite struct {
	db *sql.DB
}

func NewStateSQLite(db *sql.DB) *StateSQLite {
	return &StateSQLite{db: db}
}

const (
	heaterStateRowID = 1

	insertOrUpdateStateSQL = `
		INSERT INTO heater_state (id, mode, previous_mode, set_temp, current_temp, heater_cmd, automation, last_frame, last_error, error_count, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			mode=excluded.mode,
			previous_mode=excluded.previous_mode,
			set_temp=excluded.set_temp,
			current_temp=excluded.current_temp,
			heater_cmd=excluded.heater_cmd,
			automation=excluded.automation,
			last_frame=excluded.last_frame,
			last_error=excluded.last_error,
			error_count=excluded.error_count,
			updated_at=excluded.updated_at
	`

	selectStateSQL = `
		SELECT id, mode, previous_mode, set_temp, current_temp, heater_cmd, automation, last_frame, last_error, error_count, updated_at
		FROM heater_state WHERE id=?
	`
)

// Save upserts the single heater_state row (id always 1).
func (r *StateSQLite) Save(ctx context.Context, s models.HeaterSnapshot) error {
	automation, err := json.Marshal(s.Automation)
	if err != nil {
		return fmt.Errorf("marshal automation: %w", err)
	}
	frame, err := json.Marshal(s.LastFrame)
	if err != nil {
		return fmt.Errorf("marshal last frame: %w", err)
	}

	tsUTC := s.UpdatedAt
	if tsUTC.IsZero() {
		tsUTC = time.Now().UTC()
	} else {
		tsUTC = tsUTC.UTC()
	}

	_, err = r.db.ExecContext(ctx, insertOrUpdateStateSQL,
		heaterStateRowID,
		string(s.State.Mode),
		string(s.State.PreviousMode),
		s.State.SetTemp,
		s.State.CurrentTemp,
		s.State.HeaterCmd,
		string(automation),
		string(frame),
		int(s.LastError),
		s.ErrorCount,
		tsUTC,
	)
	return err
}

// Load fetches the heater_state row. A missing row yields a zero snapshot and no error.
func (r *StateSQLite) Load(ctx context.Context) (models.HeaterSnapshot, error) {
	row := r.db.QueryRowContext(ctx, selectStateSQL, heaterStateRowID)

	var (
		s          models.HeaterSnapshot
		mode, prev string
		automation string
		frame      string
		lastError  int
	)
	if err := row.Scan(
		&s.ID,
		&mode,
		&prev,
		&s.State.SetTemp,
		&s.State.CurrentTemp,
		&s.State.HeaterCmd,
		&automation,
		&frame,
		&lastError,
		&s.ErrorCount,
		&s.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.HeaterSnapshot{}, nil
		}
		return models.HeaterSnapshot{}, err
	}

	if automation != "" {
		if err := json.Unmarshal([]byte(automation), &s.Automation); err != nil {
			return models.HeaterSnapshot{}, fmt.Errorf("unmarshal automation: %w", err)
		}
	}
	if frame != "" {
		if err := json.Unmarshal([]byte(frame), &s.LastFrame); err != nil {
			return models.HeaterSnapshot{}, fmt.Errorf("unmarshal last frame: %w", err)
		}
	}
	s.State.Mode = models.HeaterMode(mode)
	s.State.PreviousMode = models.HeaterMode(prev)
	s.State.PendingTemp = s.State.SetTemp
	s.LastError = models.ErrorCode(lastError)
	s.UpdatedAt = s.UpdatedAt.UTC()
	return s, nil
}
