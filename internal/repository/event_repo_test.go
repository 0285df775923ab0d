package repository

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"reflect"
	"regexp"
	"strings"
	"testing"
	"time"

	"heater_monitor/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
)

func ctx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	t.Cleanup(cancel)
	return c
}

var eventColumns = []string{"id", "occurred_at", "type", "message", "meta"}

func newEventRepo(t *testing.T) (*EventSQLite, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet sqlmock expectations: %v", err)
		}
		_ = db.Close()
	})
	repo := NewEventSQLite(db)
	repo.now = func() time.Time { return time.Date(2025, 1, 1, 15, 4, 5, 0, time.FixedZone("UTC+2", 2*60*60)) }
	return repo, mock
}

func TestEventSQLite_Append(t *testing.T) {
	tests := []struct {
		name    string
		event   models.HeaterEvent
		args    []driver.Value
		execErr error
		wantErr string
	}{
		{
			name:  "fills id and time",
			event: models.HeaterEvent{Type: "  operator ", Description: "eco mode on", Metadata: map[string]any{"set_temp": 55}},
			args:  []driver.Value{sqlmock.AnyArg(), "2025-01-01 13:04:05", "OPERATOR", "eco mode on", `{"set_temp":55}`},
		},
		{
			name: "keeps given id and time",
			event: models.HeaterEvent{
				EventID:     "ev-1",
				OccurredAt:  time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
				Type:        models.EventError,
				Description: "display fault",
			},
			args: []driver.Value{"ev-1", "2025-01-02 03:04:05", "ERROR", "display fault", nil},
		},
		{
			name:    "exec error",
			event:   models.HeaterEvent{Type: models.EventLink, Description: "link reconnect"},
			args:    []driver.Value{sqlmock.AnyArg(), sqlmock.AnyArg(), "LINK", "link reconnect", nil},
			execErr: errors.New("database is locked"),
			wantErr: "insert LINK event: database is locked",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo, mock := newEventRepo(t)
			exp := mock.ExpectExec(regexp.QuoteMeta(insertEventSQL)).WithArgs(tc.args...)
			if tc.execErr != nil {
				exp.WillReturnError(tc.execErr)
			} else {
				exp.WillReturnResult(sqlmock.NewResult(0, 1))
			}

			err := repo.Append(ctx(t), tc.event)
			if tc.wantErr == "" && err != nil {
				t.Fatalf("Append: %v", err)
			}
			if tc.wantErr != "" && (err == nil || err.Error() != tc.wantErr) {
				t.Fatalf("error = %v, want %q", err, tc.wantErr)
			}
		})
	}
}

func TestEventSQLite_AppendRejectsUnencodableMetadata(t *testing.T) {
	repo, _ := newEventRepo(t)
	err := repo.Append(ctx(t), models.HeaterEvent{Type: models.EventLink, Metadata: map[string]any{"ch": make(chan int)}})
	if err == nil || !strings.Contains(err.Error(), "marshal LINK event metadata") {
		t.Fatalf("error = %v", err)
	}
}

func TestEventQuery(t *testing.T) {
	from := time.Date(2025, 1, 1, 13, 0, 0, 0, time.FixedZone("UTC+2", 2*60*60))
	to := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		from, to time.Time
		typ      string
		where    string
		args     []any
	}{
		{name: "unfiltered"},
		{name: "type only", typ: " error ", where: " WHERE type = ?", args: []any{"ERROR"}},
		{name: "lower bound", from: from, where: " WHERE occurred_at >= ?", args: []any{"2025-01-01 11:00:00"}},
		{
			name:  "all filters",
			from:  from,
			to:    to,
			typ:   "link",
			where: " WHERE occurred_at >= ? AND occurred_at <= ? AND type = ?",
			args:  []any{"2025-01-01 11:00:00", "2025-01-01 12:00:00", "LINK"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q, args := eventQuery(tc.from, tc.to, tc.typ)
			if want := selectEventsSQL + tc.where + " ORDER BY occurred_at ASC"; q != want {
				t.Fatalf("query = %q, want %q", q, want)
			}
			if len(args) != len(tc.args) || (len(args) > 0 && !reflect.DeepEqual(args, tc.args)) {
				t.Fatalf("args = %v, want %v", args, tc.args)
			}
		})
	}
}

func TestEventSQLite_List(t *testing.T) {
	at := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	repo, mock := newEventRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(selectEventsSQL+" WHERE type = ? ORDER BY occurred_at ASC")).
		WithArgs("MODE_CHANGE").
		WillReturnRows(sqlmock.NewRows(eventColumns).
			AddRow("1", at, "MODE_CHANGE", "mode IDLE_NORMAL -> IDLE_ECO", `{"from":"IDLE_NORMAL","to":"IDLE_ECO"}`).
			AddRow("2", at.Add(time.Hour), "MODE_CHANGE", "mode IDLE_ECO -> OFF", "not json").
			AddRow("3", at.Add(2*time.Hour), "MODE_CHANGE", "mode OFF -> IDLE_NORMAL", nil))

	got, err := repo.List(ctx(t), time.Time{}, time.Time{}, models.EventModeChange)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 3 || got[0].EventID != "1" || got[2].EventID != "3" {
		t.Fatalf("events = %+v", got)
	}
	if b, _ := json.Marshal(got[0].Metadata); string(b) != `{"from":"IDLE_NORMAL","to":"IDLE_ECO"}` {
		t.Fatalf("decoded metadata = %s", b)
	}
	if got[1].Metadata != "not json" || got[2].Metadata != nil {
		t.Fatalf("raw/absent metadata = %#v, %#v", got[1].Metadata, got[2].Metadata)
	}
}

func TestEventSQLite_ListErrors(t *testing.T) {
	t.Run("empty result is not nil", func(t *testing.T) {
		repo, mock := newEventRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectEventsSQL)).WillReturnRows(sqlmock.NewRows(eventColumns))
		got, err := repo.List(ctx(t), time.Time{}, time.Time{}, "")
		if err != nil || got == nil || len(got) != 0 {
			t.Fatalf("List = (%#v, %v)", got, err)
		}
	})

	t.Run("query", func(t *testing.T) {
		repo, mock := newEventRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectEventsSQL)).WillReturnError(errors.New("no such table"))
		if _, err := repo.List(ctx(t), time.Time{}, time.Time{}, ""); err == nil || !strings.Contains(err.Error(), "query events") {
			t.Fatalf("error = %v", err)
		}
	})

	t.Run("scan", func(t *testing.T) {
		repo, mock := newEventRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectEventsSQL)).
			WillReturnRows(sqlmock.NewRows(eventColumns).AddRow("x", "yesterday", "LINK", "msg", nil))
		if _, err := repo.List(ctx(t), time.Time{}, time.Time{}, ""); err == nil || !strings.Contains(err.Error(), "scan event") {
			t.Fatalf("error = %v", err)
		}
	})

	t.Run("iteration", func(t *testing.T) {
		repo, mock := newEventRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectEventsSQL)).
			WillReturnRows(sqlmock.NewRows(eventColumns).
				AddRow("1", time.Now(), "LINK", "msg", nil).
				RowError(0, errors.New("disk I/O error")))
		if _, err := repo.List(ctx(t), time.Time{}, time.Time{}, ""); err == nil || !strings.Contains(err.Error(), "iterate events") {
			t.Fatalf("error = %v", err)
		}
	})
}

func TestEventSQLite_Prune(t *testing.T) {
	before := time.Date(2025, 1, 1, 12, 0, 0, 0, time.FixedZone("UTC+2", 2*60*60))

	tests := []struct {
		name    string
		before  time.Time
		keep    int
		expect  func(mock sqlmock.Sqlmock)
		want    int64
		wantErr string
	}{
		{
			name:   "age then overflow",
			before: before,
			keep:   100,
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta(pruneEventsBeforeSQL)).
					WithArgs("2025-01-01 10:00:00").
					WillReturnResult(sqlmock.NewResult(0, 7))
				mock.ExpectExec(regexp.QuoteMeta(pruneEventsOverflowSQL)).
					WithArgs(100).
					WillReturnResult(sqlmock.NewResult(0, 2))
			},
			want: 9,
		},
		{
			name: "overflow only",
			keep: 10,
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta(pruneEventsOverflowSQL)).
					WithArgs(10).
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
		},
		{
			name:   "no bounds",
			expect: func(sqlmock.Sqlmock) {},
		},
		{
			name:   "age delete fails",
			before: before,
			keep:   10,
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta(pruneEventsBeforeSQL)).WillReturnError(errors.New("database is locked"))
			},
			wantErr: "prune events before",
		},
		{
			name:   "overflow delete fails after age delete",
			before: before,
			keep:   10,
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta(pruneEventsBeforeSQL)).WillReturnResult(sqlmock.NewResult(0, 4))
				mock.ExpectExec(regexp.QuoteMeta(pruneEventsOverflowSQL)).WillReturnError(errors.New("disk I/O error"))
			},
			want:    4,
			wantErr: "prune events beyond 10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newEventRepo(t)
			tt.expect(mock)

			n, err := repo.Prune(ctx(t), tt.before, tt.keep)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error = %v, want %q", err, tt.wantErr)
				}
			} else if err != nil {
				t.Fatalf("Prune: %v", err)
			}
			if n != tt.want {
				t.Fatalf("deleted = %d, want %d", n, tt.want)
			}
		})
	}
}
