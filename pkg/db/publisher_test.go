package db

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/morezero/fred-gateway/pkg/events"
)

const publisherTestPrefix = "db:publisher_test"

type execCall struct {
	sql  string
	args []any
}

// fakeQuerier records Exec calls; Query is unused by these tests.
type fakeQuerier struct {
	execs    []execCall
	err      error
	deadline bool
}

func (f *fakeQuerier) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	_, f.deadline = ctx.Deadline()
	f.execs = append(f.execs, execCall{sql: sql, args: args})
	if f.err != nil {
		return pgconn.CommandTag{}, f.err
	}
	return pgconn.NewCommandTag("DELETE 3"), nil
}

func (f *fakeQuerier) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func TestAuditPublisher_InsertsEvent(t *testing.T) {
	q := &fakeQuerier{}
	pub := NewAuditPublisher(NewRepository(q), 0)

	err := pub.PublishDispatched(context.Background(), &events.DispatchEvent{
		RequestID:  "req-1",
		Transport:  "rest",
		Operation:  "browse",
		Variant:    "releases",
		Outcome:    "ok",
		DurationMs: 42,
		Timestamp:  "2024-05-01T12:00:00Z",
	})
	if err != nil {
		t.Fatalf("%s - unexpected error: %v", publisherTestPrefix, err)
	}
	if len(q.execs) != 1 {
		t.Fatalf("%s - expected 1 exec, got %d", publisherTestPrefix, len(q.execs))
	}
	call := q.execs[0]
	if !strings.Contains(call.sql, "INSERT INTO dispatch_log") {
		t.Errorf("%s - unexpected sql %q", publisherTestPrefix, call.sql)
	}
	if len(call.args) != 9 || call.args[1] != "req-1" || call.args[3] != "browse" || call.args[4] != "releases" {
		t.Errorf("%s - unexpected args %v", publisherTestPrefix, call.args)
	}
	if created, _ := call.args[8].(time.Time); !created.Equal(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("%s - expected event timestamp, got %v", publisherTestPrefix, call.args[8])
	}
	if !q.deadline {
		t.Errorf("%s - insert should run under a deadline", publisherTestPrefix)
	}
}

func TestAuditPublisher_PropagatesError(t *testing.T) {
	q := &fakeQuerier{err: errors.New("connection reset")}
	pub := NewAuditPublisher(NewRepository(q), time.Second)

	err := pub.PublishDispatched(context.Background(), &events.DispatchEvent{RequestID: "req-2"})
	if err == nil || !strings.Contains(err.Error(), "connection reset") {
		t.Errorf("%s - expected wrapped error, got %v", publisherTestPrefix, err)
	}
}

func TestRecordFromEvent_BadTimestamp(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	rec := RecordFromEvent(&events.DispatchEvent{Timestamp: "yesterday"}, now)
	if !rec.Created.Equal(now) {
		t.Errorf("%s - expected fallback to now, got %v", publisherTestPrefix, rec.Created)
	}
	if rec.ID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Errorf("%s - expected a generated id", publisherTestPrefix)
	}
}

func TestClearAuditLog(t *testing.T) {
	q := &fakeQuerier{}
	if _, err := ClearAuditLog(context.Background(), q, time.Time{}); err != nil {
		t.Fatalf("%s - unexpected error: %v", publisherTestPrefix, err)
	}
	if !strings.HasPrefix(q.execs[0].sql, "TRUNCATE") {
		t.Errorf("%s - zero time should truncate, got %q", publisherTestPrefix, q.execs[0].sql)
	}

	n, err := ClearAuditLog(context.Background(), q, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("%s - unexpected error: %v", publisherTestPrefix, err)
	}
	if n != 3 || !strings.HasPrefix(q.execs[1].sql, "DELETE") {
		t.Errorf("%s - expected DELETE of 3 rows, got %d via %q", publisherTestPrefix, n, q.execs[1].sql)
	}
}
