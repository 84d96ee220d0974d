package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/morezero/fred-gateway/pkg/db"
)

const mainTestPrefix = "cmd/fred-gateway:main_test"

func TestRootCmd_HasCommands(t *testing.T) {
	root := newRootCmd()
	for _, path := range [][]string{
		{"serve"},
		{"migrate", "up"},
		{"migrate", "status"},
		{"migrate", "down"},
		{"ensure-db"},
		{"audit", "clear"},
		{"audit", "recent"},
		{"audit", "summary"},
		{"operations"},
	} {
		cmd, _, err := root.Find(path)
		if err != nil || cmd.Name() != path[len(path)-1] {
			t.Errorf("%s - command %v not found: %v", mainTestPrefix, path, err)
		}
	}
	if !strings.Contains(root.Long, "FRED_API_KEY") {
		t.Errorf("%s - help should mention FRED_API_KEY", mainTestPrefix)
	}
}

func TestServe_RejectsUnknownMode(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"serve", "grpc"})
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	if err := root.Execute(); err == nil || !strings.Contains(err.Error(), "unknown mode") {
		t.Errorf("%s - serve grpc = %v, want unknown mode error", mainTestPrefix, err)
	}
}

func TestOperationsCmd(t *testing.T) {
	root := newRootCmd()
	out := new(bytes.Buffer)
	root.SetOut(out)
	root.SetArgs([]string{"operations"})
	if err := root.Execute(); err != nil {
		t.Fatalf("%s - operations: %v", mainTestPrefix, err)
	}
	text := out.String()
	for _, want := range []string{
		"browse (tool fred_browse)",
		"browse_type: categories, releases, sources, category_series, release_series",
		"category_id (integer, required for category_series)",
		"series_id (string, required)",
		"limit (integer, default 25)",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("%s - operations output missing %q", mainTestPrefix, want)
		}
	}
}

func TestOperationsCmd_Schemas(t *testing.T) {
	root := newRootCmd()
	out := new(bytes.Buffer)
	root.SetOut(out)
	root.SetArgs([]string{"operations", "--schemas"})
	if err := root.Execute(); err != nil {
		t.Fatalf("%s - operations --schemas: %v", mainTestPrefix, err)
	}
	var tools []map[string]any
	if err := json.Unmarshal(out.Bytes(), &tools); err != nil {
		t.Fatalf("%s - invalid JSON: %v", mainTestPrefix, err)
	}
	if len(tools) != 3 {
		t.Errorf("%s - tools = %d, want 3", mainTestPrefix, len(tools))
	}
}

func TestWithDatabaseName(t *testing.T) {
	got, err := withDatabaseName("postgres://u:p@localhost:5432/fred?sslmode=disable", "fred_test")
	if err != nil {
		t.Fatalf("%s - unexpected error: %v", mainTestPrefix, err)
	}
	if got != "postgres://u:p@localhost:5432/fred_test?sslmode=disable" {
		t.Errorf("%s - got %q", mainTestPrefix, got)
	}
}

func TestWriteRecords(t *testing.T) {
	out := new(bytes.Buffer)
	recs := []db.DispatchRecord{{
		RequestID:  "req-1",
		Transport:  "rest",
		Operation:  "browse",
		Variant:    "releases",
		Outcome:    "ok",
		DurationMs: 12,
		Created:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}}
	if err := writeRecords(out, recs); err != nil {
		t.Fatalf("%s - writeRecords: %v", mainTestPrefix, err)
	}
	for _, want := range []string{"browse/releases", "2026-01-02T03:04:05Z", "req-1"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("%s - output missing %q:\n%s", mainTestPrefix, want, out.String())
		}
	}
}
