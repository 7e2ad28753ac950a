package history

import (
	"errors"
	"testing"
	"time"

	"github.com/pushchain/confdeploy/internal/deploy"
	"github.com/pushchain/confdeploy/internal/logging"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Options{InMemory: true, Logger: logging.Discard()})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_ListOrderAndFilters(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	records := []Record{
		{ID: "1", Service: "nginxsite", Config: "prod", Result: "installed", StartedAt: base},
		{ID: "2", Service: "nginxsite", Config: "staging", Result: "installed", StartedAt: base.Add(time.Minute)},
		{ID: "3", Service: "nginxmain", Config: "tuned", Result: "install-failed-restored", StartedAt: base.Add(2 * time.Minute)},
		{ID: "4", Service: "nginxsite", Config: "prod", Result: "uninstalled", StartedAt: base.Add(3 * time.Minute)},
		{ID: "5", Service: "nginx", Config: "prod", Result: "installed", StartedAt: base.Add(4 * time.Minute)},
	}
	for _, r := range records {
		if err := s.Append(r); err != nil {
			t.Fatalf("Append(%s): %v", r.ID, err)
		}
	}

	tests := []struct {
		name    string
		service string
		config  string
		limit   int
		want    []string
	}{
		{"all", "", "", 0, []string{"5", "4", "3", "2", "1"}},
		{"limit", "", "", 2, []string{"5", "4"}},
		{"service", "nginxsite", "", 0, []string{"4", "2", "1"}},
		{"service and config", "nginxsite", "prod", 0, []string{"4", "1"}},
		{"service prefix is not a match", "nginx", "", 0, []string{"5"}},
		{"unknown", "apache", "", 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.List(tt.service, tt.config, tt.limit)
			if err != nil {
				t.Fatal(err)
			}
			var ids []string
			for _, r := range got {
				ids = append(ids, r.ID)
			}
			if len(ids) != len(tt.want) {
				t.Fatalf("ids = %v, want %v", ids, tt.want)
			}
			for i := range ids {
				if ids[i] != tt.want[i] {
					t.Fatalf("ids = %v, want %v", ids, tt.want)
				}
			}
		})
	}

	if _, err := s.List("", "prod", 0); err == nil {
		t.Error("config filter without service should fail")
	}
}

func TestStore_RecordOutcome(t *testing.T) {
	s := openTestStore(t)
	o := deploy.Outcome{
		ID:          "abc",
		Operation:   deploy.OpInstall,
		Service:     "nginxsite",
		Config:      "prod",
		Result:      deploy.InstallFailedCorrupted,
		States:      []deploy.State{deploy.Idle, deploy.Snapshotting, deploy.Installing, deploy.RollingBack, deploy.Done},
		Err:         errors.New("install: boom"),
		RollbackErr: errors.New("rollback failed"),
		StartedAt:   time.Now().UTC(),
		Duration:    1500 * time.Millisecond,
	}
	var _ deploy.Recorder = s
	if err := s.Record(o); err != nil {
		t.Fatalf("Record: %v", err)
	}
	got, err := s.List("nginxsite", "prod", 1)
	if err != nil || len(got) != 1 {
		t.Fatalf("List = %v, %v", got, err)
	}
	r := got[0]
	if r.Result != "install-failed-corrupted" || r.Error != "install: boom" || r.RollbackError != "rollback failed" {
		t.Errorf("record = %+v", r)
	}
	if r.DurationMS != 1500 || len(r.States) != 5 || r.States[3] != "rolling-back" {
		t.Errorf("record = %+v", r)
	}
	if !r.StartedAt.Equal(o.StartedAt) {
		t.Errorf("StartedAt = %v, want %v", r.StartedAt, o.StartedAt)
	}
}

func TestStore_AppendValidation(t *testing.T) {
	s := openTestStore(t)
	if err := s.Append(Record{Service: "x", Config: "y"}); err == nil {
		t.Error("record without id should be rejected")
	}
}

func TestOpen_Persistent(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(Options{Path: dir})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Append(Record{ID: "1", Service: "nginxsite", Config: "prod", StartedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = Open(Options{Path: dir})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	got, _ := s.List("", "", 0)
	if len(got) != 1 {
		t.Errorf("records after reopen = %d", len(got))
	}

	if _, err := Open(Options{}); err == nil {
		t.Error("Open without path should fail")
	}
}
