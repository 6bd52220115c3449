package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/deixis/execrun/internal/runner"
	"github.com/google/uuid"
)

// countingStore is an in-memory backing store that counts loads.
type countingStore struct {
	recs  map[string]*RunRecord
	loads int
}

func newCountingStore() *countingStore {
	return &countingStore{recs: make(map[string]*RunRecord)}
}

func (s *countingStore) Save(rec *RunRecord) error {
	s.recs[rec.ID] = rec
	return nil
}

func (s *countingStore) Load(id string) (*RunRecord, error) {
	s.loads++
	rec, ok := s.recs[id]
	if !ok {
		return nil, fmt.Errorf("run %s not found", id)
	}
	return rec, nil
}

func newRecord(t *testing.T) *RunRecord {
	t.Helper()
	return NewRecord(runner.Request{Path: "echo", Arguments: "aaa"}, time.Now())
}

func TestNewRecord_UniqueIDs(t *testing.T) {
	a, b := newRecord(t), newRecord(t)
	if a.ID == b.ID {
		t.Fatalf("two records share ID %s", a.ID)
	}
	if _, err := uuid.Parse(a.ID); err != nil {
		t.Errorf("ID %q is not a UUID: %v", a.ID, err)
	}
}

func TestComplete_Statuses(t *testing.T) {
	cases := []struct {
		name string
		res  *runner.Result
		err  error
		want Status
	}{
		{"exited", &runner.Result{ExitCode: 2, Output: "o"}, nil, Exited},
		{"timeout", nil, &runner.TimeoutError{Path: "sleep", Timeout: time.Second}, TimedOut},
		{"launch", nil, &runner.LaunchError{Path: "nope", Err: os.ErrNotExist}, LaunchFailed},
		{"canceled", nil, errors.New("context canceled"), Canceled},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := newRecord(t)
			rec.Complete(tc.res, tc.err, time.Second)
			if err := rec.Expect(tc.want); err != nil {
				t.Fatal(err)
			}
			if tc.err == nil {
				if rec.ExitCode != 2 || rec.Output != "o" || rec.Error != "" {
					t.Errorf("record = %+v, want exit 2 and output copied", rec)
				}
				return
			}
			if rec.ExitCode != -1 {
				t.Errorf("ExitCode = %d, want -1", rec.ExitCode)
			}
			if rec.Error == "" {
				t.Error("Error is empty")
			}
		})
	}
}

func TestLines(t *testing.T) {
	rec := &RunRecord{Output: "aaa\r\nbbb"}
	if got, want := rec.Lines(Stdout), []string{"aaa", "bbb"}; !slices.Equal(got, want) {
		t.Errorf("Lines(Stdout) = %q, want %q", got, want)
	}
	if got := rec.Lines(Stderr); got != nil {
		t.Errorf("Lines(Stderr) = %q, want nil", got)
	}
}

func TestLRUStore_ServesFromCache(t *testing.T) {
	back := newCountingStore()
	s := NewLRUStore(2, back)

	rec := newRecord(t)
	if err := s.Save(rec); err != nil {
		t.Fatal(err)
	}
	got, err := s.Load(rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got != rec {
		t.Error("Load returned a different record")
	}
	if back.loads != 0 {
		t.Errorf("backing loads = %d, want 0", back.loads)
	}
}

func TestLRUStore_EvictsLeastRecentlyUsed(t *testing.T) {
	back := newCountingStore()
	s := NewLRUStore(2, back)

	a, b, c := newRecord(t), newRecord(t), newRecord(t)
	for _, r := range []*RunRecord{a, b} {
		if err := s.Save(r); err != nil {
			t.Fatal(err)
		}
	}
	// Touch a so that b is the eviction candidate.
	if _, err := s.Load(a.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(c); err != nil {
		t.Fatal(err)
	}
	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}

	if _, err := s.Load(a.ID); err != nil {
		t.Fatal(err)
	}
	if back.loads != 0 {
		t.Fatalf("a was evicted: backing loads = %d", back.loads)
	}
	if _, err := s.Load(b.ID); err != nil {
		t.Fatal(err)
	}
	if back.loads != 1 {
		t.Errorf("backing loads = %d, want 1 for evicted b", back.loads)
	}
}

func TestLRUStore_ResaveKeepsOneEntry(t *testing.T) {
	s := NewLRUStore(2, newCountingStore())
	rec := newRecord(t)
	for range 3 {
		if err := s.Save(rec); err != nil {
			t.Fatal(err)
		}
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}

func TestLRUStore_MissingRun(t *testing.T) {
	s := NewLRUStore(1, newCountingStore())
	if _, err := s.Load(uuid.New().String()); err == nil {
		t.Fatal("expected error for unknown run")
	}
}

func TestDiskStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := NewDiskStore(dir)

	rec := newRecord(t)
	rec.Complete(&runner.Result{ExitCode: 0, Output: "aaa\r\nbbb", PID: 42}, nil, 3*time.Millisecond)
	if err := s.Save(rec); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, rec.ID+".json")); err != nil {
		t.Fatalf("record file missing: %v", err)
	}

	got, err := NewDiskStore(dir).Load(rec.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Output != rec.Output || got.PID != 42 || got.Status != Exited || got.Elapsed != rec.Elapsed {
		t.Errorf("Load = %+v, want %+v", got, rec)
	}
}

func TestDiskStore_RejectsNonUUID(t *testing.T) {
	s := NewDiskStore(t.TempDir())
	_, err := s.Load("../../etc/passwd")
	if err == nil {
		t.Fatal("expected error for non-UUID run ID")
	}
	if !strings.Contains(err.Error(), "invalid run ID") {
		t.Errorf("error = %q, want 'invalid run ID'", err)
	}
}

func TestDiskStore_LazyTempDir(t *testing.T) {
	s := NewDiskStore("")
	rec := newRecord(t)
	if err := s.Save(rec); err != nil {
		t.Fatalf("Save: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(s.dir) })
	if !strings.Contains(filepath.Base(s.dir), "execrun-runs-") {
		t.Errorf("dir = %q, want an execrun-runs-* temp dir", s.dir)
	}
}
