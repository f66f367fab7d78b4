package store

import (
	"errors"
	"testing"
)

type widget struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPutGetRoundTrip(t *testing.T) {
	s := openTestStore(t)

	in := &widget{ID: "w1", Name: "alpha", Count: 3}
	if err := Put(s, TableConcepts, in.ID, in); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := Get[widget](s, TableConcepts, "w1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Name != "alpha" || got.Count != 3 {
		t.Errorf("Get() = %+v, want %+v", got, in)
	}
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := Get[widget](s, TableConcepts, "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestTablesAreIsolated(t *testing.T) {
	s := openTestStore(t)

	w := &widget{ID: "same-id", Name: "in-concepts"}
	if err := Put(s, TableConcepts, w.ID, w); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	if _, err := Get[widget](s, TableClusters, "same-id"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() from other table error = %v, want ErrNotFound", err)
	}
}

func TestList(t *testing.T) {
	s := openTestStore(t)

	for _, w := range []*widget{
		{ID: "a", Name: "one"},
		{ID: "b", Name: "two"},
		{ID: "c", Name: "three"},
	} {
		if err := Put(s, TableFiles, w.ID, w); err != nil {
			t.Fatalf("Put(%s) error = %v", w.ID, err)
		}
	}

	got, err := List[widget](s, TableFiles)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 3 {
		t.Errorf("List() returned %d records, want 3", len(got))
	}
}

func TestUpdateRecord(t *testing.T) {
	s := openTestStore(t)

	w := &widget{ID: "u1", Count: 1}
	if err := Put(s, TableJobs, w.ID, w); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := UpdateRecord(s, TableJobs, "u1", func(v *widget) error {
		v.Count = 42
		return nil
	})
	if err != nil {
		t.Fatalf("UpdateRecord() error = %v", err)
	}
	if got.Count != 42 {
		t.Errorf("UpdateRecord() returned Count = %d, want 42", got.Count)
	}

	stored, err := Get[widget](s, TableJobs, "u1")
	if err != nil {
		t.Fatalf("Get() after update error = %v", err)
	}
	if stored.Count != 42 {
		t.Errorf("stored Count = %d, want 42", stored.Count)
	}
}

func TestUpdateRecordMissing(t *testing.T) {
	s := openTestStore(t)

	_, err := UpdateRecord(s, TableJobs, "ghost", func(v *widget) error { return nil })
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateRecord() error = %v, want ErrNotFound", err)
	}
}

func TestDeleteAndClosed(t *testing.T) {
	s := openTestStore(t)

	w := &widget{ID: "d1"}
	if err := Put(s, TableAssets, w.ID, w); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := s.Delete(TableAssets, "d1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := Get[widget](s, TableAssets, "d1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := Put(s, TableAssets, "d2", w); !errors.Is(err, ErrClosed) {
		t.Errorf("Put() after close error = %v, want ErrClosed", err)
	}
}
