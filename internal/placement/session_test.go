package placement

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"go-pdftools/internal/apperr"
	"go-pdftools/internal/geometry"
)

func at(x, y float64) geometry.PlacementRect {
	return geometry.PlacementRect{XPercent: x, YPercent: y, WidthPercent: 0.2, HeightPercent: 0.1}
}

func TestSignFlow(t *testing.T) {
	s := NewSession()
	if s.State() != Idle {
		t.Fatalf("state = %v", s.State())
	}
	s.Begin()
	if s.State() != Selecting {
		t.Fatalf("state = %v", s.State())
	}
	if err := s.SelectPages([]int{0, 2, 4}); err != nil {
		t.Fatal(err)
	}
	if s.State() != Placing || s.Current() != 0 {
		t.Fatalf("state = %v current = %d", s.State(), s.Current())
	}

	if err := s.LockCurrent(); !errors.Is(err, apperr.ErrNoPlacement) {
		t.Fatalf("lock without drag: err = %v", err)
	}

	if err := s.RecordDrag(0, at(0.1, 0.1)); err != nil {
		t.Fatal(err)
	}
	if err := s.LockCurrent(); err != nil {
		t.Fatal(err)
	}
	if s.Current() != 2 {
		t.Errorf("current = %d, want 2", s.Current())
	}
	if diff := cmp.Diff([]int{0}, s.Locked()); diff != "" {
		t.Errorf("locked (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{2, 4}, s.Pending()); diff != "" {
		t.Errorf("pending (-want +got):\n%s", diff)
	}

	for _, p := range []int{2, 4} {
		if err := s.RecordDrag(p, at(0.5, 0.5)); err != nil {
			t.Fatalf("drag page %d: %v", p, err)
		}
		if err := s.LockCurrent(); err != nil {
			t.Fatalf("lock page %d: %v", p, err)
		}
	}
	if s.State() != Done || s.Current() != NoPage {
		t.Errorf("state = %v current = %d", s.State(), s.Current())
	}
	if err := s.LockCurrent(); !errors.Is(err, apperr.ErrNoPlacement) {
		t.Errorf("lock when done: err = %v", err)
	}

	got := s.Placements()
	want := []geometry.PlacementRect{
		{Page: 0, XPercent: 0.1, YPercent: 0.1, WidthPercent: 0.2, HeightPercent: 0.1},
		{Page: 2, XPercent: 0.5, YPercent: 0.5, WidthPercent: 0.2, HeightPercent: 0.1},
		{Page: 4, XPercent: 0.5, YPercent: 0.5, WidthPercent: 0.2, HeightPercent: 0.1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("placements (-want +got):\n%s", diff)
	}
}

func TestDragRules(t *testing.T) {
	s := NewSession()
	if err := s.SelectPages([]int{1, 3, 5}); err != nil {
		t.Fatal(err)
	}

	// Not yet visited.
	if err := s.RecordDrag(3, at(0, 0)); !errors.Is(err, apperr.ErrPageNotActive) {
		t.Errorf("drag unvisited page: err = %v", err)
	}
	// Not selected.
	if err := s.RecordDrag(2, at(0, 0)); !errors.Is(err, apperr.ErrPageNotActive) {
		t.Errorf("drag unselected page: err = %v", err)
	}

	if err := s.RecordDrag(1, at(0.3, 0.3)); err != nil {
		t.Fatal(err)
	}
	if err := s.LockCurrent(); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordDrag(1, at(0, 0)); !errors.Is(err, apperr.ErrPageLocked) {
		t.Errorf("drag locked page: err = %v", err)
	}
	if err := s.GoTo(1); !errors.Is(err, apperr.ErrPageLocked) {
		t.Errorf("goto locked page: err = %v", err)
	}

	// Page 3 is current; page 5 has not been visited, so it cannot be
	// jumped to.
	if err := s.GoTo(5); !errors.Is(err, apperr.ErrPageNotActive) {
		t.Errorf("goto unvisited page: err = %v", err)
	}
	if err := s.RecordDrag(5, at(0, 0)); !errors.Is(err, apperr.ErrPageNotActive) {
		t.Errorf("drag unvisited page: err = %v", err)
	}
	if err := s.RecordDrag(3, at(0.1, 0.2)); err != nil {
		t.Fatal(err)
	}

	// Reordering the selection makes 5 current; 3 stays visited.
	if err := s.SelectPages([]int{1, 5, 3}); err != nil {
		t.Fatal(err)
	}
	if s.Current() != 5 {
		t.Fatalf("current = %d, want 5", s.Current())
	}
	if err := s.RecordDrag(5, at(0.4, 0.4)); err != nil {
		t.Fatal(err)
	}
	// Revisiting an unlocked page keeps its position and allows new drags.
	if err := s.RecordDrag(3, at(0.2, 0.2)); err != nil {
		t.Errorf("revisit: %v", err)
	}
	if got, _ := s.Committed(3); got.XPercent != 0.2 || got.Page != 3 {
		t.Errorf("committed[3] = %+v", got)
	}
	if err := s.GoTo(3); err != nil {
		t.Fatal(err)
	}
	if err := s.LockCurrent(); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{1, 3}, s.Locked()); diff != "" {
		t.Errorf("locked (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{5}, s.Pending()); diff != "" {
		t.Errorf("pending (-want +got):\n%s", diff)
	}
	if s.Current() != 5 {
		t.Errorf("current = %d", s.Current())
	}
}

func TestLockClampsAndRejects(t *testing.T) {
	s := NewSession()
	if err := s.SelectPages([]int{0, 1}); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordDrag(0, geometry.PlacementRect{XPercent: 0.95, YPercent: -0.2, WidthPercent: 0.2, HeightPercent: 0.1}); err != nil {
		t.Fatal(err)
	}
	if err := s.LockCurrent(); err != nil {
		t.Fatal(err)
	}
	got, _ := s.Committed(0)
	if got.XPercent != 0.8 || got.YPercent != 0 {
		t.Errorf("clamped = %+v", got)
	}

	if err := s.RecordDrag(1, geometry.PlacementRect{WidthPercent: 1.5, HeightPercent: 0.1}); err != nil {
		t.Fatal(err)
	}
	if err := s.LockCurrent(); !errors.Is(err, apperr.ErrOutOfRange) {
		t.Errorf("oversized lock: err = %v", err)
	}
	if s.Current() != 1 || len(s.Locked()) != 1 {
		t.Errorf("failed lock changed state: current=%d locked=%v", s.Current(), s.Locked())
	}
}

func TestReselectKeepsLockedPages(t *testing.T) {
	s := NewSession()
	if err := s.SelectPages([]int{4, 0, 4, 2}); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{4, 0, 2}, s.Selected()); diff != "" {
		t.Errorf("selected (-want +got):\n%s", diff)
	}
	if err := s.RecordDrag(4, at(0.1, 0.1)); err != nil {
		t.Fatal(err)
	}
	if err := s.LockCurrent(); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordDrag(0, at(0.2, 0.2)); err != nil {
		t.Fatal(err)
	}

	// Drop page 0, keep 4 (locked) and 2, add 6.
	if err := s.SelectPages([]int{2, 4, 6}); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Committed(0); ok {
		t.Error("placement of deselected page kept")
	}
	if diff := cmp.Diff([]int{4}, s.Locked()); diff != "" {
		t.Errorf("locked (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{2, 6}, s.Pending()); diff != "" {
		t.Errorf("pending (-want +got):\n%s", diff)
	}
	if s.Current() != 2 {
		t.Errorf("current = %d", s.Current())
	}

	if err := s.SelectPages([]int{-1}); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("negative page: err = %v", err)
	}
}

func TestSnapshot(t *testing.T) {
	s := NewSession()
	snap := s.Snapshot()
	if snap.Current != nil || snap.State != Idle {
		t.Errorf("snapshot = %+v", snap)
	}
	if err := s.SelectPages([]int{3}); err != nil {
		t.Fatal(err)
	}
	snap = s.Snapshot()
	if snap.Current == nil || *snap.Current != 3 || snap.State.String() != "placing" {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestBindStartsOverForAnotherDocument(t *testing.T) {
	s := NewSession()
	s.Bind("contract.pdf")
	if err := s.SelectPages([]int{0, 1}); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordDrag(0, at(0.1, 0.1)); err != nil {
		t.Fatal(err)
	}
	if err := s.LockCurrent(); err != nil {
		t.Fatal(err)
	}

	// Same document: nothing changes.
	s.Bind("contract.pdf")
	if diff := cmp.Diff([]int{0}, s.Locked()); diff != "" {
		t.Errorf("locked (-want +got):\n%s", diff)
	}

	s.Bind("invoice.pdf")
	if s.Document() != "invoice.pdf" {
		t.Errorf("document = %q", s.Document())
	}
	if s.State() != Idle || len(s.Locked()) != 0 || len(s.Placements()) != 0 {
		t.Errorf("state after rebind = %+v", s.Snapshot())
	}
	if snap := s.Snapshot(); snap.Document != "invoice.pdf" {
		t.Errorf("snapshot document = %q", snap.Document)
	}
}
