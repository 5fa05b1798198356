// Package placement tracks an interactive, page by page placement workflow
// such as positioning a signature on several pages of one document.
//
// The user selects pages, drags the element on the current page, and locks
// it; locking advances to the next selected page. Pages already visited can
// be revisited and adjusted as long as they are not locked. Locked pages are
// never touched by later drags or re-selections that keep them.
//
// A workflow belongs to one document. Binding it to another document starts
// over.
//
// A Session is not safe for concurrent use; callers serialise access (the
// HTTP session holding it does so with its own mutex).
package placement

import (
	"slices"
	"sort"

	"go-pdftools/internal/apperr"
	"go-pdftools/internal/geometry"
)

type State int

const (
	Idle State = iota
	Selecting
	Placing
	Done
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Selecting:
		return "selecting"
	case Placing:
		return "placing"
	case Done:
		return "done"
	}
	return "unknown"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// NoPage is the value of Current when no page awaits placement.
const NoPage = -1

type Session struct {
	document  string
	begun     bool
	selected  []int
	pending   []int
	current   int
	visited   map[int]bool
	committed map[int]geometry.PlacementRect
	locked    map[int]bool
}

func NewSession() *Session {
	return &Session{
		current:   NoPage,
		visited:   make(map[int]bool),
		committed: make(map[int]geometry.PlacementRect),
		locked:    make(map[int]bool),
	}
}

// Bind ties the workflow to doc. Binding to a different document discards
// the selection and every placement.
func (s *Session) Bind(doc string) {
	if s.document == doc {
		return
	}
	*s = *NewSession()
	s.document = doc
}

// Document returns the document the workflow is bound to, "" if none.
func (s *Session) Document() string {
	return s.document
}

// Begin starts the workflow; the session waits for a page selection.
func (s *Session) Begin() {
	s.begun = true
}

// SelectPages replaces the selection. Duplicates are dropped and the first
// occurrence order is kept as the placement order. Placements of pages that
// are no longer selected are discarded; locked pages that stay selected
// remain locked and are not queued again.
func (s *Session) SelectPages(pages []int) error {
	var selected []int
	seen := make(map[int]bool, len(pages))
	for _, p := range pages {
		if p < 0 {
			return apperr.Newf(apperr.CodeInvalidInput, "invalid page index %d", p)
		}
		if !seen[p] {
			seen[p] = true
			selected = append(selected, p)
		}
	}

	s.begun = true
	s.selected = selected
	for p := range s.committed {
		if !seen[p] {
			delete(s.committed, p)
		}
	}
	for p := range s.locked {
		if !seen[p] {
			delete(s.locked, p)
		}
	}
	for p := range s.visited {
		if !seen[p] {
			delete(s.visited, p)
		}
	}

	s.pending = s.pending[:0]
	for _, p := range selected {
		if !s.locked[p] {
			s.pending = append(s.pending, p)
		}
	}
	s.advance()
	return nil
}

// advance makes the head of the queue the current page.
func (s *Session) advance() {
	if len(s.pending) == 0 {
		s.current = NoPage
		return
	}
	s.current = s.pending[0]
	s.visited[s.current] = true
}

// GoTo makes a selected, unlocked page that was visited before current
// again. Pages not yet reached are only entered through LockCurrent.
func (s *Session) GoTo(page int) error {
	if err := s.checkUnlocked(page); err != nil {
		return err
	}
	if !s.visited[page] {
		return apperr.Newf(apperr.CodePageNotActive, "page %d has not been visited", page).With("page", page)
	}
	s.current = page
	s.visited[page] = true
	return nil
}

// RecordDrag stores the latest position of the element on page. The page
// must be the current page or an unlocked page visited before. The position
// is kept as given; it is clamped when the page is locked.
func (s *Session) RecordDrag(page int, pos geometry.PlacementRect) error {
	if err := s.checkUnlocked(page); err != nil {
		return err
	}
	if page != s.current && !s.visited[page] {
		return apperr.Newf(apperr.CodePageNotActive, "page %d has not been visited", page).With("page", page)
	}
	pos.Page = page
	s.committed[page] = pos
	return nil
}

func (s *Session) checkUnlocked(page int) error {
	if !slices.Contains(s.selected, page) {
		return apperr.Newf(apperr.CodePageNotActive, "page %d is not selected", page).With("page", page)
	}
	if s.locked[page] {
		return apperr.Newf(apperr.CodePageLocked, "page %d is locked", page).With("page", page)
	}
	return nil
}

// LockCurrent commits the current page's placement and moves on to the next
// queued page. The placement is clamped onto the page first; if it still
// does not fit an OutOfRange error is returned and nothing changes.
func (s *Session) LockCurrent() error {
	if s.current == NoPage {
		return apperr.New(apperr.CodeNoPlacement, "no page awaiting placement")
	}
	pos, ok := s.committed[s.current]
	if !ok {
		return apperr.Newf(apperr.CodeNoPlacement, "page %d has no placement", s.current).With("page", s.current)
	}
	pos = pos.Clamp()
	if err := pos.Validate(); err != nil {
		return err
	}
	s.committed[s.current] = pos
	s.locked[s.current] = true
	s.pending = slices.DeleteFunc(s.pending, func(p int) bool { return p == s.current })
	s.advance()
	return nil
}

func (s *Session) State() State {
	switch {
	case len(s.selected) == 0 && !s.begun:
		return Idle
	case len(s.selected) == 0:
		return Selecting
	case s.current != NoPage:
		return Placing
	default:
		return Done
	}
}

// Current returns the page awaiting placement, or NoPage.
func (s *Session) Current() int {
	return s.current
}

func (s *Session) Selected() []int {
	return slices.Clone(s.selected)
}

func (s *Session) Pending() []int {
	return slices.Clone(s.pending)
}

// Locked returns the locked pages in ascending order.
func (s *Session) Locked() []int {
	return sortedKeys(s.locked)
}

// Committed returns the recorded position for page, locked or not.
func (s *Session) Committed(page int) (geometry.PlacementRect, bool) {
	p, ok := s.committed[page]
	return p, ok
}

// Placements returns the locked placements in page order.
func (s *Session) Placements() []geometry.PlacementRect {
	pages := sortedKeys(s.locked)
	out := make([]geometry.PlacementRect, 0, len(pages))
	for _, p := range pages {
		out = append(out, s.committed[p])
	}
	return out
}

func sortedKeys(m map[int]bool) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// Snapshot is a JSON friendly view of the session.
type Snapshot struct {
	Document  string                         `json:"document,omitempty"`
	State     State                          `json:"state"`
	Selected  []int                          `json:"selectedPages"`
	Pending   []int                          `json:"pendingQueue"`
	Current   *int                           `json:"currentPage"`
	Locked    []int                          `json:"locked"`
	Committed map[int]geometry.PlacementRect `json:"committed"`
}

func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		Document:  s.document,
		State:     s.State(),
		Selected:  s.Selected(),
		Pending:   s.Pending(),
		Locked:    s.Locked(),
		Committed: make(map[int]geometry.PlacementRect, len(s.committed)),
	}
	if s.current != NoPage {
		cur := s.current
		snap.Current = &cur
	}
	for k, v := range s.committed {
		snap.Committed[k] = v
	}
	return snap
}
