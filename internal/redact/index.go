// Package redact finds query strings in positioned page text and returns the
// render space boxes to black out.
//
// Text extraction yields fragments of arbitrary length (single glyphs, words,
// whole runs). The index rebuilds rendered lines from them, so a match does not
// depend on how the extractor happened to split the text. Matching is per
// line: a query that wraps onto the next line is not found.
//
// Character positions assume every character of a fragment has the same
// width (fragment width divided by rune count). This is exact for monospaced
// text and drifts for proportional fonts.
package redact

import (
	"math"
	"slices"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// TextFragment is a run of text on a rendered page. X and Y are the top-left
// corner in render space.
type TextFragment struct {
	Page   int     `json:"page"`
	Text   string  `json:"text"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (f TextFragment) centerY() float64 {
	return f.Y + f.Height/2
}

// MatchRect is one occurrence of a query, in render space.
type MatchRect struct {
	Page   int     `json:"page"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type cell struct {
	x, y, width, height float64
}

type line struct {
	page      int
	centerY   float64
	height    float64
	fragments []TextFragment

	raw   []rune
	text  []rune // lower-cased, parallel to cells
	cells []cell
}

// Index is the searchable form of one document's text.
type Index struct {
	lines []*line
}

// NewIndex groups fragments into lines and expands them into character
// cells. Fragments are expected in extraction order; their order only
// matters for which fragment anchors a line.
func NewIndex(fragments []TextFragment) *Index {
	idx := &Index{}
	for _, f := range fragments {
		if f.Text == "" {
			continue
		}
		if l := idx.lineFor(f); l != nil {
			l.fragments = append(l.fragments, f)
			continue
		}
		idx.lines = append(idx.lines, &line{
			page:      f.Page,
			centerY:   f.centerY(),
			height:    f.Height,
			fragments: []TextFragment{f},
		})
	}
	for _, l := range idx.lines {
		l.build()
	}
	return idx
}

// lineFor returns the line f belongs to, or nil. A fragment joins a line on
// the same page when the vertical centres are closer than the smaller of
// the two heights. If several lines qualify the nearest centre wins.
func (idx *Index) lineFor(f TextFragment) *line {
	var best *line
	bestDist := math.Inf(1)
	for _, l := range idx.lines {
		if l.page != f.Page {
			continue
		}
		d := math.Abs(l.centerY - f.centerY())
		if d >= math.Min(l.height, f.Height) {
			continue
		}
		if d < bestDist {
			best, bestDist = l, d
		}
	}
	return best
}

func (l *line) build() {
	sort.SliceStable(l.fragments, func(i, j int) bool {
		return l.fragments[i].X < l.fragments[j].X
	})
	for _, f := range l.fragments {
		n := utf8.RuneCountInString(f.Text)
		charWidth := f.Width / float64(n)
		i := 0
		for _, r := range f.Text {
			l.raw = append(l.raw, r)
			l.text = append(l.text, unicode.ToLower(r))
			l.cells = append(l.cells, cell{
				x:      f.X + float64(i)*charWidth,
				y:      f.Y,
				width:  charWidth,
				height: f.Height,
			})
			i++
		}
	}
}

// Search returns a box for every case-insensitive occurrence of query. After
// a hit the scan resumes one character after the hit's start. An empty query
// yields no matches.
func (idx *Index) Search(query string) []MatchRect {
	q := lowerRunes(query)
	if len(q) == 0 {
		return nil
	}
	var matches []MatchRect
	for _, l := range idx.lines {
		for from := 0; from+len(q) <= len(l.text); {
			at := indexRunes(l.text[from:], q)
			if at < 0 {
				break
			}
			start := from + at
			first, last := l.cells[start], l.cells[start+len(q)-1]
			matches = append(matches, MatchRect{
				Page:   l.page,
				X:      first.x,
				Y:      first.y,
				Width:  last.x + last.width - first.x,
				Height: first.height,
			})
			from = start + 1
		}
	}
	return matches
}

// Lines returns the reconstructed text of each line, lower-cased, in index
// order. Useful for diagnostics and previews.
func (idx *Index) Lines() []string {
	out := make([]string, len(idx.lines))
	for i, l := range idx.lines {
		out[i] = string(l.text)
	}
	return out
}

// Text returns the lines with their original case in reading order: by
// page, then top to bottom. Surrounding space is trimmed and blank lines are
// dropped.
func (idx *Index) Text() []string {
	lines := slices.Clone(idx.lines)
	sort.SliceStable(lines, func(i, j int) bool {
		if lines[i].page != lines[j].page {
			return lines[i].page < lines[j].page
		}
		return lines[i].centerY < lines[j].centerY
	})
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if s := strings.TrimSpace(string(l.raw)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Search is a convenience for a one-off query over fragments.
func Search(fragments []TextFragment, query string) []MatchRect {
	return NewIndex(fragments).Search(query)
}

// lowerRunes maps rune by rune so cell and text positions stay aligned.
func lowerRunes(s string) []rune {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		out = append(out, unicode.ToLower(r))
	}
	return out
}

func indexRunes(s, sub []rune) int {
outer:
	for i := 0; i+len(sub) <= len(s); i++ {
		for j := range sub {
			if s[i+j] != sub[j] {
				continue outer
			}
		}
		return i
	}
	return -1
}
