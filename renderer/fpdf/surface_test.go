package fpdfrenderer

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/ByLCY/gridpaper/layout"
	"github.com/ByLCY/gridpaper/record"
)

func newSurface(t *testing.T, w *bytes.Buffer) *Surface {
	t.Helper()
	s, err := New(w, layout.DefaultOptions().Page, layout.DocumentMeta{Title: "Staff", Creator: "gridpaper"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestLayoutLinesWrapsAndKeepsNewlines(t *testing.T) {
	s := newSurface(t, &bytes.Buffer{})
	font := layout.NewFont(10*layout.PtToMm, false)

	lines := s.LayoutLines("alpha beta gamma delta epsilon", 20, font)
	if len(lines) < 2 {
		t.Fatalf("expected wrapping, got %d lines", len(lines))
	}
	for i, l := range lines {
		if l.Width > 20+1e-6 {
			t.Fatalf("line %d too wide: %g", i, l.Width)
		}
	}
	if lines[0].GapBefore != 0 || lines[1].GapBefore <= 0 {
		t.Fatalf("unexpected gaps: %+v", lines)
	}

	got := s.LayoutLines("one\n\ntwo", 100, font)
	if len(got) != 3 || got[1].Content != "" || got[2].Content != "two" {
		t.Fatalf("newline handling: %+v", got)
	}
}

func TestLayoutLinesRoundTripsLatin1(t *testing.T) {
	s := newSurface(t, &bytes.Buffer{})
	lines := s.LayoutLines("Café €5", 100, layout.NewFont(4, false))
	if len(lines) != 1 || lines[0].Content != "Café €5" {
		t.Fatalf("unexpected content: %+v", lines)
	}
}

func TestComposeWritesPDF(t *testing.T) {
	var buf bytes.Buffer
	s := newSurface(t, &buf)
	records := []*record.Record{
		record.FromPairs("name", "Alice", "age", 30),
		record.FromPairs("name", "Bob"),
	}
	opts := layout.DefaultOptions()
	opts.Title = "Staff"
	opts.Footer = "Page ${page} of ${pages}"
	if _, err := layout.Compose(records, s, opts); err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "%PDF-") {
		t.Fatalf("output is not a PDF")
	}
	if err := s.Close(); !errors.Is(err, layout.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := s.NewPage(); !errors.Is(err, layout.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestComposeReportsWriteFailure(t *testing.T) {
	s, err := New(failingWriter{}, layout.DefaultOptions().Page, layout.DocumentMeta{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = layout.Compose([]*record.Record{record.FromPairs("a", 1)}, s, layout.DefaultOptions())
	var se *layout.StreamError
	if !errors.As(err, &se) || se.Op != "Close" {
		t.Fatalf("expected Close StreamError, got %v", err)
	}
}

func TestPageSizeMatchesLayout(t *testing.T) {
	for _, tc := range []struct {
		name      string
		preset    string
		landscape bool
	}{
		{"A4 portrait", "A4", false},
		{"A4 landscape", "A4", true},
		{"Letter landscape", "Letter", true},
	} {
		w, h, ok := layout.PageSize(tc.preset, tc.landscape)
		if !ok {
			t.Fatalf("%s: unknown preset", tc.name)
		}
		page := layout.PageSpec{Width: w, Height: h, Margin: layout.UniformMargin(10)}
		s, err := New(&bytes.Buffer{}, page, layout.DocumentMeta{})
		if err != nil {
			t.Fatalf("%s: New: %v", tc.name, err)
		}
		check := func(stage string) {
			gw, gh := s.pdf.GetPageSize()
			if math.Abs(gw-w) > 1e-6 || math.Abs(gh-h) > 1e-6 {
				t.Fatalf("%s %s: layout page %gx%g, pdf page %gx%g", tc.name, stage, w, h, gw, gh)
			}
		}
		check("first page")
		if err := s.NewPage(); err != nil {
			t.Fatalf("%s: NewPage: %v", tc.name, err)
		}
		check("second page")
	}
}
