// Package fpdfrenderer implements layout.Surface on top of codeberg.org/go-pdf/fpdf
// using the core Helvetica fonts. Text is encoded as Windows-1252; characters
// outside that code page are replaced.
package fpdfrenderer

import (
	"fmt"
	"io"
	"math"
	"strings"

	"codeberg.org/go-pdf/fpdf"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/ByLCY/gridpaper/layout"
)

const (
	fontFamily         = "Helvetica"
	defaultStrokeWidth = 0.2
)

var _ layout.Surface = (*Surface)(nil)

// Surface buffers the document in fpdf and writes it to the output on Close.
type Surface struct {
	w      io.Writer
	pdf    *fpdf.Fpdf
	enc    *encoding.Encoder
	dec    *encoding.Decoder
	closed bool
}

// New creates a surface with the first page already open. Page sizes are millimeters.
func New(w io.Writer, page layout.PageSpec, meta layout.DocumentMeta) (*Surface, error) {
	if w == nil {
		return nil, fmt.Errorf("fpdf: missing output writer")
	}
	if page.Width <= 0 || page.Height <= 0 {
		return nil, fmt.Errorf("%w: page size %gx%g", layout.ErrInvalidOptions, page.Width, page.Height)
	}

	// fpdf takes the portrait size and swaps it itself for "L"
	orientation := "P"
	if page.Width > page.Height {
		orientation = "L"
	}
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: orientation,
		UnitStr:        "mm",
		Size: fpdf.SizeType{
			Wd: math.Min(page.Width, page.Height),
			Ht: math.Max(page.Width, page.Height),
		},
	})
	// geometry is owned by the compositor
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCellMargin(0)

	pdf.SetTitle(meta.Title, true)
	pdf.SetAuthor(meta.Author, true)
	pdf.SetSubject(meta.Subject, true)
	pdf.SetCreator(meta.Creator, true)
	pdf.SetKeywords(strings.Join(meta.Keywords, " "), true)

	pdf.AddPage()
	if pdf.Err() {
		return nil, pdf.Error()
	}
	return &Surface{
		w:   w,
		pdf: pdf,
		enc: encoding.ReplaceUnsupported(charmap.Windows1252.NewEncoder()),
		dec: charmap.Windows1252.NewDecoder(),
	}, nil
}

// LayoutLines splits content on explicit newlines and then by width with fpdf's
// word wrapping. Heights are the font size; the gap before each line after the
// first is the extra leading of the font.
func (s *Surface) LayoutLines(content string, width float64, font layout.Font) []layout.TextLine {
	s.setFont(font)
	leading := math.Max(font.LineHeight-font.Size, 0)

	var lines []layout.TextLine
	for _, para := range strings.Split(strings.ReplaceAll(content, "\r", ""), "\n") {
		encoded := s.encode(para)
		chunks := [][]byte{[]byte(encoded)}
		if encoded != "" && width > 0 {
			chunks = s.pdf.SplitLines([]byte(encoded), width)
		}
		if len(chunks) == 0 {
			chunks = [][]byte{nil}
		}
		for _, c := range chunks {
			line := string(c)
			lines = append(lines, layout.TextLine{
				Content:   s.decode(line),
				Width:     s.pdf.GetStringWidth(line),
				Height:    font.Size,
				GapBefore: leading,
			})
		}
	}
	lines[0].GapBefore = 0
	return lines
}

// DrawRect strokes the rectangle; a non-nil FillColor fills it as well.
func (s *Surface) DrawRect(r layout.Rect) error {
	if err := s.check(); err != nil {
		return err
	}
	w := r.StrokeWidth
	if w <= 0 {
		w = defaultStrokeWidth
	}
	style := "D"
	if r.FillColor != nil {
		s.pdf.SetFillColor(r.FillColor.R, r.FillColor.G, r.FillColor.B)
		style = "DF"
	}
	s.pdf.SetDrawColor(r.StrokeColor.R, r.StrokeColor.G, r.StrokeColor.B)
	s.pdf.SetLineWidth(w)
	s.pdf.Rect(r.X, r.Y, r.Width, r.Height, style)
	return s.pdfErr()
}

// DrawText writes each pre-laid line as a cell of the line's height.
func (s *Surface) DrawText(tb layout.TextBox) error {
	if err := s.check(); err != nil {
		return err
	}
	s.setFont(tb.Font)
	s.pdf.SetTextColor(tb.Color.R, tb.Color.G, tb.Color.B)

	align := "L"
	switch strings.ToLower(tb.Align) {
	case "center":
		align = "C"
	case "right", "end":
		align = "R"
	}

	lines := tb.Lines
	if len(lines) == 0 {
		lines = []layout.TextLine{{Content: tb.Content, Height: tb.Font.Size}}
	}
	y := tb.Y
	for _, line := range lines {
		y += line.GapBefore
		h := line.Height
		if h <= 0 {
			h = tb.Font.Size
		}
		s.pdf.SetXY(tb.X, y)
		s.pdf.CellFormat(tb.Width, h, s.encode(line.Content), "", 0, align, false, 0, "")
		y += h
	}
	return s.pdfErr()
}

// NewPage appends a page with the size of the first one.
func (s *Surface) NewPage() error {
	if err := s.check(); err != nil {
		return err
	}
	s.pdf.AddPage()
	return s.pdfErr()
}

// Close writes the document to the output. A second call returns layout.ErrClosed.
func (s *Surface) Close() error {
	if s.closed {
		return layout.ErrClosed
	}
	s.closed = true
	if err := s.pdf.Output(s.w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func (s *Surface) check() error {
	if s.closed {
		return layout.ErrClosed
	}
	return s.pdfErr()
}

func (s *Surface) pdfErr() error {
	if s.pdf.Err() {
		return s.pdf.Error()
	}
	return nil
}

func (s *Surface) setFont(font layout.Font) {
	style := ""
	if font.Bold {
		style = "B"
	}
	s.pdf.SetFont(fontFamily, style, font.Size*layout.MmToPt)
}

func (s *Surface) encode(text string) string {
	out, err := s.enc.String(text)
	if err != nil {
		return text
	}
	return out
}

func (s *Surface) decode(text string) string {
	out, err := s.dec.String(text)
	if err != nil {
		return text
	}
	return out
}
