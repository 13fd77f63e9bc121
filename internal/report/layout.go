package report

import "strings"

// PageSpec is the geometry of the printed page, in points. Y grows upwards
// from the bottom edge.
type PageSpec struct {
	Width, Height    float64
	MarginX, MarginY float64
	HeadingAdvance   float64 // space taken by a section title
	LineAdvance      float64 // space taken by one body line
	BodyIndent       float64
}

// A4 is portrait A4 with the default report spacing.
var A4 = PageSpec{
	Width:          595.28,
	Height:         841.89,
	MarginX:        40,
	MarginY:        50,
	HeadingAdvance: 20,
	LineAdvance:    15,
	BodyIndent:     10,
}

type Font struct {
	Family string
	Bold   bool
	Size   float64
}

var (
	headingFont = Font{Family: "Helvetica", Bold: true, Size: 14}
	bodyFont    = Font{Family: "Courier", Size: 11}
)

// Color is an RGB triple.
type Color struct{ R, G, B int }

var (
	Black    = Color{0, 0, 0}
	DarkBlue = Color{0, 0, 139}
)

// Line is one string placed on a page. X and Y are the baseline origin.
type Line struct {
	Text  string
	X, Y  float64
	Font  Font
	Color Color
}

type Page struct {
	Lines []Line
}

// Layout places every section on pages. A title is followed by its body
// lines, indented; a new page starts when a body line leaves the cursor
// below the bottom margin.
func Layout(r *Report, ps PageSpec) []Page {
	pages := []Page{{}}
	top := ps.Height - ps.MarginY
	y := top

	place := func(l Line) {
		cur := &pages[len(pages)-1]
		cur.Lines = append(cur.Lines, l)
	}

	for _, sec := range r.Sections() {
		font, color := headingFont, DarkBlue
		switch sec.Style {
		case StyleMeta:
			font, color = Font{Family: "Courier", Size: 12}, Black
		case StyleInfo:
			font, color = Font{Family: "Courier", Size: 14}, Black
		}
		place(Line{Text: sec.Title, X: ps.MarginX, Y: y, Font: font, Color: color})
		y -= ps.HeadingAdvance

		for _, text := range splitLines(sec.Body) {
			place(Line{Text: text, X: ps.MarginX + ps.BodyIndent, Y: y, Font: bodyFont, Color: Black})
			y -= ps.LineAdvance
			if y < ps.MarginY {
				pages = append(pages, Page{})
				y = top
			}
		}
	}
	if n := len(pages); n > 1 && len(pages[n-1].Lines) == 0 {
		pages = pages[:n-1]
	}
	return pages
}

// splitLines breaks text on any newline convention. Empty text has no lines.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}
