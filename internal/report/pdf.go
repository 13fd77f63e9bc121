package report

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
)

// RenderPDF draws laid-out pages to w.
func RenderPDF(w io.Writer, r *Report, ps PageSpec) error {
	if err := r.Validate(); err != nil {
		return err
	}
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: ps.Width, Ht: ps.Height},
	})
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	pdf.SetTitle(fmt.Sprintf("%s %s Equity Research", r.CompanyName, r.Date), true)
	pdf.SetCreator("sectorboard", true)

	// Core fonts are cp1252; translate so accented names survive.
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	for _, page := range Layout(r, ps) {
		pdf.AddPage()
		for _, l := range page.Lines {
			style := ""
			if l.Font.Bold {
				style = "B"
			}
			pdf.SetFont(l.Font.Family, style, l.Font.Size)
			pdf.SetTextColor(l.Color.R, l.Color.G, l.Color.B)
			// fpdf measures from the top edge.
			pdf.Text(l.X, ps.Height-l.Y, tr(l.Text))
		}
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}
