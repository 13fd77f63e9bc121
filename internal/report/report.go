// Package report holds the equity research report form: its fields, the
// paginated document built from them and the archive of saved snapshots.
// Nothing here touches the sector hierarchy.
package report

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"sector_dashboard/internal/models"
)

// DateLayout is the format of Report.Date.
const DateLayout = "2006-01-02"

type Recommendation string

const (
	Buy  Recommendation = "Buy"
	Hold Recommendation = "Hold"
	Sell Recommendation = "Sell"
)

// Recommendations lists the allowed values in form order.
var Recommendations = []Recommendation{Buy, Hold, Sell}

// ParseRecommendation accepts any casing. An empty string means Buy.
func ParseRecommendation(s string) (Recommendation, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Buy, nil
	}
	for _, r := range Recommendations {
		if strings.EqualFold(s, string(r)) {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: recommendation %q is not Buy, Hold or Sell", models.ErrInvalidArgument, s)
}

// Report is one research note. Every field is free text and may be empty,
// except Date which must be set before the report is saved or rendered.
type Report struct {
	Date              string         `json:"report_date"`
	CompanyOverview   string         `json:"company_overview"`
	CompanyName       string         `json:"company_name"`
	Ticker            string         `json:"ticker"`
	Recommendation    Recommendation `json:"recommendation"`
	InvestmentThesis  string         `json:"investment_thesis"`
	FinancialAnalysis string         `json:"financial_analysis"`
	Valuation         string         `json:"valuation"`
	BusinessQuality   string         `json:"business_quality"`
	RiskAnalysis      string         `json:"risk_analysis"`
	ESG               string         `json:"esg"`
	Technical         string         `json:"technical"`
	Conclusion        string         `json:"conclusion"`
}

// New returns a blank report with the default recommendation.
func New() *Report {
	return &Report{Recommendation: Buy}
}

// UnmarshalJSON fills absent keys with their defaults so that snapshots
// written with fewer fields still load.
func (r *Report) UnmarshalJSON(data []byte) error {
	type plain Report
	p := plain(*New())
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("%w: report: %v", models.ErrParse, err)
	}
	rec, err := ParseRecommendation(string(p.Recommendation))
	if err != nil {
		return fmt.Errorf("%w: report: %v", models.ErrParse, err)
	}
	p.Recommendation = rec
	*r = Report(p)
	return nil
}

// Today sets the report date to the current day.
func (r *Report) Today(now time.Time) {
	r.Date = now.Format(DateLayout)
}

// Validate checks the report can be saved.
func (r *Report) Validate() error {
	if strings.TrimSpace(r.Date) == "" {
		return fmt.Errorf("%w: report date is required (use today's date)", models.ErrInvalidArgument)
	}
	if _, err := time.Parse(DateLayout, r.Date); err != nil {
		return fmt.Errorf("%w: report date %q is not YYYY-MM-DD", models.ErrInvalidArgument, r.Date)
	}
	if !slices.Contains(Recommendations, r.Recommendation) {
		return fmt.Errorf("%w: recommendation %q is not Buy, Hold or Sell", models.ErrInvalidArgument, r.Recommendation)
	}
	return nil
}

// Key names the snapshot of this report, "<company>_<date>.json".
func (r *Report) Key() string {
	return sanitizeName(r.CompanyName) + "_" + r.Date + ".json"
}

// PDFName is the download name of the rendered document.
func (r *Report) PDFName() string {
	return sanitizeName(r.CompanyName) + "_" + r.Date + "_Equity_Research.pdf"
}

// sanitizeName keeps a company name usable as a single path segment.
func sanitizeName(s string) string {
	return strings.Map(func(c rune) rune {
		switch c {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', 0:
			return '-'
		}
		return c
	}, strings.TrimSpace(s))
}

// Style selects how a section title is drawn.
type Style int

const (
	StyleHeading Style = iota // Helvetica-Bold 14, dark blue
	StyleMeta                 // Courier 12, black
	StyleInfo                 // Courier 14, black
)

// Section is a titled block of the document.
type Section struct {
	Title string
	Body  string
	Style Style
}

// Sections returns the document content in print order.
func (r *Report) Sections() []Section {
	return []Section{
		{Title: "Report Date: " + r.Date, Style: StyleMeta},
		{Title: "1. Company Overview", Body: r.CompanyOverview},
		{Title: "Key Info", Body: fmt.Sprintf("Company: %s | Ticker: %s | Recommendation: %s", r.CompanyName, r.Ticker, r.Recommendation), Style: StyleInfo},
		{Title: "2. Investment Thesis", Body: r.InvestmentThesis},
		{Title: "3. Financial Analysis", Body: r.FinancialAnalysis},
		{Title: "4. Valuation", Body: r.Valuation},
		{Title: "5. Business Quality Assessment", Body: r.BusinessQuality},
		{Title: "6. Risk Analysis", Body: r.RiskAnalysis},
		{Title: "7. ESG / Sustainability", Body: r.ESG},
		{Title: "8. Technical / Trading Notes", Body: r.Technical},
		{Title: "9. Conclusion", Body: r.Conclusion},
	}
}
