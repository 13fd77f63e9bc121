package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"sector_dashboard/internal/models"
)

// Currency prefixes every displayed price.
const Currency = "₹"

// cardsPerRow is how many sector cards share one row of the terminal view.
const cardsPerRow = 3

var (
	colorUp     = lipgloss.Color("#27ae60")
	colorDown   = lipgloss.Color("#e74c3c")
	colorFlat   = lipgloss.Color("#95a5a6")
	colorTitle  = lipgloss.Color("#2c3e50")
	colorMuted  = lipgloss.Color("#7f8c8d")
	colorBorder = lipgloss.Color("#34495e")

	sectorStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorTitle)
	industryStyle = lipgloss.NewStyle().Bold(true)
	subStyle      = lipgloss.NewStyle().Foreground(colorMuted)
	emptyStyle    = lipgloss.NewStyle().Italic(true).Foreground(colorFlat)
	cardStyle     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)
)

// stockView splits a stock into its display pieces.
type stockView struct {
	head   string // symbol, plus " - name" when named
	price  string
	change string
	trend  int // 1 up, -1 down, 0 flat
	stars  string
}

func viewOf(s models.Stock) stockView {
	v := stockView{head: s.Symbol}
	if s.Name != "" {
		v.head += " - " + s.Name
	}
	if s.Price != nil {
		v.price = Currency + s.Price.String()
	}
	if s.Change != nil {
		arrow := "●"
		switch s.Change.Sign() {
		case 1:
			arrow, v.trend = "▲", 1
		case -1:
			arrow, v.trend = "▼", -1
		}
		v.change = fmt.Sprintf("%s %s%%", arrow, s.Change.Abs().String())
	}
	if s.Rated() {
		v.stars = Stars(s.Rating)
	}
	return v
}

// Stars draws a rating as filled and hollow stars.
func Stars(rating int) string {
	rating = max(0, min(rating, models.MaxRating))
	return strings.Repeat("★", rating) + strings.Repeat("☆", models.MaxRating-rating)
}

// FormatStock renders one stock as a single line of plain text, e.g.
// "TCS - Tata Consultancy ₹3890.5 ▼ 1.25% ★★★★☆".
func FormatStock(s models.Stock) string {
	v := viewOf(s)
	parts := []string{v.head}
	for _, p := range []string{v.price, v.change, v.stars} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// RenderMarkdown renders the whole hierarchy for a chat message.
func RenderMarkdown(h *models.Hierarchy) string {
	if len(h.Sectors) == 0 {
		return "📊 No sectors yet. Add one with /addsector <name>"
	}

	var sb strings.Builder
	sb.WriteString("📊 *SECTOR DASHBOARD*\n")
	for _, sec := range h.Sectors {
		sb.WriteString(fmt.Sprintf("\n🏦 *%s*\n", escapeMarkdown(sec.Name)))
		if len(sec.Industries) == 0 {
			sb.WriteString("  _No industries added_\n")
			continue
		}
		for _, ind := range sec.Industries {
			sb.WriteString(fmt.Sprintf("  🏭 %s\n", escapeMarkdown(ind.Name)))
			switch n := ind.Node.(type) {
			case *models.Grouping:
				if n.Empty() {
					sb.WriteString("    _No sub-industries_\n")
				}
				for _, sub := range n.SubIndustries {
					sb.WriteString(fmt.Sprintf("    📁 %s (%d)\n", escapeMarkdown(sub.Name), len(sub.Stocks)))
					writeStockLines(&sb, sub.Stocks, "      ")
				}
			case *models.Leaf:
				writeStockLines(&sb, n.Stocks, "    ")
			}
		}
	}
	return sb.String()
}

func writeStockLines(sb *strings.Builder, stocks models.StockList, indent string) {
	if len(stocks) == 0 {
		sb.WriteString(indent + "_No stocks_\n")
		return
	}
	for _, s := range stocks {
		sb.WriteString(indent + "• " + escapeMarkdown(FormatStock(s)) + "\n")
	}
}

// escapeMarkdown guards the characters Telegram's legacy Markdown treats as
// formatting.
func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// RenderStockList lists every stock in traversal order with its location and
// rating, numbered for quick reference.
func RenderStockList(h *models.Hierarchy) string {
	var sb strings.Builder
	n := 0
	for ref := range h.Flatten() {
		n++
		st := models.Bare(ref.Symbol)
		if i := h.Stocks(ref.Path()).Index(ref.Symbol); i >= 0 {
			st = h.Stocks(ref.Path())[i]
		}
		rating := "unrated"
		if st.Rated() {
			rating = Stars(st.Rating)
		}
		sb.WriteString(fmt.Sprintf("%d. *%s* %s\n   %s\n", n, escapeMarkdown(ref.Symbol), rating, escapeMarkdown(Location(ref))))
	}
	if n == 0 {
		return "No stocks yet. Add one with /addstock"
	}
	return fmt.Sprintf("⭐ *STOCKS* (%d)\n\n", n) + sb.String()
}

// Location formats the path of a stock as "Sector › Industry › Sub-industry".
func Location(ref models.StockRef) string {
	parts := []string{ref.Sector, ref.Industry}
	if ref.SubIndustry != "" {
		parts = append(parts, ref.SubIndustry)
	}
	return strings.Join(parts, " › ")
}

// RenderTerminal lays the sectors out as bordered cards, three per row, for
// a terminal of the given width.
func RenderTerminal(h *models.Hierarchy, width int) string {
	if len(h.Sectors) == 0 {
		return emptyStyle.Render("No sectors yet.")
	}
	if width < cardsPerRow*20 {
		width = cardsPerRow * 20
	}
	// Each card spends two columns on its border and two on padding.
	inner := width/cardsPerRow - 4

	var rows []string
	for start := 0; start < len(h.Sectors); start += cardsPerRow {
		end := min(start+cardsPerRow, len(h.Sectors))
		var cards []string
		for _, sec := range h.Sectors[start:end] {
			cards = append(cards, cardStyle.Width(inner).Render(sectorCard(sec)))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cards...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func sectorCard(sec *models.Sector) string {
	lines := []string{sectorStyle.Render("🏦 " + sec.Name)}
	if len(sec.Industries) == 0 {
		return strings.Join(append(lines, emptyStyle.Render("No industries added")), "\n")
	}
	for _, ind := range sec.Industries {
		lines = append(lines, industryStyle.Render("🏭 "+ind.Name))
		switch n := ind.Node.(type) {
		case *models.Grouping:
			if n.Empty() {
				lines = append(lines, emptyStyle.Render("  No sub-industries"))
			}
			for _, sub := range n.SubIndustries {
				lines = append(lines, subStyle.Render(fmt.Sprintf("  📁 %s (%d)", sub.Name, len(sub.Stocks))))
				lines = append(lines, styledStocks(sub.Stocks, "    ")...)
			}
		case *models.Leaf:
			lines = append(lines, styledStocks(n.Stocks, "  ")...)
		}
	}
	return strings.Join(lines, "\n")
}

func styledStocks(stocks models.StockList, indent string) []string {
	if len(stocks) == 0 {
		return []string{emptyStyle.Render(indent + "No stocks")}
	}
	lines := make([]string, 0, len(stocks))
	for _, s := range stocks {
		v := viewOf(s)
		line := indent + "• " + v.head
		if v.price != "" {
			line += " " + v.price
		}
		if v.change != "" {
			color := colorFlat
			switch v.trend {
			case 1:
				color = colorUp
			case -1:
				color = colorDown
			}
			line += " " + lipgloss.NewStyle().Foreground(color).Render(v.change)
		}
		if v.stars != "" {
			line += " " + v.stars
		}
		lines = append(lines, line)
	}
	return lines
}
