package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"sector_dashboard/internal/market"
	"sector_dashboard/internal/models"
	"sector_dashboard/internal/search"
)

// HandleCommand processes inbound chat commands. Arguments are separated by
// "|" so names may contain spaces. An empty reply means the answer was sent
// interactively.
func (d *Dashboard) HandleCommand(ctx context.Context, cmd string) string {
	name, rest, _ := strings.Cut(strings.TrimSpace(cmd), " ")
	// "/sectors@my_bot" in group chats.
	name, _, _ = strings.Cut(strings.ToLower(name), "@")
	args := splitArgs(rest)

	switch name {
	case "":
		return ""
	case "/ping":
		return "Pong 🏓"
	case "/start", "/help":
		return d.getHelp()
	case "/sectors":
		return RenderMarkdown(d.store.Snapshot())
	case "/stocks":
		return RenderStockList(d.store.Snapshot())
	case "/addsector":
		if len(args) != 1 {
			return "Usage: /addsector <sector>"
		}
		return reply(d.store.AddSector(args[0]), "✅ Sector *%s* added.", args[0])
	case "/addindustry":
		if len(args) != 2 {
			return "Usage: /addindustry <sector> | <industry>"
		}
		return reply(d.store.AddIndustry(args[0], args[1]), "✅ Industry *%s* added to %s.", args[1], args[0])
	case "/addsub":
		if len(args) != 3 {
			return "Usage: /addsub <sector> | <industry> | <sub-industry>"
		}
		return reply(d.store.AddSubIndustry(args[0], args[1], args[2]), "✅ Sub-industry *%s* added to %s › %s.", args[2], args[0], args[1])
	case "/addstock":
		path, symbol, ok := stockArgs(args)
		if !ok {
			return "Usage: /addstock <sector> | <industry> | [<sub-industry> |] <symbol>"
		}
		return reply(d.store.AddStock(path, symbol), "✅ *%s* added to %s.", symbol, pathLabel(path))
	case "/rate":
		return d.handleRateCommand(args)
	case "/search":
		if strings.TrimSpace(rest) == "" {
			return "Usage: /search <query>"
		}
		return d.handleSearchCommand(strings.TrimSpace(rest))
	case "/refresh":
		return d.handleRefreshCommand(ctx)
	case "/delsector", "/delindustry", "/delsub", "/delstock":
		return d.handleDeleteCommand(ctx, name, args)
	case "/confirm", "/cancel":
		if len(args) != 1 {
			return fmt.Sprintf("Usage: %s <id>", name)
		}
		return d.resolvePending(args[0], name == "/confirm")
	default:
		return "Unknown command. Try /sectors, /addsector, /addstock, /rate or /help."
	}
}

func (d *Dashboard) getHelp() string {
	var sb strings.Builder
	sb.WriteString("📊 *SECTOR DASHBOARD COMMANDS*\n\n")
	for _, cmd := range d.commands {
		sb.WriteString(fmt.Sprintf("🔹 *%s*\n%s\n`%s`\n\n", cmd.Name, cmd.Description, cmd.Example))
	}
	return sb.String()
}

func (d *Dashboard) handleRateCommand(args []string) string {
	if len(args) < 4 {
		return "Usage: /rate <sector> | <industry> | [<sub-industry> |] <symbol> | <0-5>"
	}
	rating, err := strconv.Atoi(args[len(args)-1])
	if err != nil {
		return "⚠️ Rating must be a whole number from 0 to 5."
	}
	path, symbol, ok := stockArgs(args[:len(args)-1])
	if !ok {
		return "Usage: /rate <sector> | <industry> | [<sub-industry> |] <symbol> | <0-5>"
	}
	if err := d.store.RateStock(path, symbol, rating); err != nil {
		return errorReply(err)
	}
	if rating == 0 {
		return fmt.Sprintf("✅ Rating cleared for *%s*.", symbol)
	}
	return fmt.Sprintf("✅ *%s* rated %s", symbol, Stars(rating))
}

func (d *Dashboard) handleSearchCommand(query string) string {
	hits, err := search.Hierarchy(d.store.Snapshot(), query, 10)
	if err != nil {
		return errorReply(err)
	}
	if len(hits) == 0 {
		return fmt.Sprintf("🔍 No stocks match '%s'.", query)
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🔍 *SEARCH: %s*\n", escapeMarkdown(query)))
	for _, h := range hits {
		line := h.Ref.Symbol
		if h.Name != "" {
			line += " - " + h.Name
		}
		sb.WriteString(fmt.Sprintf("• %s\n   %s\n", escapeMarkdown(line), escapeMarkdown(Location(h.Ref))))
	}
	return sb.String()
}

func (d *Dashboard) handleRefreshCommand(ctx context.Context) string {
	if d.quoter == nil {
		return "⚠️ Quotes are not configured. Set APCA_API_KEY_ID and APCA_API_SECRET_KEY."
	}
	sum, err := market.Refresh(ctx, d.store, d.quoter)
	if err != nil {
		log.Printf("ERROR: quote refresh aborted: %v", err)
		return sum.String() + "\n" + errorReply(err)
	}
	return sum.String()
}

// splitArgs splits "a | b | c" into trimmed parts. An empty input has no
// arguments.
func splitArgs(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// stockArgs reads "sector | industry | [sub |] symbol". Symbols are
// upper-cased the way exchanges list them.
func stockArgs(args []string) (models.ListPath, string, bool) {
	switch len(args) {
	case 3:
		return models.ListPath{Sector: args[0], Industry: args[1]}, strings.ToUpper(args[2]), true
	case 4:
		return models.ListPath{Sector: args[0], Industry: args[1], SubIndustry: args[2]}, strings.ToUpper(args[3]), true
	}
	return models.ListPath{}, "", false
}

func pathLabel(p models.ListPath) string {
	return Location(models.StockRef{Sector: p.Sector, Industry: p.Industry, SubIndustry: p.SubIndustry})
}

func reply(err error, format string, args ...any) string {
	if err != nil {
		return errorReply(err)
	}
	for i, a := range args {
		if s, ok := a.(string); ok {
			args[i] = escapeMarkdown(s)
		}
	}
	return fmt.Sprintf(format, args...)
}

// errorReply turns a store error into a chat message.
func errorReply(err error) string {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return "⚠️ " + capitalize(err.Error())
	case errors.Is(err, models.ErrDuplicateKey):
		return "⚠️ " + capitalize(detail(err, models.ErrDuplicateKey))
	case errors.Is(err, models.ErrShapeConflict):
		return "❌ " + capitalize(err.Error())
	case errors.Is(err, models.ErrInvalidArgument):
		return "⚠️ Invalid input: " + detail(err, models.ErrInvalidArgument)
	case errors.Is(err, models.ErrPersistence):
		log.Printf("ERROR: %v", err)
		return "🚨 Could not save the change. Nothing was modified."
	}
	log.Printf("ERROR: %v", err)
	return "⚠️ Error: " + err.Error()
}

// detail strips the "<kind>: " prefix the store puts before its message.
func detail(err, kind error) string {
	return strings.TrimPrefix(err.Error(), kind.Error()+": ")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
