package dashboard

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"sector_dashboard/internal/models"
	"sector_dashboard/internal/telegram"
)

type deleteKind int

const (
	deleteSector deleteKind = iota
	deleteIndustry
	deleteSubIndustry
	deleteStock
)

// PendingDelete is a delete waiting for the user to confirm it.
type PendingDelete struct {
	Kind      deleteKind
	Path      models.ListPath
	Symbol    string
	Timestamp time.Time
}

// Describe names what the delete removes.
func (p PendingDelete) Describe() string {
	switch p.Kind {
	case deleteSector:
		return fmt.Sprintf("sector *%s* and everything in it", escapeMarkdown(p.Path.Sector))
	case deleteIndustry:
		return fmt.Sprintf("industry *%s* from %s", escapeMarkdown(p.Path.Industry), escapeMarkdown(p.Path.Sector))
	case deleteSubIndustry:
		return fmt.Sprintf("sub-industry *%s* from %s › %s", escapeMarkdown(p.Path.SubIndustry), escapeMarkdown(p.Path.Sector), escapeMarkdown(p.Path.Industry))
	default:
		return fmt.Sprintf("stock *%s* from %s", escapeMarkdown(p.Symbol), escapeMarkdown(pathLabel(p.Path)))
	}
}

func (d *Dashboard) execute(p PendingDelete) error {
	switch p.Kind {
	case deleteSector:
		return d.store.DeleteSector(p.Path.Sector)
	case deleteIndustry:
		return d.store.DeleteIndustry(p.Path.Sector, p.Path.Industry)
	case deleteSubIndustry:
		return d.store.DeleteSubIndustry(p.Path.Sector, p.Path.Industry, p.Path.SubIndustry)
	default:
		return d.store.DeleteStock(p.Path, p.Symbol)
	}
}

// check reports early when the target of a delete does not exist.
func (d *Dashboard) check(p PendingDelete) error {
	h := d.store.Snapshot()
	sec := h.Sector(p.Path.Sector)
	if sec == nil {
		return fmt.Errorf("%w: sector %q", models.ErrNotFound, p.Path.Sector)
	}
	if p.Kind == deleteSector {
		return nil
	}
	ind := sec.Industry(p.Path.Industry)
	if ind == nil {
		return fmt.Errorf("%w: industry %q in %q", models.ErrNotFound, p.Path.Industry, p.Path.Sector)
	}
	switch p.Kind {
	case deleteIndustry:
		return nil
	case deleteSubIndustry:
		if g, ok := ind.Node.(*models.Grouping); ok && g.SubIndustry(p.Path.SubIndustry) != nil {
			return nil
		}
		return fmt.Errorf("%w: sub-industry %q in %s › %s", models.ErrNotFound, p.Path.SubIndustry, p.Path.Sector, p.Path.Industry)
	}
	_, err := d.store.Lookup(p.Path, p.Symbol)
	return err
}

func (d *Dashboard) handleDeleteCommand(ctx context.Context, name string, args []string) string {
	var p PendingDelete
	switch {
	case name == "/delsector" && len(args) == 1:
		p = PendingDelete{Kind: deleteSector, Path: models.ListPath{Sector: args[0]}}
	case name == "/delindustry" && len(args) == 2:
		p = PendingDelete{Kind: deleteIndustry, Path: models.ListPath{Sector: args[0], Industry: args[1]}}
	case name == "/delsub" && len(args) == 3:
		p = PendingDelete{Kind: deleteSubIndustry, Path: models.ListPath{Sector: args[0], Industry: args[1], SubIndustry: args[2]}}
	case name == "/delstock":
		path, symbol, ok := stockArgs(args)
		if !ok {
			return "Usage: /delstock <sector> | <industry> | [<sub-industry> |] <symbol>"
		}
		p = PendingDelete{Kind: deleteStock, Path: path, Symbol: symbol}
	default:
		for _, c := range d.commands {
			if c.Name == name {
				return "Usage: " + c.Example
			}
		}
		return "Usage: " + name
	}

	if err := d.check(p); err != nil {
		return errorReply(err)
	}

	d.mu.Lock()
	d.nextID++
	id := strconv.Itoa(d.nextID)
	p.Timestamp = d.now()
	d.pending[id] = p
	d.mu.Unlock()

	secs := int(d.ttl / time.Second)
	msg := fmt.Sprintf("🗑️ *DELETE*\nRemove %s?\n\n⏱️ Valid for %d seconds.", p.Describe(), secs)

	if d.prompter != nil {
		buttons := []telegram.Button{
			{Text: "✅ DELETE", CallbackData: "CONFIRM_DEL_" + id},
			{Text: "❌ CANCEL", CallbackData: "CANCEL_DEL_" + id},
		}
		err := d.prompter.SendInteractiveMessage(ctx, msg, buttons)
		if err == nil {
			return "" // Message sent interactively
		}
		log.Printf("Warning: could not send confirmation buttons: %v", err)
	}
	return msg + fmt.Sprintf("\nReply /confirm %s or /cancel %s", id, id)
}

// HandleCallback processes button clicks from Telegram.
func (d *Dashboard) HandleCallback(_ context.Context, callbackID, data string) string {
	parts := strings.SplitN(data, "_", 3)
	if len(parts) != 3 || parts[1] != "DEL" {
		return "⚠️ Invalid callback data."
	}
	switch parts[0] {
	case "CONFIRM":
		return d.resolvePending(parts[2], true)
	case "CANCEL":
		return d.resolvePending(parts[2], false)
	}
	return "⚠️ Invalid callback data."
}

// resolvePending runs or drops a pending delete. Either way it is consumed.
func (d *Dashboard) resolvePending(id string, confirm bool) string {
	d.mu.Lock()
	p, exists := d.pending[id]
	delete(d.pending, id)
	d.pruneLocked()
	d.mu.Unlock()

	if !exists {
		return fmt.Sprintf("⚠️ Action %s expired or not found.", id)
	}
	if !confirm {
		return "❌ Delete cancelled."
	}
	if d.now().Sub(p.Timestamp) > d.ttl {
		return fmt.Sprintf("⏳ TIMEOUT: Confirmation is too old (> %ds). Nothing was deleted.", int(d.ttl/time.Second))
	}
	if err := d.execute(p); err != nil {
		return errorReply(err)
	}
	log.Printf("INFO: deleted %s", p.Describe())
	return "🗑️ Deleted " + p.Describe() + "."
}

// pruneLocked drops confirmations nobody answered. Caller holds d.mu.
func (d *Dashboard) pruneLocked() {
	for id, p := range d.pending {
		if d.now().Sub(p.Timestamp) > d.ttl {
			delete(d.pending, id)
		}
	}
}
