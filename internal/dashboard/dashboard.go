// Package dashboard turns chat commands into hierarchy operations and renders
// the results.
package dashboard

import (
	"context"
	"sync"
	"time"

	"sector_dashboard/internal/hierarchy"
	"sector_dashboard/internal/market"
	"sector_dashboard/internal/telegram"
)

// DefaultConfirmTTL bounds how long a delete waits for its confirmation.
const DefaultConfirmTTL = 5 * time.Minute

// Prompter sends a message with inline buttons.
type Prompter interface {
	SendInteractiveMessage(ctx context.Context, text string, buttons []telegram.Button) error
}

type CommandDoc struct {
	Name        string
	Description string
	Example     string
}

// Options wires the optional collaborators of a Dashboard.
type Options struct {
	Prompter   Prompter
	Quoter     market.Quoter
	ConfirmTTL time.Duration
}

// Dashboard handles one chat's commands against a store.
type Dashboard struct {
	store    *hierarchy.Store
	prompter Prompter
	quoter   market.Quoter
	ttl      time.Duration
	commands []CommandDoc

	mu      sync.Mutex
	pending map[string]PendingDelete
	nextID  int
	now     func() time.Time
}

// New returns a Dashboard over store.
func New(store *hierarchy.Store, opts Options) *Dashboard {
	ttl := opts.ConfirmTTL
	if ttl <= 0 {
		ttl = DefaultConfirmTTL
	}
	return &Dashboard{
		store:    store,
		prompter: opts.Prompter,
		quoter:   opts.Quoter,
		ttl:      ttl,
		pending:  make(map[string]PendingDelete),
		now:      time.Now,
		commands: []CommandDoc{
			{"/sectors", "Show the whole hierarchy", "/sectors"},
			{"/stocks", "List every stock with its rating", "/stocks"},
			{"/addsector", "Add a sector", "/addsector Technology"},
			{"/addindustry", "Add an industry to a sector", "/addindustry Technology | Software"},
			{"/addsub", "Add a sub-industry to an industry", "/addsub Technology | Software | Cloud"},
			{"/addstock", "Add a stock (sub-industry optional)", "/addstock Technology | Software | Cloud | INFY"},
			{"/rate", "Rate a stock 1-5, 0 clears", "/rate Technology | Software | Cloud | INFY | 4"},
			{"/search", "Find stocks by symbol, name or location", "/search infy"},
			{"/refresh", "Pull latest prices for every stock", "/refresh"},
			{"/delsector", "Delete a sector and everything in it", "/delsector Technology"},
			{"/delindustry", "Delete an industry", "/delindustry Technology | Software"},
			{"/delsub", "Delete a sub-industry", "/delsub Technology | Software | Cloud"},
			{"/delstock", "Delete a stock", "/delstock Technology | Software | Cloud | INFY"},
			{"/help", "This list", "/help"},
		},
	}
}

// Commands returns the documented commands in help order.
func (d *Dashboard) Commands() []CommandDoc {
	return append([]CommandDoc(nil), d.commands...)
}
