package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"sector_dashboard/internal/dashboard"
	"sector_dashboard/internal/market"
	"sector_dashboard/internal/models"
	"sector_dashboard/internal/search"
)

func init() {
	sectorCmd.AddCommand(sectorAddCmd, sectorDeleteCmd)
	industryCmd.AddCommand(industryAddCmd, industryDeleteCmd)
	subIndustryCmd.AddCommand(subIndustryAddCmd, subIndustryDeleteCmd)
	stockCmd.AddCommand(stockAddCmd, stockDeleteCmd, stockRateCmd, stockAnnotateCmd, stockShowCmd)
	quotesCmd.AddCommand(quotesRefreshCmd)

	for _, c := range []*cobra.Command{stockAddCmd, stockDeleteCmd, stockRateCmd, stockAnnotateCmd, stockShowCmd} {
		c.Flags().String("sub", "", "sub-industry holding the stock (omit for stocks held by the industry)")
	}
	for _, c := range []*cobra.Command{sectorDeleteCmd, industryDeleteCmd, subIndustryDeleteCmd, stockDeleteCmd} {
		c.Flags().BoolP("yes", "y", false, "delete without asking")
	}
	stockAnnotateCmd.Flags().String("name", "", "display name")
	stockAnnotateCmd.Flags().String("price", "", "last price")
	stockAnnotateCmd.Flags().String("change", "", "percent change, e.g. -1.25")
	showCmd.Flags().Int("width", 120, "terminal width")
	showCmd.Flags().Bool("markdown", false, "print the chat rendering instead of cards")
	searchCmd.Flags().Int("limit", search.DefaultLimit, "maximum results")

	rootCmd.AddCommand(sectorCmd, industryCmd, subIndustryCmd, stockCmd, showCmd, stocksCmd, searchCmd, quotesCmd)
}

// --- Sector / Industry / Sub-industry ---

var sectorCmd = &cobra.Command{Use: "sector", Short: "Manage sectors"}

var sectorAddCmd = &cobra.Command{
	Use:   "add <sector>",
	Short: "Add a sector",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := store.AddSector(args[0]); err != nil {
			return err
		}
		fmt.Printf("✅ Sector %s added\n", args[0])
		return nil
	},
}

var sectorDeleteCmd = &cobra.Command{
	Use:   "delete <sector>",
	Short: "Delete a sector and everything in it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !confirm(cmd, "Delete sector %s and everything in it?", args[0]) {
			return nil
		}
		if err := store.DeleteSector(args[0]); err != nil {
			return err
		}
		fmt.Printf("🗑️ Sector %s deleted\n", args[0])
		return nil
	},
}

var industryCmd = &cobra.Command{Use: "industry", Short: "Manage industries"}

var industryAddCmd = &cobra.Command{
	Use:   "add <sector> <industry>",
	Short: "Add an industry to a sector",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := store.AddIndustry(args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("✅ Industry %s added to %s\n", args[1], args[0])
		return nil
	},
}

var industryDeleteCmd = &cobra.Command{
	Use:   "delete <sector> <industry>",
	Short: "Delete an industry",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !confirm(cmd, "Delete industry %s from %s?", args[1], args[0]) {
			return nil
		}
		if err := store.DeleteIndustry(args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("🗑️ Industry %s deleted\n", args[1])
		return nil
	},
}

var subIndustryCmd = &cobra.Command{Use: "subindustry", Aliases: []string{"sub"}, Short: "Manage sub-industries"}

var subIndustryAddCmd = &cobra.Command{
	Use:   "add <sector> <industry> <sub-industry>",
	Short: "Add a sub-industry to an industry",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := store.AddSubIndustry(args[0], args[1], args[2]); err != nil {
			return err
		}
		fmt.Printf("✅ Sub-industry %s added to %s › %s\n", args[2], args[0], args[1])
		return nil
	},
}

var subIndustryDeleteCmd = &cobra.Command{
	Use:   "delete <sector> <industry> <sub-industry>",
	Short: "Delete a sub-industry",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !confirm(cmd, "Delete sub-industry %s from %s › %s?", args[2], args[0], args[1]) {
			return nil
		}
		if err := store.DeleteSubIndustry(args[0], args[1], args[2]); err != nil {
			return err
		}
		fmt.Printf("🗑️ Sub-industry %s deleted\n", args[2])
		return nil
	},
}

// --- Stocks ---

var stockCmd = &cobra.Command{Use: "stock", Short: "Manage stocks"}

// stockPath reads "<sector> <industry> <symbol>" plus the --sub flag.
func stockPath(cmd *cobra.Command, args []string) (models.ListPath, string) {
	sub, _ := cmd.Flags().GetString("sub")
	return models.ListPath{Sector: args[0], Industry: args[1], SubIndustry: sub}, strings.ToUpper(strings.TrimSpace(args[2]))
}

func location(p models.ListPath) string {
	return dashboard.Location(models.StockRef{Sector: p.Sector, Industry: p.Industry, SubIndustry: p.SubIndustry})
}

var stockAddCmd = &cobra.Command{
	Use:   "add <sector> <industry> <symbol>",
	Short: "Add a stock",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, symbol := stockPath(cmd, args)
		if err := store.AddStock(p, symbol); err != nil {
			return err
		}
		fmt.Printf("✅ %s added to %s\n", symbol, location(p))
		return nil
	},
}

var stockDeleteCmd = &cobra.Command{
	Use:   "delete <sector> <industry> <symbol>",
	Short: "Delete a stock",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, symbol := stockPath(cmd, args)
		if !confirm(cmd, "Delete %s from %s?", symbol, location(p)) {
			return nil
		}
		if err := store.DeleteStock(p, symbol); err != nil {
			return err
		}
		fmt.Printf("🗑️ %s deleted\n", symbol)
		return nil
	},
}

var stockRateCmd = &cobra.Command{
	Use:   "rate <sector> <industry> <symbol> <0-5>",
	Short: "Rate a stock; 0 clears the rating",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		rating, err := strconv.Atoi(args[3])
		if err != nil {
			return fmt.Errorf("%w: rating %q is not a number", models.ErrInvalidArgument, args[3])
		}
		p, symbol := stockPath(cmd, args)
		if err := store.RateStock(p, symbol, rating); err != nil {
			return err
		}
		fmt.Printf("✅ %s rated %s\n", symbol, dashboard.Stars(rating))
		return nil
	},
}

var stockAnnotateCmd = &cobra.Command{
	Use:   "annotate <sector> <industry> <symbol>",
	Short: "Set display name, price and change; omitted values are cleared",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, symbol := stockPath(cmd, args)
		name, _ := cmd.Flags().GetString("name")
		var a models.Annotation
		a.Name = name
		for flag, dst := range map[string]**decimal.Decimal{"price": &a.Price, "change": &a.Change} {
			v, _ := cmd.Flags().GetString(flag)
			if v == "" {
				continue
			}
			d, err := decimal.NewFromString(v)
			if err != nil {
				return fmt.Errorf("%w: %s %q is not a number", models.ErrInvalidArgument, flag, v)
			}
			*dst = &d
		}
		if err := store.AnnotateStock(p, symbol, a); err != nil {
			return err
		}
		st, err := store.Lookup(p, symbol)
		if err != nil {
			return err
		}
		fmt.Println(dashboard.FormatStock(st))
		return nil
	},
}

var stockShowCmd = &cobra.Command{
	Use:   "show <sector> <industry> <symbol>",
	Short: "Print one stock",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, symbol := stockPath(cmd, args)
		st, err := store.Lookup(p, symbol)
		if err != nil {
			return err
		}
		fmt.Printf("%s\n  %s\n", dashboard.FormatStock(st), location(p))
		return nil
	},
}

// --- Views ---

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Render the whole hierarchy",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		h := store.Snapshot()
		if md, _ := cmd.Flags().GetBool("markdown"); md {
			fmt.Println(dashboard.RenderMarkdown(h))
			return nil
		}
		width, _ := cmd.Flags().GetInt("width")
		fmt.Println(dashboard.RenderTerminal(h, width))
		return nil
	},
}

var stocksCmd = &cobra.Command{
	Use:   "stocks",
	Short: "List every stock with its location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		h := store.Snapshot()
		n := 0
		for ref := range h.Flatten() {
			n++
			st := models.Bare(ref.Symbol)
			list := h.Stocks(ref.Path())
			if i := list.Index(ref.Symbol); i >= 0 {
				st = list[i]
			}
			fmt.Printf("%3d. %-40s %s\n", n, dashboard.FormatStock(st), dashboard.Location(ref))
		}
		if n == 0 {
			fmt.Println("No stocks yet.")
		}
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find stocks by symbol, name, sector or industry",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		hits, err := search.Hierarchy(store.Snapshot(), strings.Join(args, " "), limit)
		if err != nil {
			return err
		}
		if len(hits) == 0 {
			fmt.Println("No matches.")
			return nil
		}
		for _, h := range hits {
			label := h.Ref.Symbol
			if h.Name != "" {
				label += " - " + h.Name
			}
			fmt.Printf("%-40s %s\n", label, dashboard.Location(h.Ref))
		}
		return nil
	},
}

// --- Quotes ---

var quotesCmd = &cobra.Command{Use: "quotes", Short: "Market data"}

var quotesRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Pull the latest price, change and name for every stock",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		q := newQuoter()
		if q == nil {
			return fmt.Errorf("quotes are disabled: set APCA_API_KEY_ID and APCA_API_SECRET_KEY or market.enabled")
		}
		sum, err := market.Refresh(cmd.Context(), store, q)
		fmt.Println(sum.String())
		return err
	},
}

// confirm asks on stdin unless --yes was given.
func confirm(cmd *cobra.Command, format string, args ...any) bool {
	if yes, _ := cmd.Flags().GetBool("yes"); yes {
		return true
	}
	fmt.Printf(format+" [y/N] ", args...)
	answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	fmt.Println("Cancelled.")
	return false
}
