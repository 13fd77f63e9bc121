package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"sector_dashboard/internal/report"
)

func init() {
	reportSaveCmd.Flags().StringP("file", "f", "-", "report JSON to read (- for stdin)")
	reportSaveCmd.Flags().Bool("today", false, "use today's date when the report has none")
	reportPDFCmd.Flags().StringP("output", "o", "", "PDF path (default <company>_<date>_Equity_Research.pdf)")

	reportCmd.AddCommand(reportNewCmd, reportSaveCmd, reportListCmd, reportShowCmd, reportPDFCmd)
	rootCmd.AddCommand(reportCmd)
}

var reportCmd = &cobra.Command{
	Use:         "report",
	Short:       "Equity research reports",
	Annotations: map[string]string{skipStore: "true"},
}

func openArchive(cmd *cobra.Command) (report.Archive, error) {
	return report.OpenArchive(cmd.Context(), cfg.Reports)
}

var reportNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Print a blank report dated today, ready to fill in",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r := report.New()
		r.Today(time.Now())
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "    ")
		return enc.Encode(r)
	},
}

var reportSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Validate a report and store its snapshot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("file")
		var in io.Reader = os.Stdin
		if path != "-" {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}
		r := report.New()
		if err := json.NewDecoder(in).Decode(r); err != nil {
			return fmt.Errorf("read report: %w", err)
		}
		if today, _ := cmd.Flags().GetBool("today"); today && r.Date == "" {
			r.Today(time.Now())
		}

		archive, err := openArchive(cmd)
		if err != nil {
			return err
		}
		key, err := archive.Save(cmd.Context(), r)
		if err != nil {
			return err
		}
		fmt.Printf("✅ Data saved: %s\n", key)
		return nil
	},
}

var reportListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved reports, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		archive, err := openArchive(cmd)
		if err != nil {
			return err
		}
		keys, err := archive.List(cmd.Context())
		if err != nil {
			return err
		}
		if len(keys) == 0 {
			fmt.Println("No saved reports.")
		}
		for _, k := range keys {
			fmt.Println(k)
		}
		return nil
	},
}

var reportShowCmd = &cobra.Command{
	Use:   "show <key>",
	Short: "Print a saved report as text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		archive, err := openArchive(cmd)
		if err != nil {
			return err
		}
		r, err := archive.Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		for _, sec := range r.Sections() {
			fmt.Println(sec.Title)
			if sec.Body != "" {
				fmt.Println(sec.Body)
			}
			fmt.Println()
		}
		return nil
	},
}

var reportPDFCmd = &cobra.Command{
	Use:   "pdf <key>",
	Short: "Render a saved report to PDF",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		archive, err := openArchive(cmd)
		if err != nil {
			return err
		}
		r, err := archive.Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out, _ := cmd.Flags().GetString("output")
		if out == "" {
			out = r.PDFName()
		}
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		if err := report.RenderPDF(f, r, report.A4); err != nil {
			f.Close()
			os.Remove(out)
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Printf("📄 PDF written: %s\n", out)
		return nil
	},
}
