package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"sector_dashboard/internal/api"
	"sector_dashboard/internal/dashboard"
	"sector_dashboard/internal/telegram"
)

func init() {
	serveCmd.Flags().Bool("with-bot", false, "also run the Telegram bot when it is configured")
	rootCmd.AddCommand(serveCmd, botCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log.Printf("Sector Dashboard %s starting", readVersion())
		cfg.LogSummary()

		archive, err := openArchive(cmd)
		if err != nil {
			return err
		}
		quoter := newQuoter()

		if withBot, _ := cmd.Flags().GetBool("with-bot"); withBot && cfg.Telegram.Enabled() {
			go func() {
				if err := runBot(ctx); err != nil {
					log.Printf("ERROR: telegram bot stopped: %v", err)
				}
			}()
		}

		srv := api.NewServer(cfg.API, store, archive, quoter)
		return srv.ListenAndServe(ctx)
	},
}

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the Telegram bot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log.Printf("Sector Dashboard %s starting", readVersion())
		cfg.LogSummary()
		if !cfg.Telegram.Enabled() {
			return errors.New("telegram is not configured: set TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID")
		}
		err := runBot(ctx)
		log.Println("⚠️ Bot Shutting Down: System signal received.")
		return err
	},
}

// runBot wires the chat dashboard to the Telegram long-poll listener.
func runBot(ctx context.Context) error {
	client := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	if cfg.Telegram.PollTimeoutSec > 0 {
		client.PollTimeout = time.Duration(cfg.Telegram.PollTimeoutSec) * time.Second
	}
	d := dashboard.New(store, dashboard.Options{
		Prompter:   client,
		Quoter:     newQuoter(),
		ConfirmTTL: time.Duration(cfg.Telegram.ConfirmTTLSec) * time.Second,
	})

	if err := client.Notify(ctx, "🚀 *Sector Dashboard online*\nSend /help for commands."); err != nil {
		log.Printf("Warning: startup message failed: %v", err)
	}
	return client.StartListener(ctx, d.HandleCommand, d.HandleCallback)
}
