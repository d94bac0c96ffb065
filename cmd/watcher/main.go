/**
 * @description
 * This is the main entry point for the watcher-service. It is responsible
 * for initializing all components — configuration, the transfer source
 * adapter, the order store client, the file ledger, and the core service —
 * wiring them together, and executing one reconciliation run. When a
 * WATCH_SCHEDULE cron expression is configured the process instead stays up
 * and fires sequential runs on that schedule.
 *
 * @dependencies
 * - github.com/joho/godotenv: Loads a local .env file during development.
 * - internal/app, internal/config, internal/store: Internal packages.
 * - pkg/tronscan, pkg/orderstore: Clients for the external collaborators.
 */

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/paywatch/watcher-service/internal/app"
	"github.com/paywatch/watcher-service/internal/config"
	"github.com/paywatch/watcher-service/internal/store"
	"github.com/paywatch/watcher-service/pkg/orderstore"
	"github.com/paywatch/watcher-service/pkg/tronscan"
)

func main() {
	// Best effort: a missing .env just means pure environment configuration.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"invalid configuration\" err=%v", err)
	}

	log.Printf("level=info component=bootstrap msg=\"starting watcher-service\" wallet=%s contract=%s monthly=%s quarterly=%s eps=%s",
		cfg.WalletAddress, cfg.USDTContract, cfg.Monthly, cfg.Quarterly, cfg.Epsilon)

	ledger, err := store.NewFileLedger(cfg.LedgerPath)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"ledger init failed\" path=%s err=%v", cfg.LedgerPath, err)
	}

	source := tronscan.NewClient(cfg.TronscanPrimaryURL, cfg.TronscanFallback, cfg.HTTPTimeout())
	orders := orderstore.NewClient(cfg.OrderStoreURL, cfg.OrderStoreToken, cfg.HTTPTimeout())

	service := app.NewService(source, orders, ledger, cfg.PlanTable(), cfg.WalletAddress, cfg.USDTContract)

	if cfg.WatchSchedule != "" {
		runScheduled(service, cfg.WatchSchedule)
		return
	}

	summary, err := service.Run(context.Background())
	if err != nil {
		log.Printf("level=error component=bootstrap msg=\"run failed\" err=%v", err)
		os.Exit(1)
	}
	log.Printf("level=info component=bootstrap msg=\"run complete\" fetched=%d already_seen=%d filtered=%d missing_memo=%d unmatched=%d mismatched=%d issued=%d failed=%d",
		summary.Fetched, summary.AlreadySeen, summary.FilteredOut, summary.MissingMemo,
		summary.Unmatched, summary.AmountMismatch, summary.Issued, summary.IssuanceFailed)
}

// runScheduled blocks running the watcher on the configured cron schedule
// until SIGINT/SIGTERM.
func runScheduled(service *app.Service, schedule string) {
	scheduler := app.NewScheduler(service, schedule)
	if err := scheduler.Start(); err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"invalid WATCH_SCHEDULE\" schedule=%q err=%v", schedule, err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("level=info component=bootstrap msg=\"shutdown started\"")
	<-scheduler.Stop().Done()
	log.Println("level=info component=bootstrap msg=\"shutdown complete\"")
}
