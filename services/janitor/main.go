package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helpdesk/internal/blobstore"
	"github.com/helpdesk/internal/config"
	"github.com/helpdesk/internal/logger"
	"github.com/helpdesk/internal/repository"
	"github.com/helpdesk/internal/service"
	"github.com/helpdesk/internal/startup"
)

// The janitor sweeps sessions that reached closed but whose delete cascade
// never completed (crash between status flip and cascade, failed blob
// cleanup). Run it from cron; -dry-run only reports.
func main() {
	logger.SetPrefix("janitor")
	cfg := config.Load()

	days := flag.Int("days", cfg.CleanupAfterDays, "delete closed chats older than this many days")
	dryRun := flag.Bool("dry-run", false, "report what would be deleted without deleting")
	flag.Parse()

	if *days < 0 {
		logger.Error("-days must be >= 0")
		os.Exit(2)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL())
	if err != nil {
		logger.Errorf("parse db config: %v", err)
		os.Exit(1)
	}
	pool := startup.ConnectDBWithRetry(poolCfg, 30*time.Second, "")
	defer pool.Close()

	chatRepo := repository.NewChatRepository(pool)
	msgRepo := repository.NewMessageRepository(pool)
	schedRepo := repository.NewScheduleRepository(pool)
	blobs := blobstore.New(cfg.UploadDir)

	schedSvc := service.NewScheduleService(schedRepo, cfg.Location())
	chatSvc := service.NewChatService(chatRepo, msgRepo, blobs, schedSvc, nil, cfg.Attachment)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	ids, err := chatSvc.CleanupClosed(ctx, *days, *dryRun)
	if err != nil {
		logger.Errorf("cleanup: %v", err)
		os.Exit(1)
	}
	if *dryRun {
		logger.Infof("dry run: %d closed chat(s) older than %d day(s) would be deleted", len(ids), *days)
	} else {
		logger.Infof("deleted %d closed chat(s) older than %d day(s)", len(ids), *days)
	}
	for _, id := range ids {
		logger.Infof("  %s", id)
	}
}
