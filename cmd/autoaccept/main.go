// Command main accepts every pending connection request addressed to a
// seeded account. It is safe to re-run.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"fittedin/internal/bootstrap"
	"fittedin/internal/config"
	"fittedin/internal/notifications"
	"fittedin/internal/repository"
	"fittedin/internal/service"
)

func main() {
	timeout := flag.Duration("timeout", 5*time.Minute, "Abort the sweep after this long")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, rdb, err := bootstrap.InitRuntime(cfg, bootstrap.Options{})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}

	policy := service.NewConnectionPolicy(cfg)
	if !policy.AutoAcceptEnabled {
		log.Println("AUTO_ACCEPT_ENABLED is false; nothing to do")
		return
	}

	// Running servers relay these events to open sessions through Redis.
	publisher := notifications.NewPublisher(nil, notifications.NewNotifier(rdb))

	activities := service.NewActivityService(repository.NewActivityRepository(db), repository.NewConnectionRepository(db))
	notifier := service.NewNotificationService(repository.NewNotificationRepository(db), publisher)
	connections := service.NewConnectionService(
		repository.NewConnectionRepository(db),
		repository.NewUserRepository(db),
		notifier, activities, publisher,
		policy,
	)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	res, err := connections.ProcessPendingForSeededAccounts(ctx)
	if err != nil {
		log.Fatalf("Sweep failed: %v", err)
	}
	log.Printf("Processed %d pending requests, auto-accepted %d", res.TotalPending, res.AutoAccepted)
}
