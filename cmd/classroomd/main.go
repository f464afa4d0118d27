package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"intelliclass/internal/app"
	"intelliclass/internal/config"
	"intelliclass/internal/queue"
	"intelliclass/internal/store"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}
	cmd := os.Args[1]
	cfgPath := os.Getenv("IC_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch cmd {
	case "serve":
		runServe(ctx, cfg)
	case "worker":
		runWorker(ctx, cfg)
	case "migrate":
		runMigrate(ctx, cfg)
	default:
		usage()
	}
}

func runServe(ctx context.Context, cfg config.Config) {
	appInstance, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("app init error: %v", err)
	}
	defer appInstance.Close()

	log.Printf("classroomd serving on %s", cfg.HTTP.Addr)
	if err := appInstance.Serve(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
}

// runWorker fans meeting notifications out to class members.
func runWorker(ctx context.Context, cfg config.Config) {
	storeInstance, err := store.Open(cfg.Database.DSN)
	if err != nil {
		log.Fatalf("store error: %v", err)
	}
	defer storeInstance.Close()

	queueInstance, err := queue.New(cfg.Redis.URL)
	if err != nil {
		log.Fatalf("queue error: %v", err)
	}
	defer queueInstance.Close()

	log.Println("notification worker started")
	for {
		select {
		case <-ctx.Done():
			return
		default:
			job, err := queueInstance.PopNotificationJob(ctx, 5*time.Second)
			if err != nil {
				continue
			}
			members, err := storeInstance.ListClassMemberIDs(ctx, job.ClassID)
			if err != nil {
				log.Printf("worker member lookup failed: %v", err)
				continue
			}
			for _, userID := range members {
				if _, err := storeInstance.CreateNotification(ctx, userID, job.ClassID, job.Message); err != nil {
					log.Printf("worker notification insert failed: %v", err)
				}
			}
			log.Printf("notified %d members of class %s", len(members), job.ClassID)
		}
	}
}

func runMigrate(ctx context.Context, cfg config.Config) {
	storeInstance, err := store.Open(cfg.Database.DSN)
	if err != nil {
		log.Fatalf("store error: %v", err)
	}
	defer storeInstance.Close()
	if err := store.Migrate(ctx, storeInstance.DB()); err != nil {
		log.Fatalf("migration error: %v", err)
	}
	log.Println("migrations applied")
}

func usage() {
	fmt.Println("Usage: classroomd <serve|worker|migrate>")
}
