// cmd/scheduler/main.go
package main

import (
    "context"
    "os/signal"
    "syscall"

    "github.com/joho/godotenv"
    "github.com/sirupsen/logrus"

    "github.com/Etherlyvan/Email-Blaster-2Worker-sub000/internal/config"
    "github.com/Etherlyvan/Email-Blaster-2Worker-sub000/internal/db"
    "github.com/Etherlyvan/Email-Blaster-2Worker-sub000/internal/queue"
    "github.com/Etherlyvan/Email-Blaster-2Worker-sub000/internal/repository"
    "github.com/Etherlyvan/Email-Blaster-2Worker-sub000/internal/service"
)

func main() {
    if err := godotenv.Load(); err != nil {
        logrus.Info("no .env file found, relying on OS environment variables")
    }
    cfg := config.Load()
    if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
        logrus.SetLevel(level)
    }

    conn, err := db.Open(cfg.DatabaseURL)
    if err != nil {
        logrus.WithError(err).Fatal("failed to connect to DB")
    }
    defer conn.Close()

    q, err := queue.Dial(cfg.RabbitURL)
    if err != nil {
        logrus.WithError(err).Fatal("failed to connect to RabbitMQ")
    }
    defer q.Close()

    scheduler := &service.Scheduler{
        Campaigns:  &repository.CampaignRepository{DB: conn},
        Publisher:  q,
        Interval:   cfg.SchedulerInterval,
        BatchLimit: cfg.SchedulerBatch,
    }

    ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
    defer stop()

    scheduler.Start(ctx)
    defer scheduler.Stop()

    logrus.Info("scheduler running, waiting for due notifications...")
    if err := scheduler.Run(ctx, q); err != nil {
        logrus.WithError(err).Fatal("scheduler stopped with error")
    }
    logrus.Info("scheduler stopped")
}
