// cmd/worker/main.go
package main

import (
    "context"
    "os/signal"
    "syscall"

    "github.com/joho/godotenv"
    "github.com/sirupsen/logrus"

    "github.com/Etherlyvan/Email-Blaster-2Worker-sub000/internal/config"
    "github.com/Etherlyvan/Email-Blaster-2Worker-sub000/internal/db"
    "github.com/Etherlyvan/Email-Blaster-2Worker-sub000/internal/provider"
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
    logrus.Info("connected to database")

    q, err := queue.Dial(cfg.RabbitURL)
    if err != nil {
        logrus.WithError(err).Fatal("failed to connect to RabbitMQ")
    }
    defer q.Close()

    worker := &service.EmailWorker{
        Campaigns:   &repository.CampaignRepository{DB: conn},
        Contacts:    &repository.ContactRepository{DB: conn},
        Deliveries:  &repository.DeliveryRepository{DB: conn},
        Credentials: &repository.CredentialRepository{DB: conn},
        Sender:      provider.NewClient(cfg.ProviderBaseURL),

        ThrottleThreshold: cfg.ThrottleThreshold,
        ThrottleDelay:     cfg.ThrottleDelay,
    }

    ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
    defer stop()

    logrus.Info("email worker running, waiting for jobs...")
    if err := worker.Run(ctx, q); err != nil {
        logrus.WithError(err).Fatal("email worker stopped with error")
    }
    logrus.Info("email worker stopped")
}
