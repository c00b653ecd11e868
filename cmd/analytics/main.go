// cmd/analytics/main.go
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

    worker := &service.AnalyticsWorker{
        Campaigns:   &repository.CampaignRepository{DB: conn},
        Deliveries:  &repository.DeliveryRepository{DB: conn},
        Credentials: &repository.CredentialRepository{DB: conn},
        Events:      provider.NewClient(cfg.ProviderBaseURL),

        Interval:      cfg.AnalyticsInterval,
        CampaignBatch: cfg.AnalyticsCampaignBatch,
        CampaignDelay: cfg.AnalyticsCampaignDelay,
        DeliveryBatch: cfg.AnalyticsDeliveryBatch,
        RequestDelay:  cfg.AnalyticsRequestDelay,
        MaxAttempts:   cfg.AnalyticsMaxAttempts,
        FallbackReset: cfg.AnalyticsFallbackReset,
    }

    ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
    defer stop()

    worker.Start(ctx)
    <-ctx.Done()
    worker.Stop()
}
