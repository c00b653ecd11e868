// internal/service/analytics.go
package service

import (
    "context"
    "errors"
    "math/rand"
    "time"

    "github.com/sirupsen/logrus"

    "github.com/Etherlyvan/Email-Blaster-2Worker-sub000/internal/model"
    "github.com/Etherlyvan/Email-Blaster-2Worker-sub000/internal/provider"
    "github.com/Etherlyvan/Email-Blaster-2Worker-sub000/internal/repository"
)

const backoffJitter = 500 * time.Millisecond

// AnalyticsWorker re-synchronizes delivery status for recently-sent campaigns
// against the provider's event log.
type AnalyticsWorker struct {
    Campaigns   repository.CampaignRepositoryInterface
    Deliveries  repository.DeliveryRepositoryInterface
    Credentials repository.CredentialRepositoryInterface
    Events      provider.EventFetcher

    Interval      time.Duration
    CampaignBatch int
    CampaignDelay time.Duration
    DeliveryBatch int
    RequestDelay  time.Duration
    MaxAttempts   int
    FallbackReset time.Duration

    // Sleep is swappable in tests; nil means time.Sleep.
    Sleep func(time.Duration)

    done chan struct{}
}

// Start runs one reconciliation immediately, then on every interval.
func (w *AnalyticsWorker) Start(ctx context.Context) {
    w.done = make(chan struct{})
    go w.run(ctx)
    logrus.WithField("interval", w.Interval).Info("analytics worker started")
}

// Stop blocks until the loop has exited.
func (w *AnalyticsWorker) Stop() {
    if w.done != nil {
        <-w.done
    }
    logrus.Info("analytics worker stopped")
}

func (w *AnalyticsWorker) run(ctx context.Context) {
    defer close(w.done)

    w.RunOnce(ctx)

    timer := time.NewTimer(w.Interval)
    defer timer.Stop()

    for {
        select {
        case <-ctx.Done():
            return
        case <-timer.C:
            w.RunOnce(ctx)
            timer.Reset(w.Interval)
        }
    }
}

// RunOnce reconciles one bounded batch of campaigns. Per-campaign failures
// are logged and skipped so one campaign cannot abort the run.
func (w *AnalyticsWorker) RunOnce(ctx context.Context) {
    campaigns, err := w.Campaigns.ListForReconciliation(w.CampaignBatch)
    if err != nil {
        logrus.WithError(err).Error("failed to list campaigns for reconciliation")
        return
    }
    if len(campaigns) == 0 {
        return
    }
    logrus.WithField("campaigns", len(campaigns)).Info("reconciling delivery status")

    for i, campaign := range campaigns {
        if ctx.Err() != nil {
            return
        }
        if i > 0 {
            w.sleep(ctx, w.CampaignDelay)
        }
        if err := w.reconcileCampaign(ctx, campaign); err != nil {
            logrus.WithField("campaign_id", campaign.ID).WithError(err).Error("reconciliation failed")
        }
    }
}

func (w *AnalyticsWorker) reconcileCampaign(ctx context.Context, campaign *model.Campaign) error {
    log := logrus.WithField("campaign_id", campaign.ID)

    if campaign.CredentialID == nil {
        log.Warn("campaign has no credential, skipping reconciliation")
        return nil
    }
    cred, err := w.Credentials.GetByID(*campaign.CredentialID)
    if err != nil {
        return err
    }
    if !cred.Usable() {
        log.Warn("campaign credential unusable, skipping reconciliation")
        return nil
    }

    afterID := 0
    for {
        batch, err := w.Deliveries.ListReconcilable(campaign.ID, afterID, w.DeliveryBatch)
        if err != nil {
            return err
        }
        if len(batch) == 0 {
            break
        }

        for i, delivery := range batch {
            if ctx.Err() != nil {
                return ctx.Err()
            }
            if i > 0 {
                w.sleep(ctx, w.RequestDelay)
            }
            events, ok := w.fetchWithBackoff(ctx, *cred, delivery.ProviderMessageID)
            if !ok {
                continue // soft failure, never aborts the batch
            }
            if err := w.applyEvents(delivery, events); err != nil {
                log.WithField("delivery_id", delivery.ID).WithError(err).Error("failed to update delivery")
            }
        }

        afterID = batch[len(batch)-1].ID
        if len(batch) < w.DeliveryBatch {
            break
        }
    }

    counts, err := w.Deliveries.CountByStatus(campaign.ID)
    if err != nil {
        return err
    }
    fields := logrus.Fields{"campaign_id": campaign.ID}
    for status, count := range counts {
        fields[status] = count
    }
    logrus.WithFields(fields).Info("campaign delivery status counts")
    return nil
}

// fetchWithBackoff retries rate-limited event fetches a bounded number of
// times, sleeping for the provider's reset hint plus jitter. Exhausting the
// attempts (or any other fetch error) is a soft failure for this one message.
func (w *AnalyticsWorker) fetchWithBackoff(ctx context.Context, cred model.Credential, messageID string) ([]provider.Event, bool) {
    for attempt := 1; attempt <= w.MaxAttempts; attempt++ {
        if ctx.Err() != nil {
            return nil, false
        }
        events, err := w.Events.FetchEvents(ctx, cred, messageID)
        if err == nil {
            return events, true
        }

        var rateLimited *provider.RateLimitError
        if !errors.As(err, &rateLimited) {
            logrus.WithField("provider_message_id", messageID).WithError(err).Warn("event fetch failed, skipping message")
            return nil, false
        }

        wait := rateLimited.RetryAfter
        if wait <= 0 {
            wait = w.FallbackReset
        }
        wait += time.Duration(rand.Int63n(int64(backoffJitter)))
        logrus.WithFields(logrus.Fields{
            "provider_message_id": messageID,
            "attempt":             attempt,
            "wait":                wait,
        }).Info("provider rate limited, backing off")
        w.sleep(ctx, wait)
    }
    logrus.WithField("provider_message_id", messageID).Warn("rate limit retries exhausted, skipping message")
    return nil, false
}

// applyEvents derives the new status from the event set and writes it only if
// something actually changed. Status never regresses and timestamps are
// set once.
func (w *AnalyticsWorker) applyEvents(delivery *model.Delivery, events []provider.Event) error {
    var derived model.DeliveryStatus
    var openedAt, clickedAt *time.Time

    for i := range events {
        event := events[i]
        switch event.Event {
        case provider.EventClicked:
            if clickedAt == nil {
                t := event.Date
                clickedAt = &t
            }
        case provider.EventOpened:
            if openedAt == nil {
                t := event.Date
                openedAt = &t
            }
        }
    }

    // Derivation priority: clicked > opened > bounced > delivered.
    switch {
    case hasEvent(events, provider.EventClicked):
        derived = model.DeliveryClicked
    case hasEvent(events, provider.EventOpened):
        derived = model.DeliveryOpened
    case hasEvent(events, provider.EventBounced):
        derived = model.DeliveryBounced
    case hasEvent(events, provider.EventDelivered):
        derived = model.DeliveryDelivered
    default:
        return nil
    }

    changed := false
    if derived.Rank() > delivery.Status.Rank() {
        delivery.Status = derived
        changed = true
    }
    if delivery.OpenedAt == nil && openedAt != nil {
        delivery.OpenedAt = openedAt
        changed = true
    }
    if delivery.ClickedAt == nil && clickedAt != nil {
        delivery.ClickedAt = clickedAt
        changed = true
    }
    if !changed {
        return nil
    }
    return w.Deliveries.UpdateEngagement(delivery.ID, delivery.Status, delivery.OpenedAt, delivery.ClickedAt)
}

// sleep waits for d or until ctx is cancelled, so shutdown never stalls on a
// backoff or batch delay.
func (w *AnalyticsWorker) sleep(ctx context.Context, d time.Duration) {
    if w.Sleep != nil {
        w.Sleep(d)
        return
    }
    timer := time.NewTimer(d)
    defer timer.Stop()
    select {
    case <-ctx.Done():
    case <-timer.C:
    }
}

func hasEvent(events []provider.Event, kind string) bool {
    for _, e := range events {
        if e.Event == kind {
            return true
        }
    }
    return false
}
