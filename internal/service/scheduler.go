// internal/service/scheduler.go
package service

import (
    "context"
    "encoding/json"
    "errors"
    "time"

    "github.com/sirupsen/logrus"

    appErrors "github.com/Etherlyvan/Email-Blaster-2Worker-sub000/internal/errors"
    "github.com/Etherlyvan/Email-Blaster-2Worker-sub000/internal/model"
    "github.com/Etherlyvan/Email-Blaster-2Worker-sub000/internal/queue"
    "github.com/Etherlyvan/Email-Blaster-2Worker-sub000/internal/repository"
)

// Scheduler has two duties: confirm "became due" notifications from the due
// queue, and promote due campaigns into the send pipeline on a timer.
type Scheduler struct {
    Campaigns repository.CampaignRepositoryInterface
    Publisher queue.Publisher

    Interval   time.Duration
    BatchLimit int

    done chan struct{}
}

// Start launches the promotion timer. The timer is single-shot and
// re-arms itself after each tick, so a slow tick cannot pile up.
func (s *Scheduler) Start(ctx context.Context) {
    s.done = make(chan struct{})
    go s.run(ctx)
    logrus.WithField("interval", s.Interval).Info("scheduler timer started")
}

// Stop blocks until the timer loop has exited.
func (s *Scheduler) Stop() {
    if s.done != nil {
        <-s.done
    }
    logrus.Info("scheduler timer stopped")
}

func (s *Scheduler) run(ctx context.Context) {
    defer close(s.done)

    timer := time.NewTimer(s.Interval)
    defer timer.Stop()

    for {
        select {
        case <-ctx.Done():
            return
        case <-timer.C:
            s.Tick()
            timer.Reset(s.Interval)
        }
    }
}

// Tick promotes every due scheduled campaign. A failure on one campaign is
// logged and must not block the others.
func (s *Scheduler) Tick() {
    due, err := s.Campaigns.ListDue(time.Now(), s.BatchLimit)
    if err != nil {
        logrus.WithError(err).Error("failed to list due campaigns")
        return
    }

    for _, campaign := range due {
        log := logrus.WithField("campaign_id", campaign.ID)

        promoted, err := s.Campaigns.PromoteDue(campaign.ID)
        if err != nil {
            log.WithError(err).Error("failed to promote campaign")
            continue
        }
        if !promoted {
            // Another scheduler instance won the race.
            continue
        }

        job := queue.ReadyJob{CampaignID: campaign.ID, FromScheduler: true}
        if err := s.Publisher.Publish(queue.ReadyQueue, job); err != nil {
            log.WithError(err).Error("failed to enqueue promoted campaign")
            continue
        }
        log.Info("campaign promoted to send pipeline")
    }
}

// Run consumes the due queue until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context, q *queue.Client) error {
    return q.Consume(ctx, queue.DueQueue, s.handleMessage)
}

func (s *Scheduler) handleMessage(ctx context.Context, body []byte) error {
    var job queue.DueJob
    if err := json.Unmarshal(body, &job); err != nil {
        logrus.WithError(err).Warn("dropping malformed due job")
        return nil
    }
    if err := job.Validate(); err != nil {
        logrus.WithError(err).Warn("dropping invalid due job")
        return nil
    }
    return s.HandleDue(job)
}

// HandleDue idempotently confirms or repairs a campaign's scheduled state.
// It never performs the send itself; the timer branch owns promotion.
func (s *Scheduler) HandleDue(job queue.DueJob) error {
    log := logrus.WithField("campaign_id", job.CampaignID)

    campaign, err := s.Campaigns.GetByID(job.CampaignID)
    if err != nil {
        var notFound *appErrors.ErrCampaignNotFound
        if errors.As(err, &notFound) {
            log.Warn("due notification for unknown campaign, dropping")
            return nil
        }
        return err
    }

    if campaign.Status != model.CampaignScheduled {
        at := job.ScheduledTime
        if campaign.ScheduledAt != nil {
            at = *campaign.ScheduledAt
        }
        if err := s.Campaigns.MarkScheduled(campaign.ID, at); err != nil {
            return err
        }
        log.WithField("scheduled_at", at).Info("campaign state repaired to scheduled")
        return nil
    }

    if campaign.ScheduledAt == nil {
        if err := s.Campaigns.SetSchedule(campaign.ID, job.ScheduledTime); err != nil {
            return err
        }
        log.WithField("scheduled_at", job.ScheduledTime).Info("campaign schedule backfilled")
    }
    return nil
}
