// internal/service/email_worker.go
package service

import (
    "context"
    "encoding/json"
    "errors"
    "time"

    "github.com/sirupsen/logrus"

    appErrors "github.com/Etherlyvan/Email-Blaster-2Worker-sub000/internal/errors"
    "github.com/Etherlyvan/Email-Blaster-2Worker-sub000/internal/model"
    "github.com/Etherlyvan/Email-Blaster-2Worker-sub000/internal/provider"
    "github.com/Etherlyvan/Email-Blaster-2Worker-sub000/internal/queue"
    "github.com/Etherlyvan/Email-Blaster-2Worker-sub000/internal/repository"
    "github.com/Etherlyvan/Email-Blaster-2Worker-sub000/internal/template"
)

// EmailWorker drains ready-to-send campaign jobs: it expands a campaign into
// per-contact deliveries, sends each one, and finalizes the campaign status.
type EmailWorker struct {
    Campaigns   repository.CampaignRepositoryInterface
    Contacts    repository.ContactRepositoryInterface
    Deliveries  repository.DeliveryRepositoryInterface
    Credentials repository.CredentialRepositoryInterface
    Sender      provider.Sender

    // Campaigns larger than ThrottleThreshold get ThrottleDelay between sends.
    ThrottleThreshold int
    ThrottleDelay     time.Duration

    // Sleep is swappable in tests; nil means time.Sleep.
    Sleep func(time.Duration)
}

// Run consumes the ready queue until ctx is cancelled.
func (w *EmailWorker) Run(ctx context.Context, q *queue.Client) error {
    return q.Consume(ctx, queue.ReadyQueue, w.handleMessage)
}

func (w *EmailWorker) handleMessage(ctx context.Context, body []byte) error {
    var job queue.ReadyJob
    if err := json.Unmarshal(body, &job); err != nil {
        logrus.WithError(err).Warn("dropping malformed ready job")
        return nil
    }
    if err := job.Validate(); err != nil {
        logrus.WithError(err).Warn("dropping invalid ready job")
        return nil
    }
    return w.Process(ctx, job)
}

// Process handles one ready job. A nil return acknowledges the job; an error
// requeues it for another attempt.
func (w *EmailWorker) Process(ctx context.Context, job queue.ReadyJob) error {
    log := logrus.WithFields(logrus.Fields{
        "campaign_id":    job.CampaignID,
        "from_scheduler": job.FromScheduler,
    })

    campaign, err := w.Campaigns.GetByID(job.CampaignID)
    if err != nil {
        var notFound *appErrors.ErrCampaignNotFound
        if errors.As(err, &notFound) {
            log.Warn("campaign not found, dropping job")
            return nil
        }
        return err
    }

    // The scheduler owns future sends; a job that reached the ready queue
    // ahead of its time is dropped without side effects.
    if campaign.Status == model.CampaignScheduled &&
        campaign.ScheduledAt != nil && campaign.ScheduledAt.After(time.Now()) {
        log.WithField("scheduled_at", campaign.ScheduledAt).Info("campaign still scheduled for the future, skipping")
        return nil
    }

    cred, err := w.credential(campaign)
    if err != nil {
        return err
    }
    if !cred.Usable() {
        log.Warn("campaign has no usable provider credential, marking failed")
        if err := w.Campaigns.UpdateStatus(campaign.ID, model.CampaignFailed); err != nil {
            return err
        }
        return nil
    }

    contacts, err := w.Contacts.ListByGroup(campaign.GroupID)
    if err != nil {
        return err
    }
    if len(contacts) == 0 {
        log.Info("campaign group has no contacts, marking sent")
        if err := w.Campaigns.UpdateStatus(campaign.ID, model.CampaignSent); err != nil {
            return err
        }
        return nil
    }

    if campaign.Status != model.CampaignSending {
        if err := w.Campaigns.UpdateStatus(campaign.ID, model.CampaignSending); err != nil {
            return err
        }
    }

    contactIDs := make([]int, len(contacts))
    for i, c := range contacts {
        contactIDs[i] = c.ID
    }
    if err := w.Deliveries.ResetPending(campaign.ID, contactIDs); err != nil {
        return err
    }

    failed := 0
    for i, contact := range contacts {
        // Shutdown mid-campaign must not fabricate per-contact failures:
        // returning the error leaves the job unacked so it is redelivered.
        if err := ctx.Err(); err != nil {
            log.Info("shutdown requested mid-campaign, leaving job for redelivery")
            return err
        }
        if i > 0 && len(contacts) > w.ThrottleThreshold {
            w.sleep(w.ThrottleDelay)
        }
        sent, err := w.sendOne(ctx, campaign, *cred, contact)
        if err != nil {
            return err
        }
        if !sent {
            failed++
        }
    }

    final := model.CampaignSent
    if failed == len(contacts) {
        final = model.CampaignFailed
    }
    if err := w.Campaigns.UpdateStatus(campaign.ID, final); err != nil {
        return err
    }

    log.WithFields(logrus.Fields{
        "contacts": len(contacts),
        "failed":   failed,
        "status":   final,
    }).Info("campaign processed")
    return nil
}

// sendOne renders and delivers one contact's message and records the outcome.
// A transport failure never aborts the campaign loop; a cancelled context is
// not a delivery failure and is returned so the whole job gets redelivered.
func (w *EmailWorker) sendOne(ctx context.Context, campaign *model.Campaign, cred model.Credential, contact model.Contact) (bool, error) {
    subject := template.Render(campaign.Subject, contact)
    body := template.Render(campaign.Body, contact)

    messageID, err := w.Sender.SendEmail(ctx, cred, provider.SendRequest{
        SenderName:  campaign.SenderName,
        SenderEmail: campaign.SenderEmail,
        To:          contact.Email,
        Subject:     subject,
        HTMLBody:    body,
    })
    if err != nil {
        if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
            return false, err
        }
        logrus.WithFields(logrus.Fields{
            "campaign_id": campaign.ID,
            "contact_id":  contact.ID,
        }).WithError(err).Warn("send failed")
        if uerr := w.Deliveries.MarkFailed(campaign.ID, contact.ID, err.Error()); uerr != nil {
            logrus.WithError(uerr).Error("failed to record delivery failure")
        }
        return false, nil
    }

    if uerr := w.Deliveries.MarkSent(campaign.ID, contact.ID, messageID, time.Now()); uerr != nil {
        logrus.WithError(uerr).Error("failed to record delivery success")
    }
    return true, nil
}

func (w *EmailWorker) sleep(d time.Duration) {
    if w.Sleep != nil {
        w.Sleep(d)
        return
    }
    time.Sleep(d)
}

func (w *EmailWorker) credential(campaign *model.Campaign) (*model.Credential, error) {
    if campaign.CredentialID == nil {
        return nil, nil
    }
    return w.Credentials.GetByID(*campaign.CredentialID)
}
