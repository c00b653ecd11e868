package service

import (
    "context"
    "fmt"
    "sync"
    "time"

    appErrors "github.com/Etherlyvan/Email-Blaster-2Worker-sub000/internal/errors"
    "github.com/Etherlyvan/Email-Blaster-2Worker-sub000/internal/model"
    "github.com/Etherlyvan/Email-Blaster-2Worker-sub000/internal/provider"
)

// Mock repositories, in-memory like the real thing but without SQL.

type mockCampaignRepo struct {
    mu        sync.Mutex
    campaigns map[int]*model.Campaign
}

func newMockCampaignRepo(campaigns ...*model.Campaign) *mockCampaignRepo {
    m := &mockCampaignRepo{campaigns: map[int]*model.Campaign{}}
    for _, c := range campaigns {
        m.campaigns[c.ID] = c
    }
    return m
}

func (m *mockCampaignRepo) GetByID(id int) (*model.Campaign, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    c, ok := m.campaigns[id]
    if !ok {
        return nil, appErrors.NewCampaignNotFound(id)
    }
    copied := *c
    return &copied, nil
}

func (m *mockCampaignRepo) UpdateStatus(campaignID int, status model.CampaignStatus) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    if c, ok := m.campaigns[campaignID]; ok {
        c.Status = status
    }
    return nil
}

func (m *mockCampaignRepo) MarkScheduled(campaignID int, scheduledAt time.Time) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    if c, ok := m.campaigns[campaignID]; ok {
        c.Status = model.CampaignScheduled
        at := scheduledAt
        c.ScheduledAt = &at
    }
    return nil
}

func (m *mockCampaignRepo) SetSchedule(campaignID int, scheduledAt time.Time) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    if c, ok := m.campaigns[campaignID]; ok {
        at := scheduledAt
        c.ScheduledAt = &at
    }
    return nil
}

func (m *mockCampaignRepo) PromoteDue(campaignID int) (bool, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    c, ok := m.campaigns[campaignID]
    if !ok || c.Status != model.CampaignScheduled {
        return false, nil
    }
    c.Status = model.CampaignSending
    return true, nil
}

func (m *mockCampaignRepo) ListDue(now time.Time, limit int) ([]*model.Campaign, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    due := []*model.Campaign{}
    for _, c := range m.campaigns {
        if len(due) >= limit {
            break
        }
        if c.Status == model.CampaignScheduled && c.ScheduledAt != nil && !c.ScheduledAt.After(now) {
            copied := *c
            due = append(due, &copied)
        }
    }
    return due, nil
}

func (m *mockCampaignRepo) ListForReconciliation(limit int) ([]*model.Campaign, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    out := []*model.Campaign{}
    for _, c := range m.campaigns {
        if len(out) >= limit {
            break
        }
        if c.Status == model.CampaignSent || c.Status == model.CampaignSending {
            copied := *c
            out = append(out, &copied)
        }
    }
    return out, nil
}

func (m *mockCampaignRepo) status(id int) model.CampaignStatus {
    m.mu.Lock()
    defer m.mu.Unlock()
    return m.campaigns[id].Status
}

type mockContactRepo struct {
    contacts []model.Contact
}

func (m *mockContactRepo) ListByGroup(groupID int) ([]model.Contact, error) {
    out := []model.Contact{}
    for _, c := range m.contacts {
        if c.GroupID == groupID {
            out = append(out, c)
        }
    }
    return out, nil
}

type mockCredentialRepo struct {
    creds map[int]*model.Credential
}

func (m *mockCredentialRepo) GetByID(id int) (*model.Credential, error) {
    return m.creds[id], nil
}

type mockDeliveryRepo struct {
    mu                sync.Mutex
    rows              []*model.Delivery
    nextID            int
    engagementUpdates int
}

func (m *mockDeliveryRepo) find(campaignID, contactID int) *model.Delivery {
    for _, d := range m.rows {
        if d.CampaignID == campaignID && d.ContactID == contactID {
            return d
        }
    }
    return nil
}

func (m *mockDeliveryRepo) ResetPending(campaignID int, contactIDs []int) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    for _, contactID := range contactIDs {
        if d := m.find(campaignID, contactID); d != nil {
            d.Status = model.DeliveryPending
            d.ProviderMessageID = ""
            d.SentAt = nil
            d.ErrorMessage = ""
            continue
        }
        m.nextID++
        m.rows = append(m.rows, &model.Delivery{
            ID:         m.nextID,
            CampaignID: campaignID,
            ContactID:  contactID,
            Status:     model.DeliveryPending,
        })
    }
    return nil
}

func (m *mockDeliveryRepo) MarkSent(campaignID, contactID int, providerMessageID string, sentAt time.Time) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    d := m.find(campaignID, contactID)
    if d == nil {
        return fmt.Errorf("no delivery for campaign %d contact %d", campaignID, contactID)
    }
    d.Status = model.DeliverySent
    d.ProviderMessageID = providerMessageID
    at := sentAt
    d.SentAt = &at
    d.ErrorMessage = ""
    return nil
}

func (m *mockDeliveryRepo) MarkFailed(campaignID, contactID int, errorMessage string) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    d := m.find(campaignID, contactID)
    if d == nil {
        return fmt.Errorf("no delivery for campaign %d contact %d", campaignID, contactID)
    }
    d.Status = model.DeliveryFailed
    d.ErrorMessage = errorMessage
    return nil
}

func (m *mockDeliveryRepo) ListReconcilable(campaignID, afterID, limit int) ([]*model.Delivery, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    out := []*model.Delivery{}
    for _, d := range m.rows {
        if len(out) >= limit {
            break
        }
        if d.CampaignID != campaignID || d.ID <= afterID {
            continue
        }
        if d.ProviderMessageID == "" || d.Status.Terminal() {
            continue
        }
        copied := *d
        out = append(out, &copied)
    }
    return out, nil
}

func (m *mockDeliveryRepo) UpdateEngagement(id int, status model.DeliveryStatus, openedAt, clickedAt *time.Time) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    for _, d := range m.rows {
        if d.ID == id {
            d.Status = status
            d.OpenedAt = openedAt
            d.ClickedAt = clickedAt
            m.engagementUpdates++
            return nil
        }
    }
    return fmt.Errorf("no delivery %d", id)
}

func (m *mockDeliveryRepo) CountByStatus(campaignID int) (map[string]int, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    counts := map[string]int{}
    for _, d := range m.rows {
        if d.CampaignID == campaignID {
            counts[string(d.Status)]++
        }
    }
    return counts, nil
}

// mockSender succeeds unless the recipient is listed in failFor.
type mockSender struct {
    mu      sync.Mutex
    failFor map[string]error
    sent    []provider.SendRequest
}

func (m *mockSender) SendEmail(_ context.Context, _ model.Credential, req provider.SendRequest) (string, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    if err, ok := m.failFor[req.To]; ok {
        return "", err
    }
    m.sent = append(m.sent, req)
    return fmt.Sprintf("msg-%d", len(m.sent)), nil
}

// mockPublisher records published jobs.
type mockPublisher struct {
    mu        sync.Mutex
    published []interface{}
    failNext  bool
}

func (m *mockPublisher) Publish(queueName string, payload interface{}) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    if m.failNext {
        m.failNext = false
        return fmt.Errorf("broker unavailable")
    }
    m.published = append(m.published, payload)
    return nil
}

// stubFetcher pops queued errors per message id before returning events.
type stubFetcher struct {
    events map[string][]provider.Event
    errs   map[string][]error
    calls  int
}

func (s *stubFetcher) FetchEvents(_ context.Context, _ model.Credential, messageID string) ([]provider.Event, error) {
    s.calls++
    if pending := s.errs[messageID]; len(pending) > 0 {
        err := pending[0]
        s.errs[messageID] = pending[1:]
        return nil, err
    }
    return s.events[messageID], nil
}

func intPtr(v int) *int              { return &v }
func timePtr(t time.Time) *time.Time { return &t }
