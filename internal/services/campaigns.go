package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"mailmaster/internal/models"
	"mailmaster/internal/repository"
	"mailmaster/internal/storage"
)

const (
	archiveLinkTTL = time.Hour
	dueBatchSize   = 100
)

// CampaignQueue hands campaigns to the background delivery worker.
type CampaignQueue interface {
	EnqueueCampaignSend(ctx context.Context, campaignID string) error
}

type CampaignService struct {
	campaigns   repository.CampaignRepository
	newsletters repository.NewsletterRepository
	queue       CampaignQueue
	archiver    storage.Archiver
	now         func() time.Time
}

// NewCampaignService creates the service. archiver may be nil when no bucket
// is configured.
func NewCampaignService(campaigns repository.CampaignRepository, newsletters repository.NewsletterRepository, queue CampaignQueue, archiver storage.Archiver) *CampaignService {
	return &CampaignService{
		campaigns:   campaigns,
		newsletters: newsletters,
		queue:       queue,
		archiver:    archiver,
		now:         time.Now,
	}
}

func (s *CampaignService) List(ctx context.Context, ownerID string, q repository.ListQuery) ([]models.Campaign, int64, error) {
	return s.campaigns.ListOwned(ctx, ownerID, q)
}

// ForNewsletter lists the campaigns of one owned newsletter.
func (s *CampaignService) ForNewsletter(ctx context.Context, ownerID, newsletterID string, q repository.ListQuery) ([]models.Campaign, int64, error) {
	if _, err := s.ownedNewsletter(ctx, ownerID, newsletterID); err != nil {
		return nil, 0, err
	}
	if q.Filters == nil {
		q.Filters = map[string]interface{}{}
	}
	q.Filters["newsletter_id"] = newsletterID
	return s.campaigns.ListOwned(ctx, ownerID, q)
}

func (s *CampaignService) Get(ctx context.Context, ownerID, id string) (*models.Campaign, error) {
	c, err := s.campaigns.FindOwned(ctx, ownerID, id)
	if err != nil {
		return nil, notFound("Campaign", err)
	}
	return c, nil
}

func (s *CampaignService) Create(ctx context.Context, ownerID string, in CampaignInput) (*models.Campaign, error) {
	if _, err := s.ownedNewsletter(ctx, ownerID, in.NewsletterID); err != nil {
		return nil, err
	}

	c := &models.Campaign{NewsletterID: in.NewsletterID}
	apply(c, in)

	if err := s.campaigns.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CampaignService) Update(ctx context.Context, ownerID, id string, in CampaignInput) (*models.Campaign, error) {
	c, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if !c.Editable() {
		return nil, locked(c)
	}

	if in.NewsletterID != c.NewsletterID {
		if _, err := s.ownedNewsletter(ctx, ownerID, in.NewsletterID); err != nil {
			return nil, err
		}
		c.NewsletterID = in.NewsletterID
	}
	apply(c, in)

	if err := s.campaigns.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CampaignService) Delete(ctx context.Context, ownerID, id string) error {
	c, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if !c.Editable() {
		return locked(c)
	}
	return notFound("Campaign", s.campaigns.DeleteOwned(ctx, ownerID, id))
}

func locked(c *models.Campaign) error {
	if c.SentAt != nil || c.Status == models.CampaignStatusSent {
		return ErrCampaignSent
	}
	return ErrCampaignInFlight
}

// Send queues the campaign for delivery to the newsletter's active
// subscribers. The status is claimed before enqueueing so a campaign is
// never queued twice.
func (s *CampaignService) Send(ctx context.Context, ownerID, id string) (*models.Campaign, error) {
	c, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if c.SentAt != nil || c.Status == models.CampaignStatusSent {
		return nil, ErrCampaignSent
	}
	if !c.Sendable() {
		return nil, ErrCampaignInFlight
	}

	previous := c.Status
	won, err := s.campaigns.Transition(ctx, c.ID, models.SendableStatuses, models.CampaignStatusQueued)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, ErrCampaignInFlight
	}

	if err := s.queue.EnqueueCampaignSend(ctx, c.ID); err != nil {
		if _, rerr := s.campaigns.Transition(ctx, c.ID, []models.CampaignStatus{models.CampaignStatusQueued}, previous); rerr != nil {
			return nil, errors.Join(err, rerr)
		}
		return nil, err
	}

	c.Status = models.CampaignStatusQueued
	return c, nil
}

// Dispatch queues every scheduled campaign that has come due and returns
// how many were queued.
func (s *CampaignService) Dispatch(ctx context.Context) (int, error) {
	due, err := s.campaigns.Due(ctx, s.now(), dueBatchSize)
	if err != nil {
		return 0, err
	}

	queued := 0
	for _, c := range due {
		won, err := s.campaigns.Transition(ctx, c.ID, []models.CampaignStatus{models.CampaignStatusScheduled}, models.CampaignStatusQueued)
		if err != nil {
			return queued, err
		}
		if !won {
			continue
		}
		if err := s.queue.EnqueueCampaignSend(ctx, c.ID); err != nil {
			if _, rerr := s.campaigns.Transition(ctx, c.ID, []models.CampaignStatus{models.CampaignStatusQueued}, models.CampaignStatusScheduled); rerr != nil {
				return queued, errors.Join(err, rerr)
			}
			return queued, err
		}
		queued++
	}
	return queued, nil
}

// ArchiveURL returns a temporary link to the archived copy of a sent
// campaign.
func (s *CampaignService) ArchiveURL(ctx context.Context, ownerID, id string) (string, time.Time, error) {
	c, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return "", time.Time{}, err
	}
	if s.archiver == nil || c.ArchiveKey == "" {
		return "", time.Time{}, ErrArchiveUnavailable
	}

	url, err := s.archiver.SignedURL(ctx, c.ArchiveKey, archiveLinkTTL)
	if err != nil {
		return "", time.Time{}, err
	}
	return url, s.now().Add(archiveLinkTTL), nil
}

func (s *CampaignService) ownedNewsletter(ctx context.Context, ownerID, id string) (*models.Newsletter, error) {
	n, err := s.newsletters.FindOwned(ctx, ownerID, id)
	if err != nil {
		return nil, notFound("Newsletter", err)
	}
	return n, nil
}

// apply copies the input onto c and derives its status from the
// timestamps. A failed campaign stays failed until it is sent again.
func apply(c *models.Campaign, in CampaignInput) {
	c.Subject = strings.TrimSpace(in.Subject)
	c.Body = in.Body
	c.ScheduledAt = in.ScheduledAt
	c.SentAt = in.SentAt

	switch {
	case c.SentAt != nil:
		c.Status = models.CampaignStatusSent
	case c.ScheduledAt != nil:
		c.Status = models.CampaignStatusScheduled
	case c.Status == models.CampaignStatusFailed:
	default:
		c.Status = models.CampaignStatusDraft
	}
}
