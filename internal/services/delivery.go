package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"mailmaster/internal/config"
	"mailmaster/internal/mail"
	"mailmaster/internal/models"
	"mailmaster/internal/repository"
	"mailmaster/internal/storage"
	"mailmaster/internal/utils"
	"mailmaster/internal/utils/logger"
)

const welcomeTemplate = `<p>Hi {{name}},</p>
<p>You are now subscribed to <strong>{{newsletter}}</strong>.</p>
<p>If this was not you, <a href="{{unsubscribe_url}}">unsubscribe here</a>.</p>`

// DeliveryReport summarises one campaign run.
type DeliveryReport struct {
	CampaignID string
	Recipients int
	Failures   int
	Status     models.CampaignStatus
}

// DeliveryService renders and mails campaigns. It runs inside the worker.
type DeliveryService struct {
	campaigns   repository.CampaignRepository
	newsletters repository.NewsletterRepository
	subscribers repository.SubscriberRepository
	mailer      mail.Mailer
	archiver    storage.Archiver
	from        string
	baseURL     string
	secret      string
	batchSize   int
	log         *logger.Logger
	now         func() time.Time
}

type DeliveryOptions struct {
	From      string
	BaseURL   string
	Secret    string
	BatchSize int
}

// OptionsFromConfig collects the delivery settings spread over cfg.
func OptionsFromConfig(cfg *config.Config) DeliveryOptions {
	return DeliveryOptions{
		From:      cfg.SMTP.From,
		BaseURL:   cfg.Server.BaseURL,
		Secret:    cfg.JWT.Secret,
		BatchSize: cfg.Worker.BatchSize,
	}
}

func NewDeliveryService(
	campaigns repository.CampaignRepository,
	newsletters repository.NewsletterRepository,
	subscribers repository.SubscriberRepository,
	mailer mail.Mailer,
	archiver storage.Archiver,
	opts DeliveryOptions,
	log *logger.Logger,
) *DeliveryService {
	if opts.BatchSize < 1 {
		opts.BatchSize = 100
	}
	return &DeliveryService{
		campaigns:   campaigns,
		newsletters: newsletters,
		subscribers: subscribers,
		mailer:      mailer,
		archiver:    archiver,
		from:        opts.From,
		baseURL:     opts.BaseURL,
		secret:      opts.Secret,
		batchSize:   opts.BatchSize,
		log:         log,
		now:         time.Now,
	}
}

// Deliver mails a queued campaign to every active subscriber of its
// newsletter. A campaign that is not QUEUED was claimed by another worker
// or cancelled, and is skipped with a nil report.
func (s *DeliveryService) Deliver(ctx context.Context, campaignID string) (*DeliveryReport, error) {
	won, err := s.campaigns.Transition(ctx, campaignID, []models.CampaignStatus{models.CampaignStatusQueued}, models.CampaignStatusSending)
	if err != nil {
		return nil, s.log.Error("failed to claim campaign", err)
	}
	if !won {
		s.log.Warn("campaign %s is not queued, skipping", campaignID)
		return nil, nil
	}

	campaign, err := s.campaigns.FindByID(ctx, campaignID)
	if err != nil {
		// release the claim so the campaign can be sent again
		if _, terr := s.campaigns.Transition(context.WithoutCancel(ctx), campaignID, []models.CampaignStatus{models.CampaignStatusSending}, models.CampaignStatusFailed); terr != nil {
			err = errors.Join(err, terr)
		}
		return nil, s.log.Error("failed to load campaign", err)
	}

	newsletter, err := s.newsletters.FindByID(ctx, campaign.NewsletterID)
	if err != nil {
		return nil, s.fail(ctx, campaign, fmt.Errorf("failed to load newsletter: %w", err))
	}

	report := &DeliveryReport{CampaignID: campaign.ID}
	var lastErr error

	err = s.subscribers.EachActive(ctx, newsletter.ID, s.batchSize, func(batch []models.Subscriber) error {
		for i := range batch {
			if err := ctx.Err(); err != nil {
				return err
			}

			msg, err := s.render(campaign.Subject, campaign.Body, newsletter, &batch[i])
			if err != nil {
				report.Failures++
				lastErr = err
				continue
			}

			if err := s.mailer.Send(ctx, msg); err != nil {
				s.log.Warn("delivery to %s failed: %v", batch[i].Email, err)
				report.Failures++
				lastErr = err
				continue
			}
			report.Recipients++
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, campaign, fmt.Errorf("failed to read subscribers: %w", err))
	}

	now := s.now()
	campaign.Recipients = report.Recipients
	campaign.Failures = report.Failures

	if report.Recipients == 0 && report.Failures > 0 {
		campaign.Status = models.CampaignStatusFailed
		campaign.Error = lastErr.Error()
	} else {
		campaign.Status = models.CampaignStatusSent
		campaign.SentAt = &now
		campaign.Error = ""
		s.archive(ctx, campaign)
	}

	// the mail is out; record it even if the worker is shutting down
	if err := s.campaigns.Save(context.WithoutCancel(ctx), campaign); err != nil {
		return nil, s.log.Error("failed to record delivery", err)
	}

	report.Status = campaign.Status
	s.log.Success("campaign %s: %d delivered, %d failed", campaign.ID, report.Recipients, report.Failures)
	return report, nil
}

// SendWelcome mails the welcome message to a new subscriber.
func (s *DeliveryService) SendWelcome(ctx context.Context, subscriberID string) error {
	sub, err := s.subscribers.FindByID(ctx, subscriberID)
	if err != nil {
		return err
	}
	if !sub.IsActive() {
		return nil
	}

	newsletter, err := s.newsletters.FindByID(ctx, sub.NewsletterID)
	if err != nil {
		return err
	}

	msg, err := s.render("Welcome to "+newsletter.Name, welcomeTemplate, newsletter, sub)
	if err != nil {
		return err
	}
	return s.mailer.Send(ctx, msg)
}

func (s *DeliveryService) render(subject, body string, newsletter *models.Newsletter, sub *models.Subscriber) (mail.Message, error) {
	vars, err := utils.JSONToMap(sub.Metadata)
	if err != nil {
		vars = map[string]string{}
	}

	unsubscribeURL, err := s.UnsubscribeURL(sub.ID)
	if err != nil {
		return mail.Message{}, err
	}

	name := sub.Name
	if name == "" {
		name = sub.Email
	}
	vars["name"] = name
	vars["email"] = sub.Email
	vars["newsletter"] = newsletter.Name
	vars["unsubscribe_url"] = unsubscribeURL

	return mail.Message{
		From:    s.from,
		To:      sub.Email,
		Subject: utils.ReplaceVariables(subject, vars),
		HTML:    utils.ReplaceVariables(body, utils.EscapeVariables(vars)),
		Headers: map[string]string{
			"List-Unsubscribe":      "<" + unsubscribeURL + ">",
			"List-Unsubscribe-Post": "List-Unsubscribe=One-Click",
		},
	}, nil
}

// UnsubscribeURL builds the signed public link for subscriberID.
func (s *DeliveryService) UnsubscribeURL(subscriberID string) (string, error) {
	token, err := utils.GenerateUnsubscribeToken(s.secret, subscriberID)
	if err != nil {
		return "", err
	}
	return s.baseURL + "/api/v1/public/unsubscribe?token=" + url.QueryEscape(token), nil
}

func (s *DeliveryService) archive(ctx context.Context, campaign *models.Campaign) {
	if s.archiver == nil {
		return
	}
	key := storage.CampaignKey(campaign.NewsletterID, campaign.ID)
	if err := s.archiver.Put(ctx, key, []byte(campaign.Body), "text/html; charset=utf-8"); err != nil {
		s.log.Warn("failed to archive campaign %s: %v", campaign.ID, err)
		return
	}
	campaign.ArchiveKey = key
}

// fail marks the campaign FAILED so it can be sent again, and returns err.
// The save outlives ctx so a cancelled worker never leaves it SENDING.
func (s *DeliveryService) fail(ctx context.Context, campaign *models.Campaign, err error) error {
	campaign.Status = models.CampaignStatusFailed
	campaign.Error = err.Error()
	if serr := s.campaigns.Save(context.WithoutCancel(ctx), campaign); serr != nil {
		return s.log.Error("failed to mark campaign failed", errors.Join(err, serr))
	}
	return s.log.Error("campaign delivery failed", err)
}
