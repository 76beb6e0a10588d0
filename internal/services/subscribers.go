package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"mailmaster/internal/models"
	"mailmaster/internal/repository"
	"mailmaster/internal/utils"

	"github.com/xuri/excelize/v2"
	"gorm.io/datatypes"
)

var errEmailSubscribed = invalid("email", "The email has already been subscribed to this newsletter.")

type SubscriberService struct {
	subscribers repository.SubscriberRepository
	newsletters repository.NewsletterRepository
	secret      string
	now         func() time.Time
}

// NewSubscriberService creates the service. secret verifies unsubscribe links.
func NewSubscriberService(subscribers repository.SubscriberRepository, newsletters repository.NewsletterRepository, secret string) *SubscriberService {
	return &SubscriberService{
		subscribers: subscribers,
		newsletters: newsletters,
		secret:      secret,
		now:         time.Now,
	}
}

func (s *SubscriberService) List(ctx context.Context, ownerID string, q repository.ListQuery) ([]models.Subscriber, int64, error) {
	if email, ok := q.Filters["email"].(string); ok {
		q.Filters["email"] = normalizeEmail(email)
	}
	return s.subscribers.ListOwned(ctx, ownerID, q)
}

// ForNewsletter lists the subscribers of one owned newsletter.
func (s *SubscriberService) ForNewsletter(ctx context.Context, ownerID, newsletterID string, q repository.ListQuery) ([]models.Subscriber, int64, error) {
	if _, err := s.ownedNewsletter(ctx, ownerID, newsletterID); err != nil {
		return nil, 0, err
	}
	if q.Filters == nil {
		q.Filters = map[string]interface{}{}
	}
	q.Filters["newsletter_id"] = newsletterID
	return s.subscribers.ListOwned(ctx, ownerID, q)
}

func (s *SubscriberService) Get(ctx context.Context, ownerID, id string) (*models.Subscriber, error) {
	sub, err := s.subscribers.FindOwned(ctx, ownerID, id)
	if err != nil {
		return nil, notFound("Subscriber", err)
	}
	return sub, nil
}

func (s *SubscriberService) Create(ctx context.Context, ownerID string, in SubscriberInput) (*models.Subscriber, error) {
	if _, err := s.ownedNewsletter(ctx, ownerID, in.NewsletterID); err != nil {
		return nil, err
	}

	email := normalizeEmail(in.Email)
	if err := s.ensureNotListed(ctx, in.NewsletterID, email, ""); err != nil {
		return nil, err
	}

	metadata, err := encodeMetadata(in.Metadata)
	if err != nil {
		return nil, err
	}

	sub := &models.Subscriber{
		NewsletterID: in.NewsletterID,
		Email:        email,
		Name:         strings.TrimSpace(in.Name),
		Metadata:     metadata,
	}
	sub.Subscribe(s.now())

	if err := s.create(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *SubscriberService) Update(ctx context.Context, ownerID, id string, in SubscriberInput) (*models.Subscriber, error) {
	sub, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if in.NewsletterID != sub.NewsletterID {
		if _, err := s.ownedNewsletter(ctx, ownerID, in.NewsletterID); err != nil {
			return nil, err
		}
	}

	email := normalizeEmail(in.Email)
	if email != sub.Email || in.NewsletterID != sub.NewsletterID {
		if err := s.ensureNotListed(ctx, in.NewsletterID, email, sub.ID); err != nil {
			return nil, err
		}
	}

	sub.NewsletterID = in.NewsletterID
	sub.Email = email
	sub.Name = strings.TrimSpace(in.Name)
	if in.Metadata != nil {
		if sub.Metadata, err = encodeMetadata(in.Metadata); err != nil {
			return nil, err
		}
	}

	if err := s.save(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *SubscriberService) Delete(ctx context.Context, ownerID, id string) error {
	return notFound("Subscriber", s.subscribers.DeleteOwned(ctx, ownerID, id))
}

// Subscribe adds email to the newsletter, or re-activates it when it had
// unsubscribed. created reports whether a new subscriber row was made.
func (s *SubscriberService) Subscribe(ctx context.Context, ownerID, newsletterID string, in SubscribeInput) (sub *models.Subscriber, created bool, err error) {
	if _, err := s.ownedNewsletter(ctx, ownerID, newsletterID); err != nil {
		return nil, false, err
	}

	metadata, err := encodeMetadata(in.Metadata)
	if err != nil {
		return nil, false, err
	}

	email := normalizeEmail(in.Email)
	existing, err := s.subscribers.FindByEmail(ctx, newsletterID, email)
	switch {
	case err == nil:
		if existing.IsActive() {
			return nil, false, ErrAlreadySubscribed
		}
		existing.Subscribe(s.now())
		if name := strings.TrimSpace(in.Name); name != "" {
			existing.Name = name
		}
		if metadata != nil {
			existing.Metadata = metadata
		}
		if err := s.save(ctx, existing); err != nil {
			return nil, false, err
		}
		return existing, false, nil

	case !errors.Is(err, repository.ErrNotFound):
		return nil, false, err
	}

	sub = &models.Subscriber{
		NewsletterID: newsletterID,
		Email:        email,
		Name:         strings.TrimSpace(in.Name),
		Metadata:     metadata,
	}
	sub.Subscribe(s.now())

	if err := s.create(ctx, sub); err != nil {
		return nil, false, err
	}
	return sub, true, nil
}

// Unsubscribe stamps unsubscribed_at on a subscriber of the newsletter. The
// row is kept so the history survives.
func (s *SubscriberService) Unsubscribe(ctx context.Context, ownerID, newsletterID, subscriberID string) (*models.Subscriber, error) {
	if _, err := s.ownedNewsletter(ctx, ownerID, newsletterID); err != nil {
		return nil, err
	}

	sub, err := s.Get(ctx, ownerID, subscriberID)
	if err != nil {
		return nil, err
	}
	if sub.NewsletterID != newsletterID {
		return nil, &NotFoundError{Resource: "Subscriber"}
	}
	if !sub.IsActive() {
		return nil, ErrNotSubscribed
	}

	sub.Unsubscribe(s.now())
	if err := s.save(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// UnsubscribeByToken handles the link sent in campaign emails. Following a
// link twice is not an error.
func (s *SubscriberService) UnsubscribeByToken(ctx context.Context, token string) (*models.Subscriber, error) {
	id, err := utils.ParseUnsubscribeToken(s.secret, token)
	if err != nil {
		return nil, invalid("token", "The unsubscribe link is invalid.")
	}

	sub, err := s.subscribers.FindByID(ctx, id)
	if err != nil {
		return nil, notFound("Subscriber", err)
	}
	if !sub.IsActive() {
		return sub, nil
	}

	sub.Unsubscribe(s.now())
	if err := s.save(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// Export renders every subscriber of the newsletter as an XLSX workbook.
func (s *SubscriberService) Export(ctx context.Context, ownerID, newsletterID string) ([]byte, error) {
	if _, err := s.ownedNewsletter(ctx, ownerID, newsletterID); err != nil {
		return nil, err
	}

	subscribers, err := s.subscribers.AllForNewsletter(ctx, newsletterID)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Subscribers"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	header := []interface{}{"Email", "Name", "Status", "Subscribed At", "Unsubscribed At"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}

	for i, sub := range subscribers {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []interface{}{
			sub.Email,
			sub.Name,
			string(sub.Status),
			formatTime(sub.SubscribedAt),
			formatTime(sub.UnsubscribedAt),
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *SubscriberService) ownedNewsletter(ctx context.Context, ownerID, id string) (*models.Newsletter, error) {
	n, err := s.newsletters.FindOwned(ctx, ownerID, id)
	if err != nil {
		return nil, notFound("Newsletter", err)
	}
	return n, nil
}

func (s *SubscriberService) ensureNotListed(ctx context.Context, newsletterID, email, exceptID string) error {
	existing, err := s.subscribers.FindByEmail(ctx, newsletterID, email)
	switch {
	case err == nil && existing.ID != exceptID:
		return errEmailSubscribed
	case err == nil, errors.Is(err, repository.ErrNotFound):
		return nil
	default:
		return err
	}
}

func (s *SubscriberService) create(ctx context.Context, sub *models.Subscriber) error {
	if err := s.subscribers.Create(ctx, sub); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return errEmailSubscribed
		}
		return err
	}
	return nil
}

func (s *SubscriberService) save(ctx context.Context, sub *models.Subscriber) error {
	if err := s.subscribers.Save(ctx, sub); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return errEmailSubscribed
		}
		return err
	}
	return nil
}

func encodeMetadata(metadata map[string]interface{}) (datatypes.JSON, error) {
	if metadata == nil {
		return nil, nil
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return nil, invalid("metadata", "The metadata must be a JSON object.")
	}
	return datatypes.JSON(raw), nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
