package repository

import (
	"context"
	"time"

	"mailmaster/internal/events"
	"mailmaster/internal/models"

	"gorm.io/gorm"
)

// OwnedBy limits newsletters to those created by userID.
func OwnedBy(userID string) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("newsletters.user_id = ?", userID)
	}
}

// InNewslettersOf limits a child table (subscribers, campaigns) to rows
// whose newsletter belongs to userID.
func InNewslettersOf(table, userID string) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(table+".newsletter_id IN (SELECT id FROM newsletters WHERE user_id = ?)", userID)
	}
}

type NewsletterRepository interface {
	Create(ctx context.Context, newsletter *models.Newsletter) error
	FindByID(ctx context.Context, id string) (*models.Newsletter, error)
	FindOwned(ctx context.Context, ownerID, id string) (*models.Newsletter, error)
	ListOwned(ctx context.Context, ownerID string, q ListQuery) ([]models.Newsletter, int64, error)
	Save(ctx context.Context, newsletter *models.Newsletter) error
	DeleteOwned(ctx context.Context, ownerID, id string) error
}

type newsletterRepository struct {
	base *BaseRepository[models.Newsletter]
}

func NewNewsletterRepository(db *gorm.DB, bus *events.Bus) NewsletterRepository {
	return &newsletterRepository{base: NewBaseRepository[models.Newsletter](db, bus)}
}

func (r *newsletterRepository) Create(ctx context.Context, newsletter *models.Newsletter) error {
	return r.base.Create(ctx, newsletter)
}

func (r *newsletterRepository) FindByID(ctx context.Context, id string) (*models.Newsletter, error) {
	return r.base.FindByID(ctx, id)
}

func (r *newsletterRepository) FindOwned(ctx context.Context, ownerID, id string) (*models.Newsletter, error) {
	return r.base.FindByID(ctx, id, OwnedBy(ownerID))
}

func (r *newsletterRepository) ListOwned(ctx context.Context, ownerID string, q ListQuery) ([]models.Newsletter, int64, error) {
	return r.base.List(ctx, q, OwnedBy(ownerID))
}

func (r *newsletterRepository) Save(ctx context.Context, newsletter *models.Newsletter) error {
	return r.base.Save(ctx, newsletter)
}

func (r *newsletterRepository) DeleteOwned(ctx context.Context, ownerID, id string) error {
	return r.base.Delete(ctx, id, OwnedBy(ownerID))
}

type SubscriberRepository interface {
	Create(ctx context.Context, subscriber *models.Subscriber) error
	FindByID(ctx context.Context, id string) (*models.Subscriber, error)
	FindOwned(ctx context.Context, ownerID, id string) (*models.Subscriber, error)
	FindByEmail(ctx context.Context, newsletterID, email string) (*models.Subscriber, error)
	ListOwned(ctx context.Context, ownerID string, q ListQuery) ([]models.Subscriber, int64, error)
	AllForNewsletter(ctx context.Context, newsletterID string) ([]models.Subscriber, error)
	EachActive(ctx context.Context, newsletterID string, batchSize int, fn func([]models.Subscriber) error) error
	Save(ctx context.Context, subscriber *models.Subscriber) error
	DeleteOwned(ctx context.Context, ownerID, id string) error
}

type subscriberRepository struct {
	base *BaseRepository[models.Subscriber]
}

func NewSubscriberRepository(db *gorm.DB, bus *events.Bus) SubscriberRepository {
	return &subscriberRepository{base: NewBaseRepository[models.Subscriber](db, bus)}
}

func (r *subscriberRepository) owned(ownerID string) Scope {
	return InNewslettersOf(r.base.Table(), ownerID)
}

func (r *subscriberRepository) Create(ctx context.Context, subscriber *models.Subscriber) error {
	return r.base.Create(ctx, subscriber)
}

func (r *subscriberRepository) FindByID(ctx context.Context, id string) (*models.Subscriber, error) {
	return r.base.FindByID(ctx, id)
}

func (r *subscriberRepository) FindOwned(ctx context.Context, ownerID, id string) (*models.Subscriber, error) {
	return r.base.FindByID(ctx, id, r.owned(ownerID))
}

func (r *subscriberRepository) FindByEmail(ctx context.Context, newsletterID, email string) (*models.Subscriber, error) {
	return r.base.First(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("newsletter_id = ? AND email = ?", newsletterID, email)
	})
}

func (r *subscriberRepository) ListOwned(ctx context.Context, ownerID string, q ListQuery) ([]models.Subscriber, int64, error) {
	return r.base.List(ctx, q, r.owned(ownerID))
}

func (r *subscriberRepository) AllForNewsletter(ctx context.Context, newsletterID string) ([]models.Subscriber, error) {
	var subscribers []models.Subscriber
	err := r.base.DB(ctx).
		Where("newsletter_id = ?", newsletterID).
		Order("email").
		Find(&subscribers).Error
	return subscribers, err
}

// EachActive streams the newsletter's active subscribers to fn in batches.
func (r *subscriberRepository) EachActive(ctx context.Context, newsletterID string, batchSize int, fn func([]models.Subscriber) error) error {
	var batch []models.Subscriber
	return r.base.DB(ctx).
		Where("newsletter_id = ? AND status = ?", newsletterID, models.SubscriberStatusActive).
		FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
			return fn(batch)
		}).Error
}

func (r *subscriberRepository) Save(ctx context.Context, subscriber *models.Subscriber) error {
	return r.base.Save(ctx, subscriber)
}

func (r *subscriberRepository) DeleteOwned(ctx context.Context, ownerID, id string) error {
	return r.base.Delete(ctx, id, r.owned(ownerID))
}

type CampaignRepository interface {
	Create(ctx context.Context, campaign *models.Campaign) error
	FindByID(ctx context.Context, id string) (*models.Campaign, error)
	FindOwned(ctx context.Context, ownerID, id string) (*models.Campaign, error)
	ListOwned(ctx context.Context, ownerID string, q ListQuery) ([]models.Campaign, int64, error)
	Save(ctx context.Context, campaign *models.Campaign) error
	DeleteOwned(ctx context.Context, ownerID, id string) error
	Transition(ctx context.Context, id string, from []models.CampaignStatus, to models.CampaignStatus) (bool, error)
	Due(ctx context.Context, now time.Time, limit int) ([]models.Campaign, error)
}

type campaignRepository struct {
	base *BaseRepository[models.Campaign]
}

func NewCampaignRepository(db *gorm.DB, bus *events.Bus) CampaignRepository {
	return &campaignRepository{base: NewBaseRepository[models.Campaign](db, bus)}
}

func (r *campaignRepository) owned(ownerID string) Scope {
	return InNewslettersOf(r.base.Table(), ownerID)
}

func (r *campaignRepository) Create(ctx context.Context, campaign *models.Campaign) error {
	return r.base.Create(ctx, campaign)
}

func (r *campaignRepository) FindByID(ctx context.Context, id string) (*models.Campaign, error) {
	return r.base.FindByID(ctx, id)
}

func (r *campaignRepository) FindOwned(ctx context.Context, ownerID, id string) (*models.Campaign, error) {
	return r.base.FindByID(ctx, id, r.owned(ownerID))
}

func (r *campaignRepository) ListOwned(ctx context.Context, ownerID string, q ListQuery) ([]models.Campaign, int64, error) {
	return r.base.List(ctx, q, r.owned(ownerID))
}

func (r *campaignRepository) Save(ctx context.Context, campaign *models.Campaign) error {
	return r.base.Save(ctx, campaign)
}

func (r *campaignRepository) DeleteOwned(ctx context.Context, ownerID, id string) error {
	return r.base.Delete(ctx, id, r.owned(ownerID))
}

// Transition moves the campaign to status to if it is currently in one of
// from. It reports whether this call won the transition, so concurrent
// senders cannot both claim the same campaign.
func (r *campaignRepository) Transition(ctx context.Context, id string, from []models.CampaignStatus, to models.CampaignStatus) (bool, error) {
	statuses := make([]string, len(from))
	for i, s := range from {
		statuses[i] = string(s)
	}

	res := r.base.DB(ctx).
		Model(&models.Campaign{}).
		Where("id = ? AND status IN ?", id, statuses).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Due returns scheduled campaigns whose time has come.
func (r *campaignRepository) Due(ctx context.Context, now time.Time, limit int) ([]models.Campaign, error) {
	var campaigns []models.Campaign
	err := r.base.DB(ctx).
		Where("status = ? AND scheduled_at <= ? AND sent_at IS NULL", models.CampaignStatusScheduled, now).
		Order("scheduled_at").
		Limit(limit).
		Find(&campaigns).Error
	return campaigns, err
}
