// Package repotest provides in-memory repositories for tests of code built
// on the repository interfaces.
package repotest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"mailmaster/internal/models"
	"mailmaster/internal/repository"

	"github.com/google/uuid"
)

var (
	_ repository.UserRepository       = (*Users)(nil)
	_ repository.TokenRepository      = (*Tokens)(nil)
	_ repository.NewsletterRepository = (*Newsletters)(nil)
	_ repository.SubscriberRepository = (*Subscribers)(nil)
	_ repository.CampaignRepository   = (*Campaigns)(nil)
)

type Users struct {
	Rows map[string]models.User
}

func NewUsers() *Users { return &Users{Rows: map[string]models.User{}} }

func (f *Users) Create(_ context.Context, u *models.User) error {
	for _, row := range f.Rows {
		if row.Email == u.Email {
			return repository.ErrDuplicate
		}
	}
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	f.Rows[u.ID] = *u
	return nil
}

func (f *Users) FindByID(_ context.Context, id string) (*models.User, error) {
	u, ok := f.Rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (f *Users) FindByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range f.Rows {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *Users) List(_ context.Context, q repository.ListQuery) ([]models.User, int64, error) {
	var out []models.User
	for _, u := range f.Rows {
		out = append(out, u)
	}
	return out, int64(len(out)), nil
}

func (f *Users) Save(_ context.Context, u *models.User) error {
	f.Rows[u.ID] = *u
	return nil
}

func (f *Users) Delete(_ context.Context, id string) error {
	if _, ok := f.Rows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.Rows, id)
	return nil
}

type Tokens struct {
	Rows map[string]models.AccessToken
}

func NewTokens() *Tokens { return &Tokens{Rows: map[string]models.AccessToken{}} }

func (f *Tokens) Create(_ context.Context, t *models.AccessToken) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	f.Rows[t.ID] = *t
	return nil
}

func (f *Tokens) FindByID(_ context.Context, id string) (*models.AccessToken, error) {
	t, ok := f.Rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (f *Tokens) Touch(_ context.Context, id string, at time.Time) error {
	t, ok := f.Rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	t.LastUsedAt = &at
	f.Rows[id] = t
	return nil
}

func (f *Tokens) Revoke(_ context.Context, id string, at time.Time) error {
	t, ok := f.Rows[id]
	if !ok || t.RevokedAt != nil {
		return repository.ErrNotFound
	}
	t.RevokedAt = &at
	f.Rows[id] = t
	return nil
}

func (f *Tokens) RevokeAllForUser(_ context.Context, userID string, at time.Time) (int64, error) {
	var n int64
	for id, t := range f.Rows {
		if t.UserID == userID && t.RevokedAt == nil {
			t.RevokedAt = &at
			f.Rows[id] = t
			n++
		}
	}
	return n, nil
}

func (f *Tokens) PruneExpired(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for id, t := range f.Rows {
		if t.ExpiresAt.Before(now) || (t.RevokedAt != nil && t.RevokedAt.Before(now)) {
			delete(f.Rows, id)
			n++
		}
	}
	return n, nil
}

type Newsletters struct {
	Rows map[string]models.Newsletter
}

func NewNewsletters() *Newsletters {
	return &Newsletters{Rows: map[string]models.Newsletter{}}
}

// Add stores a newsletter owned by ownerID.
func (f *Newsletters) Add(ownerID, name string) *models.Newsletter {
	n := &models.Newsletter{UserID: ownerID, Name: name}
	_ = f.Create(context.Background(), n)
	return n
}

func (f *Newsletters) Create(_ context.Context, n *models.Newsletter) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	n.CreatedAt = time.Now()
	f.Rows[n.ID] = *n
	return nil
}

func (f *Newsletters) FindByID(_ context.Context, id string) (*models.Newsletter, error) {
	n, ok := f.Rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &n, nil
}

func (f *Newsletters) FindOwned(ctx context.Context, ownerID, id string) (*models.Newsletter, error) {
	n, err := f.FindByID(ctx, id)
	if err != nil || n.UserID != ownerID {
		return nil, repository.ErrNotFound
	}
	return n, nil
}

func (f *Newsletters) ListOwned(_ context.Context, ownerID string, q repository.ListQuery) ([]models.Newsletter, int64, error) {
	var out []models.Newsletter
	for _, n := range f.Rows {
		if n.UserID == ownerID {
			out = append(out, n)
		}
	}
	return out, int64(len(out)), nil
}

func (f *Newsletters) Save(_ context.Context, n *models.Newsletter) error {
	f.Rows[n.ID] = *n
	return nil
}

func (f *Newsletters) DeleteOwned(_ context.Context, ownerID, id string) error {
	n, ok := f.Rows[id]
	if !ok || n.UserID != ownerID {
		return repository.ErrNotFound
	}
	delete(f.Rows, id)
	return nil
}

type Subscribers struct {
	newsletters *Newsletters
	Rows        map[string]models.Subscriber
	Created     []string
}

func NewSubscribers(newsletters *Newsletters) *Subscribers {
	return &Subscribers{newsletters: newsletters, Rows: map[string]models.Subscriber{}}
}

func (f *Subscribers) owns(ownerID string, s models.Subscriber) bool {
	n, ok := f.newsletters.Rows[s.NewsletterID]
	return ok && n.UserID == ownerID
}

func (f *Subscribers) Create(_ context.Context, s *models.Subscriber) error {
	for _, row := range f.Rows {
		if row.NewsletterID == s.NewsletterID && row.Email == s.Email {
			return fmt.Errorf("%w: unique violation", repository.ErrDuplicate)
		}
	}
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	f.Rows[s.ID] = *s
	f.Created = append(f.Created, s.ID)
	return nil
}

func (f *Subscribers) FindByID(_ context.Context, id string) (*models.Subscriber, error) {
	s, ok := f.Rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (f *Subscribers) FindOwned(ctx context.Context, ownerID, id string) (*models.Subscriber, error) {
	s, err := f.FindByID(ctx, id)
	if err != nil || !f.owns(ownerID, *s) {
		return nil, repository.ErrNotFound
	}
	return s, nil
}

func (f *Subscribers) FindByEmail(_ context.Context, newsletterID, email string) (*models.Subscriber, error) {
	for _, s := range f.Rows {
		if s.NewsletterID == newsletterID && s.Email == email {
			return &s, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *Subscribers) ListOwned(_ context.Context, ownerID string, q repository.ListQuery) ([]models.Subscriber, int64, error) {
	var out []models.Subscriber
	for _, s := range f.Rows {
		if !f.owns(ownerID, s) {
			continue
		}
		if id, ok := q.Filters["newsletter_id"]; ok && id != s.NewsletterID {
			continue
		}
		if email, ok := q.Filters["email"]; ok && email != s.Email {
			continue
		}
		out = append(out, s)
	}
	return out, int64(len(out)), nil
}

func (f *Subscribers) AllForNewsletter(_ context.Context, newsletterID string) ([]models.Subscriber, error) {
	var out []models.Subscriber
	for _, s := range f.Rows {
		if s.NewsletterID == newsletterID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (f *Subscribers) EachActive(ctx context.Context, newsletterID string, batchSize int, fn func([]models.Subscriber) error) error {
	all, _ := f.AllForNewsletter(ctx, newsletterID)
	var active []models.Subscriber
	for _, s := range all {
		if s.IsActive() {
			active = append(active, s)
		}
	}
	for len(active) > 0 {
		n := batchSize
		if n > len(active) {
			n = len(active)
		}
		if err := fn(active[:n]); err != nil {
			return err
		}
		active = active[n:]
	}
	return nil
}

func (f *Subscribers) Save(_ context.Context, s *models.Subscriber) error {
	f.Rows[s.ID] = *s
	return nil
}

func (f *Subscribers) DeleteOwned(_ context.Context, ownerID, id string) error {
	s, ok := f.Rows[id]
	if !ok || !f.owns(ownerID, s) {
		return repository.ErrNotFound
	}
	delete(f.Rows, id)
	return nil
}

// Campaigns honors ctx on writes the way a database driver would.
type Campaigns struct {
	newsletters *Newsletters
	Rows        map[string]models.Campaign

	// FindErr fails FindByID; TransitionErr fails moves into TransitionTo.
	FindErr       error
	TransitionErr error
	TransitionTo  models.CampaignStatus
}

func NewCampaigns(newsletters *Newsletters) *Campaigns {
	return &Campaigns{newsletters: newsletters, Rows: map[string]models.Campaign{}}
}

func (f *Campaigns) owns(ownerID string, c models.Campaign) bool {
	n, ok := f.newsletters.Rows[c.NewsletterID]
	return ok && n.UserID == ownerID
}

func (f *Campaigns) Create(_ context.Context, c *models.Campaign) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	f.Rows[c.ID] = *c
	return nil
}

func (f *Campaigns) FindByID(_ context.Context, id string) (*models.Campaign, error) {
	if f.FindErr != nil {
		return nil, f.FindErr
	}
	c, ok := f.Rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (f *Campaigns) FindOwned(ctx context.Context, ownerID, id string) (*models.Campaign, error) {
	c, err := f.FindByID(ctx, id)
	if err != nil || !f.owns(ownerID, *c) {
		return nil, repository.ErrNotFound
	}
	return c, nil
}

func (f *Campaigns) ListOwned(_ context.Context, ownerID string, q repository.ListQuery) ([]models.Campaign, int64, error) {
	var out []models.Campaign
	for _, c := range f.Rows {
		if !f.owns(ownerID, c) {
			continue
		}
		if id, ok := q.Filters["newsletter_id"]; ok && id != c.NewsletterID {
			continue
		}
		out = append(out, c)
	}
	return out, int64(len(out)), nil
}

func (f *Campaigns) Save(ctx context.Context, c *models.Campaign) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.Rows[c.ID] = *c
	return nil
}

func (f *Campaigns) DeleteOwned(_ context.Context, ownerID, id string) error {
	c, ok := f.Rows[id]
	if !ok || !f.owns(ownerID, c) {
		return repository.ErrNotFound
	}
	delete(f.Rows, id)
	return nil
}

func (f *Campaigns) Transition(ctx context.Context, id string, from []models.CampaignStatus, to models.CampaignStatus) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if f.TransitionErr != nil && to == f.TransitionTo {
		return false, f.TransitionErr
	}
	c, ok := f.Rows[id]
	if !ok {
		return false, nil
	}
	for _, s := range from {
		if c.Status == s {
			c.Status = to
			f.Rows[id] = c
			return true, nil
		}
	}
	return false, nil
}

func (f *Campaigns) Due(_ context.Context, now time.Time, limit int) ([]models.Campaign, error) {
	var out []models.Campaign
	for _, c := range f.Rows {
		if c.Status == models.CampaignStatusScheduled && c.ScheduledAt != nil && !c.ScheduledAt.After(now) && c.SentAt == nil {
			out = append(out, c)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

