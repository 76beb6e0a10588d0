package services

import (
	"context"
	"strings"

	"mailmaster/internal/models"
	"mailmaster/internal/repository"
)

type NewsletterService struct {
	newsletters repository.NewsletterRepository
}

func NewNewsletterService(newsletters repository.NewsletterRepository) *NewsletterService {
	return &NewsletterService{newsletters: newsletters}
}

func (s *NewsletterService) List(ctx context.Context, ownerID string, q repository.ListQuery) ([]models.Newsletter, int64, error) {
	return s.newsletters.ListOwned(ctx, ownerID, q)
}

func (s *NewsletterService) Get(ctx context.Context, ownerID, id string) (*models.Newsletter, error) {
	n, err := s.newsletters.FindOwned(ctx, ownerID, id)
	if err != nil {
		return nil, notFound("Newsletter", err)
	}
	return n, nil
}

func (s *NewsletterService) Create(ctx context.Context, ownerID string, in NewsletterInput) (*models.Newsletter, error) {
	n := &models.Newsletter{
		UserID:      ownerID,
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
	}
	if err := s.newsletters.Create(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *NewsletterService) Update(ctx context.Context, ownerID, id string, in NewsletterInput) (*models.Newsletter, error) {
	n, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	n.Name = strings.TrimSpace(in.Name)
	n.Description = strings.TrimSpace(in.Description)

	if err := s.newsletters.Save(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// Delete removes the newsletter with its subscribers and campaigns.
func (s *NewsletterService) Delete(ctx context.Context, ownerID, id string) error {
	return notFound("Newsletter", s.newsletters.DeleteOwned(ctx, ownerID, id))
}
