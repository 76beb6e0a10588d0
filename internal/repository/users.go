package repository

import (
	"context"
	"time"

	"mailmaster/internal/events"
	"mailmaster/internal/models"

	"gorm.io/gorm"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, q ListQuery) ([]models.User, int64, error)
	Save(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
}

type userRepository struct {
	base *BaseRepository[models.User]
}

func NewUserRepository(db *gorm.DB, bus *events.Bus) UserRepository {
	return &userRepository{base: NewBaseRepository[models.User](db, bus)}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.base.Create(ctx, user)
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	return r.base.FindByID(ctx, id)
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.base.First(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("email = ?", email)
	})
}

func (r *userRepository) List(ctx context.Context, q ListQuery) ([]models.User, int64, error) {
	return r.base.List(ctx, q)
}

func (r *userRepository) Save(ctx context.Context, user *models.User) error {
	return r.base.Save(ctx, user)
}

func (r *userRepository) Delete(ctx context.Context, id string) error {
	return r.base.Delete(ctx, id)
}

type TokenRepository interface {
	Create(ctx context.Context, token *models.AccessToken) error
	FindByID(ctx context.Context, id string) (*models.AccessToken, error)
	Touch(ctx context.Context, id string, at time.Time) error
	Revoke(ctx context.Context, id string, at time.Time) error
	RevokeAllForUser(ctx context.Context, userID string, at time.Time) (int64, error)
	PruneExpired(ctx context.Context, before time.Time) (int64, error)
}

type tokenRepository struct {
	base *BaseRepository[models.AccessToken]
}

func NewTokenRepository(db *gorm.DB) TokenRepository {
	return &tokenRepository{base: NewBaseRepository[models.AccessToken](db, nil)}
}

func (r *tokenRepository) Create(ctx context.Context, token *models.AccessToken) error {
	return r.base.Create(ctx, token)
}

func (r *tokenRepository) FindByID(ctx context.Context, id string) (*models.AccessToken, error) {
	return r.base.FindByID(ctx, id)
}

// Touch records a use of the token without bumping updated_at.
func (r *tokenRepository) Touch(ctx context.Context, id string, at time.Time) error {
	return r.base.DB(ctx).
		Model(&models.AccessToken{}).
		Where("id = ?", id).
		UpdateColumn("last_used_at", at).Error
}

func (r *tokenRepository) Revoke(ctx context.Context, id string, at time.Time) error {
	res := r.base.DB(ctx).
		Model(&models.AccessToken{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Update("revoked_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *tokenRepository) RevokeAllForUser(ctx context.Context, userID string, at time.Time) (int64, error) {
	res := r.base.DB(ctx).
		Model(&models.AccessToken{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", at)
	return res.RowsAffected, res.Error
}

// PruneExpired deletes tokens that expired or were revoked before the cutoff.
func (r *tokenRepository) PruneExpired(ctx context.Context, before time.Time) (int64, error) {
	res := r.base.DB(ctx).
		Where("expires_at < ? OR revoked_at < ?", before, before).
		Delete(&models.AccessToken{})
	return res.RowsAffected, res.Error
}
