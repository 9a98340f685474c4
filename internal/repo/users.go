package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Skotchmaster/contacts/internal/models"
)

// FindUserByEmail returns nil, nil when no user has that email.
func (r *GormRepo) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) CreateUser(ctx context.Context, u *models.User) error {
	return translate(r.DB.WithContext(ctx).Create(u).Error)
}

// SetRefreshToken stores token verbatim, or clears it when token is nil.
func (r *GormRepo) SetRefreshToken(ctx context.Context, userID uint, token *string) error {
	return r.DB.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("refresh_token", token).Error
}

func (r *GormRepo) ConfirmEmail(ctx context.Context, email string) error {
	res := r.DB.WithContext(ctx).
		Model(&models.User{}).
		Where("email = ?", email).
		Update("confirmed", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormRepo) UpdateAvatar(ctx context.Context, email, url string) (*models.User, error) {
	return r.updateUserColumn(ctx, email, "avatar", url)
}

func (r *GormRepo) UpdatePassword(ctx context.Context, email, hash string) (*models.User, error) {
	return r.updateUserColumn(ctx, email, "password", hash)
}

// updateUserColumn returns nil, nil when the user does not exist.
func (r *GormRepo) updateUserColumn(ctx context.Context, email, column string, value any) (*models.User, error) {
	var user models.User
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("email = ?", email).First(&user).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.User{}).Where("id = ?", user.ID).Update(column, value).Error; err != nil {
			return err
		}
		return tx.First(&user, user.ID).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}
