package service

import (
	"context"
	"io"
	"time"

	"github.com/Skotchmaster/contacts/internal/avatar"
	"github.com/Skotchmaster/contacts/internal/events"
	"github.com/Skotchmaster/contacts/internal/models"
	"github.com/Skotchmaster/contacts/pkg/apperr"
	"github.com/Skotchmaster/contacts/pkg/hash"
	"github.com/Skotchmaster/contacts/pkg/logging"
)

const (
	PasswordMinLen = 6
	PasswordMaxLen = 10
)

type UserService struct {
	Users  UserRepo
	Hasher *hash.Hasher
	Store  AvatarStore
	Mail   Notifier
	Events events.Publisher
	Tasks  Dispatcher
}

// UpdateAvatar crops the uploaded image to a square, stores it under the
// user's fixed key and saves its URL.
func (s *UserService) UpdateAvatar(ctx context.Context, user *models.User, img io.Reader) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "users.update_avatar", "user_id", user.ID)

	if s.Store == nil {
		l.Warn("update_avatar_failed", "status", 400, "reason", "storage not configured")
		return nil, apperr.New(apperr.ErrBadRequest, "Avatar storage is not configured")
	}

	data, err := avatar.Square(img, avatar.Size)
	if err != nil {
		l.Warn("update_avatar_failed", "status", 422, "error", err)
		return nil, apperr.Wrap(apperr.ErrUnprocessable, "File is not a supported image", err)
	}

	url, err := s.Store.Put(ctx, avatar.Key(user.Username), data, "image/png")
	if err != nil {
		l.Error("update_avatar_failed", "status", 500, "reason", "cannot upload avatar", "error", err)
		return nil, err
	}

	updated, err := s.Users.UpdateAvatar(ctx, user.Email, url)
	if err != nil {
		l.Error("update_avatar_failed", "status", 500, "error", err)
		return nil, err
	}
	if updated == nil {
		return nil, apperr.New(apperr.ErrNotFound, "Not found")
	}

	publish(ctx, s.Tasks, s.Events, events.TopicUsers, events.Event{
		Type:   events.AvatarUpdated,
		UserID: user.ID,
		Email:  user.Email,
		At:     time.Now().UTC(),
	})
	l.Info("update_avatar_successful")
	return updated, nil
}

func (s *UserService) UpdatePassword(ctx context.Context, user *models.User, password, baseURL string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "users.update_password", "user_id", user.ID)

	if n := len([]rune(password)); n < PasswordMinLen || n > PasswordMaxLen {
		return nil, apperr.New(apperr.ErrValidation, "password must be 6 to 10 characters long")
	}

	pwHash, err := s.Hasher.Hash(password)
	if err != nil {
		l.Error("update_password_failed", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, err
	}

	updated, err := s.Users.UpdatePassword(ctx, user.Email, pwHash)
	if err != nil {
		l.Error("update_password_failed", "status", 500, "error", err)
		return nil, err
	}
	if updated == nil {
		return nil, apperr.New(apperr.ErrNotFound, "Not found")
	}

	if s.Mail != nil {
		email, username := updated.Email, updated.Username
		background(ctx, s.Tasks, "send_password_changed", func(ctx context.Context) error {
			return s.Mail.SendPasswordChanged(ctx, email, username, baseURL)
		})
	}
	publish(ctx, s.Tasks, s.Events, events.TopicUsers, events.Event{
		Type:   events.PasswordUpdated,
		UserID: user.ID,
		Email:  user.Email,
		At:     time.Now().UTC(),
	})
	l.Info("update_password_successful")
	return updated, nil
}
