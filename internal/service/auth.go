package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Skotchmaster/contacts/internal/events"
	"github.com/Skotchmaster/contacts/internal/models"
	"github.com/Skotchmaster/contacts/internal/repo"
	"github.com/Skotchmaster/contacts/pkg/apperr"
	"github.com/Skotchmaster/contacts/pkg/hash"
	"github.com/Skotchmaster/contacts/pkg/logging"
	"github.com/Skotchmaster/contacts/pkg/tokens"
)

const (
	MsgSignedUp         = "User successfully created. Check your email for confirmation."
	MsgCheckEmail       = "Check your email for confirmation."
	MsgEmailConfirmed   = "Email confirmed"
	MsgAlreadyConfirmed = "Your email is already confirmed"
	MsgLoggedOut        = "Logged out"
)

const (
	detailAccountExists   = "Account already exists"
	detailInvalidEmail    = "Invalid email"
	detailNotConfirmed    = "Email not confirmed"
	detailInvalidPassword = "Invalid password"
	detailInvalidRefresh  = "Invalid refresh token"
	detailCredentials     = "Could not validate credentials"
	detailVerification    = "Verification error"
)

type AuthService struct {
	Users   UserRepo
	Hasher  *hash.Hasher
	Tokens  *tokens.Service
	Mail    Notifier
	Avatars AvatarLookup
	Events  events.Publisher
	Tasks   Dispatcher
}

type SignupInput struct {
	Username string
	Email    string
	Password string
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// Signup creates an unconfirmed user and, in the background, looks up a
// default avatar and mails the confirmation link.
func (s *AuthService) Signup(ctx context.Context, in SignupInput, baseURL string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.signup")

	if strings.TrimSpace(in.Email) == "" || in.Password == "" {
		return nil, apperr.New(apperr.ErrValidation, "email and password are required")
	}

	existing, err := s.Users.FindUserByEmail(ctx, in.Email)
	if err != nil {
		l.Error("signup_error", "status", 500, "reason", "cannot look up user", "error", err)
		return nil, err
	}
	if existing != nil {
		l.Warn("signup_error", "status", 409, "reason", "account exists")
		return nil, apperr.New(apperr.ErrConflict, detailAccountExists)
	}

	pwHash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		l.Error("signup_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, err
	}

	user := &models.User{
		Username: in.Username,
		Email:    in.Email,
		Password: pwHash,
	}
	if err := s.Users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			l.Warn("signup_error", "status", 409, "reason", "account exists")
			return nil, apperr.Wrap(apperr.ErrConflict, detailAccountExists, err)
		}
		l.Error("signup_error", "status", 500, "reason", "cannot create user", "error", err)
		return nil, err
	}

	if s.Avatars != nil {
		email := user.Email
		background(ctx, s.Tasks, "gravatar_lookup", func(ctx context.Context) error {
			url, err := s.Avatars.Lookup(ctx, email)
			if err != nil {
				logging.FromContext(ctx).Info("gravatar_skipped", "reason", err.Error())
				return nil
			}
			_, err = s.Users.UpdateAvatar(ctx, email, url)
			return err
		})
	}
	s.sendConfirmation(ctx, user, baseURL)
	publish(ctx, s.Tasks, s.Events, events.TopicUsers, events.Event{
		Type:   events.UserRegistered,
		UserID: user.ID,
		Email:  user.Email,
		At:     time.Now().UTC(),
	})

	l.Info("signup_successful", "user_id", user.ID)
	return user, nil
}

// Login checks the credentials in a fixed order so that the reported detail
// names the first failing condition.
func (s *AuthService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	user, err := s.Users.FindUserByEmail(ctx, email)
	if err != nil {
		l.Error("login_failed", "status", 500, "error", err)
		return nil, err
	}
	if user == nil {
		l.Warn("login_failed", "status", 401, "reason", detailInvalidEmail)
		return nil, apperr.New(apperr.ErrUnauthorized, detailInvalidEmail)
	}
	if !user.Confirmed {
		l.Warn("login_failed", "status", 401, "reason", detailNotConfirmed)
		return nil, apperr.New(apperr.ErrUnauthorized, detailNotConfirmed)
	}
	if !s.Hasher.Verify(password, user.Password) {
		l.Warn("login_failed", "status", 401, "reason", detailInvalidPassword)
		return nil, apperr.New(apperr.ErrUnauthorized, detailInvalidPassword)
	}

	pair, err := s.issuePair(ctx, user)
	if err != nil {
		l.Error("login_failed", "status", 500, "error", err)
		return nil, err
	}

	publish(ctx, s.Tasks, s.Events, events.TopicUsers, events.Event{
		Type:   events.UserLoggedIn,
		UserID: user.ID,
		Email:  user.Email,
		At:     time.Now().UTC(),
	})
	l.Info("login_successful", "user_id", user.ID)
	return pair, nil
}

// Refresh rotates the token pair. A token that differs from the stored one
// revokes the stored token as well.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	email, err := s.Tokens.DecodeRefresh(refreshToken)
	if err != nil {
		l.Warn("refresh_failed", "status", 401, "error", err)
		return nil, err
	}

	user, err := s.Users.FindUserByEmail(ctx, email)
	if err != nil {
		l.Error("refresh_failed", "status", 500, "error", err)
		return nil, err
	}
	if user == nil {
		l.Warn("refresh_failed", "status", 401, "reason", "user not found")
		return nil, apperr.New(apperr.ErrUnauthorized, detailCredentials)
	}

	if user.RefreshToken == nil || *user.RefreshToken != refreshToken {
		if err := s.Users.SetRefreshToken(ctx, user.ID, nil); err != nil {
			l.Error("refresh_failed", "status", 500, "reason", "cannot revoke stored token", "error", err)
			return nil, err
		}
		l.Warn("refresh_failed", "status", 401, "reason", "token mismatch", "user_id", user.ID)
		return nil, apperr.New(apperr.ErrUnauthorized, detailInvalidRefresh)
	}

	pair, err := s.issuePair(ctx, user)
	if err != nil {
		l.Error("refresh_failed", "status", 500, "error", err)
		return nil, err
	}
	l.Info("refresh_successful", "user_id", user.ID)
	return pair, nil
}

func (s *AuthService) issuePair(ctx context.Context, user *models.User) (*TokenPair, error) {
	access, err := s.Tokens.IssueAccessToken(user.Email, 0)
	if err != nil {
		return nil, err
	}
	refresh, err := s.Tokens.IssueRefreshToken(user.Email, 0)
	if err != nil {
		return nil, err
	}
	if err := s.Users.SetRefreshToken(ctx, user.ID, &refresh); err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"}, nil
}

func (s *AuthService) ConfirmEmail(ctx context.Context, token string) (string, error) {
	l := logging.FromContext(ctx).With("svc", "auth.confirm_email")

	email, err := s.Tokens.DecodeEmail(token)
	if err != nil {
		l.Warn("confirm_email_failed", "status", 422, "error", err)
		return "", err
	}

	user, err := s.Users.FindUserByEmail(ctx, email)
	if err != nil {
		l.Error("confirm_email_failed", "status", 500, "error", err)
		return "", err
	}
	if user == nil {
		l.Warn("confirm_email_failed", "status", 400, "reason", "user not found")
		return "", apperr.New(apperr.ErrBadRequest, detailVerification)
	}
	if user.Confirmed {
		return MsgAlreadyConfirmed, nil
	}

	if err := s.Users.ConfirmEmail(ctx, email); err != nil {
		l.Error("confirm_email_failed", "status", 500, "error", err)
		return "", err
	}

	publish(ctx, s.Tasks, s.Events, events.TopicUsers, events.Event{
		Type:   events.EmailConfirmed,
		UserID: user.ID,
		Email:  user.Email,
		At:     time.Now().UTC(),
	})
	l.Info("email_confirmed", "user_id", user.ID)
	return MsgEmailConfirmed, nil
}

// RequestEmail re-sends the confirmation link. The answer does not reveal
// whether an account exists.
func (s *AuthService) RequestEmail(ctx context.Context, email, baseURL string) (string, error) {
	l := logging.FromContext(ctx).With("svc", "auth.request_email")

	user, err := s.Users.FindUserByEmail(ctx, email)
	if err != nil {
		l.Error("request_email_failed", "status", 500, "error", err)
		return "", err
	}
	if user != nil && user.Confirmed {
		return MsgAlreadyConfirmed, nil
	}
	if user != nil {
		s.sendConfirmation(ctx, user, baseURL)
	}
	return MsgCheckEmail, nil
}

func (s *AuthService) sendConfirmation(ctx context.Context, user *models.User, baseURL string) {
	if s.Mail == nil {
		return
	}
	email, username := user.Email, user.Username
	background(ctx, s.Tasks, "send_confirmation", func(ctx context.Context) error {
		token, err := s.Tokens.IssueEmailToken(email)
		if err != nil {
			return err
		}
		return s.Mail.SendConfirmation(ctx, email, username, baseURL, token)
	})
}

func (s *AuthService) Logout(ctx context.Context, user *models.User) error {
	if err := s.Users.SetRefreshToken(ctx, user.ID, nil); err != nil {
		logging.FromContext(ctx).Error("logout_failed", "status", 500, "reason", "cannot revoke refreshToken", "error", err)
		return err
	}
	return nil
}

// CurrentUser resolves a bearer access token to its user.
func (s *AuthService) CurrentUser(ctx context.Context, accessToken string) (*models.User, error) {
	email, err := s.Tokens.Authenticate(accessToken)
	if err != nil {
		return nil, err
	}

	user, err := s.Users.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.New(apperr.ErrUnauthorized, detailCredentials)
	}
	return user, nil
}
