package service

import (
	"context"
	"strconv"

	"github.com/Skotchmaster/contacts/internal/events"
	"github.com/Skotchmaster/contacts/internal/models"
	"github.com/Skotchmaster/contacts/internal/worker"
	"github.com/Skotchmaster/contacts/pkg/logging"
)

type UserRepo interface {
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, u *models.User) error
	SetRefreshToken(ctx context.Context, userID uint, token *string) error
	ConfirmEmail(ctx context.Context, email string) error
	UpdateAvatar(ctx context.Context, email, url string) (*models.User, error)
	UpdatePassword(ctx context.Context, email, hash string) (*models.User, error)
}

type ContactRepo interface {
	ListContacts(ctx context.Context, userID uint, filter string) ([]models.Contact, error)
	GetContact(ctx context.Context, userID, id uint) (*models.Contact, error)
	CreateContact(ctx context.Context, c *models.Contact) error
	UpdateContact(ctx context.Context, userID, id uint, in models.Contact) (*models.Contact, error)
	DeleteContact(ctx context.Context, userID, id uint) (*models.Contact, error)
	ContactsByIDs(ctx context.Context, userID uint, ids []uint) ([]models.Contact, error)
	SearchContacts(ctx context.Context, userID uint, q string, offset, limit int) (int64, []models.Contact, error)
}

// Notifier sends the account emails.
type Notifier interface {
	SendConfirmation(ctx context.Context, to, username, baseURL, token string) error
	SendPasswordChanged(ctx context.Context, to, username, baseURL string) error
}

type AvatarLookup interface {
	Lookup(ctx context.Context, email string) (string, error)
}

type AvatarStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

type ContactIndex interface {
	IndexContact(ctx context.Context, c models.Contact) error
	DeleteContact(ctx context.Context, id uint) error
	SearchContactIDs(ctx context.Context, userID uint, q string, offset, limit int) (int64, []uint, error)
}

// Dispatcher runs best-effort work after the request has been answered.
type Dispatcher interface {
	Submit(name string, fn worker.Task) bool
}

// background hands fn to d with the request logger attached. Without a
// dispatcher fn runs inline and its error is only logged.
func background(ctx context.Context, d Dispatcher, name string, fn worker.Task) {
	l := logging.FromContext(ctx)
	task := func(taskCtx context.Context) error {
		return fn(logging.IntoContext(taskCtx, l))
	}

	if d == nil {
		if err := task(context.WithoutCancel(ctx)); err != nil {
			l.Error("task_failed", "task", name, "error", err)
		}
		return
	}
	d.Submit(name, task)
}

func publish(ctx context.Context, d Dispatcher, p events.Publisher, topic string, ev events.Event) {
	if p == nil {
		return
	}
	background(ctx, d, "publish_"+ev.Type, func(ctx context.Context) error {
		return p.PublishEvent(ctx, topic, keyOf(ev.UserID), ev)
	})
}

func keyOf(userID uint) string {
	return strconv.FormatUint(uint64(userID), 10)
}
