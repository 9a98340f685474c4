package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Skotchmaster/contacts/internal/events"
	"github.com/Skotchmaster/contacts/internal/models"
	"github.com/Skotchmaster/contacts/internal/repo"
	"github.com/Skotchmaster/contacts/internal/util"
	"github.com/Skotchmaster/contacts/pkg/apperr"
	"github.com/Skotchmaster/contacts/pkg/logging"
)

const (
	DefaultBirthdayWindow = 7
	MaxBirthdayWindow     = 366
)

const (
	detailContactNotFound  = "Contact not found"
	detailContactsNotFound = "Contacts not found"
	detailContactExists    = "Contact with this email or phone already exists"
)

type ContactService struct {
	Repo   ContactRepo
	Index  ContactIndex
	Events events.Publisher
	Tasks  Dispatcher
	// IndexTasks runs index writes in submission order so a delete never
	// overtakes the update before it. Falls back to Tasks.
	IndexTasks Dispatcher
	Now        func() time.Time
}

type ContactInput struct {
	FirstName   string
	LastName    string
	Email       string
	Phone       string
	Birthday    models.Date
	Description string
}

type SearchResult struct {
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	Size     int              `json:"size"`
	Contacts []models.Contact `json:"contacts"`
}

func (in ContactInput) toModel(userID uint) models.Contact {
	return models.Contact{
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		Email:       in.Email,
		Phone:       in.Phone,
		Birthday:    in.Birthday,
		Description: in.Description,
		UserID:      userID,
	}
}

// List returns all of the user's contacts, or those whose first name, last
// name or email equals filter. A filter without matches is NotFound.
func (s *ContactService) List(ctx context.Context, userID uint, filter string) ([]models.Contact, error) {
	l := logging.FromContext(ctx).With("svc", "contacts.list")

	items, err := s.Repo.ListContacts(ctx, userID, filter)
	if err != nil {
		l.Error("list_contacts_error", "status", 500, "error", err)
		return nil, err
	}
	if filter != "" && len(items) == 0 {
		return nil, apperr.New(apperr.ErrNotFound, detailContactsNotFound)
	}
	return items, nil
}

func (s *ContactService) Get(ctx context.Context, userID, id uint) (*models.Contact, error) {
	c, err := s.Repo.GetContact(ctx, userID, id)
	if err != nil {
		logging.FromContext(ctx).Error("get_contact_error", "status", 500, "contact_id", id, "error", err)
		return nil, err
	}
	if c == nil {
		return nil, apperr.New(apperr.ErrNotFound, detailContactNotFound)
	}
	return c, nil
}

func (s *ContactService) Create(ctx context.Context, userID uint, in ContactInput) (*models.Contact, error) {
	l := logging.FromContext(ctx).With("svc", "contacts.create")

	c := in.toModel(userID)
	if err := s.Repo.CreateContact(ctx, &c); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			l.Warn("contact_create_error", "status", 409, "reason", "duplicate email or phone")
			return nil, apperr.Wrap(apperr.ErrConflict, detailContactExists, err)
		}
		l.Error("contact_create_error", "status", 500, "error", err)
		return nil, err
	}

	s.reindex(ctx, c)
	s.publish(ctx, events.ContactCreated, c)
	l.Info("contact_create_success", "contact_id", c.ID)
	return &c, nil
}

func (s *ContactService) Update(ctx context.Context, userID, id uint, in ContactInput) (*models.Contact, error) {
	l := logging.FromContext(ctx).With("svc", "contacts.update", "contact_id", id)

	c, err := s.Repo.UpdateContact(ctx, userID, id, in.toModel(userID))
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			l.Warn("contact_update_error", "status", 409, "reason", "duplicate email or phone")
			return nil, apperr.Wrap(apperr.ErrConflict, detailContactExists, err)
		}
		l.Error("contact_update_error", "status", 500, "error", err)
		return nil, err
	}
	if c == nil {
		l.Warn("contact_update_error", "status", 404)
		return nil, apperr.New(apperr.ErrNotFound, detailContactNotFound)
	}

	s.reindex(ctx, *c)
	s.publish(ctx, events.ContactUpdated, *c)
	l.Info("contact_update_success")
	return c, nil
}

func (s *ContactService) Delete(ctx context.Context, userID, id uint) (*models.Contact, error) {
	l := logging.FromContext(ctx).With("svc", "contacts.delete", "contact_id", id)

	c, err := s.Repo.DeleteContact(ctx, userID, id)
	if err != nil {
		l.Error("contact_delete_error", "status", 500, "error", err)
		return nil, err
	}
	if c == nil {
		l.Warn("contact_delete_error", "status", 404)
		return nil, apperr.New(apperr.ErrNotFound, detailContactNotFound)
	}

	if s.Index != nil {
		background(ctx, s.indexTasks(), "unindex_contact", func(ctx context.Context) error {
			return s.Index.DeleteContact(ctx, id)
		})
	}
	s.publish(ctx, events.ContactDeleted, *c)
	l.Info("contact_delete_success")
	return c, nil
}

// UpcomingBirthdays returns the contacts whose birthday, moved to the current
// year, is between today and today+days (exclusive). days == 0 means
// DefaultBirthdayWindow. The window does not wrap into the next year.
func (s *ContactService) UpcomingBirthdays(ctx context.Context, userID uint, days int) ([]models.Contact, error) {
	if days == 0 {
		days = DefaultBirthdayWindow
	}
	if days < 1 || days > MaxBirthdayWindow {
		return nil, apperr.New(apperr.ErrValidation, "days must be between 1 and 366")
	}

	items, err := s.Repo.ListContacts(ctx, userID, "")
	if err != nil {
		logging.FromContext(ctx).Error("birthdays_error", "status", 500, "error", err)
		return nil, err
	}
	return upcomingBirthdays(items, s.now(), days), nil
}

func upcomingBirthdays(items []models.Contact, now time.Time, window int) []models.Contact {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	out := make([]models.Contact, 0)
	for _, c := range items {
		next := time.Date(y, c.Birthday.Month(), c.Birthday.Day(), 0, 0, 0, 0, time.UTC)
		days := int(next.Sub(today).Hours() / 24)
		if days >= 0 && days < window {
			out = append(out, c)
		}
	}
	return out
}

// Search looks contacts up in the search index when one is configured and
// falls back to a substring match in the database.
func (s *ContactService) Search(ctx context.Context, userID uint, q string, page, size int) (*SearchResult, error) {
	l := logging.FromContext(ctx).With("svc", "contacts.search")

	q = strings.TrimSpace(q)
	if q == "" {
		return nil, apperr.New(apperr.ErrValidation, "query must not be empty")
	}
	offset, limit := util.Calculate(page, size)
	if page < 1 {
		page = 1
	}
	res := &SearchResult{Page: page, Size: limit}

	if s.Index != nil {
		total, ids, err := s.Index.SearchContactIDs(ctx, userID, q, offset, limit)
		if err == nil {
			items, err := s.Repo.ContactsByIDs(ctx, userID, ids)
			if err != nil {
				l.Error("search_error", "status", 500, "error", err)
				return nil, err
			}
			res.Total, res.Contacts = total, items
			return res, nil
		}
		l.Warn("search_index_unavailable", "error", err)
	}

	total, items, err := s.Repo.SearchContacts(ctx, userID, q, offset, limit)
	if err != nil {
		l.Error("search_error", "status", 500, "error", err)
		return nil, err
	}
	res.Total, res.Contacts = total, items
	return res, nil
}

func (s *ContactService) reindex(ctx context.Context, c models.Contact) {
	if s.Index == nil {
		return
	}
	background(ctx, s.indexTasks(), "index_contact", func(ctx context.Context) error {
		return s.Index.IndexContact(ctx, c)
	})
}

func (s *ContactService) publish(ctx context.Context, typ string, c models.Contact) {
	publish(ctx, s.Tasks, s.Events, events.TopicContacts, events.Event{
		Type:      typ,
		UserID:    c.UserID,
		ContactID: c.ID,
		At:        s.now().UTC(),
	})
}

func (s *ContactService) indexTasks() Dispatcher {
	if s.IndexTasks != nil {
		return s.IndexTasks
	}
	return s.Tasks
}

func (s *ContactService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
