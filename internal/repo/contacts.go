package repo

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/Skotchmaster/contacts/internal/models"
)

// ListContacts returns the user's contacts. A non-empty filter keeps only
// contacts whose first name, last name or email equals it.
func (r *GormRepo) ListContacts(ctx context.Context, userID uint, filter string) ([]models.Contact, error) {
	q := r.DB.WithContext(ctx).Where("user_id = ?", userID)
	if filter != "" {
		q = q.Where("first_name = ? OR last_name = ? OR email = ?", filter, filter, filter)
	}

	items := make([]models.Contact, 0)
	if err := q.Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// GetContact returns nil, nil when the contact does not exist or belongs to
// another user.
func (r *GormRepo) GetContact(ctx context.Context, userID, id uint) (*models.Contact, error) {
	return r.ownedContact(r.DB.WithContext(ctx), userID, id)
}

func (r *GormRepo) CreateContact(ctx context.Context, c *models.Contact) error {
	return translate(r.DB.WithContext(ctx).Create(c).Error)
}

// UpdateContact replaces the mutable fields of an owned contact.
func (r *GormRepo) UpdateContact(ctx context.Context, userID, id uint, in models.Contact) (*models.Contact, error) {
	var out *models.Contact
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := r.ownedContact(tx, userID, id)
		if err != nil || c == nil {
			return err
		}

		c.FirstName = in.FirstName
		c.LastName = in.LastName
		c.Email = in.Email
		c.Phone = in.Phone
		c.Birthday = in.Birthday
		c.Description = in.Description

		if err := tx.Save(c).Error; err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}
	return out, nil
}

// DeleteContact returns the deleted row, or nil, nil when nothing owned
// matched.
func (r *GormRepo) DeleteContact(ctx context.Context, userID, id uint) (*models.Contact, error) {
	var out *models.Contact
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := r.ownedContact(tx, userID, id)
		if err != nil || c == nil {
			return err
		}

		res := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&models.Contact{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *GormRepo) AllContacts(ctx context.Context, userID uint) ([]models.Contact, error) {
	return r.ListContacts(ctx, userID, "")
}

// ContactsByIDs loads the user's contacts with the given ids, keeping the
// order of ids and skipping ids that are missing or not owned.
func (r *GormRepo) ContactsByIDs(ctx context.Context, userID uint, ids []uint) ([]models.Contact, error) {
	out := make([]models.Contact, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var items []models.Contact
	if err := r.DB.WithContext(ctx).
		Where("user_id = ? AND id IN ?", userID, ids).
		Find(&items).Error; err != nil {
		return nil, err
	}

	byID := make(map[uint]models.Contact, len(items))
	for _, c := range items {
		byID[c.ID] = c
	}
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// SearchContacts is a case-insensitive substring search over names, email
// and phone, scoped to the user.
func (r *GormRepo) SearchContacts(ctx context.Context, userID uint, q string, offset, limit int) (int64, []models.Contact, error) {
	pattern := "%" + escapeLike(strings.ToLower(strings.TrimSpace(q))) + "%"
	where := "user_id = ? AND (LOWER(first_name) LIKE ? ESCAPE '\\' OR LOWER(last_name) LIKE ? ESCAPE '\\' " +
		"OR LOWER(email) LIKE ? ESCAPE '\\' OR phone LIKE ? ESCAPE '\\')"
	args := []any{userID, pattern, pattern, pattern, pattern}

	var total int64
	if err := r.DB.WithContext(ctx).
		Model(&models.Contact{}).
		Where(where, args...).
		Count(&total).Error; err != nil {
		return 0, nil, err
	}

	items := make([]models.Contact, 0, limit)
	if err := r.DB.WithContext(ctx).
		Where(where, args...).
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

func (r *GormRepo) ownedContact(db *gorm.DB, userID, id uint) (*models.Contact, error) {
	var c models.Contact
	if err := db.Where("id = ? AND user_id = ?", id, userID).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
