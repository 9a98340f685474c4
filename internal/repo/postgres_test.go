package repo

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/contacts/internal/models"
	"github.com/Skotchmaster/contacts/pkg/db"
)

func newPostgresRepo(t *testing.T) (*GormRepo, *gorm.DB) {
	t.Helper()

	dsn := os.Getenv("CONTACTS_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("CONTACTS_TEST_DATABASE_URL is required for postgres tests")
	}

	gdb, err := db.Open(context.Background(), db.DriverPostgres, dsn)
	require.NoError(t, err)
	require.NoError(t, Migrate(context.Background(), gdb))

	t.Cleanup(func() {
		gdb.Exec("TRUNCATE TABLE contacts, users RESTART IDENTITY CASCADE")
		_ = db.Close(gdb)
	})
	return New(gdb), gdb
}

func uniqueEmail() string {
	return "u_" + uuid.NewString()[:8] + "@example.com"
}

func TestPostgres_DuplicatesAreTranslated(t *testing.T) {
	r, _ := newPostgresRepo(t)
	ctx := context.Background()

	email := uniqueEmail()
	require.NoError(t, r.CreateUser(ctx, &models.User{Username: "alice", Email: email, Password: "hash"}))
	err := r.CreateUser(ctx, &models.User{Username: "alice2", Email: email, Password: "hash"})
	assert.True(t, errors.Is(err, ErrDuplicate))

	u, err := r.FindUserByEmail(ctx, email)
	require.NoError(t, err)

	bday := models.NewDate(1990, time.February, 28)
	require.NoError(t, r.CreateContact(ctx, newContact(u.ID, "John", "john."+email, "5550001", bday)))
	err = r.CreateContact(ctx, newContact(u.ID, "Jack", "jack."+email, "5550001", bday))
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestPostgres_DeleteUserCascades(t *testing.T) {
	r, gdb := newPostgresRepo(t)
	ctx := context.Background()

	u := &models.User{Username: "bobby", Email: uniqueEmail(), Password: "hash"}
	require.NoError(t, r.CreateUser(ctx, u))
	c := newContact(u.ID, "John", "john."+u.Email, "5550002", models.NewDate(1990, time.June, 3))
	require.NoError(t, r.CreateContact(ctx, c))

	got, err := r.GetContact(ctx, u.ID, c.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.NewDate(1990, time.June, 3), got.Birthday)

	require.NoError(t, gdb.WithContext(ctx).Delete(&models.User{}, u.ID).Error)

	got, err = r.GetContact(ctx, u.ID, c.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}
