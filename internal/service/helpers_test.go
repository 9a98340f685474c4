package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Skotchmaster/contacts/internal/events"
	"github.com/Skotchmaster/contacts/internal/models"
	"github.com/Skotchmaster/contacts/internal/repo"
	"github.com/Skotchmaster/contacts/pkg/db"
	"github.com/Skotchmaster/contacts/pkg/hash"
	"github.com/Skotchmaster/contacts/pkg/tokens"
)

func newTestRepo(t *testing.T) *repo.GormRepo {
	t.Helper()

	gdb, err := db.Open(context.Background(), db.DriverSQLite, "file::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(gdb) })

	require.NoError(t, repo.Migrate(context.Background(), gdb))
	return repo.New(gdb)
}

func newTestTokens(t *testing.T) *tokens.Service {
	t.Helper()

	svc, err := tokens.New(tokens.Config{Secret: []byte("test-jwt-secret")})
	require.NoError(t, err)
	return svc
}

type sentMail struct {
	Kind     string
	To       string
	Username string
	BaseURL  string
	Token    string
}

type fakeMail struct {
	mu   sync.Mutex
	sent []sentMail
}

func (f *fakeMail) SendConfirmation(ctx context.Context, to, username, baseURL, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{Kind: "confirm", To: to, Username: username, BaseURL: baseURL, Token: token})
	return nil
}

func (f *fakeMail) SendPasswordChanged(ctx context.Context, to, username, baseURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{Kind: "password", To: to, Username: username, BaseURL: baseURL})
	return nil
}

func (f *fakeMail) all() []sentMail {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMail(nil), f.sent...)
}

type fakeGravatar struct {
	url string
	err error
}

func (f fakeGravatar) Lookup(ctx context.Context, email string) (string, error) {
	return f.url, f.err
}

type publishedEvent struct {
	Topic string
	Key   string
	Event any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (f *fakePublisher) PublishEvent(ctx context.Context, topic, key string, event any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, publishedEvent{Topic: topic, Key: key, Event: event})
	return nil
}

func (f *fakePublisher) Close() error { return nil }

func (f *fakePublisher) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, e := range f.events {
		if ev, ok := e.Event.(events.Event); ok {
			out = append(out, ev.Type)
		}
	}
	return out
}

type fakeIndex struct {
	mu      sync.Mutex
	docs    map[uint]models.Contact
	ids     []uint
	total   int64
	err     error
	deleted []uint
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{docs: map[uint]models.Contact{}}
}

func (f *fakeIndex) IndexContact(ctx context.Context, c models.Contact) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[c.ID] = c
	return nil
}

func (f *fakeIndex) DeleteContact(ctx context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.docs, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeIndex) SearchContactIDs(ctx context.Context, userID uint, q string, offset, limit int) (int64, []uint, error) {
	return f.total, f.ids, f.err
}

var errIndexDown = errors.New("index down")

type fakeStore struct {
	key  string
	data []byte
	err  error
}

func (f *fakeStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.key, f.data = key, data
	return "https://cdn.example/" + key, nil
}

type authFixture struct {
	svc    *AuthService
	repo   *repo.GormRepo
	tokens *tokens.Service
	mail   *fakeMail
	events *fakePublisher
}

func newAuthFixture(t *testing.T, lookup AvatarLookup) *authFixture {
	t.Helper()

	r := newTestRepo(t)
	tk := newTestTokens(t)
	m := &fakeMail{}
	ev := &fakePublisher{}
	return &authFixture{
		svc: &AuthService{
			Users:   r,
			Hasher:  hash.NewHasher(bcrypt.MinCost),
			Tokens:  tk,
			Mail:    m,
			Avatars: lookup,
			Events:  ev,
		},
		repo:   r,
		tokens: tk,
		mail:   m,
		events: ev,
	}
}

// signupConfirmed registers a user and confirms the email directly.
func (f *authFixture) signupConfirmed(t *testing.T, email, password string) *models.User {
	t.Helper()

	u, err := f.svc.Signup(context.Background(), SignupInput{Username: "user_" + email[:3], Email: email, Password: password}, "http://localhost:8000")
	require.NoError(t, err)
	require.NoError(t, f.repo.ConfirmEmail(context.Background(), email))
	return u
}

func fixedClock(y int, m time.Month, d int) func() time.Time {
	return func() time.Time { return time.Date(y, m, d, 10, 30, 0, 0, time.UTC) }
}
