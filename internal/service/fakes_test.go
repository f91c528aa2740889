package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/sakif/accessible-chennai/internal/apperror"
	"github.com/sakif/accessible-chennai/internal/auth"
	"github.com/sakif/accessible-chennai/internal/model"
)

// =========================================================================
// FAKES
// =========================================================================
//
// Hand-written in-memory fakes of the repository interfaces. They enforce
// the same contract as internal/repository/sqldb (unique email and
// external id, NotFound on missing rows, newest-first lists) so service
// tests exercise real rules without a database.

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[string]*model.User // keyed by internal ID
	nextID int

	// set to a non-nil error to simulate a database failure
	createErr error
	getErr    error
	updateErr error

	creates, updates int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

// clone copies the maps and slices so callers never share state with the fake.
func clone(u *model.User) *model.User {
	c := *u
	if u.Preferences != nil {
		c.Preferences = u.Preferences.Merge(nil)
	}
	if u.SavedPlaces != nil {
		c.SavedPlaces = append([]any{}, u.SavedPlaces...)
	}
	return &c
}

func (f *fakeUserRepo) CreateUser(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	for _, u := range f.users {
		if u.Email == user.Email {
			return apperror.DuplicateKey("user", "email")
		}
		if user.ExternalID != "" && u.ExternalID == user.ExternalID {
			return apperror.DuplicateKey("user", "external_id")
		}
	}
	f.nextID++
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	f.users[user.ID] = clone(user)
	f.creates++
	return nil
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	return clone(u), nil
}

func (f *fakeUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.users {
		if u.Email == email {
			return clone(u), nil
		}
	}
	return nil, &apperror.AppError{Err: apperror.ErrNotFound, Message: "user not found"}
}

func (f *fakeUserRepo) GetUserByExternalID(_ context.Context, externalID string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.users {
		if externalID != "" && u.ExternalID == externalID {
			return clone(u), nil
		}
	}
	return nil, &apperror.AppError{Err: apperror.ErrNotFound, Message: "user not found"}
}

func (f *fakeUserRepo) UpdateUser(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.users[user.ID]; !ok {
		return apperror.NotFound("user", user.ID)
	}
	user.UpdatedAt = time.Now()
	f.users[user.ID] = clone(user)
	f.updates++
	return nil
}

// seed stores a user directly, bypassing the service under test.
func (f *fakeUserRepo) seed(u *model.User) *model.User {
	if err := f.CreateUser(context.Background(), u); err != nil {
		panic(err)
	}
	f.creates--
	return u
}

func (f *fakeUserRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.users)
}

// fakeRecordRepo implements the three collection repositories. Lists are
// sorted newest first with the id as tie-breaker, like the SQL store.
type fakeRecordRepo struct {
	alerts   []model.Alert
	messages []model.CommunityMessage
	routes   []model.Route
	nextID   int
	err      error
}

func (f *fakeRecordRepo) id() string {
	f.nextID++
	return fmt.Sprintf("rec-%03d", f.nextID)
}

func stampOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}

func (f *fakeRecordRepo) CreateAlert(_ context.Context, a *model.Alert) error {
	if f.err != nil {
		return f.err
	}
	a.ID = f.id()
	a.CreatedAt = stampOrNow(a.CreatedAt)
	f.alerts = append(f.alerts, *a)
	return nil
}

func (f *fakeRecordRepo) ListAlerts(context.Context) ([]model.Alert, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := append([]model.Alert{}, f.alerts...)
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (f *fakeRecordRepo) CreateMessage(_ context.Context, m *model.CommunityMessage) error {
	if f.err != nil {
		return f.err
	}
	m.ID = f.id()
	m.CreatedAt = stampOrNow(m.CreatedAt)
	f.messages = append(f.messages, *m)
	return nil
}

func (f *fakeRecordRepo) ListMessages(context.Context) ([]model.CommunityMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := append([]model.CommunityMessage{}, f.messages...)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeRecordRepo) CreateRoute(_ context.Context, r *model.Route) error {
	if f.err != nil {
		return f.err
	}
	r.ID = f.id()
	r.CreatedAt = stampOrNow(r.CreatedAt)
	f.routes = append(f.routes, *r)
	return nil
}

func (f *fakeRecordRepo) ListRoutes(context.Context) ([]model.Route, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := append([]model.Route{}, f.routes...)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// fakeProvider stands in for Google. It records whether a code exchange
// was attempted so tests can prove a forged callback never reached it.
type fakeProvider struct {
	configured bool
	identity   *auth.Identity
	err        error

	exchanges int
	lastCode  string
}

func (p *fakeProvider) Configured() bool { return p.configured }

func (p *fakeProvider) AuthURL(state string) string {
	return "https://accounts.example.com/auth?state=" + state
}

func (p *fakeProvider) Authenticate(_ context.Context, code string) (*auth.Identity, error) {
	p.exchanges++
	p.lastCode = code
	if p.err != nil {
		return nil, p.err
	}
	return p.identity, nil
}

type fakeResetter struct {
	resets int
	err    error
}

func (f *fakeResetter) Reset(context.Context) error {
	if f.err != nil {
		return f.err
	}
	f.resets++
	return nil
}

// =========================================================================
// SHARED HELPERS
// =========================================================================

func newTestTokens() *auth.TokenService {
	ts, err := auth.NewTokenService("test-secret-at-least-16-chars!!")
	if err != nil {
		panic(err)
	}
	return ts
}
