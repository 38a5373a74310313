package service

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/solescopeai/site-backend/internal/domain/model"
	"github.com/solescopeai/site-backend/internal/mailer"
	"github.com/solescopeai/site-backend/internal/repository"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeIdentities — IdentityProvider с счётчиками вызовов и внедрением ошибок.
type fakeIdentities struct {
	mu        sync.Mutex
	nextID    string
	createErr error
	deleteErr error

	created []model.Identity
	deleted []string
	// deleteCtxErr — ctx.Err() на момент вызова DeleteUser
	deleteCtxErr error
}

func (f *fakeIdentities) CreateUser(_ context.Context, identity model.Identity) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, identity)
	if f.createErr != nil {
		return "", f.createErr
	}
	if f.nextID == "" {
		return "kc-user-1", nil
	}
	return f.nextID, nil
}

func (f *fakeIdentities) DeleteUser(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	f.deleteCtxErr = ctx.Err()
	return f.deleteErr
}

func (f *fakeIdentities) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created) + len(f.deleted)
}

// fakeAdmins — AdminProfileRepository в памяти.
type fakeAdmins struct {
	// active — активные профили по auth_user_id
	active    map[string]*model.AdminProfile
	byID      map[string]*model.AdminProfile
	createErr error
	linkErr   error
	// onCreate вызывается перед возвратом из Create
	onCreate func()

	created []*model.AdminProfile
	linked  map[string]string
	lookups int
}

func newFakeAdmins() *fakeAdmins {
	return &fakeAdmins{
		active: map[string]*model.AdminProfile{},
		byID:   map[string]*model.AdminProfile{},
		linked: map[string]string{},
	}
}

func (f *fakeAdmins) withCaller(authUserID, role string) *fakeAdmins {
	f.active[authUserID] = &model.AdminProfile{
		ID: "admin-" + authUserID, AuthUserID: authUserID, Role: role, IsActive: true,
	}
	return f
}

func (f *fakeAdmins) Create(_ context.Context, p *model.AdminProfile) error {
	if f.onCreate != nil {
		f.onCreate()
	}
	if f.createErr != nil {
		return f.createErr
	}
	p.ID = "11111111-1111-1111-1111-111111111111"
	f.created = append(f.created, p)
	return nil
}

func (f *fakeAdmins) GetByID(_ context.Context, id string) (*model.AdminProfile, error) {
	f.lookups++
	p, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

func (f *fakeAdmins) GetActiveByAuthUserID(_ context.Context, authUserID string) (*model.AdminProfile, error) {
	f.lookups++
	p, ok := f.active[authUserID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

func (f *fakeAdmins) LinkAuthUser(_ context.Context, id, authUserID string) error {
	if f.linkErr != nil {
		return f.linkErr
	}
	f.linked[id] = authUserID
	return nil
}

// fakeClients — ClientProfileRepository в памяти.
type fakeClients struct {
	byID      map[string]*model.ClientProfile
	createErr error
	linkErr   error

	created []*model.ClientProfile
	linked  map[string]string
	lookups int
}

func newFakeClients() *fakeClients {
	return &fakeClients{byID: map[string]*model.ClientProfile{}, linked: map[string]string{}}
}

func (f *fakeClients) Create(_ context.Context, p *model.ClientProfile) error {
	if f.createErr != nil {
		return f.createErr
	}
	p.ID = "22222222-2222-2222-2222-222222222222"
	f.created = append(f.created, p)
	return nil
}

func (f *fakeClients) GetByID(_ context.Context, id string) (*model.ClientProfile, error) {
	f.lookups++
	p, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

func (f *fakeClients) LinkAuthUser(_ context.Context, id, authUserID string) error {
	if f.linkErr != nil {
		return f.linkErr
	}
	f.linked[id] = authUserID
	return nil
}

// fakeSender — MailSender с записью отправленных писем.
type fakeSender struct {
	mu   sync.Mutex
	err  error
	sent []mailer.Message
}

func (f *fakeSender) Send(_ context.Context, msg mailer.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	if f.err != nil {
		return "", f.err
	}
	return "email-id-1", nil
}
