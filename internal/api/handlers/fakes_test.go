package handlers

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

type stubIdentities struct {
	mu      sync.Mutex
	created []model.Identity
	deleted []string
}

func (s *stubIdentities) CreateUser(_ context.Context, identity model.Identity) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, identity)
	return "kc-user-1", nil
}

func (s *stubIdentities) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, id)
	return nil
}

// stubAdmins хранит профили администраторов в памяти.
type stubAdmins struct {
	mu      sync.Mutex
	created []*model.AdminProfile
}

func (s *stubAdmins) Create(_ context.Context, p *model.AdminProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = "admin-profile-1"
	s.created = append(s.created, p)
	return nil
}

func (s *stubAdmins) GetByID(context.Context, string) (*model.AdminProfile, error) {
	return nil, repository.ErrNotFound
}

func (s *stubAdmins) GetActiveByAuthUserID(context.Context, string) (*model.AdminProfile, error) {
	return nil, repository.ErrNotFound
}

func (s *stubAdmins) LinkAuthUser(context.Context, string, string) error {
	return repository.ErrNotFound
}

type stubClients struct{}

func (stubClients) Create(_ context.Context, p *model.ClientProfile) error {
	p.ID = "client-profile-1"
	return nil
}

func (stubClients) GetByID(context.Context, string) (*model.ClientProfile, error) {
	return nil, repository.ErrNotFound
}

func (stubClients) LinkAuthUser(context.Context, string, string) error {
	return repository.ErrNotFound
}

type stubSender struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (s *stubSender) Send(_ context.Context, msg mailer.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.sent = append(s.sent, msg)
	return "email-id-1", nil
}

// stubChecker — ReadinessChecker с фиксированным результатом.
type stubChecker struct {
	status  string
	message string
}

func (s stubChecker) CheckReady() (string, string) {
	return s.status, s.message
}
