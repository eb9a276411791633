package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"minimart/internal/mailer"
	"minimart/internal/model"
	"minimart/internal/otp"
	"minimart/internal/repository"
)

type fakeUserRepo struct {
	mu       sync.Mutex
	users    map[string]*model.User
	nextID   int64
	findErr  error
	onCreate func(u *model.User)
}

func newFakeUserRepo(users ...*model.User) *fakeUserRepo {
	r := &fakeUserRepo{users: map[string]*model.User{}}
	for _, u := range users {
		r.nextID++
		u.ID = r.nextID
		r.users[u.Email] = u
	}
	return r
}

func (r *fakeUserRepo) Create(_ context.Context, u *model.User) error {
	if r.onCreate != nil {
		r.onCreate(u)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.Email]; ok {
		return repository.ErrDuplicateEmail
	}
	r.nextID++
	u.ID = r.nextID
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	r.users[u.Email] = &cp
	return nil
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	u, ok := r.users[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) FindByPhone(_ context.Context, phone string) ([]model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.User
	for _, u := range r.users {
		if u.PhoneNumber == phone {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) List(_ context.Context, _ model.UserFilters) ([]model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.User{}
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, nil
}

func (r *fakeUserRepo) UpdateFields(_ context.Context, email string, upd model.UserUpdate) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.PhoneNumber != nil {
		u.PhoneNumber = *upd.PhoneNumber
	}
	if upd.Role != nil {
		u.Role = *upd.Role
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) SetSuspended(_ context.Context, email string, suspended bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[email]
	if !ok {
		return repository.ErrNotFound
	}
	u.Suspended = suspended
	return nil
}

func (r *fakeUserRepo) UpdatePassword(_ context.Context, email, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[email]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (r *fakeUserRepo) AcceptInvitation(_ context.Context, email, hash string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[email]
	if !ok || u.InvitationAccepted {
		return nil, repository.ErrNotFound
	}
	u.PasswordHash = hash
	u.InvitationAccepted = true
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) MarkInvitationSent(_ context.Context, email string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[email]
	if !ok {
		return repository.ErrNotFound
	}
	u.InvitationSentAt = &at
	return nil
}

func (r *fakeUserRepo) get(email string) *model.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[email]
}

type fakeGateway struct {
	status  otp.Status
	err     error
	issued  []string
	checked []string
}

func (g *fakeGateway) IssueChallenge(_ context.Context, phone string) (*otp.Challenge, error) {
	if g.err != nil {
		return nil, g.err
	}
	g.issued = append(g.issued, phone)
	return &otp.Challenge{SID: "VE1", To: phone, Status: "pending"}, nil
}

func (g *fakeGateway) CheckChallenge(_ context.Context, phone, _ string) (otp.Status, error) {
	g.checked = append(g.checked, phone)
	if g.err != nil {
		return "", g.err
	}
	return g.status, nil
}

type fakeMailer struct {
	err  error
	sent []mailer.Invitation
}

func (m *fakeMailer) SendInvitation(_ context.Context, inv mailer.Invitation) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, inv)
	return nil
}

type auditEntry struct {
	actor, action, entityType, entityID string
	details                             any
}

type fakeAudit struct {
	entries []auditEntry
}

func (a *fakeAudit) Record(_ context.Context, actor, action, entityType, entityID string, details any) {
	a.entries = append(a.entries, auditEntry{actor, action, entityType, entityID, details})
}

func (a *fakeAudit) actions() []string {
	out := make([]string, 0, len(a.entries))
	for _, e := range a.entries {
		out = append(out, e.action)
	}
	return out
}

var errDB = errors.New("connection reset")
