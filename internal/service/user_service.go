package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"minimart/internal/logging"
	"minimart/internal/model"
	"minimart/internal/otp"
	"minimart/internal/repository"
	"minimart/internal/utils"
)

// UserService is the admin console's account management.
type UserService interface {
	ListUsers(ctx context.Context, filters model.UserFilters) ([]model.User, error)
	GetUser(ctx context.Context, email string) (*model.User, error)
	CreateUser(ctx context.Context, actor string, req model.CreateUserRequest) (*model.User, bool, error)
	UpdateUser(ctx context.Context, actor, email string, upd model.UserUpdate) (*model.User, error)
	SetSuspended(ctx context.Context, actor, email string, suspended bool) (*model.User, error)
	ForcePasswordReset(ctx context.Context, actor, email, newPassword, confirmPassword string) error
	ResendInvitation(ctx context.Context, actor, email string) (bool, error)
}

type userService struct {
	repo    repository.UserRepository
	inviter *Inviter
	audit   AuditRecorder
	log     logging.Logger
}

// NewUserService creates a new UserService
func NewUserService(repo repository.UserRepository, inviter *Inviter, audit AuditRecorder, log logging.Logger) UserService {
	return &userService{repo: repo, inviter: inviter, audit: audit, log: log.With("component", "users")}
}

func (s *userService) ListUsers(ctx context.Context, filters model.UserFilters) ([]model.User, error) {
	if filters.Role != nil {
		role := strings.ToLower(*filters.Role)
		if role != "" && !model.ValidRole(role) {
			return nil, ErrInvalidRole
		}
		filters.Role = &role
	}
	users, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (s *userService) GetUser(ctx context.Context, email string) (*model.User, error) {
	u, err := s.repo.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// CreateUser adds a pending user and mails the invitation. The bool reports
// whether the invitation was delivered; the user exists either way.
func (s *userService) CreateUser(ctx context.Context, actor string, req model.CreateUserRequest) (*model.User, bool, error) {
	role := strings.ToLower(strings.TrimSpace(req.Role))
	if !model.ValidRole(role) {
		return nil, false, ErrInvalidRole
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, false, newError(ErrInvalidInput, "name is required")
	}
	phone := otp.LocalPhone(req.PhoneNumber)
	if phone == "" {
		return nil, false, ErrInvalidPhone
	}

	user := &model.User{
		Email:       NormalizeEmail(req.Email),
		Name:        name,
		PhoneNumber: phone,
		Role:        role,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, false, ErrUserAlreadyExists
		}
		return nil, false, fmt.Errorf("failed to create user: %w", err)
	}

	sent := s.inviter.Send(ctx, user)
	s.audit.Record(ctx, actor, model.ActionUserCreated, model.EntityUser, user.Email,
		map[string]any{"role": role, "invitationSent": sent})
	return user, sent, nil
}

func (s *userService) UpdateUser(ctx context.Context, actor, email string, upd model.UserUpdate) (*model.User, error) {
	email = NormalizeEmail(email)
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, newError(ErrInvalidInput, "name cannot be empty")
		}
		upd.Name = &name
	}
	if upd.PhoneNumber != nil {
		phone := otp.LocalPhone(*upd.PhoneNumber)
		if phone == "" {
			return nil, ErrInvalidPhone
		}
		upd.PhoneNumber = &phone
	}
	if upd.Role != nil {
		role := strings.ToLower(strings.TrimSpace(*upd.Role))
		if !model.ValidRole(role) {
			return nil, ErrInvalidRole
		}
		if email == NormalizeEmail(actor) && role != model.RoleAdmin {
			return nil, ErrSelfRoleChange
		}
		upd.Role = &role
	}

	u, err := s.repo.UpdateFields(ctx, email, upd)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	s.audit.Record(ctx, actor, model.ActionUserUpdated, model.EntityUser, email, upd)
	return u, nil
}

func (s *userService) SetSuspended(ctx context.Context, actor, email string, suspended bool) (*model.User, error) {
	email = NormalizeEmail(email)
	if suspended && email == NormalizeEmail(actor) {
		return nil, ErrSelfSuspend
	}
	if err := s.repo.SetSuspended(ctx, email, suspended); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update suspension: %w", err)
	}

	action := model.ActionUserUnsuspended
	if suspended {
		action = model.ActionUserSuspended
	}
	s.audit.Record(ctx, actor, action, model.EntityUser, email, nil)
	return s.GetUser(ctx, email)
}

// ForcePasswordReset lets an admin set a user's password directly.
func (s *userService) ForcePasswordReset(ctx context.Context, actor, email, newPassword, confirmPassword string) error {
	if err := validateNewPassword(newPassword, confirmPassword); err != nil {
		return err
	}
	email = NormalizeEmail(email)
	hashedPassword, err := utils.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, email, hashedPassword); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to reset password: %w", err)
	}
	s.audit.Record(ctx, actor, model.ActionUserPasswordReset, model.EntityUser, email, nil)
	return nil
}

// ResendInvitation mails a still-pending invitee again.
func (s *userService) ResendInvitation(ctx context.Context, actor, email string) (bool, error) {
	u, err := s.GetUser(ctx, email)
	if err != nil {
		return false, err
	}
	if u.InvitationAccepted {
		return false, ErrInvitationInvalid
	}
	sent := s.inviter.Send(ctx, u)
	if !sent {
		return false, ErrMailUnavailable
	}
	s.audit.Record(ctx, actor, model.ActionInvitationResent, model.EntityUser, u.Email, nil)
	return true, nil
}
