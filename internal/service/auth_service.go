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

// RegisterInput is a self-registration request.
type RegisterInput struct {
	Email       string
	Password    string
	PhoneNumber string
	Role        string
	Name        string
	OTP         string
}

// ResetPasswordInput completes an OTP password reset. Email is only needed
// when several accounts share the phone number.
type ResetPasswordInput struct {
	PhoneNumber     string
	OTP             string
	NewPassword     string
	ConfirmPassword string
	Email           string
}

// AcceptInvitationInput finalizes a pending account.
type AcceptInvitationInput struct {
	Email           string
	Password        string
	ConfirmPassword string
	OTP             string
}

// AuthOptions tunes registration and invitation policy.
type AuthOptions struct {
	InitialAdminEmail          string
	AllowAdminSelfRegistration bool
	RequireInvitationOTP       bool
}

// AuthService provides authentication related services
type AuthService interface {
	SendOTP(ctx context.Context, phone string) error
	Register(ctx context.Context, in RegisterInput) (*model.User, error)
	Login(ctx context.Context, email, password string) (*model.User, string, error)
	SendPasswordResetOTP(ctx context.Context, phone string) error
	ResetPassword(ctx context.Context, in ResetPasswordInput) error
	AcceptInvitation(ctx context.Context, in AcceptInvitationInput) (*model.User, error)
	CurrentUser(ctx context.Context, email string) (*model.User, error)
}

type authService struct {
	userRepo repository.UserRepository
	otp      otp.Gateway
	jwtUtil  *utils.JWTUtil
	opts     AuthOptions
	log      logging.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(userRepo repository.UserRepository, gateway otp.Gateway, jwtUtil *utils.JWTUtil, opts AuthOptions, log logging.Logger) AuthService {
	opts.InitialAdminEmail = NormalizeEmail(opts.InitialAdminEmail)
	return &authService{
		userRepo: userRepo,
		otp:      gateway,
		jwtUtil:  jwtUtil,
		opts:     opts,
		log:      log.With("component", "auth"),
	}
}

// NormalizeEmail is the canonical form emails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SendOTP issues a verification code to phone.
func (s *authService) SendOTP(ctx context.Context, phone string) error {
	if _, err := s.otp.IssueChallenge(ctx, phone); err != nil {
		return mapOTPError(err)
	}
	return nil
}

// Register creates a self-registered account after the phone's OTP checks
// out. Self-registered accounts need no invitation.
func (s *authService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	email := NormalizeEmail(in.Email)
	phone := otp.LocalPhone(in.PhoneNumber)
	if email == "" {
		return nil, newError(ErrInvalidInput, "email is required")
	}
	if phone == "" {
		return nil, ErrInvalidPhone
	}
	if err := checkPasswordLength(in.Password); err != nil {
		return nil, err
	}

	role := strings.ToLower(strings.TrimSpace(in.Role))
	if role == "" {
		role = model.RoleResident
	}
	if !model.ValidRole(role) {
		return nil, ErrInvalidRole
	}

	// Check for initial admin setup via environment variable
	if s.opts.InitialAdminEmail != "" && email == s.opts.InitialAdminEmail {
		role = model.RoleAdmin
		s.log.Info(ctx, "registering initial admin", "email", email)
	} else if role == model.RoleAdmin && !s.opts.AllowAdminSelfRegistration {
		return nil, ErrAdminSelfSignup
	}

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, ErrUserAlreadyExists
	}

	if err := s.verifyOTP(ctx, phone, in.OTP); err != nil {
		return nil, err
	}

	hashedPassword, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:              email,
		Name:               strings.TrimSpace(in.Name),
		PhoneNumber:        phone,
		PasswordHash:       hashedPassword,
		Role:               role,
		InvitationAccepted: true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("failed to create user in repository: %w", err)
	}
	s.log.Info(ctx, "user registered", "email", email, "role", role)
	return user, nil
}

// Login authenticates a user and returns a JWT token
func (s *authService) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	user, err := s.userRepo.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", ErrUserNotFound
		}
		return nil, "", fmt.Errorf("error finding user by email: %w", err)
	}

	if !utils.CheckPasswordHash(password, user.PasswordHash) {
		return nil, "", ErrInvalidCredentials
	}
	if !user.InvitationAccepted {
		return nil, "", ErrInvitationPending
	}
	if user.Suspended {
		s.log.Warn(ctx, "login attempt on suspended account", "email", user.Email)
		return nil, "", ErrAccountSuspended
	}

	token, err := s.jwtUtil.GenerateToken(user.Email, user.Role)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}
	return user, token, nil
}

// SendPasswordResetOTP sends a code only when an account uses the number.
// Gateway failures are logged, not returned, so every known or unknown
// number gets the same answer.
func (s *authService) SendPasswordResetOTP(ctx context.Context, phone string) error {
	local := otp.LocalPhone(phone)
	if local == "" {
		return ErrInvalidPhone
	}
	users, err := s.userRepo.FindByPhone(ctx, local)
	if err != nil {
		return fmt.Errorf("failed to find users by phone: %w", err)
	}
	if len(users) == 0 {
		s.log.Info(ctx, "password reset requested for unknown phone")
		return nil
	}
	if err := s.SendOTP(ctx, local); err != nil {
		s.log.Warn(ctx, "password reset code not sent", "error", err)
	}
	return nil
}

// ResetPassword sets a new password once the OTP is approved.
func (s *authService) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	if err := validateNewPassword(in.NewPassword, in.ConfirmPassword); err != nil {
		return err
	}
	phone := otp.LocalPhone(in.PhoneNumber)
	if phone == "" {
		return ErrInvalidPhone
	}

	if err := s.verifyOTP(ctx, phone, in.OTP); err != nil {
		return err
	}

	users, err := s.userRepo.FindByPhone(ctx, phone)
	if err != nil {
		return fmt.Errorf("failed to find users by phone: %w", err)
	}
	target, err := pickAccount(users, NormalizeEmail(in.Email))
	if err != nil {
		return err
	}
	if !target.InvitationAccepted {
		return newError(ErrInvalidInput, "accept your invitation before resetting the password")
	}

	hashedPassword, err := utils.HashPassword(in.NewPassword)
	if err != nil {
		return err
	}
	if err := s.userRepo.UpdatePassword(ctx, target.Email, hashedPassword); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to update password: %w", err)
	}
	s.log.Info(ctx, "password reset", "email", target.Email)
	return nil
}

func pickAccount(users []model.User, email string) (*model.User, error) {
	switch {
	case len(users) == 0:
		return nil, newError(ErrNotFound, "no account is registered with this phone number")
	case email != "":
		for i := range users {
			if users[i].Email == email {
				return &users[i], nil
			}
		}
		return nil, newError(ErrInvalidInput, "email does not match an account with this phone number")
	case len(users) > 1:
		return nil, newError(ErrInvalidInput, "several accounts use this phone number, please provide your email")
	default:
		return &users[0], nil
	}
}

// AcceptInvitation sets the invitee's password. The store only flips a
// pending invitation, so a second acceptance fails even under a race.
func (s *authService) AcceptInvitation(ctx context.Context, in AcceptInvitationInput) (*model.User, error) {
	if err := validateNewPassword(in.Password, in.ConfirmPassword); err != nil {
		return nil, err
	}
	email := NormalizeEmail(in.Email)

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvitationInvalid
		}
		return nil, fmt.Errorf("failed to find invited user: %w", err)
	}
	if user.InvitationAccepted {
		return nil, ErrInvitationInvalid
	}

	if s.opts.RequireInvitationOTP || strings.TrimSpace(in.OTP) != "" {
		if err := s.verifyOTP(ctx, user.PhoneNumber, in.OTP); err != nil {
			return nil, err
		}
	}

	hashedPassword, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	accepted, err := s.userRepo.AcceptInvitation(ctx, email, hashedPassword)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvitationInvalid
		}
		return nil, fmt.Errorf("failed to accept invitation: %w", err)
	}
	s.log.Info(ctx, "invitation accepted", "email", email)
	return accepted, nil
}

// CurrentUser returns the stored record for the token's subject.
func (s *authService) CurrentUser(ctx context.Context, email string) (*model.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load current user: %w", err)
	}
	return user, nil
}

// verifyOTP accepts only an Approved status.
func (s *authService) verifyOTP(ctx context.Context, phone, code string) error {
	if strings.TrimSpace(code) == "" {
		return newError(ErrInvalidInput, "verification code is required")
	}
	status, err := s.otp.CheckChallenge(ctx, phone, code)
	if err != nil {
		return mapOTPError(err)
	}
	switch status {
	case otp.Approved:
		return nil
	case otp.Expired:
		return ErrOTPExpired
	default:
		return ErrOTPRejected
	}
}

func mapOTPError(err error) error {
	switch {
	case errors.Is(err, otp.ErrTooManyRequests):
		return ErrOTPThrottled
	case errors.Is(err, otp.ErrInvalidPhone):
		return ErrInvalidPhone
	default:
		return fmt.Errorf("%w: %w", ErrOTPUnavailable, err)
	}
}
