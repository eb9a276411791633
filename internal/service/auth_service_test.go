package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"minimart/internal/logging"
	"minimart/internal/model"
	"minimart/internal/otp"
	"minimart/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthService(repo *fakeUserRepo, gw *fakeGateway, opts AuthOptions) AuthService {
	return NewAuthService(repo, gw, utils.NewJWTUtil("secret", time.Hour), opts, logging.Nop())
}

func activeUser(t *testing.T, email, phone, password, role string) *model.User {
	t.Helper()
	hash, err := utils.HashPassword(password)
	require.NoError(t, err)
	return &model.User{Email: email, Name: "Test", PhoneNumber: phone, PasswordHash: hash, Role: role, InvitationAccepted: true}
}

func TestAuthService_Register(t *testing.T) {
	repo := newFakeUserRepo()
	gw := &fakeGateway{status: otp.Approved}
	svc := newAuthService(repo, gw, AuthOptions{})

	u, err := svc.Register(context.Background(), RegisterInput{
		Email: " Alice@Example.com ", Password: "secret1", PhoneNumber: "812-3456", OTP: "123456",
	})

	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.Equal(t, model.RoleResident, u.Role)
	assert.True(t, u.InvitationAccepted)
	assert.Equal(t, []string{"8123456"}, gw.checked)
	assert.True(t, utils.CheckPasswordHash("secret1", repo.get("alice@example.com").PasswordHash))
}

func TestAuthService_Register_OTPRejected(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newAuthService(repo, &fakeGateway{status: otp.Rejected}, AuthOptions{})

	_, err := svc.Register(context.Background(), RegisterInput{
		Email: "a@example.com", Password: "secret1", PhoneNumber: "8123456", OTP: "000000",
	})

	assert.ErrorIs(t, err, ErrOTPRejected)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Nil(t, repo.get("a@example.com"))
}

func TestAuthService_Register_DuplicateChecksBeforeOTP(t *testing.T) {
	repo := newFakeUserRepo(activeUser(t, "a@example.com", "8123456", "secret1", model.RoleResident))
	gw := &fakeGateway{status: otp.Approved}
	svc := newAuthService(repo, gw, AuthOptions{})

	_, err := svc.Register(context.Background(), RegisterInput{
		Email: "a@example.com", Password: "secret1", PhoneNumber: "8123456", OTP: "123456",
	})

	assert.ErrorIs(t, err, ErrConflict)
	assert.Empty(t, gw.checked)
}

func TestAuthService_Register_PasswordTooLong(t *testing.T) {
	repo := newFakeUserRepo()
	gw := &fakeGateway{status: otp.Approved}
	svc := newAuthService(repo, gw, AuthOptions{})

	_, err := svc.Register(context.Background(), RegisterInput{
		Email: "a@example.com", Password: strings.Repeat("a", 80), PhoneNumber: "8123456", OTP: "123456",
	})

	assert.ErrorIs(t, err, ErrPasswordTooLong)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Empty(t, gw.checked)
	assert.Nil(t, repo.get("a@example.com"))
}

func TestAuthService_Register_AdminPolicy(t *testing.T) {
	gw := &fakeGateway{status: otp.Approved}

	svc := newAuthService(newFakeUserRepo(), gw, AuthOptions{})
	_, err := svc.Register(context.Background(), RegisterInput{
		Email: "boss@example.com", Password: "secret1", PhoneNumber: "8123456", Role: "admin", OTP: "1",
	})
	assert.ErrorIs(t, err, ErrAdminSelfSignup)

	svc = newAuthService(newFakeUserRepo(), gw, AuthOptions{InitialAdminEmail: "Boss@Example.com"})
	u, err := svc.Register(context.Background(), RegisterInput{
		Email: "boss@example.com", Password: "secret1", PhoneNumber: "8123456", OTP: "1",
	})
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, u.Role)
}

func TestAuthService_Login(t *testing.T) {
	repo := newFakeUserRepo(activeUser(t, "a@example.com", "8123456", "secret1", model.RoleResident))
	svc := newAuthService(repo, &fakeGateway{}, AuthOptions{})

	u, token, err := svc.Login(context.Background(), "A@example.com", "secret1")

	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, "a@example.com", u.Email)
}

func TestAuthService_Login_Failures(t *testing.T) {
	suspended := activeUser(t, "s@example.com", "8123456", "secret1", model.RoleResident)
	suspended.Suspended = true
	invited := &model.User{Email: "p@example.com", PhoneNumber: "8123456", Role: model.RoleResident}
	pending := activeUser(t, "q@example.com", "8123456", "secret1", model.RoleResident)
	pending.InvitationAccepted = false
	repo := newFakeUserRepo(
		activeUser(t, "a@example.com", "8123456", "secret1", model.RoleResident),
		suspended,
		invited,
		pending,
	)
	svc := newAuthService(repo, &fakeGateway{}, AuthOptions{})

	tests := []struct {
		name     string
		email    string
		password string
		want     error
	}{
		{"unknown email", "nobody@example.com", "secret1", ErrUserNotFound},
		{"wrong password", "a@example.com", "wrong-pw", ErrInvalidCredentials},
		{"suspended", "s@example.com", "secret1", ErrAccountSuspended},
		{"invited without password", "p@example.com", "secret1", ErrInvalidCredentials},
		{"pending with wrong password", "q@example.com", "wrong-pw", ErrInvalidCredentials},
		{"pending with right password", "q@example.com", "secret1", ErrInvitationPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, token, err := svc.Login(context.Background(), tt.email, tt.password)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, token)
		})
	}
}

func TestAuthService_SendOTP_Throttled(t *testing.T) {
	svc := newAuthService(newFakeUserRepo(), &fakeGateway{err: otp.ErrTooManyRequests}, AuthOptions{})

	err := svc.SendOTP(context.Background(), "8123456")

	assert.ErrorIs(t, err, ErrTooManyRequests)
}

func TestAuthService_SendOTP_GatewayDown(t *testing.T) {
	svc := newAuthService(newFakeUserRepo(), &fakeGateway{err: otp.ErrGatewayFailure}, AuthOptions{})

	err := svc.SendOTP(context.Background(), "8123456")

	assert.ErrorIs(t, err, ErrExternalService)
	assert.ErrorIs(t, err, otp.ErrGatewayFailure)
}

func TestAuthService_SendPasswordResetOTP_UnknownPhone(t *testing.T) {
	gw := &fakeGateway{status: otp.Approved}
	svc := newAuthService(newFakeUserRepo(), gw, AuthOptions{})

	err := svc.SendPasswordResetOTP(context.Background(), "8123456")

	assert.NoError(t, err)
	assert.Empty(t, gw.issued)
}

func TestAuthService_SendPasswordResetOTP_GatewayFailureIsGeneric(t *testing.T) {
	repo := newFakeUserRepo(activeUser(t, "a@example.com", "8123456", "secret1", model.RoleResident))

	for _, gwErr := range []error{otp.ErrTooManyRequests, otp.ErrGatewayFailure} {
		svc := newAuthService(repo, &fakeGateway{err: gwErr}, AuthOptions{})
		assert.NoError(t, svc.SendPasswordResetOTP(context.Background(), "8123456"))
	}
}

func TestAuthService_ResetPassword_SharedPhone(t *testing.T) {
	repo := newFakeUserRepo(
		activeUser(t, "a@example.com", "8123456", "oldpass", model.RoleResident),
		activeUser(t, "b@example.com", "8123456", "oldpass", model.RoleResident),
	)
	svc := newAuthService(repo, &fakeGateway{status: otp.Approved}, AuthOptions{})
	in := ResetPasswordInput{PhoneNumber: "8123456", OTP: "1", NewPassword: "newpass", ConfirmPassword: "newpass"}

	err := svc.ResetPassword(context.Background(), in)
	assert.ErrorIs(t, err, ErrInvalidInput)

	in.Email = "B@example.com"
	require.NoError(t, svc.ResetPassword(context.Background(), in))
	assert.True(t, utils.CheckPasswordHash("newpass", repo.get("b@example.com").PasswordHash))
	assert.True(t, utils.CheckPasswordHash("oldpass", repo.get("a@example.com").PasswordHash))
}

func TestAuthService_ResetPassword_Validation(t *testing.T) {
	gw := &fakeGateway{status: otp.Approved}
	svc := newAuthService(newFakeUserRepo(), gw, AuthOptions{})

	err := svc.ResetPassword(context.Background(), ResetPasswordInput{
		PhoneNumber: "8123456", OTP: "1", NewPassword: "newpass", ConfirmPassword: "other",
	})
	assert.ErrorIs(t, err, ErrPasswordMismatch)

	err = svc.ResetPassword(context.Background(), ResetPasswordInput{
		PhoneNumber: "8123456", OTP: "1", NewPassword: "abc", ConfirmPassword: "abc",
	})
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	long := strings.Repeat("x", MaxPasswordLength+1)
	err = svc.ResetPassword(context.Background(), ResetPasswordInput{
		PhoneNumber: "8123456", OTP: "1", NewPassword: long, ConfirmPassword: long,
	})
	assert.ErrorIs(t, err, ErrPasswordTooLong)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Empty(t, gw.checked)
}

func TestAuthService_ResetPassword_ExpiredCode(t *testing.T) {
	repo := newFakeUserRepo(activeUser(t, "a@example.com", "8123456", "oldpass", model.RoleResident))
	svc := newAuthService(repo, &fakeGateway{status: otp.Expired}, AuthOptions{})

	err := svc.ResetPassword(context.Background(), ResetPasswordInput{
		PhoneNumber: "8123456", OTP: "1", NewPassword: "newpass", ConfirmPassword: "newpass",
	})

	assert.ErrorIs(t, err, ErrOTPExpired)
}

func TestAuthService_AcceptInvitation(t *testing.T) {
	repo := newFakeUserRepo(&model.User{Email: "inv@example.com", PhoneNumber: "8123456", Role: model.RoleResident})
	svc := newAuthService(repo, &fakeGateway{status: otp.Approved}, AuthOptions{})
	in := AcceptInvitationInput{Email: "inv@example.com", Password: "secret1", ConfirmPassword: "secret1"}

	u, err := svc.AcceptInvitation(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, u.InvitationAccepted)

	_, _, err = svc.Login(context.Background(), "inv@example.com", "secret1")
	assert.NoError(t, err)

	_, err = svc.AcceptInvitation(context.Background(), in)
	assert.ErrorIs(t, err, ErrInvalidInvitation)
}

func TestAuthService_AcceptInvitation_RequiresOTP(t *testing.T) {
	repo := newFakeUserRepo(&model.User{Email: "inv@example.com", PhoneNumber: "8123456", Role: model.RoleResident})
	gw := &fakeGateway{status: otp.Rejected}
	svc := newAuthService(repo, gw, AuthOptions{RequireInvitationOTP: true})

	_, err := svc.AcceptInvitation(context.Background(), AcceptInvitationInput{
		Email: "inv@example.com", Password: "secret1", ConfirmPassword: "secret1", OTP: "999999",
	})

	assert.ErrorIs(t, err, ErrOTPRejected)
	assert.Equal(t, []string{"8123456"}, gw.checked)
	assert.False(t, repo.get("inv@example.com").InvitationAccepted)
}

func TestAuthService_AcceptInvitation_UnknownEmail(t *testing.T) {
	svc := newAuthService(newFakeUserRepo(), &fakeGateway{}, AuthOptions{})

	_, err := svc.AcceptInvitation(context.Background(), AcceptInvitationInput{
		Email: "ghost@example.com", Password: "secret1", ConfirmPassword: "secret1",
	})

	assert.ErrorIs(t, err, ErrInvitationInvalid)
}
