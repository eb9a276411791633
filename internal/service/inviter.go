package service

import (
	"context"
	"net/url"
	"time"

	"minimart/internal/logging"
	"minimart/internal/mailer"
	"minimart/internal/model"
	"minimart/internal/repository"
)

// Inviter moves a pending user from Created to NotificationSent by mailing
// the accept link and stamping invitation_sent_at.
type Inviter struct {
	users   repository.UserRepository
	mail    mailer.Sender
	baseURL string
	log     logging.Logger
	now     func() time.Time
}

// NewInviter creates an Inviter. baseURL is the public address of the SPA.
func NewInviter(users repository.UserRepository, mail mailer.Sender, baseURL string, log logging.Logger) *Inviter {
	return &Inviter{users: users, mail: mail, baseURL: baseURL, log: log.With("component", "inviter"), now: time.Now}
}

// AcceptURL is the link the invitee follows to set a password.
func (i *Inviter) AcceptURL(email string) string {
	return i.baseURL + "/accept-invitation?email=" + url.QueryEscape(email)
}

// Send mails the invitation and reports whether it was delivered. A delivery
// failure leaves the user pending and is logged, not returned.
func (i *Inviter) Send(ctx context.Context, u *model.User) bool {
	err := i.mail.SendInvitation(ctx, mailer.Invitation{
		To:        u.Email,
		Name:      u.Name,
		Role:      u.Role,
		AcceptURL: i.AcceptURL(u.Email),
	})
	if err != nil {
		i.log.Warn(ctx, "invitation not delivered", "email", u.Email, "error", err)
		return false
	}

	sentAt := i.now()
	if err := i.users.MarkInvitationSent(ctx, u.Email, sentAt); err != nil {
		i.log.Error(ctx, "invitation sent but not recorded", "email", u.Email, "error", err)
		return true
	}
	u.InvitationSentAt = &sentAt
	return true
}
