package mailer

import (
	"context"
	"errors"
	"testing"
	"time"

	"minimart/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

func newTestMailer(send func(*gomail.Message) error, timeout time.Duration) *SMTPMailer {
	return &SMTPMailer{from: "noreply@minimart.test", timeout: timeout, send: send, log: logging.Nop()}
}

func TestSendInvitation(t *testing.T) {
	var got *gomail.Message
	m := newTestMailer(func(msg *gomail.Message) error {
		got = msg
		return nil
	}, time.Second)

	err := m.SendInvitation(context.Background(), Invitation{
		To: "a@x.com", Name: "Alice", Role: "resident", AcceptURL: "http://app/accept-invitation?email=a%40x.com",
	})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []string{"a@x.com"}, got.GetHeader("To"))
	assert.Equal(t, []string{"noreply@minimart.test"}, got.GetHeader("From"))
	assert.Equal(t, []string{invitationSubject}, got.GetHeader("Subject"))
}

func TestSendInvitation_TransportError(t *testing.T) {
	m := newTestMailer(func(*gomail.Message) error { return errors.New("535 auth failed") }, time.Second)

	err := m.SendInvitation(context.Background(), Invitation{To: "a@x.com"})
	assert.ErrorContains(t, err, "535 auth failed")
}

func TestSendInvitation_Timeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	m := newTestMailer(func(*gomail.Message) error {
		<-release
		return nil
	}, 20*time.Millisecond)

	err := m.SendInvitation(context.Background(), Invitation{To: "a@x.com"})
	assert.ErrorIs(t, err, ErrSendTimeout)
}

func TestRenderInvitation_EscapesHTML(t *testing.T) {
	_, text, html, err := renderInvitation(Invitation{Name: "<b>Eve</b>", Role: "admin", AcceptURL: "http://app/accept"})
	require.NoError(t, err)
	assert.Contains(t, text, "<b>Eve</b>")
	assert.Contains(t, html, "&lt;b&gt;Eve&lt;/b&gt;")
	assert.Contains(t, html, `href="http://app/accept"`)
}

func TestNew_DisabledWithoutHost(t *testing.T) {
	s := New(Config{}, logging.Nop())
	assert.ErrorIs(t, s.SendInvitation(context.Background(), Invitation{To: "a@x.com"}), ErrMailerDisabled)
}
