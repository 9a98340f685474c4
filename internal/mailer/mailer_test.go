package mailer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/contacts/pkg/logging"
)

type captureSender struct {
	msgs []Message
	err  error
}

func (c *captureSender) Send(ctx context.Context, msg Message) error {
	c.msgs = append(c.msgs, msg)
	return c.err
}

func TestSendConfirmation_RendersLink(t *testing.T) {
	t.Parallel()

	s := &captureSender{}
	m := New(s)

	err := m.SendConfirmation(context.Background(), "alice@example.com", "alice", "http://localhost:8000/", "tok.en.value")
	require.NoError(t, err)
	require.Len(t, s.msgs, 1)

	msg := s.msgs[0]
	assert.Equal(t, "alice@example.com", msg.To)
	assert.Equal(t, SubjectConfirm, msg.Subject)
	assert.Contains(t, msg.HTML, "Hi alice,")
	assert.Contains(t, msg.HTML, `href="http://localhost:8000/api/auth/confirmed_email/tok.en.value"`)
}

func TestSendConfirmation_EscapesUsername(t *testing.T) {
	t.Parallel()

	s := &captureSender{}
	require.NoError(t, New(s).SendConfirmation(context.Background(), "a@example.com", "<b>x</b>", "http://h", "t"))
	assert.NotContains(t, s.msgs[0].HTML, "<b>x</b>")
}

func TestSendPasswordChanged(t *testing.T) {
	t.Parallel()

	s := &captureSender{err: errors.New("smtp down")}
	err := New(s).SendPasswordChanged(context.Background(), "alice@example.com", "alice", "http://localhost:8000")
	require.Error(t, err)
	require.Len(t, s.msgs, 1)
	assert.Equal(t, SubjectPasswordChanged, s.msgs[0].Subject)
	assert.Contains(t, s.msgs[0].HTML, "password of your account was changed")
}

func TestSMTPSender_RejectsBadAddresses(t *testing.T) {
	t.Parallel()

	s := NewSMTPSender(SMTPConfig{Host: "localhost", Port: 2525, From: "not an address"})
	_, err := s.newMsg(Message{To: "alice@example.com"})
	require.Error(t, err)

	s = NewSMTPSender(SMTPConfig{Host: "localhost", Port: 2525, From: "noreply@example.com", FromName: "Contacts"})
	_, err = s.newMsg(Message{To: "broken"})
	require.Error(t, err)

	m, err := s.newMsg(Message{To: "alice@example.com", Subject: "hi", HTML: "<p>x</p>"})
	require.NoError(t, err)
	assert.NotNil(t, m)
}

func TestLogSender(t *testing.T) {
	t.Parallel()

	assert.NoError(t, LogSender{Log: logging.Discard()}.Send(context.Background(), Message{To: "a@example.com"}))
}
