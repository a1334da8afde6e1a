package mailqueue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/collexus/erp/backend/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

type fakeChannel struct {
	key       string
	published []amqp.Publishing
	err       error
}

func (f *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.key = key
	f.published = append(f.published, msg)
	return nil
}

type fakeAcknowledger struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (f *fakeAcknowledger) Ack(uint64, bool) error {
	f.acked = true
	return nil
}

func (f *fakeAcknowledger) Nack(_ uint64, _ bool, requeue bool) error {
	f.nacked = true
	f.requeue = requeue
	return nil
}

func (f *fakeAcknowledger) Reject(_ uint64, requeue bool) error {
	f.nacked = true
	f.requeue = requeue
	return nil
}

type fakeSender struct {
	sent []*mail.Msg
	err  error
}

func (f *fakeSender) DialAndSend(messages ...*mail.Msg) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, messages...)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func delivery(t *testing.T, ack *fakeAcknowledger, message any) amqp.Delivery {
	t.Helper()
	body, err := json.Marshal(message)
	require.NoError(t, err)
	return amqp.Delivery{Acknowledger: ack, Body: body}
}

func TestPublisherPublishMail(t *testing.T) {
	ch := &fakeChannel{}
	p := NewPublisher(ch, "email_queue", time.Second)

	err := p.PublishMail(context.Background(), domain.MailMessage{
		Type: domain.MailTypeWelcome,
		To:   "asha@x.test",
		Data: domain.WelcomeMailData{Name: "Asha", Role: domain.RoleStudent},
	})
	require.NoError(t, err)

	assert.Equal(t, "email_queue", ch.key)
	require.Len(t, ch.published, 1)
	assert.Equal(t, "application/json", ch.published[0].ContentType)
	assert.JSONEq(t, `{"type":"welcome","to":"asha@x.test","data":{"name":"Asha","role":"student"}}`, string(ch.published[0].Body))
}

func TestPublisherPublishMailError(t *testing.T) {
	p := NewPublisher(&fakeChannel{err: errors.New("channel closed")}, "email_queue", time.Second)

	err := p.PublishMail(context.Background(), domain.MailMessage{Type: domain.MailTypeWelcome, To: "a@x.test"})
	assert.ErrorContains(t, err, "channel closed")
}

func TestRendererResetPassword(t *testing.T) {
	r, err := NewRenderer("noreply@college.edu")
	require.NoError(t, err)

	msg, err := r.Render(domain.MailMessage{
		Type: domain.MailTypeResetPassword,
		To:   "asha@x.test",
		Data: domain.ResetPasswordMailData{Name: "Asha", OTP: "123456", Expiration: 15},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "123456")
	assert.Contains(t, buf.String(), "asha@x.test")
}

func TestRendererUnsupportedType(t *testing.T) {
	r, err := NewRenderer("noreply@college.edu")
	require.NoError(t, err)

	_, err = r.Render(domain.MailMessage{Type: "newsletter_digest", To: "a@x.test"})
	assert.ErrorIs(t, err, ErrUnsupportedMailType)
}

func TestConsumerHandle(t *testing.T) {
	renderer, err := NewRenderer("noreply@college.edu")
	require.NoError(t, err)

	t.Run("sent message is acked", func(t *testing.T) {
		sender := &fakeSender{}
		ack := &fakeAcknowledger{}
		c := NewConsumer(renderer, sender, discardLogger())

		c.Handle(delivery(t, ack, domain.MailMessage{
			Type: domain.MailTypeAccountCreated,
			To:   "new@x.test",
			Data: domain.AccountCreatedMailData{Name: "New", Email: "new@x.test", Role: domain.RoleParent, Password: "s3cret"},
		}))

		assert.True(t, ack.acked)
		assert.Len(t, sender.sent, 1)
	})

	t.Run("malformed payload is dropped", func(t *testing.T) {
		sender := &fakeSender{}
		ack := &fakeAcknowledger{}
		c := NewConsumer(renderer, sender, discardLogger())

		c.Handle(amqp.Delivery{Acknowledger: ack, Body: []byte("{not json")})

		assert.True(t, ack.nacked)
		assert.False(t, ack.requeue)
		assert.Empty(t, sender.sent)
	})

	t.Run("unknown type is dropped", func(t *testing.T) {
		ack := &fakeAcknowledger{}
		c := NewConsumer(renderer, &fakeSender{}, discardLogger())

		c.Handle(delivery(t, ack, domain.MailMessage{Type: "newsletter", To: "a@x.test"}))

		assert.True(t, ack.nacked)
		assert.False(t, ack.requeue)
	})

	t.Run("send failure is requeued", func(t *testing.T) {
		ack := &fakeAcknowledger{}
		c := NewConsumer(renderer, &fakeSender{err: errors.New("smtp down")}, discardLogger())

		c.Handle(delivery(t, ack, domain.MailMessage{Type: domain.MailTypeWelcome, To: "a@x.test", Data: domain.WelcomeMailData{Name: "A"}}))

		assert.True(t, ack.nacked)
		assert.True(t, ack.requeue)
	})
}
